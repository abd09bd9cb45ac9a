// Package resource implements the lifecycle handlers of the
// ProServe::Organizations::PolicyAttachment resource type.
package resource

import "fmt"

// TypeName is the registered resource type name.
const TypeName = "ProServe::Organizations::PolicyAttachment"

// Model is the resource's property set: a policy attached to a target
// (root, organizational unit or account).
type Model struct {
	PolicyID string `json:"PolicyId"`
	TargetID string `json:"TargetId"`
}

func policyNotFoundMessage(m Model) string {
	return fmt.Sprintf("Policy %s does not exist", m.PolicyID)
}

func targetNotFoundMessage(m Model) string {
	return fmt.Sprintf("Target %s does not exist", m.TargetID)
}

func notAttachedMessage(m Model) string {
	return fmt.Sprintf("Policy %s is not attached to Target %s", m.PolicyID, m.TargetID)
}

func alreadyAttachedMessage(m Model) string {
	return fmt.Sprintf("Policy %s is already attached to Target %s", m.PolicyID, m.TargetID)
}
