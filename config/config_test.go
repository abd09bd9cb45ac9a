package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWithRequiredQueue(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POLICYATTACHMENT_SQS_QUEUE_URL", "https://sqs.us-east-1.amazonaws.com/123456789012/requests")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "https://sqs.us-east-1.amazonaws.com/123456789012/requests", cfg.SQS.QueueURL)
	assert.Equal(t, int32(5), cfg.SQS.MaxMessages)
	assert.Equal(t, int32(10), cfg.SQS.WaitTimeSeconds)
	assert.Equal(t, 90*time.Second, cfg.SQS.ProcessingTimeout)
	assert.Equal(t, time.Second, cfg.Retry.Interval)
	assert.Equal(t, time.Second, cfg.Retry.Jitter)
	assert.Equal(t, 40*time.Second, cfg.Retry.MaxElapsed)
	assert.Equal(t, "immediate", cfg.Failure.Policy)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingQueueURL(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sqs.queue_url is required")
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("POLICYATTACHMENT_SQS_QUEUE_URL", "q")
	t.Setenv("POLICYATTACHMENT_RETRY_MAX_ELAPSED", "20s")
	t.Setenv("POLICYATTACHMENT_RETRY_JITTER", "250ms")
	t.Setenv("POLICYATTACHMENT_FAILURE_POLICY", "redrive")
	t.Setenv("POLICYATTACHMENT_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 20*time.Second, cfg.Retry.MaxElapsed)
	assert.Equal(t, 250*time.Millisecond, cfg.Retry.Jitter)
	assert.Equal(t, "redrive", cfg.Failure.Policy)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "handler.yaml")
	content := []byte(`
aws:
  region: eu-west-1
  endpoint: http://localhost:4566
sqs:
  queue_url: http://localhost:4566/000000000000/requests
  response_queue_url: http://localhost:4566/000000000000/responses
  max_messages: 10
retry:
  interval: 2s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "eu-west-1", cfg.AWS.Region)
	assert.Equal(t, "http://localhost:4566", cfg.AWS.Endpoint)
	assert.Equal(t, "http://localhost:4566/000000000000/responses", cfg.SQS.ResponseQueueURL)
	assert.Equal(t, int32(10), cfg.SQS.MaxMessages)
	assert.Equal(t, 2*time.Second, cfg.Retry.Interval)
	assert.Equal(t, 40*time.Second, cfg.Retry.MaxElapsed)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Configuration {
		return Configuration{
			SQS:     SQSConfiguration{QueueURL: "q", MaxMessages: 5, WaitTimeSeconds: 10, ProcessingTimeout: 90 * time.Second},
			Retry:   RetryConfiguration{Interval: time.Second, Jitter: time.Second, MaxElapsed: 40 * time.Second},
			Failure: FailureConfiguration{Policy: "immediate"},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	cases := []struct {
		name   string
		mutate func(*Configuration)
		want   string
	}{
		{"too many messages", func(c *Configuration) { c.SQS.MaxMessages = 11 }, "sqs.max_messages"},
		{"wait too long", func(c *Configuration) { c.SQS.WaitTimeSeconds = 21 }, "sqs.wait_time_seconds"},
		{"timeout below retry budget", func(c *Configuration) { c.SQS.ProcessingTimeout = 30 * time.Second }, "must exceed retry.max_elapsed"},
		{"zero interval", func(c *Configuration) { c.Retry.Interval = 0 }, "retry.interval"},
		{"negative jitter", func(c *Configuration) { c.Retry.Jitter = -time.Second }, "retry.jitter"},
		{"zero budget", func(c *Configuration) { c.Retry.MaxElapsed = 0 }, "retry.max_elapsed must be positive"},
		{"unknown failure policy", func(c *Configuration) { c.Failure.Policy = "dlq" }, "failure.policy"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := valid()
			tc.mutate(&c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
