// Package config loads the process configuration from defaults, an optional
// YAML file and POLICYATTACHMENT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	failure "github.com/hatsunemiku3939/policyattachment/policy/failure"
)

// EnvPrefix prefixes every environment override, e.g. POLICYATTACHMENT_SQS_QUEUE_URL.
const EnvPrefix = "POLICYATTACHMENT"

// Configuration stores all the configurations
type Configuration struct {
	AWS     AWSConfiguration     `mapstructure:"aws"`
	SQS     SQSConfiguration     `mapstructure:"sqs"`
	Retry   RetryConfiguration   `mapstructure:"retry"`
	Failure FailureConfiguration `mapstructure:"failure"`
	Log     LogConfiguration     `mapstructure:"log"`
}

// AWSConfiguration tunes the SDK clients.
type AWSConfiguration struct {
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
}

// SQSConfiguration names the queues and polling behavior.
type SQSConfiguration struct {
	QueueURL          string        `mapstructure:"queue_url"`
	ResponseQueueURL  string        `mapstructure:"response_queue_url"`
	MaxMessages       int32         `mapstructure:"max_messages"`
	WaitTimeSeconds   int32         `mapstructure:"wait_time_seconds"`
	ProcessingTimeout time.Duration `mapstructure:"processing_timeout"`
}

// RetryConfiguration is the contention retry policy of the handlers.
type RetryConfiguration struct {
	Interval   time.Duration `mapstructure:"interval"`
	Jitter     time.Duration `mapstructure:"jitter"`
	MaxElapsed time.Duration `mapstructure:"max_elapsed"`
}

// FailureConfiguration picks the failure policy by name.
type FailureConfiguration struct {
	Policy string `mapstructure:"policy"`
}

// LogConfiguration sets the log level.
type LogConfiguration struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.region", "")
	v.SetDefault("aws.endpoint", "")
	v.SetDefault("sqs.queue_url", "")
	v.SetDefault("sqs.response_queue_url", "")
	v.SetDefault("sqs.max_messages", 5)
	v.SetDefault("sqs.wait_time_seconds", 10)
	v.SetDefault("sqs.processing_timeout", "90s")
	v.SetDefault("retry.interval", "1s")
	v.SetDefault("retry.jitter", "1s")
	v.SetDefault("retry.max_elapsed", "40s")
	v.SetDefault("failure.policy", failure.NameImmediate)
	v.SetDefault("log.level", "info")
}

// Load reads the configuration. configFile may be empty, in which case
// config.yaml is looked up in the working directory and ./config and its
// absence is not an error.
func Load(configFile string) (*Configuration, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the process cannot run with.
func (c *Configuration) Validate() error {
	var errs []error
	if strings.TrimSpace(c.SQS.QueueURL) == "" {
		errs = append(errs, errors.New("sqs.queue_url is required"))
	}
	if c.SQS.MaxMessages < 1 || c.SQS.MaxMessages > 10 {
		errs = append(errs, fmt.Errorf("sqs.max_messages must be between 1 and 10, got %d", c.SQS.MaxMessages))
	}
	if c.SQS.WaitTimeSeconds < 0 || c.SQS.WaitTimeSeconds > 20 {
		errs = append(errs, fmt.Errorf("sqs.wait_time_seconds must be between 0 and 20, got %d", c.SQS.WaitTimeSeconds))
	}
	if c.SQS.ProcessingTimeout <= c.Retry.MaxElapsed {
		errs = append(errs, fmt.Errorf("sqs.processing_timeout (%s) must exceed retry.max_elapsed (%s)", c.SQS.ProcessingTimeout, c.Retry.MaxElapsed))
	}
	if c.Retry.Interval <= 0 {
		errs = append(errs, errors.New("retry.interval must be positive"))
	}
	if c.Retry.Jitter < 0 {
		errs = append(errs, errors.New("retry.jitter must not be negative"))
	}
	if c.Retry.MaxElapsed <= 0 {
		errs = append(errs, errors.New("retry.max_elapsed must be positive"))
	}
	if _, err := failure.ByName(c.Failure.Policy); err != nil {
		errs = append(errs, fmt.Errorf("failure.policy: %w", err))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}
