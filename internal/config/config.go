package config

import (
	"fmt"
	"strings"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Run modes.
const (
	RunModeLambda = "lambda"
	RunModeLocal  = "local"
	RunModePoll   = "poll"
)

// Notifier drivers.
const (
	DriverSNS   = "sns"
	DriverKafka = "kafka"
)

// Defaults matching the deployed Lambda.
const (
	DefaultStoreName = "Orders"
	DefaultTopicID   = "arn:aws:sns:eu-north-1:688567293311:OrderSuccess"
)

// Config holds all handler configuration
type Config struct {
	App     AppConfig
	AWS     AWSConfig
	Ingest  IngestConfig
	Notify  NotifyConfig
	Queue   QueueConfig
	Metrics MetricsConfig
	Log     LogConfig
}

// AppConfig selects how the handler is driven
type AppConfig struct {
	RunMode   string `validate:"oneof=lambda local poll"`
	LocalAddr string `validate:"required"`
}

// AWSConfig holds SDK settings
type AWSConfig struct {
	Region           string `validate:"required"`
	EndpointOverride string `validate:"omitempty,url"`
}

// IngestConfig names the table and topic the handler writes to
type IngestConfig struct {
	StoreName      string `validate:"required"` // logical table identifier
	TopicID        string `validate:"required"` // logical topic identifier
	StrictQuantity bool
}

// NotifyConfig selects the topic implementation
type NotifyConfig struct {
	Driver       string `validate:"oneof=sns kafka"`
	KafkaBrokers []string
}

// QueueConfig is used by the poll run mode and the sendorder tool
type QueueConfig struct {
	URL         string
	MaxMessages int           `validate:"min=1,max=10"`
	WaitTime    time.Duration `validate:"min=0,max=20s"`
}

// MetricsConfig controls the optional CloudWatch batch metrics
type MetricsConfig struct {
	Enabled   bool
	Namespace string `validate:"required"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string `validate:"oneof=json console"`
	Output string // stdout, stderr, or file path
}

// Load loads configuration from an optional ingest.toml and environment variables.
// Priority (highest to lowest):
//  1. Environment variables with INGEST_ prefix (e.g., INGEST_NOTIFY_DRIVER)
//     and the names bound in bindEnv (e.g., ORDERS_TABLE)
//  2. ingest.toml
//  3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("ingest")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/var/task")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := bindEnv(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		App: AppConfig{
			RunMode:   v.GetString("app.run_mode"),
			LocalAddr: v.GetString("app.local_addr"),
		},
		AWS: AWSConfig{
			Region:           v.GetString("aws.region"),
			EndpointOverride: v.GetString("aws.endpoint_override"),
		},
		Ingest: IngestConfig{
			StoreName:      v.GetString("ingest.store_name"),
			TopicID:        v.GetString("ingest.topic_id"),
			StrictQuantity: v.GetBool("ingest.strict_quantity"),
		},
		Notify: NotifyConfig{
			Driver:       v.GetString("notify.driver"),
			KafkaBrokers: splitList(v.GetStringSlice("notify.kafka_brokers")),
		},
		Queue: QueueConfig{
			URL:         v.GetString("queue.url"),
			MaxMessages: v.GetInt("queue.max_messages"),
			WaitTime:    v.GetDuration("queue.wait_time"),
		},
		Metrics: MetricsConfig{
			Enabled:   v.GetBool("metrics.enabled"),
			Namespace: v.GetString("metrics.namespace"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
	}

	if v.GetBool("run_local") && cfg.App.RunMode == "" {
		cfg.App.RunMode = RunModeLocal
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// bindEnv maps the short environment names used by the deployment templates.
func bindEnv(v *viper.Viper) error {
	bindings := map[string][]string{
		"ingest.store_name":      {"INGEST_STORE_NAME", "ORDERS_TABLE"},
		"ingest.topic_id":        {"INGEST_TOPIC_ID", "ORDER_SUCCESS_TOPIC_ARN"},
		"ingest.strict_quantity": {"INGEST_STRICT_QUANTITY"},
		"aws.region":             {"INGEST_AWS_REGION", "AWS_REGION"},
		"aws.endpoint_override":  {"INGEST_AWS_ENDPOINT_OVERRIDE", "AWS_ENDPOINT_OVERRIDE"},
		"queue.url":              {"INGEST_QUEUE_URL", "ORDERS_QUEUE_URL"},
		"run_local":              {"RUN_LOCAL"},
	}
	for key, envs := range bindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.RunMode == "" {
		cfg.App.RunMode = RunModeLambda
	}
	if cfg.App.LocalAddr == "" {
		cfg.App.LocalAddr = ":8080"
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "us-east-1"
	}
	if cfg.Ingest.StoreName == "" {
		cfg.Ingest.StoreName = DefaultStoreName
	}
	if cfg.Ingest.TopicID == "" {
		cfg.Ingest.TopicID = DefaultTopicID
	}
	if cfg.Notify.Driver == "" {
		cfg.Notify.Driver = DriverSNS
	}
	if cfg.Queue.MaxMessages == 0 {
		cfg.Queue.MaxMessages = 10
	}
	if cfg.Queue.WaitTime == 0 {
		cfg.Queue.WaitTime = 20 * time.Second
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "OrderIngestion"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
}

// Validate checks field constraints and the rules that span sections.
func (c *Config) Validate() error {
	v := validatorv10.New()
	v.RegisterStructValidation(configStructValidation, Config{})
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// configStructValidation ties the topic id to the chosen notifier and
// requires a queue for poll mode.
func configStructValidation(sl validatorv10.StructLevel) {
	c := sl.Current().Interface().(Config)

	switch c.Notify.Driver {
	case DriverSNS:
		if !strings.HasPrefix(c.Ingest.TopicID, "arn:") {
			sl.ReportError(c.Ingest.TopicID, "Ingest.TopicID", "TopicID", "sns_topic_arn", "")
		}
	case DriverKafka:
		if len(c.Notify.KafkaBrokers) == 0 {
			sl.ReportError(c.Notify.KafkaBrokers, "Notify.KafkaBrokers", "KafkaBrokers", "required_for_kafka", "")
		}
	}

	if c.App.RunMode == RunModePoll && c.Queue.URL == "" {
		sl.ReportError(c.Queue.URL, "Queue.URL", "URL", "required_for_poll", "")
	}
}

// splitList accepts both list values and a single comma separated string.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		for _, p := range strings.Split(s, ",") {
			if t := strings.TrimSpace(p); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
