// SPDX-License-Identifier: Apache-2.0

// Package config loads the YAML bootstrap file: server settings and the
// set of queues to create at startup, per SPEC_FULL.md's ambient-stack
// expansion of the teacher's config.go.
package config

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lsqs/lsqs/internal/queue"
)

// Config is the root of the bootstrap YAML file.
type Config struct {
	Server ServerConfig  `yaml:"server"`
	Queues []QueueConfig `yaml:"queues"`
}

// ServerConfig holds HTTP server and storage settings.
type ServerConfig struct {
	Port          int    `yaml:"port"`
	Host          string `yaml:"host"`
	DBPath        string `yaml:"db_path"`
	ReapInterval  int    `yaml:"reap_interval_seconds"`
}

// QueueConfig describes one queue to create at startup.
type QueueConfig struct {
	Name                   string            `yaml:"name"`
	VisibilityTimeout      int               `yaml:"visibility_timeout"`
	MessageRetentionPeriod int               `yaml:"message_retention_period"`
	MaximumMessageSize     int               `yaml:"maximum_message_size"`
	DelaySeconds           int               `yaml:"delay_seconds"`
	ReceiveMessageWaitTime int               `yaml:"receive_message_wait_time"`
	FifoQueue              bool              `yaml:"fifo_queue"`
	ContentBasedDedup      bool              `yaml:"content_based_deduplication"`
	RedrivePolicy          *RedrivePolicyYAML `yaml:"redrive_policy"`
	Attributes             map[string]string `yaml:"attributes"`
}

// RedrivePolicyYAML is the bootstrap-file shape of a queue's redrive policy;
// DeadLetterTargetQueue names a queue defined elsewhere in the same file
// instead of requiring a full ARN, since there is no account/region to fill
// in at bootstrap time.
type RedrivePolicyYAML struct {
	DeadLetterTargetQueue string `yaml:"dead_letter_target_queue"`
	MaxReceiveCount       int    `yaml:"max_receive_count"`
}

// LoadConfig reads and parses the YAML configuration file, applying the
// same defaults CreateQueue would apply so a dry read of the file shows
// the values that will actually take effect.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9324
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.DBPath == "" {
		cfg.Server.DBPath = "./lsqs.db"
	}
	if cfg.Server.ReapInterval == 0 {
		cfg.Server.ReapInterval = 1
	}

	for i := range cfg.Queues {
		q := &cfg.Queues[i]
		if q.VisibilityTimeout == 0 {
			q.VisibilityTimeout = queue.DefaultVisibilityTimeoutS
		}
		if q.MessageRetentionPeriod == 0 {
			q.MessageRetentionPeriod = queue.DefaultRetentionS
		}
		if q.MaximumMessageSize == 0 {
			q.MaximumMessageSize = queue.DefaultMaxMessageBytes
		}
	}

	return &cfg, nil
}

// BootstrapQueues creates every queue named in cfg, in file order. DLQs
// must be listed before the queues whose RedrivePolicy targets them,
// matching the Queue Service's cycle check (a RedrivePolicy can only
// point at a queue that already exists and carries no policy of its own).
func BootstrapQueues(ctx context.Context, svc *queue.Service, cfg *Config) error {
	for _, qc := range cfg.Queues {
		attrs := queue.Attributes{
			VisibilityTimeoutS: &qc.VisibilityTimeout,
			MessageRetentionS:  &qc.MessageRetentionPeriod,
			MaxMessageBytes:    &qc.MaximumMessageSize,
			DelaySeconds:       &qc.DelaySeconds,
			ReceiveWaitTimeS:   &qc.ReceiveMessageWaitTime,
			FifoQueue:          qc.FifoQueue,
		}
		if qc.FifoQueue {
			attrs.ContentBasedDedup = &qc.ContentBasedDedup
		}
		if qc.RedrivePolicy != nil {
			attrs.RedrivePolicy = &queue.RedrivePolicy{
				DeadLetterTargetArn: "arn:aws:sqs:us-east-1:000000000000:" + qc.RedrivePolicy.DeadLetterTargetQueue,
				MaxReceiveCount:     qc.RedrivePolicy.MaxReceiveCount,
			}
		}

		if _, err := svc.CreateQueue(ctx, qc.Name, attrs); err != nil {
			return fmt.Errorf("failed to create queue %s: %w", qc.Name, err)
		}
	}
	return nil
}
