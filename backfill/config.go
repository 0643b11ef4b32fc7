// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package backfill

import "time"

const (
	// DefaultBatchSize is the default number of items sent to the provider at once
	DefaultBatchSize = 100

	// DefaultConcurrency is the default number of batches embedded in parallel
	DefaultConcurrency = 1
)

// Config holds configuration for a backfill run.
type Config struct {
	// BatchSize is the number of items to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of items)
	ReportInterval int

	// MaxRetries is the maximum number of single-item retry attempts after a
	// retryable batch failure
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration

	// Concurrency is the number of batches processed in parallel
	Concurrency int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
		Concurrency:    DefaultConcurrency,
	}
}

// normalized returns a copy with unusable values replaced by defaults.
func (c *Config) normalized() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	n := *c
	if n.BatchSize <= 0 {
		n.BatchSize = defaults.BatchSize
	}
	if n.ReportInterval <= 0 {
		n.ReportInterval = defaults.ReportInterval
	}
	if n.MaxRetries < 0 {
		n.MaxRetries = 0
	}
	if n.RetryDelay < 0 {
		n.RetryDelay = 0
	}
	if n.Concurrency <= 0 {
		n.Concurrency = defaults.Concurrency
	}
	return &n
}
