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


package precomputed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/poiesic/semsearch/ai"
)

const (
	// DefaultDimension matches the 1536-wide table shipped with the catalog demo data.
	DefaultDimension = 1536
)

// Provider implements ai.Provider from a precomputed table.
type Provider struct {
	dimension int
	strict    bool
	mu        sync.RWMutex
	table     map[string][]float32
	misses    atomic.Int64
	reason    string // set when the configured table could not be loaded
	logger    *slog.Logger
}

var _ ai.Provider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider) error

// WithDimension sets the output dimension. Default is DefaultDimension.
func WithDimension(dim int) Option {
	return func(p *Provider) error {
		if dim <= 0 {
			return fmt.Errorf("precomputed: dimension must be positive, got %d", dim)
		}
		p.dimension = dim
		return nil
	}
}

// WithStrict makes cache misses fail instead of using the fallback vector.
func WithStrict(strict bool) Option {
	return func(p *Provider) error {
		p.strict = strict
		return nil
	}
}

// WithEmbeddings seeds the table. Entries whose length differs from the
// provider dimension are rejected, so apply WithDimension first.
func WithEmbeddings(entries map[string][]float32) Option {
	return func(p *Provider) error {
		for text, vec := range entries {
			if err := p.add(text, vec); err != nil {
				return err
			}
		}
		return nil
	}
}

// WithFile loads the table from a JSON file. See LoadFile for the format.
func WithFile(path string) Option {
	return func(p *Provider) error {
		entries, err := LoadFile(path)
		if err != nil {
			return err
		}
		rejected := 0
		for text, vec := range entries {
			if len(vec) != p.dimension {
				rejected++
				continue
			}
			p.table[Normalize(text)] = vec
		}
		if rejected > 0 {
			p.logger.Warn("rejected precomputed embeddings with wrong dimension",
				"file", path, "rejected", rejected, "dimension", p.dimension)
		}
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger.With("component", "precomputed-provider")
		return nil
	}
}

// New creates a precomputed provider with the concrete type, for tests that
// need AddEmbedding or Misses.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		dimension: DefaultDimension,
		table:     make(map[string][]float32),
		logger:    slog.Default().With("component", "precomputed-provider"),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewProvider creates a precomputed provider from configuration.
// An unreadable PrecomputedFile does not fail construction; the provider then
// reports IsAvailable() == false and every call fails with
// ai.ErrProviderUnavailable.
//
// Returns ai.Provider interface to enforce abstraction.
func NewProvider(config *ai.Config) (ai.Provider, error) {
	opts := []Option{WithStrict(config.PrecomputedStrict)}
	if config.Dimension > 0 {
		opts = append(opts, WithDimension(config.Dimension))
	}
	p, err := New(opts...)
	if err != nil {
		return nil, err
	}
	if config.PrecomputedFile != "" {
		if err := WithFile(config.PrecomputedFile)(p); err != nil {
			p.reason = err.Error()
			p.logger.Warn("provider not configured", "reason", p.reason)
		}
	}
	return p, nil
}

// Normalize returns the lookup key for text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Name returns "precomputed".
func (p *Provider) Name() string {
	return ai.ProviderPrecomputed
}

// Dimension returns the fixed output dimension.
func (p *Provider) Dimension() int {
	return p.dimension
}

// IsAvailable reports whether the configured table was loaded.
// The provider never leaves the process.
func (p *Provider) IsAvailable() bool {
	return p.reason == ""
}

// Embed returns the stored vector for text, or the deterministic fallback.
// The returned slice is a copy.
func (p *Provider) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, ai.Classify(p.Name(), err)
	}
	if p.reason != "" {
		return nil, ai.NewError(p.Name(), ai.ErrProviderUnavailable, false, errors.New(p.reason))
	}

	key := Normalize(text)
	p.mu.RLock()
	vec, ok := p.table[key]
	p.mu.RUnlock()
	if ok {
		return append([]float32(nil), vec...), nil
	}

	p.misses.Add(1)
	if p.strict {
		return nil, ai.NewError(p.Name(), ai.ErrProviderUnavailable, false,
			fmt.Errorf("no precomputed embedding for %q", key))
	}
	p.logger.Debug("precomputed embedding miss, using fallback vector", "length", len(key))
	return FallbackVector(key, p.dimension), nil
}

// EmbedBatch embeds each text in turn.
func (p *Provider) EmbedBatch(ctx context.Context, texts []string) *ai.BatchResult {
	return ai.EmbedSequential(ctx, texts, p.Embed)
}

// AddEmbedding inserts or replaces the vector for text.
func (p *Provider) AddEmbedding(text string, vec []float32) error {
	return p.add(text, vec)
}

// CacheSize returns the number of precomputed entries.
func (p *Provider) CacheSize() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.table)
}

// Misses returns how many lookups were served without a precomputed entry.
func (p *Provider) Misses() int64 {
	return p.misses.Load()
}

func (p *Provider) add(text string, vec []float32) error {
	if err := ai.CheckDimension(p.Name(), p.dimension, vec); err != nil {
		return err
	}
	p.mu.Lock()
	p.table[Normalize(text)] = append([]float32(nil), vec...)
	p.mu.Unlock()
	return nil
}
