// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package reconcile

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/ydocsync/lib/chunk"
	"github.com/bureau-foundation/ydocsync/lib/crdt"
)

// DefaultNamespace is the key prefix used when [Config.Namespace] is
// empty.
const DefaultNamespace = "yjs"

var (
	// ErrInvalidName is returned for a document name that is empty or
	// contains "/".
	ErrInvalidName = errors.New("invalid document name")

	// ErrCorruptChunk is returned when a stored chunk entry has a key
	// that is not a valid chunk hash or a value that cannot be decoded.
	ErrCorruptChunk = errors.New("corrupt chunk entry")

	// ErrCorruptManifest is returned when a stored manifest cannot be
	// decoded.
	ErrCorruptManifest = errors.New("corrupt manifest")

	// ErrInvalidUpdate is returned by UpdateYJS when the update
	// argument is not valid base64.
	ErrInvalidUpdate = errors.New("invalid update encoding")
)

// Config configures a [Reconciler].
type Config struct {
	// Namespace prefixes every key. Defaults to DefaultNamespace.
	Namespace string

	// Params are the chunking parameters. The zero value selects
	// chunk.DefaultParams.
	Params chunk.Params

	// Engine merges updates. Required.
	Engine crdt.Engine

	// Validator, if set, inspects and may rewrite the merged document
	// before an authoritative write.
	Validator crdt.Validator

	// Compression applies to newly written chunk values.
	Compression Compression

	// Logger receives per-write statistics at debug level. Nil
	// discards them.
	Logger *slog.Logger
}

// Reconciler reads and writes chunked document state. It is stateless
// between calls and safe for concurrent use.
type Reconciler struct {
	keys        Keys
	params      chunk.Params
	engine      crdt.Engine
	validator   crdt.Validator
	compression Compression
	logger      *slog.Logger
}

// New validates cfg and returns a Reconciler.
func New(cfg Config) (*Reconciler, error) {
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = DefaultNamespace
	}
	params := cfg.Params
	if params == (chunk.Params{}) {
		params = chunk.DefaultParams()
	}
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("reconcile: %w", err)
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("reconcile: Engine is required")
	}
	if !cfg.Compression.valid() {
		return nil, fmt.Errorf("reconcile: unsupported compression %s", cfg.Compression)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Reconciler{
		keys:        Keys{Namespace: namespace},
		params:      params,
		engine:      cfg.Engine,
		validator:   cfg.Validator,
		compression: cfg.Compression,
		logger:      logger,
	}, nil
}

// Keys returns the key layout the reconciler writes.
func (r *Reconciler) Keys() Keys {
	return r.keys
}

// Params returns the chunking parameters in use.
func (r *Reconciler) Params() chunk.Params {
	return r.params
}
