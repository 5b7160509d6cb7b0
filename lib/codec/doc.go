// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for structured values
// in the key/value store: chunk manifests and operation-log updates.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same manifest always encodes to the same bytes, so a rewrite of an
// unchanged manifest is a no-op diff for the store's change detection.
//
//	data, err := codec.Marshal(manifest)
//	err = codec.Unmarshal(data, &manifest)
//
// Types that implement encoding.TextMarshaler (chunk hashes) encode as
// CBOR text strings, so manifests stay readable in diagnostic output.
//
// Struct types use json tags; fxamacker/cbor falls back to them when
// cbor tags are absent, so one set of tags controls both the stored
// form and the CLI's JSON output.
package codec
