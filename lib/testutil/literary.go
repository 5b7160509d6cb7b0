// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"bytes"
	_ "embed"
)

// loomings is the opening chapter of Herman Melville's Moby-Dick
// (1851, public domain), as plain ASCII text.
//
//go:embed testdata/loomings.txt
var loomings []byte

// Loomings returns a fresh copy of a short excerpt of real literary
// text. Callers may modify the result.
func Loomings() []byte {
	return bytes.Clone(loomings)
}
