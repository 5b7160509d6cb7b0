// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for ydocsync packages.
//
// [Prose] generates deterministic English-like play text from a seed.
// [PlayScript] is the ~154 KB corpus the chunking scenarios are
// written against. [Loomings] is a few kilobytes of real public-domain
// prose for tests that want natural text rather than generated text.
// [Insert] and [Overwrite] derive edited copies of a
// corpus without mutating the original.
package testutil
