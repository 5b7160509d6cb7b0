// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// ydocsync inspects and manipulates chunked document state.
//
// Subcommands:
//
//	ydocsync chunk FILE [PREVIOUS]   chunk a file and print statistics
//	ydocsync put DOC FILE            store FILE as DOC's server update
//	ydocsync get DOC                 write DOC's server update to stdout
//	ydocsync apply DOC KEY=VALUE...  merge an edit into DOC through UpdateYJS
//	ydocsync inspect [DOC]           list stored keys
//
// put, get, apply and inspect open the SQLite store named by the
// configuration (--config or YDOCSYNC_CONFIG) or by --db. apply and
// get --keys treat the document as an operation log; put and get store
// and return arbitrary bytes.
package main
