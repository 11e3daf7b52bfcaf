// doc.go: Offline reader for nanolog's compacted binary format
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

// Package decoder reads the binary log a nanolog.Logger writes and
// reconstructs human-readable text from it: it locates and loads the
// streamed site dictionary, follows checkpoints as they re-anchor the
// delta-compressed stream, and dispatches each compacted entry through
// the same pack-code nibble table and string-terminator rules the
// encoder used to write it.
//
// This package has no dependency on the nanolog package itself — a
// decoder runs standalone, typically in a separate process or the
// cmd/nanolog-decode CLI, reading a file a live Logger is still
// appending to.
package decoder
