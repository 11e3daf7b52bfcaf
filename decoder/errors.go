// errors.go: Decoder-side error taxonomy
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package decoder

import "errors"

// ErrMalformed marks a framing error the decoder could not recover
// from: a dictionary checksum mismatch, a record whose declared size
// runs past EOF, or too long a run of non-zero invalid tag bytes. Zero
// (pad) bytes are always skipped and never count toward that run.
var ErrMalformed = errors.New("decoder: malformed record")

// ErrUnknownSite marks a log_msg record naming a site id the dictionary
// read so far has no record of. A healthy producer never emits this;
// seeing it means the dictionary batch that should have described the
// site was lost or arrived out of order.
var ErrUnknownSite = errors.New("decoder: unknown site id")

// maxConsecutiveInvalidBytes bounds how many non-zero "invalid" tag
// bytes in a row the decoder tolerates before giving up on
// resynchronizing and surfacing ErrMalformed.
const maxConsecutiveInvalidBytes = 64
