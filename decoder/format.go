// format.go: Rebuilding human-readable text from packed arguments
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package decoder

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/agilira/nanolog/internal/pack"
	"github.com/agilira/nanolog/internal/registry"
)

// unpackAndRender decodes a log_msg record's argument area (everything
// after the nibble table's implicit start, i.e. right after the
// delta-compressed header) using info's fragment list, and returns the
// rendered text plus the number of bytes consumed.
//
// This mirrors internal/encoder.EncodeEntry's two-pass structure in
// reverse: pass one walks every non-string fragment in order, pulling
// its pack code from the nibble table and its bytes from the scalar
// region; pass two walks every string fragment in order, reading until
// the NUL terminator the encoder wrote.
func unpackAndRender(info *SiteInfo, data []byte) (string, int, error) {
	nibbleBytes := pack.NibbleTableBytes(info.NumNibbles)
	if nibbleBytes > len(data) {
		return "", 0, fmt.Errorf("%w: truncated nibble table", ErrMalformed)
	}
	nibbleTable := data[:nibbleBytes]
	cursor := nibbleBytes

	argFrags := info.Fragments[:info.argFragments]
	scalars := make([]interface{}, len(argFrags))
	strPending := make([]bool, len(argFrags))

	nibbleIdx := 0
	for i, frag := range argFrags {
		if frag.ArgType.IsString() {
			strPending[i] = true
			continue
		}
		if nibbleIdx >= info.NumNibbles {
			return "", 0, fmt.Errorf("%w: nibble count mismatch", ErrMalformed)
		}
		code := pack.GetNibble(nibbleTable, nibbleIdx)
		nibbleIdx++

		val, n, err := unpackScalar(frag.ArgKind, data[cursor:], code)
		if err != nil {
			return "", 0, err
		}
		cursor += n
		scalars[i] = val
	}

	for i, frag := range argFrags {
		if !strPending[i] {
			continue
		}
		nul := bytes.IndexByte(data[cursor:], 0)
		if nul < 0 {
			return "", 0, fmt.Errorf("%w: unterminated string argument", ErrMalformed)
		}
		scalars[i] = string(data[cursor : cursor+nul])
		cursor += nul + 1
	}

	var sb strings.Builder
	for i, frag := range argFrags {
		sb.WriteString(frag.Text)
		writeArgValue(&sb, frag, scalars[i])
	}
	if info.argFragments < len(info.Fragments) {
		sb.WriteString(info.Fragments[info.argFragments].Text)
	}

	return sb.String(), cursor, nil
}

func unpackScalar(kind registry.ArgKind, src []byte, code uint8) (interface{}, int, error) {
	switch kind {
	case registry.KindFloat64:
		v, n := pack.UnpackFloat64(src, code)
		return v, n, nil
	case registry.KindFloat32:
		v, n := pack.UnpackFloat32(src, code)
		return v, n, nil
	case registry.KindPointer:
		v, n := pack.UnpackPointer(src, code)
		return v, n, nil
	case registry.KindInt64:
		v, n := pack.UnpackInt64(src, code)
		return v, n, nil
	default: // KindUint64
		v, n := pack.UnpackUint64(src, code)
		return v, n, nil
	}
}

func writeArgValue(sb *strings.Builder, frag registry.Fragment, val interface{}) {
	switch frag.ArgKind {
	case registry.KindFloat64:
		sb.WriteString(strconv.FormatFloat(val.(float64), 'g', -1, 64))
	case registry.KindFloat32:
		sb.WriteString(strconv.FormatFloat(float64(val.(float32)), 'g', -1, 32))
	case registry.KindPointer:
		sb.WriteString("0x")
		sb.WriteString(strconv.FormatUint(val.(uint64), 16))
	case registry.KindInt64:
		if s, ok := val.(string); ok {
			sb.WriteString(s)
			return
		}
		sb.WriteString(strconv.FormatInt(val.(int64), 10))
	case registry.KindUint64:
		if s, ok := val.(string); ok {
			sb.WriteString(s)
			return
		}
		sb.WriteString(strconv.FormatUint(val.(uint64), 10))
	default:
		fmt.Fprintf(sb, "%v", val)
	}
}
