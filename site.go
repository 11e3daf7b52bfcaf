// site.go: Call-site registration and format-string parsing
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"fmt"
	"runtime"
	"strconv"
	"strings"

	"github.com/agilira/nanolog/internal/registry"
)

// Site is the handle a call site keeps after registration. Log calls
// pass it back in to identify which dictionary entry and argument
// shape to use when building the raw ring entry.
type Site struct {
	id       uint32
	severity Level
	meta     *registry.SiteMetadata
}

// siteRegistry is process-wide and independent of any particular Logger
// instance, so that call sites declared as package-level variables (the
// idiomatic stand-in for the original's compile-time preprocessor pass)
// register before main ever constructs a Logger, regardless of which
// Logger — or how many — eventually drain the rings those sites feed.
var siteRegistry = registry.New()

// RegisterSite parses format once, assigns it a dense process-wide id,
// and returns a handle for repeated Log calls. It is meant to be called
// once per call site, typically into a package-level variable, mirroring
// the "register on first use" strategy a preprocessor would apply
// automatically in a compiled language.
func RegisterSite(format string, severity Level) *Site {
	paramTypes, argKinds, fragments := parseFormat(format)

	file, line := callerLocation()

	meta := &registry.SiteMetadata{
		Format:     format,
		File:       file,
		Line:       uint32(line),
		Severity:   uint8(severity),
		ParamTypes: paramTypes,
		ArgKinds:   argKinds,
		Fragments:  fragments,
	}

	id := siteRegistry.Register(meta)
	return &Site{id: id, severity: severity, meta: meta}
}

func callerLocation() (string, int) {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "unknown", 0
	}
	return file, line
}

// parseFormat walks a printf-style format string and derives the
// argument-type vector and fragment list a SiteMetadata needs. It
// recognizes the verb set NanoLog's own preprocessor understands:
// %d/%i/%ld/%lld (signed), %u/%lu/%llu/%x/%X (unsigned), %f/%g/%e
// (floating point), %p (pointer), %s (string). Unrecognized verbs are
// treated as opaque signed integers, the safest fallback.
//
// A '*' width or precision consumes its own argument ahead of the
// specifier it governs (DynamicWidth, DynamicPrecision); a literal
// ".N" precision on a string verb truncates that string to N bytes, a
// limit fixed at registration time (StringFixedPrecision, the spec's
// STRING(n)); a
// ".*" precision on a string verb truncates to whatever the preceding
// DynamicPrecision argument holds at encode time
// (StringDynamicPrecision).
func parseFormat(format string) ([]registry.ParamType, []registry.ArgKind, []registry.Fragment) {
	var paramTypes []registry.ParamType
	var argKinds []registry.ArgKind
	var fragments []registry.Fragment

	var literal strings.Builder

	emit := func(pt registry.ParamType, kind registry.ArgKind, fixedPrecision uint32, hasDynWidth, hasDynPrecision bool) {
		fragments = append(fragments, registry.Fragment{
			ArgType:             pt,
			ArgKind:             kind,
			HasDynamicWidth:     hasDynWidth,
			HasDynamicPrecision: hasDynPrecision,
			FixedPrecision:      fixedPrecision,
			Text:                literal.String(),
		})
		literal.Reset()
		paramTypes = append(paramTypes, pt)
		argKinds = append(argKinds, kind)
	}

	i := 0
	for i < len(format) {
		c := format[i]
		if c != '%' {
			literal.WriteByte(c)
			i++
			continue
		}

		if i+1 < len(format) && format[i+1] == '%' {
			literal.WriteByte('%')
			i += 2
			continue
		}

		verbStart := i
		i++

		for i < len(format) && strings.ContainsRune("-+0 #", rune(format[i])) {
			i++
		}

		dynWidth := false
		if i < len(format) && format[i] == '*' {
			dynWidth = true
			i++
		} else {
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
		}

		dynPrecision := false
		fixedPrecision := uint32(0)
		hasPrecision := false
		if i < len(format) && format[i] == '.' {
			hasPrecision = true
			i++
			if i < len(format) && format[i] == '*' {
				dynPrecision = true
				i++
			} else {
				start := i
				for i < len(format) && format[i] >= '0' && format[i] <= '9' {
					i++
				}
				if n, err := strconv.Atoi(format[start:i]); err == nil {
					fixedPrecision = uint32(n)
				}
			}
		}

		for i < len(format) && strings.ContainsRune("lhLqjzt", rune(format[i])) {
			i++
		}

		if i >= len(format) {
			// Trailing bare '%' with no verb: treat as literal text.
			literal.WriteString(format[verbStart:])
			break
		}

		verb := format[i]
		i++

		if dynWidth {
			emit(registry.DynamicWidth, registry.KindUint64, 0, false, false)
		}
		if dynPrecision {
			emit(registry.DynamicPrecision, registry.KindUint64, 0, false, false)
		}

		pt, kind := classifyVerb(verb)
		switch {
		case pt == registry.StringNoPrecision && dynPrecision:
			pt = registry.StringDynamicPrecision
		case pt == registry.StringNoPrecision && hasPrecision:
			pt = registry.StringFixedPrecision
		}
		emit(pt, kind, fixedPrecision, dynWidth, dynPrecision)
	}

	if literal.Len() > 0 || len(fragments) == 0 {
		fragments = append(fragments, registry.Fragment{Text: literal.String()})
	}

	return paramTypes, argKinds, fragments
}

func classifyVerb(verb byte) (registry.ParamType, registry.ArgKind) {
	switch verb {
	case 'd', 'i':
		return registry.NonString, registry.KindInt64
	case 'u':
		return registry.NonString, registry.KindUint64
	case 'x', 'X', 'o', 'b':
		return registry.NonString, registry.KindUint64
	case 'f', 'g', 'e', 'G', 'E':
		return registry.NonString, registry.KindFloat64
	case 'p':
		return registry.NonString, registry.KindPointer
	case 's', 'c', 'v', 'q':
		return registry.StringNoPrecision, registry.KindUint64
	default:
		return registry.NonString, registry.KindInt64
	}
}

// ArgCount returns the number of arguments this site's format string
// expects, for callers that want to validate a Log call ahead of time.
func (s *Site) ArgCount() int {
	return len(s.meta.ParamTypes)
}

func (s *Site) String() string {
	return fmt.Sprintf("Site(id=%d, format=%q)", s.id, s.meta.Format)
}
