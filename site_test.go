// site_test.go: Format-string parsing and call-site registration
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"testing"

	"github.com/agilira/nanolog/internal/registry"
	"github.com/stretchr/testify/require"
)

func TestParseFormatScalarVerbs(t *testing.T) {
	paramTypes, argKinds, fragments := parseFormat("user %s logged in from %d after %f seconds")
	require.Len(t, paramTypes, 3)
	require.Equal(t, registry.StringNoPrecision, paramTypes[0])
	require.Equal(t, registry.NonString, paramTypes[1])
	require.Equal(t, registry.NonString, paramTypes[2])

	require.Equal(t, registry.KindUint64, argKinds[0])
	require.Equal(t, registry.KindInt64, argKinds[1])
	require.Equal(t, registry.KindFloat64, argKinds[2])

	require.True(t, len(fragments) >= 3)
	require.Equal(t, "user ", fragments[0].Text)
}

func TestParseFormatNoArgs(t *testing.T) {
	paramTypes, argKinds, fragments := parseFormat("static message, no args")
	require.Empty(t, paramTypes)
	require.Empty(t, argKinds)
	require.Len(t, fragments, 1)
	require.Equal(t, "static message, no args", fragments[0].Text)
}

func TestParseFormatEscapedPercent(t *testing.T) {
	paramTypes, _, fragments := parseFormat("100%% done, %d remaining")
	require.Len(t, paramTypes, 1)
	require.Equal(t, "100% done, ", fragments[0].Text)
}

func TestParseFormatTrailingPercent(t *testing.T) {
	paramTypes, _, fragments := parseFormat("dangling %")
	require.Empty(t, paramTypes)
	require.Equal(t, "dangling %", fragments[0].Text)
}

func TestClassifyVerb(t *testing.T) {
	cases := map[byte]registry.ArgKind{
		'd': registry.KindInt64,
		'i': registry.KindInt64,
		'u': registry.KindUint64,
		'x': registry.KindUint64,
		'f': registry.KindFloat64,
		'g': registry.KindFloat64,
		'p': registry.KindPointer,
	}
	for verb, want := range cases {
		_, kind := classifyVerb(verb)
		require.Equal(t, want, kind, "verb %c", verb)
	}

	pt, _ := classifyVerb('s')
	require.Equal(t, registry.StringNoPrecision, pt)
}

func TestParseFormatFixedPrecisionString(t *testing.T) {
	paramTypes, _, fragments := parseFormat("tag=%.8s")
	require.Len(t, paramTypes, 1)
	require.Equal(t, registry.StringFixedPrecision, paramTypes[0])
	require.Equal(t, uint32(8), fragments[0].FixedPrecision)
}

func TestParseFormatDynamicPrecisionString(t *testing.T) {
	paramTypes, _, fragments := parseFormat("tag=%.*s")
	require.Len(t, paramTypes, 2)
	require.Equal(t, registry.DynamicPrecision, paramTypes[0])
	require.Equal(t, registry.StringDynamicPrecision, paramTypes[1])
	require.True(t, fragments[1].HasDynamicPrecision)
}

func TestParseFormatDynamicWidth(t *testing.T) {
	paramTypes, argKinds, _ := parseFormat("pad=%*d")
	require.Len(t, paramTypes, 2)
	require.Equal(t, registry.DynamicWidth, paramTypes[0])
	require.Equal(t, registry.NonString, paramTypes[1])
	require.Equal(t, registry.KindUint64, argKinds[0])
	require.Equal(t, registry.KindInt64, argKinds[1])
}

func TestRegisterSiteArgCount(t *testing.T) {
	site := RegisterSite("order %d shipped to %s", Notice)
	require.Equal(t, 2, site.ArgCount())
	require.Contains(t, site.String(), "order %d shipped to %s")
}

func TestRegisterSiteAssignsDenseIDs(t *testing.T) {
	before := siteRegistry.Count()
	a := RegisterSite("first unique site %d", Notice)
	b := RegisterSite("second unique site %d", Notice)

	require.Equal(t, before+1, int(a.id))
	require.Equal(t, before+2, int(b.id))
	require.NotEqual(t, a.id, b.id)
}
