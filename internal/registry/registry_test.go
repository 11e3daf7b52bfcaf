// registry_test.go: Site registration and dictionary serialization
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegisterAssignsDenseIDs(t *testing.T) {
	r := New()

	id1 := r.Register(&SiteMetadata{Format: "hello %s"})
	id2 := r.Register(&SiteMetadata{Format: "world %d"})

	require.Equal(t, uint32(1), id1)
	require.Equal(t, uint32(2), id2)
	require.Equal(t, 2, r.Count())
}

func TestLookupUnassignedIsNil(t *testing.T) {
	r := New()
	require.Nil(t, r.Lookup(0))
	require.Nil(t, r.Lookup(99))
}

func TestLookupReturnsRegisteredMetadata(t *testing.T) {
	r := New()
	meta := &SiteMetadata{
		Format:     "x=%d y=%s",
		File:       "main.go",
		Line:       42,
		Severity:   1,
		ParamTypes: []ParamType{NonString, StringNoPrecision},
	}
	id := r.Register(meta)

	got := r.Lookup(id)
	require.NotNil(t, got)
	require.Equal(t, "main.go", got.File)
	require.Equal(t, uint32(42), got.Line)
	require.Equal(t, 1, got.NumNibbles)
}

func TestParamTypeClassification(t *testing.T) {
	require.False(t, NonString.IsString())
	require.True(t, NonString.RequiresNibble())

	require.True(t, StringNoPrecision.IsString())
	require.False(t, StringNoPrecision.RequiresNibble())

	require.True(t, StringDynamicPrecision.IsString())
	require.True(t, StringFixedPrecision.IsString())
}

func TestSerializeDictionaryRoundsTripLength(t *testing.T) {
	r := New()
	r.Register(&SiteMetadata{
		Format:     "Hello %s",
		File:       "app.go",
		Line:       10,
		ParamTypes: []ParamType{StringNoPrecision},
		Fragments: []Fragment{
			{ArgType: StringNoPrecision, Text: "Hello "},
		},
	})
	r.Register(&SiteMetadata{
		Format:     "count=%d",
		File:       "app.go",
		Line:       20,
		ParamTypes: []ParamType{NonString},
		Fragments: []Fragment{
			{ArgType: NonString, Text: "count="},
		},
	})

	var buf bytes.Buffer
	err := r.SerializeDictionary(&buf)
	require.NoError(t, err)
	require.Greater(t, buf.Len(), 8, "dictionary must contain at least a trailing checksum")
}
