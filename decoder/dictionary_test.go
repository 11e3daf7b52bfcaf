// dictionary_test.go: Streamed dictionary batch parsing
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package decoder

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agilira/nanolog/internal/registry"
)

func TestReadDictionaryBatchRoundTrip(t *testing.T) {
	reg := registry.New()
	reg.Register(&registry.SiteMetadata{
		Format:     "count=%d name=%s",
		File:       "app.go",
		Line:       12,
		Severity:   1,
		ParamTypes: []registry.ParamType{registry.NonString, registry.StringNoPrecision},
		ArgKinds:   []registry.ArgKind{registry.KindInt64, 0},
		Fragments: []registry.Fragment{
			{ArgType: registry.NonString, ArgKind: registry.KindInt64, Text: "count="},
			{ArgType: registry.StringNoPrecision, Text: " name="},
			{Text: "!"},
		},
	})
	reg.Register(&registry.SiteMetadata{
		Format:     "ping",
		File:       "app.go",
		Line:       20,
		Severity:   0,
		Fragments:  []registry.Fragment{{Text: "ping"}},
	})

	var buf bytes.Buffer
	_, err := reg.SerializeSince(0, &buf)
	require.NoError(t, err)

	dict := newDictionary()
	require.NoError(t, dict.readDictionaryBatch(&buf))
	require.Equal(t, 2, dict.Len())

	site1 := dict.Lookup(1)
	require.NotNil(t, site1)
	require.Equal(t, "app.go", site1.File)
	require.Equal(t, uint32(12), site1.Line)
	require.Equal(t, uint8(1), site1.Severity)
	require.Equal(t, 1, site1.NumNibbles)
	require.Equal(t, 2, site1.argFragments)

	site2 := dict.Lookup(2)
	require.NotNil(t, site2)
	require.Equal(t, 0, site2.NumNibbles)
	require.Equal(t, 0, site2.argFragments)

	require.Nil(t, dict.Lookup(99))
}

func TestReadDictionaryBatchChecksumMismatch(t *testing.T) {
	reg := registry.New()
	reg.Register(&registry.SiteMetadata{
		Format:    "ping",
		Fragments: []registry.Fragment{{Text: "ping"}},
	})

	var buf bytes.Buffer
	_, err := reg.SerializeSince(0, &buf)
	require.NoError(t, err)

	corrupted := buf.Bytes()
	corrupted[len(corrupted)-1] ^= 0xFF

	dict := newDictionary()
	err = dict.readDictionaryBatch(bytes.NewReader(corrupted))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestReadDictionaryBatchIncremental(t *testing.T) {
	reg := registry.New()
	reg.Register(&registry.SiteMetadata{
		Format:    "first",
		Fragments: []registry.Fragment{{Text: "first"}},
	})

	var buf1 bytes.Buffer
	next, err := reg.SerializeSince(0, &buf1)
	require.NoError(t, err)
	require.Equal(t, 1, next)

	dict := newDictionary()
	require.NoError(t, dict.readDictionaryBatch(&buf1))
	require.Equal(t, 1, dict.Len())

	reg.Register(&registry.SiteMetadata{
		Format:    "second",
		Fragments: []registry.Fragment{{Text: "second"}},
	})

	var buf2 bytes.Buffer
	next, err = reg.SerializeSince(next, &buf2)
	require.NoError(t, err)
	require.Equal(t, 2, next)

	require.NoError(t, dict.readDictionaryBatch(&buf2))
	require.Equal(t, 2, dict.Len())
	require.NotNil(t, dict.Lookup(1))
	require.NotNil(t, dict.Lookup(2))
}
