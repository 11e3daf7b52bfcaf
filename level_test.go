// level_test.go: Level parsing, ordering, and AtomicLevel behavior
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelOrdering(t *testing.T) {
	require.True(t, Debug < Notice)
	require.True(t, Notice < Warning)
	require.True(t, Warning < Error)
	require.True(t, Error < Silent)
}

func TestLevelEnabled(t *testing.T) {
	require.True(t, Warning.Enabled(Notice))
	require.False(t, Debug.Enabled(Notice))
	require.True(t, Notice.Enabled(Notice))
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		"DEBUG":   Debug,
		"notice":  Notice,
		"info":    Notice,
		"warning": Warning,
		"warn":    Warning,
		"error":   Error,
		"err":     Error,
		"silent":  Silent,
		"":        Notice,
		"  warn ": Warning,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		require.Equal(t, want, got, in)
	}

	_, err := ParseLevel("bogus")
	require.Error(t, err)
}

func TestLevelTextRoundTrip(t *testing.T) {
	for _, l := range AllLevels() {
		b, err := l.MarshalText()
		require.NoError(t, err)

		var out Level
		require.NoError(t, out.UnmarshalText(b))
		require.Equal(t, l, out)
	}
}

func TestAtomicLevel(t *testing.T) {
	al := NewAtomicLevel(Notice)
	require.Equal(t, Notice, al.Level())
	require.True(t, al.Enabled(Warning))
	require.False(t, al.Enabled(Debug))

	al.SetLevel(Error)
	require.Equal(t, Error, al.Level())
	require.Equal(t, "error", al.String())
}

func TestLevelFlag(t *testing.T) {
	var l Level
	flag := NewLevelFlag(&l)

	require.NoError(t, flag.Set("warning"))
	require.Equal(t, Warning, l)
	require.Equal(t, "warning", flag.String())
	require.Equal(t, "level", flag.Type())

	require.Error(t, flag.Set("not-a-level"))
}

func TestIsValidLevel(t *testing.T) {
	require.True(t, IsValidLevel(Debug))
	require.True(t, IsValidLevel(Silent))
	require.False(t, IsValidLevel(Level(-1)))
	require.False(t, IsValidLevel(Silent+1))
}
