// config_test.go: Config defaulting, validation, and cloning
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package nanolog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConfigWithDefaults(t *testing.T) {
	cfg := (&Config{}).withDefaults()
	require.Equal(t, defaultRingCapacity, cfg.RingCapacity)
	require.Equal(t, defaultReleaseThreshold, cfg.ReleaseThreshold)
	require.Equal(t, "/tmp/nanolog", cfg.LogFilePath)
	require.NotNil(t, cfg.IdleStrategy)
	require.NotNil(t, cfg.TimeFn)
	require.Equal(t, Notice, cfg.Level)
}

func TestConfigWithDefaultsPreservesSetFields(t *testing.T) {
	cfg := (&Config{RingCapacity: 4096, LogFilePath: "/custom/path", Level: Error}).withDefaults()
	require.Equal(t, 4096, cfg.RingCapacity)
	require.Equal(t, "/custom/path", cfg.LogFilePath)
	require.Equal(t, Error, cfg.Level)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, (&Config{Level: Notice}).Validate())

	err := (&Config{RingCapacity: -1, Level: Notice}).Validate()
	require.Error(t, err)
	require.True(t, IsLoggerError(err, ErrCodeInvalidConfig))

	err = (&Config{ReleaseThreshold: -1, Level: Notice}).Validate()
	require.Error(t, err)

	err = (&Config{Level: Level(99)}).Validate()
	require.Error(t, err)
	require.True(t, IsLoggerError(err, ErrCodeInvalidLevel))

	err = (&Config{Level: Notice, Rotation: RotationConfig{MaxSizeBytes: -1}}).Validate()
	require.Error(t, err)
}

func TestConfigClone(t *testing.T) {
	cfg := &Config{RingCapacity: 1024, LogFilePath: "/tmp/x"}
	clone := cfg.Clone()
	clone.RingCapacity = 2048

	require.Equal(t, 1024, cfg.RingCapacity)
	require.Equal(t, 2048, clone.RingCapacity)

	var nilCfg *Config
	require.Nil(t, nilCfg.Clone())
}

func TestBackpressurePolicyString(t *testing.T) {
	require.Equal(t, "drop_on_full", DropOnFull.String())
	require.Equal(t, "block_on_full", BlockOnFull.String())
	require.Equal(t, "unknown", BackpressurePolicy(99).String())
}
