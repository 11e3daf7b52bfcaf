// converter.go: Binary nanolog stream to JSON conversion
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/agilira/nanolog"
	"github.com/agilira/nanolog/decoder"
)

// LogEntry is one decoded log message rendered for JSON output.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Caller    string `json:"caller,omitempty"`
}

// BinaryToJSONConverter reads a nanolog binary stream and writes one
// JSON object per log message.
type BinaryToJSONConverter struct {
	pretty       bool
	levelFilter  nanolog.Level
	validateOnly bool
	maxLines     int
}

// NewBinaryToJSONConverterWithOptions creates a converter with an
// explicit severity filter, validate-only mode, and a message cap.
func NewBinaryToJSONConverterWithOptions(pretty bool, levelFilter string, validateOnly bool, maxLines int) *BinaryToJSONConverter {
	min := nanolog.Debug
	if levelFilter != "" {
		if parsed, err := nanolog.ParseLevel(levelFilter); err == nil {
			min = parsed
		}
	}
	return &BinaryToJSONConverter{
		pretty:       pretty,
		levelFilter:  min,
		validateOnly: validateOnly,
		maxLines:     maxLines,
	}
}

// Convert decodes input as a nanolog binary stream and writes one JSON
// object per log message to output (or, in validate-only mode, writes
// nothing and simply reports a decode error if one occurs).
func (c *BinaryToJSONConverter) Convert(input io.Reader, output io.Writer) error {
	dec, err := decoder.NewDecoder(input)
	if err != nil {
		return fmt.Errorf("failed to open decoder: %w", err)
	}

	enc := json.NewEncoder(output)
	if c.pretty {
		enc.SetIndent("", "  ")
	}

	emitted := 0
	for {
		if c.maxLines > 0 && emitted >= c.maxLines {
			break
		}

		rec, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("decode error: %w", err)
		}

		msg, ok := rec.(*decoder.LogMessage)
		if !ok {
			continue
		}

		if nanolog.Level(msg.Severity) < c.levelFilter {
			continue
		}

		if c.validateOnly {
			emitted++
			continue
		}

		entry := LogEntry{
			Timestamp: msg.WallTime.Format("2006-01-02T15:04:05.000000000Z07:00"),
			Level:     nanolog.Level(msg.Severity).String(),
			Message:   msg.Text,
			Caller:    fmt.Sprintf("%s:%d", msg.File, msg.Line),
		}
		if err := enc.Encode(entry); err != nil {
			return fmt.Errorf("failed to encode JSON: %w", err)
		}
		emitted++
	}

	if c.validateOnly {
		fmt.Fprintf(os.Stderr, "Validation complete: %d entries processed\n", emitted)
	}
	return nil
}
