// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
	"os"
)

type settings struct {
	writer  io.Writer
	level   *Level
	format  *Format
	caller  callerSettings
	context []contextKeyValues
}

type contextKeyValues struct {
	key    string
	values []string
}

func newSettings(options []Option) (settings settings) {
	for _, option := range options {
		option(&settings)
	}
	return settings
}

// mergeWith sets any unset value of the settings with
// the value of the other settings. Context key values
// of the other settings are prepended.
func (s *settings) mergeWith(other settings) {
	if s.writer == nil {
		s.writer = other.writer
	}

	if s.level == nil && other.level != nil {
		value := *other.level
		s.level = &value
	}

	if s.format == nil && other.format != nil {
		value := *other.format
		s.format = &value
	}

	s.caller.mergeWith(other.caller)

	if len(other.context) == 0 {
		return
	}

	merged := make([]contextKeyValues, 0, len(other.context)+len(s.context))
	for _, kv := range other.context {
		merged = append(merged, contextKeyValues{
			key:    kv.key,
			values: append([]string(nil), kv.values...),
		})
	}

	for _, kv := range s.context {
		found := false
		for i := range merged {
			if merged[i].key == kv.key {
				merged[i].values = append(merged[i].values, kv.values...)
				found = true
				break
			}
		}
		if !found {
			merged = append(merged, kv)
		}
	}
	s.context = merged
}

// overrideWith sets every value set in the other settings
// onto the settings.
func (s *settings) overrideWith(other settings) {
	if other.writer != nil {
		s.writer = other.writer
	}

	if other.level != nil {
		value := *other.level
		s.level = &value
	}

	if other.format != nil {
		value := *other.format
		s.format = &value
	}

	s.caller.overrideWith(other.caller)

	for _, kv := range other.context {
		AddContext(kv.key, kv.values...)(s)
	}
}

func (s *settings) setDefaults() {
	if s.writer == nil {
		s.writer = os.Stdout
	}

	if s.level == nil {
		value := Info
		s.level = &value
	}

	if s.format == nil {
		value := FormatConsole
		s.format = &value
	}

	s.caller.setDefaults()
}
