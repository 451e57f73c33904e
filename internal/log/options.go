// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package log

import (
	"io"
)

// Option modifies the settings of a logger.
type Option func(s *settings)

// SetLevel sets the minimum level logged, Info by default.
func SetLevel(level Level) Option {
	return func(s *settings) { s.level = &level }
}

// SetCaller selects which caller details are appended to each line.
// None of them are logged by default.
func SetCaller(file, line, funC bool) Option {
	return func(s *settings) { s.caller = newCallerSettings(file, line, funC) }
}

// SetFormat sets the line format, FormatConsole by default.
func SetFormat(format Format) Option {
	return func(s *settings) { s.format = &format }
}

// SetWriter sets the destination of the logs, os.Stdout by default.
func SetWriter(writer io.Writer) Option {
	return func(s *settings) { s.writer = writer }
}

// AddContext appends values to the context key, which is
// created at the end of the context if not present yet.
func AddContext(key string, values ...string) Option {
	return func(s *settings) {
		for i, kv := range s.context {
			if kv.key == key {
				s.context[i].values = append(kv.values, values...)
				return
			}
		}
		s.context = append(s.context, contextKeyValues{
			key:    key,
			values: append([]string(nil), values...),
		})
	}
}
