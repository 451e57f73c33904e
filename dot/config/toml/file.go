// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package toml

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/naoina/toml"
)

// LoadFile decodes the toml configuration file at the path given.
func LoadFile(path string) (config Config, err error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return config, fmt.Errorf("opening config file: %w", err)
	}
	defer func() {
		closeErr := f.Close()
		if err == nil && closeErr != nil {
			err = fmt.Errorf("closing config file: %w", closeErr)
		}
	}()

	err = toml.NewDecoder(f).Decode(&config)
	if err != nil {
		return config, fmt.Errorf("decoding toml: %w", err)
	}

	return config, nil
}

// ExportFile writes the configuration to the path given as toml.
func ExportFile(config Config, path string) error {
	raw, err := toml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}

	const perm = 0o600
	err = os.WriteFile(path, raw, perm)
	if err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
