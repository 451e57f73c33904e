// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package pvf

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the configuration of the validation host.
type Config struct {
	// CachePath is the directory where the prepared artifacts are stored.
	CachePath string `validate:"required"`

	// PrepareWorkerProgramPath is the program spawned as a prepare worker.
	PrepareWorkerProgramPath string `validate:"required"`
	// PrepareWorkerSpawnTimeout is the time allotted for a prepare worker
	// to spawn and connect to the host.
	PrepareWorkerSpawnTimeout time.Duration `validate:"gt=0"`
	// PrepareWorkersSoftMaxNum is the maximum number of prepare workers
	// for jobs with a priority below critical.
	PrepareWorkersSoftMaxNum int `validate:"gte=1"`
	// PrepareWorkersHardMaxNum is the absolute maximum number of prepare workers.
	PrepareWorkersHardMaxNum int `validate:"gtefield=PrepareWorkersSoftMaxNum"`
	// PreparationTimeout is the time a prepare worker has to prepare an artifact.
	PreparationTimeout time.Duration `validate:"gt=0"`

	// ExecuteWorkerProgramPath is the program spawned as an execute worker.
	ExecuteWorkerProgramPath string `validate:"required"`
	// ExecuteWorkerSpawnTimeout is the time allotted for an execute worker
	// to spawn and connect to the host.
	ExecuteWorkerSpawnTimeout time.Duration `validate:"gt=0"`
	// ExecuteWorkersMaxNum is the maximum number of execute workers running at once.
	ExecuteWorkersMaxNum int `validate:"gte=1"`

	// CleanupPulseInterval is the period of the artifacts pruning.
	CleanupPulseInterval time.Duration `validate:"gt=0"`
	// ArtifactTTL is how long a prepared artifact is kept after it was last needed.
	ArtifactTTL time.Duration `validate:"gt=0"`
}

// NewConfig returns the default configuration using the given cache
// directory and worker program for both worker flavors.
func NewConfig(cachePath, programPath string) Config {
	return Config{
		CachePath:                 cachePath,
		PrepareWorkerProgramPath:  programPath,
		PrepareWorkerSpawnTimeout: 3 * time.Second,
		PrepareWorkersSoftMaxNum:  1,
		PrepareWorkersHardMaxNum:  1,
		PreparationTimeout:        60 * time.Second,
		ExecuteWorkerProgramPath:  programPath,
		ExecuteWorkerSpawnTimeout: 3 * time.Second,
		ExecuteWorkersMaxNum:      2,
		CleanupPulseInterval:      time.Hour,
		ArtifactTTL:               24 * time.Hour,
	}
}

// Validate returns an error if the configuration is not usable.
func (c Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("cache %s, prepare workers %d/%d, execute workers %d, artifact ttl %s",
		c.CachePath, c.PrepareWorkersSoftMaxNum, c.PrepareWorkersHardMaxNum,
		c.ExecuteWorkersMaxNum, c.ArtifactTTL)
}
