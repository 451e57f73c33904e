// Copyright 2021 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package toml

// Config is the on-disk configuration of the validation host binary.
type Config struct {
	Global  GlobalConfig  `toml:"global,omitempty"`
	Pvf     PvfConfig     `toml:"pvf,omitempty"`
	Metrics MetricsConfig `toml:"metrics,omitempty"`
	Pprof   PprofConfig   `toml:"pprof,omitempty"`
}

// GlobalConfig is to marshal/unmarshal toml global config vars
type GlobalConfig struct {
	BasePath string `toml:"basepath,omitempty"`
	LogLvl   string `toml:"log,omitempty"`
}

// PvfConfig is to marshal/unmarshal toml validation host config vars.
// Durations are strings parsed with time.ParseDuration, such as "3s".
type PvfConfig struct {
	CachePath                string `toml:"cache-path,omitempty"`
	ProgramPath              string `toml:"program-path,omitempty"`
	WorkerSpawnTimeout       string `toml:"worker-spawn-timeout,omitempty"`
	PrepareWorkersSoftMaxNum int    `toml:"prepare-workers-soft-max,omitempty"`
	PrepareWorkersHardMaxNum int    `toml:"prepare-workers-hard-max,omitempty"`
	PreparationTimeout       string `toml:"preparation-timeout,omitempty"`
	ExecuteWorkersMaxNum     int    `toml:"execute-workers-max,omitempty"`
	CleanupPulseInterval     string `toml:"cleanup-pulse-interval,omitempty"`
	ArtifactTTL              string `toml:"artifact-ttl,omitempty"`
}

// MetricsConfig is to marshal/unmarshal toml metrics config vars
type MetricsConfig struct {
	Enabled bool   `toml:"enabled,omitempty"`
	Address string `toml:"address,omitempty"`
}

// PprofConfig contains the configuration for Pprof.
type PprofConfig struct {
	Enabled          bool   `toml:"enabled,omitempty"`
	ListeningAddress string `toml:"listening-address,omitempty"`
	BlockRate        int    `toml:"block-rate,omitempty"`
	MutexRate        int    `toml:"mutex-rate,omitempty"`
}
