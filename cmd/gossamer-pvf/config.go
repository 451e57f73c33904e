// Copyright 2024 ChainSafe Systems (ON)
// SPDX-License-Identifier: LGPL-3.0-only

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	ctoml "github.com/ChainSafe/gossamer-pvf/dot/config/toml"
	"github.com/ChainSafe/gossamer-pvf/dot/parachain/pvf"
	"github.com/ChainSafe/gossamer-pvf/internal/log"
	"github.com/ChainSafe/gossamer-pvf/internal/pprof"
	"github.com/urfave/cli"
)

const (
	defaultBasePathName   = "gossamer-pvf"
	artifactsDirName      = "artifacts"
	defaultLogLevel       = "info"
	defaultMetricsAddress = "localhost:9876"
)

// settings is the configuration of a command once the
// toml file and the flags are merged.
type settings struct {
	pvf            pvf.Config
	logLevel       log.Level
	metricsEnabled bool
	metricsAddress string
	pprofEnabled   bool
	pprof          pprof.Settings
}

// loadSettings merges the defaults, the toml configuration file if any
// and the global flags, in increasing order of precedence.
// The executable is the default worker program.
func loadSettings(ctx *cli.Context, executable string) (s settings, err error) {
	var tomlConfig ctoml.Config
	if path := ctx.GlobalString(ConfigFlag.Name); path != "" {
		tomlConfig, err = ctoml.LoadFile(path)
		if err != nil {
			return s, fmt.Errorf("loading configuration file: %w", err)
		}
	}

	s.logLevel, err = log.ParseLevel(firstNonEmpty(
		ctx.GlobalString(LogFlag.Name), tomlConfig.Global.LogLvl, defaultLogLevel))
	if err != nil {
		return s, err
	}

	basePath := firstNonEmpty(ctx.GlobalString(BasePathFlag.Name), tomlConfig.Global.BasePath)
	if basePath == "" {
		cacheDir, err := os.UserCacheDir()
		if err != nil {
			return s, fmt.Errorf("finding user cache directory: %w", err)
		}
		basePath = filepath.Join(cacheDir, defaultBasePathName)
	}

	cachePath := firstNonEmpty(ctx.GlobalString(CachePathFlag.Name),
		tomlConfig.Pvf.CachePath, filepath.Join(basePath, artifactsDirName))
	programPath := firstNonEmpty(tomlConfig.Pvf.ProgramPath, executable)

	s.pvf, err = pvfConfig(tomlConfig.Pvf, cachePath, programPath)
	if err != nil {
		return s, err
	}

	if ctx.GlobalIsSet(ExecuteWorkersFlag.Name) {
		s.pvf.ExecuteWorkersMaxNum = ctx.GlobalInt(ExecuteWorkersFlag.Name)
	}

	s.metricsEnabled = tomlConfig.Metrics.Enabled || ctx.GlobalBool(MetricsFlag.Name)
	s.metricsAddress = firstNonEmpty(ctx.GlobalString(MetricsAddressFlag.Name),
		tomlConfig.Metrics.Address, defaultMetricsAddress)

	pprofAddress := ctx.GlobalString(PprofAddressFlag.Name)
	s.pprofEnabled = tomlConfig.Pprof.Enabled || pprofAddress != ""
	if s.pprofEnabled {
		s.pprof = pprof.Settings{
			ListeningAddress: firstNonEmpty(pprofAddress, tomlConfig.Pprof.ListeningAddress),
			BlockProfileRate: tomlConfig.Pprof.BlockRate,
			MutexProfileRate: tomlConfig.Pprof.MutexRate,
		}
	}

	return s, nil
}

// pvfConfig overrides the default validation host configuration
// with the values set in the toml configuration.
func pvfConfig(tomlConfig ctoml.PvfConfig, cachePath, programPath string) (
	config pvf.Config, err error) {
	config = pvf.NewConfig(cachePath, programPath)

	durations := []struct {
		name  string
		value string
		field *time.Duration
	}{
		{name: "worker-spawn-timeout", value: tomlConfig.WorkerSpawnTimeout, field: &config.PrepareWorkerSpawnTimeout},
		{name: "preparation-timeout", value: tomlConfig.PreparationTimeout, field: &config.PreparationTimeout},
		{name: "cleanup-pulse-interval", value: tomlConfig.CleanupPulseInterval, field: &config.CleanupPulseInterval},
		{name: "artifact-ttl", value: tomlConfig.ArtifactTTL, field: &config.ArtifactTTL},
	}
	for _, duration := range durations {
		if duration.value == "" {
			continue
		}
		*duration.field, err = time.ParseDuration(duration.value)
		if err != nil {
			return config, fmt.Errorf("parsing %s: %w", duration.name, err)
		}
	}
	config.ExecuteWorkerSpawnTimeout = config.PrepareWorkerSpawnTimeout

	if tomlConfig.PrepareWorkersSoftMaxNum > 0 {
		config.PrepareWorkersSoftMaxNum = tomlConfig.PrepareWorkersSoftMaxNum
	}
	if tomlConfig.PrepareWorkersHardMaxNum > 0 {
		config.PrepareWorkersHardMaxNum = tomlConfig.PrepareWorkersHardMaxNum
	}
	if tomlConfig.ExecuteWorkersMaxNum > 0 {
		config.ExecuteWorkersMaxNum = tomlConfig.ExecuteWorkersMaxNum
	}

	return config, nil
}

// defaultTOMLConfig returns the toml configuration matching the defaults.
func defaultTOMLConfig(basePath string) ctoml.Config {
	defaults := pvf.NewConfig(filepath.Join(basePath, artifactsDirName), "")
	return ctoml.Config{
		Global: ctoml.GlobalConfig{
			BasePath: basePath,
			LogLvl:   defaultLogLevel,
		},
		Pvf: ctoml.PvfConfig{
			CachePath:                defaults.CachePath,
			WorkerSpawnTimeout:       defaults.PrepareWorkerSpawnTimeout.String(),
			PrepareWorkersSoftMaxNum: defaults.PrepareWorkersSoftMaxNum,
			PrepareWorkersHardMaxNum: defaults.PrepareWorkersHardMaxNum,
			PreparationTimeout:       defaults.PreparationTimeout.String(),
			ExecuteWorkersMaxNum:     defaults.ExecuteWorkersMaxNum,
			CleanupPulseInterval:     defaults.CleanupPulseInterval.String(),
			ArtifactTTL:              defaults.ArtifactTTL.String(),
		},
		Metrics: ctoml.MetricsConfig{
			Address: defaultMetricsAddress,
		},
	}
}

// setupLogger sets up the global logger.
func setupLogger(level log.Level, writer io.Writer) {
	log.Patch(
		log.SetWriter(writer),
		log.SetFormat(log.FormatConsole),
		log.SetCaller(true, true, false),
		log.SetLevel(level),
	)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
