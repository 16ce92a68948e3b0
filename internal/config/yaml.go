// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at path. If path is empty
// it looks for "stemscope.yaml" in the working directory and falls back to
// built-in defaults when no file exists. Environment overrides are applied
// after the file, and the result is validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		if _, err := os.Stat("stemscope.yaml"); err == nil {
			path = "stemscope.yaml"
		} else {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %.0f outside [%d, %d]", c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Analysis.FFTSize <= 0 || c.Analysis.FFTSize > MaxFFTSize {
		return fmt.Errorf("analysis.fft_size %d outside (0, %d]", c.Analysis.FFTSize, MaxFFTSize)
	}
	if c.Analysis.FFTSize&(c.Analysis.FFTSize-1) != 0 {
		return fmt.Errorf("analysis.fft_size %d must be a power of 2", c.Analysis.FFTSize)
	}
	if c.Analysis.PitchMinHz <= 0 || c.Analysis.PitchMaxHz <= c.Analysis.PitchMinHz {
		return fmt.Errorf("analysis pitch band [%.0f, %.0f] is not a valid range", c.Analysis.PitchMinHz, c.Analysis.PitchMaxHz)
	}
	if c.Analysis.FrameRate <= 0 {
		return fmt.Errorf("analysis.frame_rate must be positive, got %d", c.Analysis.FrameRate)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	return nil
}

// applyEnvOverrides applies STEMSCOPE_* environment variables on top of the
// loaded configuration.
func (cfg *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("STEMSCOPE_DEBUG"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Debug = bVal
		}
	}
	if val, ok := os.LookupEnv("STEMSCOPE_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("STEMSCOPE_STEMS_DIR"); ok {
		cfg.Stems.Dir = val
	}
	if val, ok := os.LookupEnv("STEMSCOPE_WS_ADDR"); ok {
		cfg.Transport.WebSocketAddr = val
		cfg.Transport.WebSocketEnabled = true
	}
	if val, ok := os.LookupEnv("STEMSCOPE_UDP_TARGET"); ok {
		cfg.Transport.UDPTargetAddress = val
		cfg.Transport.UDPEnabled = true
	}
}
