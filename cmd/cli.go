// SPDX-License-Identifier: MIT
// Package cmd parses command line arguments into the engine configuration.
package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"stemscope/internal/build"
	"stemscope/internal/config"
)

// Options is the parsed invocation: the engine configuration plus one-off
// command dispatch.
type Options struct {
	Config  *config.Config
	Command string // one-off command ("list"), empty to run the engine
	Mic     bool   // capture the live microphone alongside the stems
	Pick    bool   // run the interactive device picker before listing
}

// ParseArgs parses os.Args into Options. The YAML config (if any) loads
// first; flags override it.
func ParseArgs() (*Options, error) {
	info := build.GetInfo()
	opts := &Options{}

	var configPath string

	rootCmd := &cobra.Command{
		Use:           info.Name,
		Short:         "Real-time musical feature extraction from separated stems",
		Version:       info.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}
			applyFlagOverrides(cmd, cfg)
			opts.Config = cfg
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			opts.Command = "list"
		},
	}
	listCmd.Flags().BoolVar(&opts.Pick, "pick", false,
		"Interactively pick the microphone input device")
	rootCmd.AddCommand(listCmd)

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to YAML configuration file")
	rootCmd.PersistentFlags().IntP("device", "d", config.DefaultInputDevice,
		"Input device ID for the microphone. Use 'list' to see devices.")
	rootCmd.PersistentFlags().Float64P("sample-rate", "s", config.DefaultSampleRate,
		"Sample rate in Hertz (Hz)")
	rootCmd.PersistentFlags().IntP("frames-per-buffer", "b", config.DefaultFramesPerBuffer,
		"Audio frames per callback buffer (affects latency)")
	rootCmd.PersistentFlags().Int("fft-size", config.DefaultFFTSize,
		"Analysis window size (power of 2)")
	rootCmd.PersistentFlags().Int("frame-rate", config.DefaultFrameRate,
		"Snapshot frames per second")
	rootCmd.PersistentFlags().String("stems", "",
		"Directory holding the separated stem files")
	rootCmd.PersistentFlags().BoolVarP(&opts.Mic, "mic", "m", false,
		"Analyze the live microphone alongside the stems")
	rootCmd.PersistentFlags().String("ws-addr", "",
		"Serve snapshots over WebSocket on this address")
	rootCmd.PersistentFlags().String("udp-target", "",
		"Publish binary snapshot packets to this UDP address")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return opts, nil
}

// applyFlagOverrides copies explicitly-set flags over the loaded config.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()

	if flags.Changed("device") {
		cfg.Audio.InputDevice, _ = flags.GetInt("device")
	}
	if flags.Changed("sample-rate") {
		cfg.Audio.SampleRate, _ = flags.GetFloat64("sample-rate")
	}
	if flags.Changed("frames-per-buffer") {
		cfg.Audio.FramesPerBuffer, _ = flags.GetInt("frames-per-buffer")
	}
	if flags.Changed("fft-size") {
		cfg.Analysis.FFTSize, _ = flags.GetInt("fft-size")
	}
	if flags.Changed("frame-rate") {
		cfg.Analysis.FrameRate, _ = flags.GetInt("frame-rate")
	}
	if flags.Changed("stems") {
		cfg.Stems.Dir, _ = flags.GetString("stems")
	}
	if flags.Changed("ws-addr") {
		cfg.Transport.WebSocketAddr, _ = flags.GetString("ws-addr")
		cfg.Transport.WebSocketEnabled = true
	}
	if flags.Changed("udp-target") {
		cfg.Transport.UDPTargetAddress, _ = flags.GetString("udp-target")
		cfg.Transport.UDPEnabled = true
	}
	if flags.Changed("verbose") {
		if v, _ := flags.GetBool("verbose"); v {
			cfg.LogLevel = "debug"
		}
	}
}
