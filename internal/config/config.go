// SPDX-License-Identifier: MIT
// Package config defines the runtime configuration for the stem analysis
// engine: audio device settings, analysis tuning constants, stem locations,
// and transport endpoints. Configuration is loaded from YAML with
// environment-variable overrides.
package config

// Defaults and limits for the analysis engine.
const (
	DefaultSampleRate      = 44100 // CD-quality audio
	DefaultFramesPerBuffer = 1024  // Playback/capture callback size
	DefaultFFTSize         = 2048  // Analysis window (power of 2)
	DefaultInputDevice     = -1    // -1 selects the system default device
	DefaultLowLatency      = false

	// Analysis tuning. These are domain constants for vocal/melodic
	// content; they are configuration so non-vocal material can widen them.
	DefaultPitchMinHz     = 80.0   // Bottom of the pitch search band
	DefaultPitchMaxHz     = 1000.0 // Top of the pitch search band
	DefaultSilenceRMS     = 0.01   // RMS below this reports no pitch
	DefaultMinCorrelation = 0.01   // Best correlation below this is ambiguous
	DefaultCentroidMaxHz  = 8000.0 // Centroid normalization ceiling
	DefaultBassHighHz     = 200.0  // Bass band covers [0, this)
	DefaultTrebleLowHz    = 4000.0 // Treble band covers [this, Nyquist]

	DefaultFrameRate = 60 // Scheduler ticks per second

	MinDeviceID   = -1
	MinSampleRate = 8000
	MaxSampleRate = 192000
	MaxFFTSize    = 8192
)

// Config holds all runtime configuration, loaded from YAML and/or flags.
type Config struct {
	Debug     bool            `yaml:"debug"`
	LogLevel  string          `yaml:"log_level"`
	Audio     AudioConfig     `yaml:"audio"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Stems     StemsConfig     `yaml:"stems"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds device and buffer settings shared by the playback
// output stream and the microphone input stream.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default)
	SampleRate      float64 `yaml:"sample_rate"`       // Hz
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Frames per audio callback
	LowLatency      bool    `yaml:"low_latency"`       // Request low latency from the device
	MicGate         float64 `yaml:"mic_gate"`          // Microphone noise gate threshold, 0..1 (0 disables)
}

// AnalysisConfig holds the feature-extraction tuning constants.
type AnalysisConfig struct {
	FFTSize        int     `yaml:"fft_size"`        // Analysis window, power of 2
	Window         string  `yaml:"window"`          // Window function name ("hann", "hamming", ...)
	FrameRate      int     `yaml:"frame_rate"`      // Snapshot ticks per second
	PitchMinHz     float64 `yaml:"pitch_min_hz"`    // Pitch search band floor
	PitchMaxHz     float64 `yaml:"pitch_max_hz"`    // Pitch search band ceiling
	SilenceRMS     float64 `yaml:"silence_rms"`     // Silence gate for pitch detection
	MinCorrelation float64 `yaml:"min_correlation"` // Ambiguity gate for pitch detection
	CentroidMaxHz  float64 `yaml:"centroid_max_hz"` // Spectral centroid normalization ceiling
	BassHighHz     float64 `yaml:"bass_high_hz"`    // Bass band upper edge
	TrebleLowHz    float64 `yaml:"treble_low_hz"`   // Treble band lower edge
}

// StemsConfig locates the separated stem files produced by the external
// separation service (one WAV per role).
type StemsConfig struct {
	Dir string `yaml:"dir"` // Directory holding drums.wav, bass.wav, vocals.wav, other.wav
}

// TransportConfig holds settings for publishing snapshots to consumers.
type TransportConfig struct {
	WebSocketEnabled bool   `yaml:"websocket_enabled"` // Serve snapshots over a WebSocket endpoint
	WebSocketAddr    string `yaml:"websocket_addr"`    // Listen address for the WebSocket server
	UDPEnabled       bool   `yaml:"udp_enabled"`       // Publish binary snapshot packets over UDP
	UDPTargetAddress string `yaml:"udp_target_address"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultInputDevice,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			MicGate:         0,
		},
		Analysis: AnalysisConfig{
			FFTSize:        DefaultFFTSize,
			Window:         "hann",
			FrameRate:      DefaultFrameRate,
			PitchMinHz:     DefaultPitchMinHz,
			PitchMaxHz:     DefaultPitchMaxHz,
			SilenceRMS:     DefaultSilenceRMS,
			MinCorrelation: DefaultMinCorrelation,
			CentroidMaxHz:  DefaultCentroidMaxHz,
			BassHighHz:     DefaultBassHighHz,
			TrebleLowHz:    DefaultTrebleLowHz,
		},
		Stems: StemsConfig{
			Dir: "./stems",
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
		},
	}
}
