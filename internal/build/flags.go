// SPDX-License-Identifier: MIT
// Package build exposes build-time information injected via -ldflags, e.g.
//
//	go build -ldflags "-X stemscope/internal/build.buildVersion=0.2.0"
package build

// Info holds the build metadata for the running binary.
type Info struct {
	Name    string // Application name
	Time    string // Build timestamp (RFC3339)
	Commit  string // Git commit hash
	Version string // Semantic version
}

// Populated by -ldflags during compilation; development builds fall back
// to the defaults below.
var (
	buildName    string
	buildTime    string
	buildCommit  string
	buildVersion string
)

var info = Info{
	Name:    "stemscope",
	Time:    "unknown",
	Commit:  "unknown",
	Version: "dev",
}

// Initialize copies any ldflags-provided values over the defaults. It is
// safe to call when no flags were injected.
func Initialize() {
	if buildName != "" {
		info.Name = buildName
	}
	if buildTime != "" {
		info.Time = buildTime
	}
	if buildCommit != "" {
		info.Commit = buildCommit
	}
	if buildVersion != "" {
		info.Version = buildVersion
	}
}

// GetInfo returns the current build information.
func GetInfo() Info {
	return info
}
