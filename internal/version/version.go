package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version is the semantic version number
	Version = "0.3.0"

	// GitCommit is the git commit hash (injected at build time)
	GitCommit = "unknown"

	// BuildDate is the build date (injected at build time)
	BuildDate = "unknown"
)

// Info contains version information
type Info struct {
	Version     string `json:"version"`
	GitCommit   string `json:"git_commit"`
	BuildDate   string `json:"build_date"`
	BuildMethod string `json:"build_method"`
	GoVersion   string `json:"go_version"`
	Platform    string `json:"platform"`
}

// GetInfo returns comprehensive version information. Builds without
// ldflags fall back to the VCS stamp recorded by the go tool.
func GetInfo() Info {
	info := Info{
		Version:     Version,
		GitCommit:   GitCommit,
		BuildDate:   BuildDate,
		BuildMethod: "ldflags",
		GoVersion:   runtime.Version(),
		Platform:    fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if GitCommit != "unknown" {
		return info
	}
	info.BuildMethod = "go build"
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				info.GitCommit = s.Value
			case "vcs.time":
				info.BuildDate = s.Value
			}
		}
	}
	return info
}

// GetVersionString returns a formatted version string
func GetVersionString() string {
	info := GetInfo()
	if info.GitCommit == "unknown" {
		return fmt.Sprintf("mailtriage %s", info.Version)
	}
	shortCommit := info.GitCommit
	if len(shortCommit) > 8 {
		shortCommit = shortCommit[:8]
	}
	return fmt.Sprintf("mailtriage %s (%s)", info.Version, shortCommit)
}

// GetDetailedVersionString returns a detailed version string for the version command
func GetDetailedVersionString() string {
	info := GetInfo()
	var b strings.Builder
	fmt.Fprintf(&b, "mailtriage %s\n", info.Version)
	fmt.Fprintf(&b, "Git commit: %s\n", info.GitCommit)
	fmt.Fprintf(&b, "Build date: %s\n", info.BuildDate)
	fmt.Fprintf(&b, "Go version: %s\n", info.GoVersion)
	fmt.Fprintf(&b, "Platform: %s", info.Platform)
	return b.String()
}

// IsDevelopment returns true for builds without release metadata
func IsDevelopment() bool {
	return GitCommit == "unknown" || strings.Contains(Version, "dev")
}
