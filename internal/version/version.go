// Package version exposes the build identity a viewbox instance reports on
// its liveness probe.
package version

import "runtime"

// AppName identifies the binary in probe responses and log output.
const AppName = "viewbox"

// Injected via -ldflags at build time; the defaults mark local builds.
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

// Info is the build identity served by the liveness handler.
type Info struct {
	App       string `json:"app"`
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
}

// Get assembles the current build identity.
func Get() Info {
	return Info{
		App:       AppName,
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
	}
}
