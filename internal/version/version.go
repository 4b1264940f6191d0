package version

import (
	"fmt"
	"runtime"
)

// Set at build time:
//
//	go build -ldflags "-X github.com/r9s-ai/gptdesk/internal/version.Version=v0.3.0 \
//	  -X github.com/r9s-ai/gptdesk/internal/version.Commit=$(git rev-parse HEAD)"
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
}

func Get() Info {
	return Info{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

func (i Info) String() string {
	return fmt.Sprintf("gptdesk %s\ncommit: %s\nbuilt at: %s\ngo version: %s\nplatform: %s",
		i.Version, i.Commit, i.BuildDate, i.GoVersion, i.Platform)
}

// Short is the version plus an abbreviated commit, used in the User-Agent.
func Short() string {
	if len(Commit) > 7 && Commit != "unknown" {
		return fmt.Sprintf("%s (%s)", Version, Commit[:7])
	}
	return Version
}

// UserAgent is sent on every outbound API call.
func UserAgent() string {
	return "gptdesk/" + Version
}
