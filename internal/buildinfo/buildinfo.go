// Package buildinfo holds build-time metadata injected via -ldflags.
package buildinfo

// Version is the semantic version or tag for this build.
// Inject via: -X github.com/nnrg-cse/nnrg-assistant-go/internal/buildinfo.Version=...
var Version = ""

// Commit is the git commit SHA for this build.
// Inject via: -X github.com/nnrg-cse/nnrg-assistant-go/internal/buildinfo.Commit=...
var Commit = ""

// BuildDate is the RFC3339 build timestamp.
// Inject via: -X github.com/nnrg-cse/nnrg-assistant-go/internal/buildinfo.BuildDate=...
var BuildDate = ""

// Release returns the release name reported to error tracking:
// the version, else the short commit, else "dev".
func Release() string {
	switch {
	case Version != "":
		return Version
	case len(Commit) >= 7:
		return Commit[:7]
	case Commit != "":
		return Commit
	default:
		return "dev"
	}
}
