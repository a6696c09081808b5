package buildinfo

// These variables are intended to be set via -ldflags at build time:
//
//	-X 'github.com/m3rciful/workbot/core/buildinfo.Version=v0.2.0'
//	-X 'github.com/m3rciful/workbot/core/buildinfo.Commit=abcdef0'
//	-X 'github.com/m3rciful/workbot/core/buildinfo.Date=2026-10-01T12:00:00Z'
var (
	// Version reports the semantic version or tag of the build.
	Version = "dev"
	// Commit reports the source control commit used for the build.
	Commit = "local"
	// Date reports the build timestamp in RFC3339 format.
	Date = ""
)

// Summary renders a single human readable build line.
func Summary(name string) string {
	line := name + " " + Version
	if Commit != "" && Commit != "local" {
		line += " (" + Commit + ")"
	}
	if Date != "" {
		line += " built " + Date
	}
	return line
}
