// Package buildinfo carries release metadata stamped in at link time:
//
//	go build -ldflags "-X github.com/IgorPritula/entity-ref-dependency/internal/buildinfo.Version=v0.3.0"
package buildinfo

// Empty for local builds.
var (
	Version = ""
	Commit  = ""
	Date    = ""
)

// VersionOr returns Version, or fallback when nothing was stamped.
func VersionOr(fallback string) string {
	if Version == "" {
		return fallback
	}
	return Version
}
