// Package version holds the build version, overridable with
// -ldflags "-X calcscript/internal/shared/version.Version=...".
package version

var Version = "1.0.0"

func String() string {
	return "calcscript v" + Version
}
