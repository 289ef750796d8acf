// Package version holds the build version, overridable at link time with
// -ldflags "-X github.com/example/gaffer/internal/version.Version=v1.2.3".
package version

var Version = "0.3.0"

func String() string {
	return Version
}
