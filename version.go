package soundio

import "fmt"

const (
	versionMajor = 2
	versionMinor = 0
	versionPatch = 0
)

// Version returns the version string, e.g. "2.0.0".
func Version() string {
	return fmt.Sprintf("%d.%d.%d", versionMajor, versionMinor, versionPatch)
}

// VersionMajor returns the major version.
func VersionMajor() int { return versionMajor }

// VersionMinor returns the minor version.
func VersionMinor() int { return versionMinor }

// VersionPatch returns the patch version.
func VersionPatch() int { return versionPatch }
