// Package artifactgo provides the version information for artifact-go.
package artifactgo

// Version is the current version of artifact-go.
const Version = "0.1.0"

// GetVersion returns the current version string.
func GetVersion() string {
	return Version
}
