// Package version exposes build-time version information.
package version

// Set via -ldflags at build time; defaults cover `go run` and tests.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// UserAgent identifies this binary to upstream data providers.
func UserAgent() string {
	return "plafond/" + Version
}
