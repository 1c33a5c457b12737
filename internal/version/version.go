package version

// Version is the current version of the liveclass tools.
// This value can be overridden at build time using:
//   go build -ldflags="-X 'github.com/edumesh/liveclass/internal/version.Version=v1.0.0'"
var Version = "dev"
