package version

// Version is overridden at build time with
// -ldflags "-X astanon/internal/shared/version.Version=...".
var Version = "1.0.0"

func String() string {
	return "astanon v" + Version
}
