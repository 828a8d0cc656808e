package build

var (
	Version   = "dev"
	Commit    = "none"
	BuildTime = "unknown"
)

// browserUserAgent is sent on direct fetches unless configured otherwise.
// Origins that block unknown clients tend to let desktop Chrome through.
const browserUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36"

// FullVersion returns the version string with commit hash appended.
// Format: "Version+Commit" (e.g., "1.0.0+abc123")
func FullVersion() string {
	return Version + "+" + Commit
}

// UserAgent is the default User-Agent header of direct fetches.
func UserAgent() string {
	return browserUserAgent
}

// Summary is the one-line output of the version command.
func Summary() string {
	return "render-fetch " + FullVersion() + " (built " + BuildTime + ")"
}
