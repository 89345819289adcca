package buildinfo

// Overridden at build time with -ldflags "-X filethings/internal/buildinfo.Version=...".
var (
	Version = "0.3.0"
	Commit  = "unknown"
	Date    = "unknown"
)

// Info returns the stamped build metadata.
func Info() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
