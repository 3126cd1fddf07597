package config

// Rule defaults.
const (
	DefaultImportNames           = "bound"
	DefaultIncludeComprehensions = false
)

// Scan defaults.
const (
	DefaultWorkers      = 0
	DefaultMaxFileSize  = "1MB"
	DefaultCacheEntries = 256
)

// Output defaults.
const (
	DefaultOutputFormat = "text"
	DefaultOutputColor  = true
)

// Logging defaults.
const (
	DefaultLogLevel  = "warn"
	DefaultLogFormat = "text"
)

// DefaultEnabledRules lists every rule category.
func DefaultEnabledRules() []string {
	return []string{"nested-loop", "unused-import"}
}
