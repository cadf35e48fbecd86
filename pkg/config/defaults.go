package config

// Bundle defaults.
const (
	DefaultBundleHeader          = true
	DefaultBundleFooter          = true
	DefaultBundleTimestamp       = false
	DefaultBundleStripMainGuards = true
)

// Resolve defaults.
const (
	DefaultResolveStrict             = false
	DefaultResolveImplicitRelative   = true
	DefaultResolveIncludeUnreachable = false
)

// Discovery defaults.
const (
	DefaultDiscoveryDetectScripts = false
	DefaultDiscoveryMaxFileSize   = "4MiB"
)

// Cache defaults.
const (
	DefaultCacheEnabled = true
	DefaultCacheDir     = ""
	DefaultCacheSize    = 4096
)

// Logging defaults.
const (
	DefaultLoggingLevel = "info"
	DefaultLoggingJSON  = false
)
