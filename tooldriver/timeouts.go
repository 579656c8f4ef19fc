package tooldriver

// Default per-tool timeouts in seconds (spec.md §5). Callers may override
// per invocation (e.g. a larger wipe-zero budget scaled to device size).
const (
	TimeoutMkfs       = 5 * 60
	TimeoutWipeZero   = 10 * 60
	TimeoutSettle     = 60
	TimeoutDefault    = 2 * 60
	TimeoutLVM        = 60
	TimeoutMdadm      = 60
	TimeoutCryptsetup = 60
	TimeoutZpool      = 2 * 60
)
