package consts

import "time"

// File operation limits
const (
	// MaxFileSize is the largest file a script may read or patch
	MaxFileSize = 10 * 1024 * 1024
	// MaxSearchMatches caps the number of matches returned by a search
	MaxSearchMatches = 500
	// MaxHTTPBodySize caps the response body kept by http requests
	MaxHTTPBodySize = 5 * 1024 * 1024
	// MaxCommandOutput caps captured stdout/stderr of restricted commands
	MaxCommandOutput = 1024 * 1024
)

// Buffer sizes for various operations
const (
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
	// BufferSize1MB is 1 megabyte
	BufferSize1MB = 1024 * 1024
)

// Display limits
const (
	// SummaryWidth is the rune width of tool log titles
	SummaryWidth = 60
	// MaxPreviewLines limits the dry-run preview shown for pending approvals
	MaxPreviewLines = 40
)

// Timeouts for various operations
const (
	// DefaultScriptTimeout bounds one script invocation
	DefaultScriptTimeout = 30 * time.Second
	// DefaultHTTPTimeout bounds one http_request call
	DefaultHTTPTimeout = 20 * time.Second
	// DefaultCommandTimeout bounds one restricted command
	DefaultCommandTimeout = 15 * time.Second
	// Timeout2Minutes is a 2 minute timeout
	Timeout2Minutes = 2 * time.Minute
)

// LLM default configurations
const (
	// DefaultMaxTokens is the default maximum tokens for LLM responses
	DefaultMaxTokens = 4096
	// MaxToolRounds stops a runaway tool loop within one user turn
	MaxToolRounds = 16
)
