package loadtest

import (
	"io"
)

// ShowHelp prints usage information for the roster load tool.
func ShowHelp(w io.Writer) {
	_, _ = io.WriteString(w, `groupify roster load tool
=========================

Builds a room of random members against a running groupify service,
partitions it and checks the stored groups.

Usage:
  go run ./cmd/roster-load [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -members int
        Number of members to generate (default 200)
  -group-size int
        Requested group size (default 5)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -seed uint
        Roster seed, 0 for a time-based one (default 0)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Test with default settings
  go run ./cmd/roster-load

  # A large roster in groups of eight
  go run ./cmd/roster-load -members 5000 -group-size 8 -workers 32
`)
}
