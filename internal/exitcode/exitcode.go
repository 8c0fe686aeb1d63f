// Package exitcode defines process exit codes for the claimload CLI.
package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	DBConnError     = 3
	DecodeError     = 4
	ProcessError    = 5
	ServeError      = 6
)
