// Package config resolves environment variables and CLI flags into a
// single process-wide settings object, shared by both binaries the way the
// teacher's global settings struct is built once at startup and threaded
// through every collaborator from there.
package config

import "os"

// Config holds the settings both cmd/f2c-create-db and cmd/f2c-query need,
// regardless of which of their own flags populated it.
type Config struct {
	// LinuxGit is the path to a mainline kernel clone used as the base for
	// branch fetching and version diffing.
	LinuxGit string

	// ScratchArea is the default parent directory for per-branch working
	// checkouts when --dest is not given explicitly.
	ScratchArea string

	// SqlitePath is the database file both binaries operate on.
	SqlitePath string

	// DatabaseURL is the source f2c-query's --refresh fetches a prebuilt
	// database from, when set. Empty means the query tool only ever reads
	// --sqlite from local disk.
	DatabaseURL string

	Verbose bool
	Quiet   bool
}

// FromEnv seeds a Config from LINUX_GIT, SCRATCH_AREA and F2C_DATABASE_URL,
// leaving everything else zero-valued for the caller's own flag parsing to
// fill in.
func FromEnv() Config {
	return Config{
		LinuxGit:    os.Getenv("LINUX_GIT"),
		ScratchArea: os.Getenv("SCRATCH_AREA"),
		DatabaseURL: os.Getenv("F2C_DATABASE_URL"),
	}
}

// LogLevel returns the xlog level name matching Verbose/Quiet, defaulting
// to "info" when neither is set.
func (c Config) LogLevel() string {
	switch {
	case c.Verbose:
		return "debug"
	case c.Quiet:
		return "error"
	default:
		return "info"
	}
}
