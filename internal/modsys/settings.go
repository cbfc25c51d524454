// Copyright (c) The OpenTofu Authors
// SPDX-License-Identifier: MPL-2.0

// Package modsys holds the process-wide configuration keys recognized by
// the resolver/linker/repocatalog stack: library-path, trace-level, and
// suppress-platform-default. Settings is populated first from environment
// variables and then overridden by CLI flags, last writer wins.
package modsys

import (
	"os"
	"strconv"

	"github.com/apparentlymart/go-userdirs/userdirs"
	"github.com/hashicorp/go-hclog"
)

// Settings holds the recognized configuration keys.
type Settings struct {
	// LibraryPath is the root directory of the installed-module library a
	// resolve/install operation targets.
	LibraryPath string

	// TraceLevel maps to an hclog level: "trace", "debug", "info", "warn",
	// "error", or "" for the default.
	TraceLevel string

	// SuppressPlatformDefault disables the resolver's SYNTHETIC
	// platform-dependence injection.
	SuppressPlatformDefault bool
}

const (
	envLibraryPath             = "MODSYS_LIBRARY_PATH"
	envTraceLevel              = "MODSYS_TRACE_LEVEL"
	envSuppressPlatformDefault = "MODSYS_SUPPRESS_PLATFORM_DEFAULT"
)

// FromEnvironment reads the recognized MODSYS_* environment variables,
// falling back to a per-user data directory (via go-userdirs) for
// LibraryPath when MODSYS_LIBRARY_PATH is unset.
func FromEnvironment() Settings {
	s := Settings{
		LibraryPath: os.Getenv(envLibraryPath),
		TraceLevel:  os.Getenv(envTraceLevel),
	}
	if s.LibraryPath == "" {
		s.LibraryPath = defaultLibraryPath()
	}
	if v := os.Getenv(envSuppressPlatformDefault); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.SuppressPlatformDefault = b
		}
	}
	return s
}

// defaultLibraryPath asks go-userdirs for this platform's conventional
// per-user data directory: XDG on Unix, the two-level vendor/app
// hierarchy on Windows, a reverse-DNS identifier on macOS.
func defaultLibraryPath() string {
	dirs := userdirs.ForApp("Modsys", "OpenTofuLabs", "io.opentofu.modsys")
	paths := dirs.DataSearchPaths("library")
	if len(paths) == 0 {
		return "."
	}
	return paths[0]
}

// Logger builds an hclog.Logger honoring TraceLevel, defaulting to a
// no-op logger when TraceLevel is empty or unrecognized.
func (s Settings) Logger(name string) hclog.Logger {
	level := hclog.LevelFromString(s.TraceLevel)
	if level == hclog.NoLevel {
		return hclog.NewNullLogger()
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  name,
		Level: level,
	})
}
