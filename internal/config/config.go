// Package config holds the read-only run configuration shared by every
// component for the lifetime of a copy. It is built once in cmd/pcp from
// the parsed flags and passed down by pointer; nothing mutates it after
// that.
package config

import (
	"runtime"

	"github.com/thediveo/enumflag/v2"
)

// ReflinkPolicy controls whether the byte mover may attempt a whole-file
// clone before falling back down the primitive ladder.
type ReflinkPolicy enumflag.Flag

const (
	ReflinkAuto ReflinkPolicy = iota
	ReflinkAlways
	ReflinkNever
)

// ReflinkPolicyIDs is the enumflag string mapping for ReflinkPolicy.
var ReflinkPolicyIDs = map[ReflinkPolicy][]string{
	ReflinkAuto:   {"auto"},
	ReflinkAlways: {"always"},
	ReflinkNever:  {"never"},
}

// Driver selects which of the two copy drivers performs the work.
type Driver enumflag.Flag

const (
	DriverFile Driver = iota
	DriverBlock
)

// DriverIDs is the enumflag string mapping for Driver.
var DriverIDs = map[Driver][]string{
	DriverFile:  {"parfile"},
	DriverBlock: {"parblock"},
}

// GlobPolicy controls what happens when a -g/--glob source pattern matches
// nothing at all.
type GlobPolicy enumflag.Flag

const (
	// GlobDropUnmatched silently drops a pattern that matched nothing.
	GlobDropUnmatched GlobPolicy = iota
	// GlobErrorUnmatched fails pre-flight if any pattern matched nothing.
	GlobErrorUnmatched
)

// GlobPolicyIDs is the enumflag string mapping for GlobPolicy.
var GlobPolicyIDs = map[GlobPolicy][]string{
	GlobDropUnmatched:  {"drop"},
	GlobErrorUnmatched: {"error"},
}

// Config is the immutable option bundle every component reads.
type Config struct {
	WorkerCount     int
	BlockSize       int64
	BatchSize       int64
	ReflinkPolicy   ReflinkPolicy
	FollowSymlinks  bool
	PreserveXattr   bool
	NoClobber       bool
	Recursive       bool
	ChannelCapacity int

	Driver     Driver
	Glob       bool
	GlobPolicy GlobPolicy
	NoProgress bool
}

// Default returns the stock configuration: one worker per hardware thread,
// the per-file driver, 4 MiB blocks and batches. The pool sizes its own
// submission queue from WorkerCount.
func Default() Config {
	return Config{
		WorkerCount:     runtime.NumCPU(),
		BlockSize:       4 << 20,
		BatchSize:       4 << 20,
		ReflinkPolicy:   ReflinkAuto,
		FollowSymlinks:  false,
		PreserveXattr:   true,
		NoClobber:       false,
		Recursive:       false,
		ChannelCapacity: 256,
		Driver:          DriverFile,
		GlobPolicy:      GlobDropUnmatched,
	}
}
