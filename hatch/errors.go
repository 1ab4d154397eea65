package hatch

import "errors"

// Sentinel errors surfaced by service operations. HTTP and MCP layers map
// these to user-visible messages rather than opaque 500s.
var (
	// ErrWaterNotFound means the requested water body id or name is unknown.
	ErrWaterNotFound = errors.New("water body not found")

	// ErrNoSources means no active shop source covers the water and
	// discovery found none either.
	ErrNoSources = errors.New("no fly shop sources cover this water")

	// ErrNoReport means every covering source was tried and none yielded a
	// dated, current fishing report.
	ErrNoReport = errors.New("could not find current fishing reports")
)
