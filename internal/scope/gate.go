package scope

import "math"

// SavingSentinel is the value the version field reads as in a class's
// default while a save is in progress. No class may use it as its code
// version.
const SavingSentinel uint64 = math.MaxUint64

// DefaultVersionField is the version field name used when none is configured.
const DefaultVersionField = "DeprecationVersion"

// Gate reports whether a record written at assetVersion must be migrated
// to codeVersion.
func Gate(codeVersion, assetVersion uint64) bool {
	return codeVersion > assetVersion
}
