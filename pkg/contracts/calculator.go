package contracts

// Calculator is the pluggable per-sport metric calculator. Implementations
// are pure: the same raw stats and minutes always produce the same output
// (apart from the _updatedAt stamp), they never return an error, and missing
// inputs default to zero and yield a partial or empty bag.
type Calculator interface {
	// Identification
	SportKey() string    // "basketball", "football"
	DisplayName() string // "Basketball", "Football"
	Version() string     // schema version stamped into _version

	// RequiredMetrics is the set of metric keys that must be present for a
	// log to be considered fresh. Keys listed here must be emitted for
	// every input, so an already-computed log never re-flags itself.
	RequiredMetrics() []string

	// Compute maps a raw stat bag (+ minutes played, where the sport uses
	// it) to a derived metric bag. All float outputs are rounded to 3
	// decimal places and every bag is stamped with _updatedAt and _version.
	Compute(rawStats map[string]interface{}, minutesPlayed float64) map[string]interface{}
}
