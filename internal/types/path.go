package types

// PathSegment represents one component of a dotted field path.
// Numeric components carry both the raw key and the parsed index so they can
// address slices and maps keyed by digit strings alike.
type PathSegment struct {
	Key     string // raw component text
	Index   int    // parsed index (valid only if IsIndex)
	IsIndex bool   // component is a non-negative integer
}
