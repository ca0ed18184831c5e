package model

// Confidence labels how trustworthy a derived field value is. The ordering
// UNKNOWN < LOW < MEDIUM < HIGH arbitrates which of several conflicting
// source values is kept during a merge.
type Confidence string

const (
	ConfidenceUnknown Confidence = "UNKNOWN"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceHigh    Confidence = "HIGH"
)

// Rank returns the position of the confidence in the total order (1..4).
// Unrecognized values rank alongside UNKNOWN.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 4
	case ConfidenceMedium:
		return 3
	case ConfidenceLow:
		return 2
	default:
		return 1
	}
}

// Exceeds reports whether c strictly outranks other.
func (c Confidence) Exceeds(other Confidence) bool {
	return c.Rank() > other.Rank()
}

// OrUnknown maps the empty string to UNKNOWN so zero values stay in the enum.
func (c Confidence) OrUnknown() Confidence {
	if c == "" {
		return ConfidenceUnknown
	}
	return c
}
