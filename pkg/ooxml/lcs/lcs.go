// Package lcs implements the generic diff core: a recursive
// longest-contiguous-match correlation over sequences of hashable units.
//
// The kernel is blind to what a unit is — word token, worksheet row, slide —
// it only requires the Unit capability. Contiguous matching (rather than
// classical dynamic-programming LCS) produces cleaner revision markup on
// long paragraph sequences.
package lcs

import "fmt"

// Unit is the single capability the kernel needs from a comparison unit.
// The hash must be stable: equal content yields equal hashes across runs.
type Unit interface {
	Hash() string
}

// Status classifies a correlated segment.
type Status int

const (
	StatusUnknown Status = iota
	StatusEqual
	StatusDeleted
	StatusInserted
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusEqual:
		return "Equal"
	case StatusDeleted:
		return "Deleted"
	case StatusInserted:
		return "Inserted"
	default:
		return "Unknown"
	}
}

// Segment is one run of correlated units. Items1 holds old-side units
// (Equal and Deleted segments), Items2 new-side units (Equal and Inserted).
type Segment struct {
	Status Status
	Items1 []Unit
	Items2 []Unit
}

// Options tune the correlation.
type Options struct {
	// MinMatchLength discards anchor matches shorter than this. Minimum 1.
	MinMatchLength int
	// DetailThreshold discards an anchor whose length, after trimming
	// leading units rejected by SkipAsAnchor, is below this fraction of
	// the longer input. Range [0,1]; 0 disables the check.
	DetailThreshold float64
	// SkipAsAnchor reports units that must not open an anchor match
	// (whitespace tokens, paragraph marks, opaque structural tokens).
	SkipAsAnchor func(Unit) bool
}

// DefaultOptions returns the kernel defaults used when a zero Options
// value is passed.
func DefaultOptions() Options {
	return Options{MinMatchLength: 1}
}

// InternalError reports an invariant violation inside the kernel. It is
// unreachable in practice; seeing one indicates a bug, not bad input.
// Correlate panics with it; the comparison entry point converts the
// panic into a returned error at the call boundary.
type InternalError struct {
	msg string
}

func (e *InternalError) Error() string { return "lcs: internal invariant violated: " + e.msg }

// Correlate aligns a and b and returns an ordered segment list whose
// Items1 concatenation reconstructs a and whose Items2 concatenation
// reconstructs b. Adjacent same-status segments are coalesced.
func Correlate(a, b []Unit, opts Options) []Segment {
	if opts.MinMatchLength < 1 {
		opts.MinMatchLength = 1
	}
	var segs []Segment
	correlate(a, b, opts, &segs)
	segs = coalesce(segs)

	// Reconstruction invariant: every input unit appears in exactly one
	// segment.
	n1, n2 := 0, 0
	for _, s := range segs {
		n1 += len(s.Items1)
		n2 += len(s.Items2)
	}
	if n1 != len(a) || n2 != len(b) {
		panic(&InternalError{msg: fmt.Sprintf(
			"segments cover %d/%d old and %d/%d new units", n1, len(a), n2, len(b))})
	}
	return segs
}

func correlate(a, b []Unit, opts Options, out *[]Segment) {
	if len(a) == 0 && len(b) == 0 {
		return
	}
	if len(a) == 0 {
		*out = append(*out, Segment{Status: StatusInserted, Items2: b})
		return
	}
	if len(b) == 0 {
		*out = append(*out, Segment{Status: StatusDeleted, Items1: a})
		return
	}

	i, j, length := longestContiguousMatch(a, b)
	if length > 0 && !acceptMatch(a, b, i, length, opts) {
		length = 0
	}
	if length == 0 {
		*out = append(*out, Segment{Status: StatusDeleted, Items1: a})
		*out = append(*out, Segment{Status: StatusInserted, Items2: b})
		return
	}

	correlate(a[:i], b[:j], opts, out)
	*out = append(*out, Segment{
		Status: StatusEqual,
		Items1: a[i : i+length],
		Items2: b[j : j+length],
	})
	correlate(a[i+length:], b[j+length:], opts, out)
}

// longestContiguousMatch finds the single longest run with
// a[i..i+L] == b[j..j+L] by hash. Ties break toward the smallest i,
// then the smallest j. Returns L == 0 when nothing matches.
func longestContiguousMatch(a, b []Unit) (bestI, bestJ, bestLen int) {
	hashesA := make([]string, len(a))
	for i, u := range a {
		hashesA[i] = u.Hash()
	}
	hashesB := make([]string, len(b))
	for j, u := range b {
		hashesB[j] = u.Hash()
	}

	for i := 0; i < len(a); i++ {
		// Early exit: no start at or after i can beat the current best.
		if len(a)-i <= bestLen {
			break
		}
		for j := 0; j < len(b); j++ {
			if len(b)-j <= bestLen {
				break
			}
			if hashesA[i] != hashesB[j] {
				continue
			}
			length := 1
			for i+length < len(a) && j+length < len(b) &&
				hashesA[i+length] == hashesB[j+length] {
				length++
			}
			if length > bestLen {
				bestI, bestJ, bestLen = i, j, length
			}
		}
	}
	return bestI, bestJ, bestLen
}

// acceptMatch applies MinMatchLength and DetailThreshold to a candidate
// anchor. The threshold is evaluated on the anchor length remaining after
// trimming leading units rejected by SkipAsAnchor.
func acceptMatch(a, b []Unit, i, length int, opts Options) bool {
	if length < opts.MinMatchLength {
		return false
	}
	if opts.DetailThreshold <= 0 {
		return true
	}
	effective := length
	if opts.SkipAsAnchor != nil {
		for k := 0; k < length && opts.SkipAsAnchor(a[i+k]); k++ {
			effective--
		}
	}
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	return float64(effective)/float64(longer) >= opts.DetailThreshold
}

// coalesce merges adjacent same-status segments.
func coalesce(segs []Segment) []Segment {
	if len(segs) < 2 {
		return segs
	}
	out := segs[:1]
	for _, s := range segs[1:] {
		last := &out[len(out)-1]
		if s.Status == last.Status {
			last.Items1 = append(last.Items1, s.Items1...)
			last.Items2 = append(last.Items2, s.Items2...)
			continue
		}
		out = append(out, s)
	}
	return out
}
