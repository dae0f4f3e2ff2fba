// Package wml compares WordprocessingML documents and emits a result
// document carrying tracked-revision markup.
package wml

import "time"

// Settings control a WML comparison.
type Settings struct {
	// AuthorForRevisions is stamped on every w:ins / w:del / change marker.
	AuthorForRevisions string
	// DateForRevisions is the ISO-8601 timestamp stamped on revisions.
	DateForRevisions string
	// DetailThreshold rejects word-level anchors shorter than this
	// fraction of the paragraph pair (see the diff kernel).
	DetailThreshold float64
	// MatchThreshold is the minimum word-level Jaccard similarity for an
	// aligned paragraph pair to be diffed inline; below it the old
	// paragraph is wholly deleted and the new wholly inserted.
	MatchThreshold float64
	// CompareParagraphProperties includes paragraph formatting in
	// paragraph identity and reports pPr-only changes.
	CompareParagraphProperties bool
	// CompareRunProperties includes run formatting in token identity and
	// reports format-only run changes as rPrChange markers.
	CompareRunProperties bool
	// CompareSectionProperties compares body-level section properties.
	CompareSectionProperties bool
}

// DefaultSettings returns the defaults: author "Comparer", revision date
// now, thresholds 0.15 / 0.4, all property comparisons on.
func DefaultSettings() Settings {
	return Settings{
		AuthorForRevisions:         "Comparer",
		DateForRevisions:           time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		DetailThreshold:            0.15,
		MatchThreshold:             0.4,
		CompareParagraphProperties: true,
		CompareRunProperties:       true,
		CompareSectionProperties:   true,
	}
}
