package pml

import (
	"github.com/vortex/ooxml-diff/pkg/ooxml/lcs"
)

// slidePair is one aligned slide pair.
type slidePair struct {
	Old, New   *SlideSignature
	Method     MatchMethod
	Similarity float64
}

// slideAlignment is the outcome of slide matching.
type slideAlignment struct {
	Pairs   []slidePair
	Deleted []*SlideSignature
	Added   []*SlideSignature
}

// alignSlides matches the two slide sequences: content-hash matches via
// the sequence kernel first (when enabled), then title matches, then
// fuzzy similarity. Leftovers are inserted/deleted.
func alignSlides(d1, d2 *deck, settings Settings) slideAlignment {
	var out slideAlignment
	matchedOld := make(map[*SlideSignature]bool)
	matchedNew := make(map[*SlideSignature]bool)

	record := func(o, n *SlideSignature, method MatchMethod, sim float64) {
		out.Pairs = append(out.Pairs, slidePair{Old: o, New: n, Method: method, Similarity: sim})
		matchedOld[o] = true
		matchedNew[n] = true
	}

	if settings.UseSlideAlignmentLCS {
		a := make([]lcs.Unit, len(d1.Slides))
		for i, s := range d1.Slides {
			a[i] = s
		}
		b := make([]lcs.Unit, len(d2.Slides))
		for i, s := range d2.Slides {
			b[i] = s
		}
		for _, seg := range lcs.Correlate(a, b, lcs.Options{MinMatchLength: 1}) {
			if seg.Status != lcs.StatusEqual {
				continue
			}
			for k := range seg.Items1 {
				record(seg.Items1[k].(*SlideSignature), seg.Items2[k].(*SlideSignature), MatchByHash, 1)
			}
		}
		// Identical slides the kernel left unmatched (reordered decks):
		// pair them by hash in order.
		for _, o := range d1.Slides {
			if matchedOld[o] {
				continue
			}
			for _, n := range d2.Slides {
				if matchedNew[n] || n.Hash() != o.Hash() {
					continue
				}
				record(o, n, MatchByHash, 1)
				break
			}
		}
	}

	// Title matches among leftovers.
	for _, o := range d1.Slides {
		if matchedOld[o] {
			continue
		}
		title := o.Title()
		if title == "" {
			continue
		}
		for _, n := range d2.Slides {
			if matchedNew[n] || n.Title() != title {
				continue
			}
			record(o, n, MatchByTitle, slideSimilarity(o, n))
			break
		}
	}

	// Fuzzy similarity among the rest.
	for _, o := range d1.Slides {
		if matchedOld[o] {
			continue
		}
		var best *SlideSignature
		bestSim := 0.0
		for _, n := range d2.Slides {
			if matchedNew[n] {
				continue
			}
			if sim := slideSimilarity(o, n); sim > bestSim {
				best, bestSim = n, sim
			}
		}
		if best != nil && bestSim >= settings.SlideSimilarityThreshold {
			record(o, best, MatchByFuzzy, bestSim)
		}
	}

	for _, o := range d1.Slides {
		if !matchedOld[o] {
			out.Deleted = append(out.Deleted, o)
		}
	}
	for _, n := range d2.Slides {
		if !matchedNew[n] {
			out.Added = append(out.Added, n)
		}
	}
	return out
}

// slideSimilarity measures shape-signature overlap plus text overlap.
func slideSimilarity(s1, s2 *SlideSignature) float64 {
	if len(s1.Shapes) == 0 && len(s2.Shapes) == 0 {
		return 1
	}
	set1 := make(map[string]int)
	for _, sh := range s1.Shapes {
		set1[sh.Hash()]++
	}
	common := 0
	for _, sh := range s2.Shapes {
		if set1[sh.Hash()] > 0 {
			set1[sh.Hash()]--
			common++
		}
	}
	longer := len(s1.Shapes)
	if len(s2.Shapes) > longer {
		longer = len(s2.Shapes)
	}
	shapeSim := float64(common) / float64(longer)

	textSim := textJaccard(slideText(s1), slideText(s2))
	return 0.5*shapeSim + 0.5*textSim
}

func slideText(s *SlideSignature) string {
	var out string
	for _, sh := range s.Shapes {
		out += sh.TextBody.Text() + "\n"
	}
	return out
}

// shapePair is one aligned shape pair within a slide pair.
type shapePair struct {
	Old, New *ShapeSignature
}

// shapeAlignment is the outcome of shape matching on one slide pair.
type shapeAlignment struct {
	Pairs   []shapePair
	Deleted []*ShapeSignature
	Added   []*ShapeSignature
}

// alignShapes pairs shapes between two matched slides. Strategies in
// priority order: placeholder role + index, name + type, name only,
// then fuzzy similarity. The first strategy to match a pair wins.
func alignShapes(old, new2 []*ShapeSignature, settings Settings) shapeAlignment {
	var out shapeAlignment
	matchedOld := make(map[*ShapeSignature]bool)
	matchedNew := make(map[*ShapeSignature]bool)

	record := func(o, n *ShapeSignature) {
		out.Pairs = append(out.Pairs, shapePair{Old: o, New: n})
		matchedOld[o] = true
		matchedNew[n] = true
	}

	strategies := []func(o, n *ShapeSignature) bool{
		func(o, n *ShapeSignature) bool {
			return o.Placeholder != "" && o.Placeholder == n.Placeholder && o.PlaceholderIdx == n.PlaceholderIdx
		},
		func(o, n *ShapeSignature) bool {
			return o.Name != "" && o.Name == n.Name && o.Type == n.Type
		},
		func(o, n *ShapeSignature) bool {
			return o.Name != "" && o.Name == n.Name
		},
	}
	for _, match := range strategies {
		for _, o := range old {
			if matchedOld[o] {
				continue
			}
			for _, n := range new2 {
				if matchedNew[n] || !match(o, n) {
					continue
				}
				record(o, n)
				break
			}
		}
	}

	if settings.EnableFuzzyShapeMatching {
		for _, o := range old {
			if matchedOld[o] {
				continue
			}
			var best *ShapeSignature
			bestSim := 0.0
			for _, n := range new2 {
				if matchedNew[n] {
					continue
				}
				if sim := shapeSimilarity(o, n); sim > bestSim {
					best, bestSim = n, sim
				}
			}
			if best != nil && bestSim >= settings.ShapeSimilarityThreshold {
				record(o, best)
			}
		}
	}

	for _, o := range old {
		if !matchedOld[o] {
			out.Deleted = append(out.Deleted, o)
		}
	}
	for _, n := range new2 {
		if !matchedNew[n] {
			out.Added = append(out.Added, n)
		}
	}
	return out
}

// shapeSimilarity blends type, geometry, text, and payload agreement.
func shapeSimilarity(a, b *ShapeSignature) float64 {
	if a.Type != b.Type {
		return 0
	}
	score := 0.0
	score += 0.25 // same type
	if a.GeometryHash == b.GeometryHash {
		score += 0.15
	}
	if a.ContentHash != "" && a.ContentHash == b.ContentHash {
		score += 0.25
	}
	score += 0.35 * textJaccard(a.TextBody.Text(), b.TextBody.Text())
	return score
}
