package pml

import (
	"fmt"
)

// Compare diffs two PresentationML decks and returns the marked result
// plus the change list. Inputs are not modified.
func Compare(doc1, doc2 []byte, settings Settings) (*Result, error) {
	d1, err := openDeck(doc1)
	if err != nil {
		return nil, err
	}
	d2, err := openDeck(doc2)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	alignment := alignSlides(d1, d2, settings)

	outPkg, err := d2.pkg.Clone()
	if err != nil {
		return nil, err
	}
	em := newPmlEmitter(settings, outPkg)

	outcomesBySlide := make(map[*SlideSignature][]shapeOutcome)
	for _, pair := range alignment.Pairs {
		outcomesBySlide[pair.New] = classifySlidePair(pair, settings, result)
	}
	for _, s := range alignment.Deleted {
		result.add(Change{
			Kind:    ChangeSlideDeleted,
			Summary: fmt.Sprintf("Slide %d deleted", s.Index+1),
			Slide:   s.Index + 1,
			OldText: s.Title(),
			Author:  settings.AuthorForChanges,
		})
	}
	for _, s := range alignment.Added {
		result.add(Change{
			Kind:    ChangeSlideInserted,
			Summary: fmt.Sprintf("Slide %d inserted", s.Index+1),
			Slide:   s.Index + 1,
			NewText: s.Title(),
			Author:  settings.AuthorForChanges,
		})
		if err := em.Banner(s.PartName, "Inserted slide", settings.InsertedColor); err != nil {
			return nil, err
		}
	}

	// Shape-level markup on matched slides.
	for _, pair := range alignment.Pairs {
		for _, outcome := range outcomesBySlide[pair.New] {
			if outcome.moved || outcome.resized {
				if err := em.Overlay(pair.New.PartName, outcome.pair.New, settings.MovedColor); err != nil {
					return nil, err
				}
			}
			if outcome.edits != nil {
				if err := em.MarkTextEdits(pair.New.PartName, outcome.pair.New, outcome.edits); err != nil {
					return nil, err
				}
			}
		}
		if settings.AddNotesAnnotations {
			if err := em.AnnotateNotes(pair.New, changeLogLines(result.Changes, pair.New.Index+1)); err != nil {
				return nil, err
			}
		}
	}

	if settings.AddSummarySlide && result.Counters.Total() > 0 {
		if err := em.SummarySlide(result); err != nil {
			return nil, err
		}
	}

	result.Document, err = outPkg.SaveToBytes()
	if err != nil {
		return nil, err
	}
	return result, nil
}
