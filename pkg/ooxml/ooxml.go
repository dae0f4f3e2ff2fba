// Package ooxml is the comparison entry point: it sniffs the document
// family of two OOXML packages and dispatches to the matching engine.
//
// The per-family engines live in the wml, sml, and pml subpackages; this
// package exposes the single byte-oriented surface external callers use:
// two buffers and a settings value in, one buffer and a change list out.
package ooxml

import (
	"fmt"

	"github.com/vortex/ooxml-diff/pkg/ooxml/lcs"
	"github.com/vortex/ooxml-diff/pkg/ooxml/opc"
	"github.com/vortex/ooxml-diff/pkg/ooxml/pml"
	"github.com/vortex/ooxml-diff/pkg/ooxml/sml"
	"github.com/vortex/ooxml-diff/pkg/ooxml/wml"
)

// Family is the OOXML document family.
type Family string

const (
	FamilyWordprocessing Family = "wordprocessingml"
	FamilySpreadsheet    Family = "spreadsheetml"
	FamilyPresentation   Family = "presentationml"
)

// Ext returns the conventional file extension for the family.
func (f Family) Ext() string {
	switch f {
	case FamilyWordprocessing:
		return ".docx"
	case FamilySpreadsheet:
		return ".xlsx"
	case FamilyPresentation:
		return ".pptx"
	}
	return ""
}

// UnsupportedFileTypeError indicates inputs that are not OOXML or not of
// the same family.
type UnsupportedFileTypeError struct {
	msg string
}

func (e *UnsupportedFileTypeError) Error() string { return e.msg }

func newUnsupportedFileType(msg string, args ...any) *UnsupportedFileTypeError {
	return &UnsupportedFileTypeError{msg: fmt.Sprintf(msg, args...)}
}

// DetectFamily sniffs a package's family from its main part name.
func DetectFamily(data []byte) (Family, error) {
	pkg, err := opc.OpenBytes(data)
	if err != nil {
		return "", err
	}
	switch {
	case pkg.Exists("/word/document.xml"):
		return FamilyWordprocessing, nil
	case pkg.Exists("/xl/workbook.xml"):
		return FamilySpreadsheet, nil
	case pkg.Exists("/ppt/presentation.xml"):
		return FamilyPresentation, nil
	}
	return "", newUnsupportedFileType("ooxml: package is not a known OOXML document family")
}

// Options bundles per-family settings for the dispatching Compare. The
// zero value means defaults everywhere.
type Options struct {
	WML *wml.Settings
	SML *sml.Settings
	PML *pml.Settings
}

// Change is the family-neutral view of one change record.
type Change struct {
	Kind     string
	Summary  string
	Location string
	OldText  string
	NewText  string
	Author   string
}

// Counters aggregate a comparison across families.
type Counters struct {
	Insertions int
	Deletions  int
	Total      int
}

// Result is the family-neutral comparison outcome.
type Result struct {
	Family   Family
	Document []byte
	Changes  []Change
	Counters Counters
}

// Compare sniffs both inputs, requires them to share a family, and runs
// the matching engine. A diff-kernel invariant violation (a bug, not bad
// input) surfaces as a returned *lcs.InternalError rather than a panic.
func Compare(doc1, doc2 []byte, opts Options) (result *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*lcs.InternalError); ok {
				result, err = nil, ie
				return
			}
			panic(r)
		}
	}()
	return compare(doc1, doc2, opts)
}

func compare(doc1, doc2 []byte, opts Options) (*Result, error) {
	family1, err := DetectFamily(doc1)
	if err != nil {
		return nil, err
	}
	family2, err := DetectFamily(doc2)
	if err != nil {
		return nil, err
	}
	if family1 != family2 {
		return nil, newUnsupportedFileType(
			"ooxml: cannot compare %s against %s", family1, family2)
	}

	switch family1 {
	case FamilyWordprocessing:
		settings := wml.DefaultSettings()
		if opts.WML != nil {
			settings = *opts.WML
		}
		r, err := wml.Compare(doc1, doc2, settings)
		if err != nil {
			return nil, err
		}
		return wmlResult(r), nil

	case FamilySpreadsheet:
		settings := sml.DefaultSettings()
		if opts.SML != nil {
			settings = *opts.SML
		}
		r, err := sml.Compare(doc1, doc2, settings)
		if err != nil {
			return nil, err
		}
		return smlResult(r), nil

	default:
		settings := pml.DefaultSettings()
		if opts.PML != nil {
			settings = *opts.PML
		}
		r, err := pml.Compare(doc1, doc2, settings)
		if err != nil {
			return nil, err
		}
		return pmlResult(r), nil
	}
}

func wmlResult(r *wml.Result) *Result {
	out := &Result{
		Family:   FamilyWordprocessing,
		Document: r.Document,
		Counters: Counters{
			Insertions: r.Counters.Insertions,
			Deletions:  r.Counters.Deletions,
			Total:      r.Counters.Total(),
		},
	}
	for _, c := range r.Changes {
		location := fmt.Sprintf("paragraph %d", c.ParagraphIndex+1)
		if c.InTable {
			location = fmt.Sprintf("table row %d", c.TableRow+1)
		}
		if c.InFootnote {
			location += " (footnote)"
		}
		if c.InEndnote {
			location += " (endnote)"
		}
		out.Changes = append(out.Changes, Change{
			Kind:     string(c.Kind),
			Summary:  c.Summary,
			Location: location,
			OldText:  c.OldText,
			NewText:  c.NewText,
			Author:   c.Author,
		})
	}
	return out
}

func smlResult(r *sml.Result) *Result {
	out := &Result{
		Family:   FamilySpreadsheet,
		Document: r.Document,
		Counters: Counters{
			Insertions: r.Counters.Insertions,
			Deletions:  r.Counters.Deletions,
			Total:      r.Counters.Total(),
		},
	}
	for _, c := range r.Changes {
		location := c.Sheet
		if c.Cell != "" {
			location = c.Sheet + "!" + c.Cell
		} else if c.Row > 0 {
			location = fmt.Sprintf("%s, row %d", c.Sheet, c.Row)
		}
		out.Changes = append(out.Changes, Change{
			Kind:     string(c.Kind),
			Summary:  c.Summary,
			Location: location,
			OldText:  c.OldValue,
			NewText:  c.NewValue,
			Author:   c.Author,
		})
	}
	return out
}

func pmlResult(r *pml.Result) *Result {
	out := &Result{
		Family:   FamilyPresentation,
		Document: r.Document,
		Counters: Counters{
			Insertions: r.Counters.Insertions,
			Deletions:  r.Counters.Deletions,
			Total:      r.Counters.Total(),
		},
	}
	for _, c := range r.Changes {
		location := fmt.Sprintf("slide %d", c.Slide)
		if c.Shape != "" {
			location += ", shape " + c.Shape
		}
		out.Changes = append(out.Changes, Change{
			Kind:     string(c.Kind),
			Summary:  c.Summary,
			Location: location,
			OldText:  c.OldText,
			NewText:  c.NewText,
			Author:   c.Author,
		})
	}
	return out
}
