package oxml

import (
	"github.com/beevik/etree"
)

// Is reports whether el matches a namespace-prefixed tag like "w:p".
func Is(el *etree.Element, nspTag string) bool {
	prefix, local := SplitTag(nspTag)
	return el.Space == prefix && el.Tag == local
}

// FirstChild returns the first direct child matching the prefixed tag,
// or nil.
func FirstChild(el *etree.Element, nspTag string) *etree.Element {
	prefix, local := SplitTag(nspTag)
	for _, child := range el.ChildElements() {
		if child.Space == prefix && child.Tag == local {
			return child
		}
	}
	return nil
}

// Children returns all direct children matching the prefixed tag.
func Children(el *etree.Element, nspTag string) []*etree.Element {
	prefix, local := SplitTag(nspTag)
	var result []*etree.Element
	for _, child := range el.ChildElements() {
		if child.Space == prefix && child.Tag == local {
			result = append(result, child)
		}
	}
	return result
}

// FindFirst returns the first descendant (depth-first, document order)
// matching the prefixed tag, or nil. el itself is not considered.
func FindFirst(el *etree.Element, nspTag string) *etree.Element {
	prefix, local := SplitTag(nspTag)
	var walk func(*etree.Element) *etree.Element
	walk = func(e *etree.Element) *etree.Element {
		for _, child := range e.ChildElements() {
			if child.Space == prefix && child.Tag == local {
				return child
			}
			if found := walk(child); found != nil {
				return found
			}
		}
		return nil
	}
	return walk(el)
}

// FindAll returns every descendant matching the prefixed tag in document
// order. el itself is not considered.
func FindAll(el *etree.Element, nspTag string) []*etree.Element {
	prefix, local := SplitTag(nspTag)
	var result []*etree.Element
	var walk func(*etree.Element)
	walk = func(e *etree.Element) {
		for _, child := range e.ChildElements() {
			if child.Space == prefix && child.Tag == local {
				result = append(result, child)
			}
			walk(child)
		}
	}
	walk(el)
	return result
}

// Walk visits every descendant element in document order. Returning
// false from visit prunes the subtree below the visited element.
func Walk(el *etree.Element, visit func(*etree.Element) bool) {
	for _, child := range el.ChildElements() {
		if visit(child) {
			Walk(child, visit)
		}
	}
}

// ChildIndex returns the index of child among parent's tokens, or -1.
func ChildIndex(parent, child *etree.Element) int {
	for i, tok := range parent.Child {
		if el, ok := tok.(*etree.Element); ok && el == child {
			return i
		}
	}
	return -1
}

// InsertBefore inserts el immediately before ref among ref's parent's
// children. Does nothing if ref has no parent.
func InsertBefore(el, ref *etree.Element) {
	parent := ref.Parent()
	if parent == nil {
		return
	}
	idx := ChildIndex(parent, ref)
	parent.AddChild(el) // adopt (detaches from any previous parent)
	parent.RemoveChild(el)
	parent.InsertChildAt(idx, el)
}

// InsertAfter inserts el immediately after ref among ref's parent's
// children. Does nothing if ref has no parent.
func InsertAfter(el, ref *etree.Element) {
	parent := ref.Parent()
	if parent == nil {
		return
	}
	idx := ChildIndex(parent, ref)
	parent.AddChild(el)
	parent.RemoveChild(el)
	parent.InsertChildAt(idx+1, el)
}

// Detach removes el from its parent, if any.
func Detach(el *etree.Element) {
	if parent := el.Parent(); parent != nil {
		parent.RemoveChild(el)
	}
}

// ReplaceWith swaps old for el in old's parent. Does nothing if old has
// no parent.
func ReplaceWith(el, old *etree.Element) {
	parent := old.Parent()
	if parent == nil {
		return
	}
	InsertBefore(el, old)
	parent.RemoveChild(old)
}

// Attr returns the value of a namespace-prefixed attribute like "w:val",
// or dflt if absent. Unprefixed names look up plain attributes.
func Attr(el *etree.Element, nspName, dflt string) string {
	prefix, local := SplitTag(nspName)
	for _, a := range el.Attr {
		if a.Space == prefix && a.Key == local {
			return a.Value
		}
	}
	return dflt
}

// RemoveAttrNS removes a namespace-prefixed attribute if present.
func RemoveAttrNS(el *etree.Element, nspName string) {
	prefix, local := SplitTag(nspName)
	if prefix == "" {
		el.RemoveAttr(local)
		return
	}
	el.RemoveAttr(prefix + ":" + local)
}
