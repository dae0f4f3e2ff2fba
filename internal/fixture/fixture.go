// Package fixture builds minimal in-memory OOXML packages for tests.
// The documents are deliberately small but structurally honest: content
// types, package rels, and a main part wired the way Word and PowerPoint
// write them.
package fixture

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strings"
)

const (
	ctDocument     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	ctPresentation = "application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"
	ctSlide        = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"

	rtOfficeDocument = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument"
	rtSlide          = "http://schemas.openxmlformats.org/officeDocument/2006/relationships/slide"

	nsW = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
	nsP = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsA = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsR = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
)

// Zip assembles a ZIP archive from member name → content.
// Members are written in the iteration order of the names slice.
func Zip(names []string, members map[string]string) []byte {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			panic(err)
		}
		if _, err := w.Write([]byte(members[name])); err != nil {
			panic(err)
		}
	}
	if err := zw.Close(); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// Docx builds a .docx whose body holds one paragraph per given string.
// An empty string produces an empty paragraph.
func Docx(paragraphs ...string) []byte {
	return DocxRaw(BodyXml(paragraphs...))
}

// DocxRaw builds a .docx around a literal <w:body> inner XML string.
func DocxRaw(bodyInner string) []byte {
	document := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + nsW + `" xmlns:r="` + nsR + `"><w:body>` +
		bodyInner +
		`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/></w:sectPr>` +
		`</w:body></w:document>`

	contentTypes := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/word/document.xml" ContentType="` + ctDocument + `"/>` +
		`</Types>`

	pkgRels := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="` + rtOfficeDocument + `" Target="word/document.xml"/>` +
		`</Relationships>`

	names := []string{"[Content_Types].xml", "_rels/.rels", "word/document.xml"}
	return Zip(names, map[string]string{
		"[Content_Types].xml": contentTypes,
		"_rels/.rels":         pkgRels,
		"word/document.xml":   document,
	})
}

// BodyXml renders paragraphs as <w:p> elements with a single run each.
func BodyXml(paragraphs ...string) string {
	var sb strings.Builder
	for _, text := range paragraphs {
		sb.WriteString(Paragraph(text))
	}
	return sb.String()
}

// Paragraph renders one <w:p> with a single unformatted run, or an empty
// paragraph for empty text.
func Paragraph(text string) string {
	if text == "" {
		return "<w:p/>"
	}
	return `<w:p><w:r><w:t xml:space="preserve">` + escape(text) + `</w:t></w:r></w:p>`
}

// Slide describes one fixture slide.
type Slide struct {
	// Shapes maps in order: each entry becomes one <p:sp> with a text
	// body holding the given text. Name and placeholder type are optional.
	Shapes []Shape
}

// Shape describes one fixture shape.
type Shape struct {
	ID           int
	Name         string
	Placeholder  string // e.g. "title", "body"; empty for none
	Text         string
	OffX, OffY   int64
	ExtCX, ExtCY int64
}

// Pptx builds a .pptx with the given slides.
func Pptx(slides ...Slide) []byte {
	names := []string{"[Content_Types].xml", "_rels/.rels", "ppt/presentation.xml", "ppt/_rels/presentation.xml.rels"}
	members := make(map[string]string)

	var ctOverrides, sldIdLst, presRels strings.Builder
	for i, slide := range slides {
		n := i + 1
		partName := fmt.Sprintf("ppt/slides/slide%d.xml", n)
		names = append(names, partName)
		members[partName] = slideXml(slide)
		fmt.Fprintf(&ctOverrides, `<Override PartName="/%s" ContentType="%s"/>`, partName, ctSlide)
		fmt.Fprintf(&sldIdLst, `<p:sldId id="%d" r:id="rId%d"/>`, 256+i, n)
		fmt.Fprintf(&presRels, `<Relationship Id="rId%d" Type="%s" Target="slides/slide%d.xml"/>`, n, rtSlide, n)
	}

	members["[Content_Types].xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/ppt/presentation.xml" ContentType="` + ctPresentation + `"/>` +
		ctOverrides.String() +
		`</Types>`

	members["_rels/.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		`<Relationship Id="rId1" Type="` + rtOfficeDocument + `" Target="ppt/presentation.xml"/>` +
		`</Relationships>`

	members["ppt/presentation.xml"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:presentation xmlns:p="` + nsP + `" xmlns:r="` + nsR + `">` +
		`<p:sldIdLst>` + sldIdLst.String() + `</p:sldIdLst>` +
		`</p:presentation>`

	members["ppt/_rels/presentation.xml.rels"] = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
		presRels.String() +
		`</Relationships>`

	return Zip(names, members)
}

func slideXml(slide Slide) string {
	var shapes strings.Builder
	for _, sp := range slide.Shapes {
		shapes.WriteString(shapeXml(sp))
	}
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<p:sld xmlns:p="` + nsP + `" xmlns:a="` + nsA + `" xmlns:r="` + nsR + `">` +
		`<p:cSld><p:spTree>` +
		`<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
		`<p:grpSpPr/>` +
		shapes.String() +
		`</p:spTree></p:cSld>` +
		`</p:sld>`
}

func shapeXml(sp Shape) string {
	ph := ""
	if sp.Placeholder != "" {
		ph = `<p:ph type="` + sp.Placeholder + `"/>`
	}
	xfrm := ""
	if sp.ExtCX != 0 || sp.ExtCY != 0 || sp.OffX != 0 || sp.OffY != 0 {
		xfrm = fmt.Sprintf(`<a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm>`,
			sp.OffX, sp.OffY, sp.ExtCX, sp.ExtCY)
	}
	return fmt.Sprintf(
		`<p:sp><p:nvSpPr><p:cNvPr id="%d" name="%s"/><p:cNvSpPr/><p:nvPr>%s</p:nvPr></p:nvSpPr>`+
			`<p:spPr>%s<a:prstGeom prst="rect"/></p:spPr>`+
			`<p:txBody><a:bodyPr/><a:p><a:r><a:t>%s</a:t></a:r></a:p></p:txBody></p:sp>`,
		sp.ID, escape(sp.Name), ph, xfrm, escape(sp.Text))
}

func escape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}
