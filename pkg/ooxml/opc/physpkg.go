package opc

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"time"
)

// ole2Magic is the signature of an OLE2 compound document — what an
// encrypted (password-protected) Office file actually is on disk.
var ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// zipEpoch is the fixed modification time stamped on every written ZIP
// member so that identical packages serialize to identical bytes.
var zipEpoch = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// PhysPkgReader provides read access to the ZIP members of a package.
type PhysPkgReader struct {
	zr      *zip.Reader
	members map[string]*zip.File
	uris    []PackURI
}

// NewPhysPkgReaderFromBytes opens a reader over in-memory package bytes.
func NewPhysPkgReaderFromBytes(data []byte) (*PhysPkgReader, error) {
	if len(data) >= len(ole2Magic) && bytes.Equal(data[:len(ole2Magic)], ole2Magic) {
		return nil, fmt.Errorf("%w: input is an OLE2 compound document", ErrEncryptedPackage)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotZipPackage, err)
	}
	r := &PhysPkgReader{
		zr:      zr,
		members: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		r.members[f.Name] = f
		r.uris = append(r.uris, PackURI("/"+f.Name))
	}
	return r, nil
}

// Close releases the reader. The in-memory backing needs no cleanup; the
// method exists so call sites follow the usual open/defer-close shape.
func (r *PhysPkgReader) Close() error { return nil }

// URIs returns the pack URIs of all ZIP members in central-directory order.
func (r *PhysPkgReader) URIs() []PackURI {
	return r.uris
}

// Exists reports whether a member exists for the given URI.
func (r *PhysPkgReader) Exists(uri PackURI) bool {
	_, ok := r.members[uri.Membername()]
	return ok
}

// BlobFor returns the decompressed bytes of the member at uri.
func (r *PhysPkgReader) BlobFor(uri PackURI) ([]byte, error) {
	f, ok := r.members[uri.Membername()]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrMemberNotFound, uri)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("opc: opening member %q: %w", uri, err)
	}
	defer rc.Close()
	blob, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("opc: reading member %q: %w", uri, err)
	}
	return blob, nil
}

// ContentTypesXml returns the [Content_Types].xml blob.
func (r *PhysPkgReader) ContentTypesXml() ([]byte, error) {
	blob, err := r.BlobFor(ContentTypesURI)
	if err != nil {
		return nil, NewInvalidPackageError(err, "opc: package has no [Content_Types].xml")
	}
	return blob, nil
}

// RelsXmlFor returns the .rels blob for the given source URI, or nil
// (no error) when the source has no relationships stream.
func (r *PhysPkgReader) RelsXmlFor(sourceURI PackURI) ([]byte, error) {
	relsURI := sourceURI.RelsURI()
	if !r.Exists(relsURI) {
		return nil, nil
	}
	return r.BlobFor(relsURI)
}

// PhysPkgWriter writes ZIP members with DEFLATE compression and a pinned
// modification time.
type PhysPkgWriter struct {
	zw *zip.Writer
}

// NewPhysPkgWriter creates a writer over w.
func NewPhysPkgWriter(w io.Writer) *PhysPkgWriter {
	return &PhysPkgWriter{zw: zip.NewWriter(w)}
}

// Write adds one member for uri with the given blob.
func (w *PhysPkgWriter) Write(uri PackURI, blob []byte) error {
	hdr := &zip.FileHeader{
		Name:     uri.Membername(),
		Method:   zip.Deflate,
		Modified: zipEpoch,
	}
	fw, err := w.zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("opc: creating member %q: %w", uri, err)
	}
	if _, err := fw.Write(blob); err != nil {
		return fmt.Errorf("opc: writing member %q: %w", uri, err)
	}
	return nil
}

// Close finalizes the central directory.
func (w *PhysPkgWriter) Close() error {
	return w.zw.Close()
}
