package lsp

import (
	"strings"
	"sync"
	"unicode/utf16"
	"unicode/utf8"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/Sumatoshi-tech/projector/pkg/workspace"
)

// document is an open text document and its latest scan.
type document struct {
	text   string
	report *workspace.Report
}

// DocumentStore is a thread-safe store of open documents keyed by URI.
type DocumentStore struct {
	documents map[string]*document
	mu        sync.RWMutex
}

// NewDocumentStore creates a new empty DocumentStore.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{documents: make(map[string]*document)}
}

// Set stores document content and drops the previous scan.
func (ds *DocumentStore) Set(uri, content string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	ds.documents[uri] = &document{text: content}
}

// Get retrieves document content by URI.
func (ds *DocumentStore) Get(uri string) (string, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]
	if !ok {
		return "", false
	}

	return doc.text, true
}

// Delete removes a document.
func (ds *DocumentStore) Delete(uri string) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	delete(ds.documents, uri)
}

func (ds *DocumentStore) setReport(uri, content string, report *workspace.Report) {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	// A newer edit may have landed while scanning.
	if doc, ok := ds.documents[uri]; ok && doc.text == content {
		doc.report = report
	}
}

func (ds *DocumentStore) report(uri string) (string, *workspace.Report, bool) {
	ds.mu.RLock()
	defer ds.mu.RUnlock()

	doc, ok := ds.documents[uri]
	if !ok || doc.report == nil {
		return "", nil, false
	}

	return doc.text, doc.report, true
}

// offsetToPosition converts a byte offset to an LSP position, whose character
// counts UTF-16 code units.
func offsetToPosition(text string, offset int) protocol.Position {
	offset = min(max(offset, 0), len(text))

	var line, lineStart int

	for idx := range offset {
		if text[idx] == '\n' {
			line++
			lineStart = idx + 1
		}
	}

	return protocol.Position{
		Line:      protocol.UInteger(line),                              //nolint:gosec // bounded by len(text)
		Character: protocol.UInteger(utf16Len(text[lineStart:offset])), //nolint:gosec // bounded by len(text)
	}
}

// positionToOffset converts an LSP position to a byte offset, clamping
// positions past the end of a line or of the text.
func positionToOffset(text string, pos protocol.Position) int {
	offset := 0

	for line := protocol.UInteger(0); line < pos.Line; line++ {
		next := strings.IndexByte(text[offset:], '\n')
		if next < 0 {
			return len(text)
		}

		offset += next + 1
	}

	units := int(pos.Character)

	for offset < len(text) && text[offset] != '\n' && units > 0 {
		r, size := utf8.DecodeRuneInString(text[offset:])
		units -= utf16.RuneLen(r)
		offset += size
	}

	return offset
}

func utf16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}

	return n
}

func toRange(text string, start, end uint32) protocol.Range {
	return protocol.Range{
		Start: offsetToPosition(text, int(start)),
		End:   offsetToPosition(text, int(end)),
	}
}

// applyChange applies one incremental edit.
func applyChange(text string, rng protocol.Range, replacement string) string {
	start := positionToOffset(text, rng.Start)
	end := max(positionToOffset(text, rng.End), start)

	return text[:start] + replacement + text[end:]
}
