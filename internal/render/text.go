// Package render turns an assembled prescription record into a
// document-ready byte stream. PDF generation stays an external
// collaborator; the plaintext renderer here is the built-in fallback and
// the reference for the interface contract.
package render

import (
	"fmt"
	"strings"
	"time"

	"agenticmd/pkg"
)

// Renderer converts assembled prescription entries into document bytes.
type Renderer interface {
	Render(entries []pkg.PrescriptionEntry) ([]byte, error)
}

// TextRenderer produces an Rx-style plaintext document.
type TextRenderer struct {
	Header string
	// Now allows tests to pin the issue timestamp; defaults to time.Now.
	Now func() time.Time
}

// NewTextRenderer builds a renderer with the given document header.
func NewTextRenderer(header string) *TextRenderer {
	if header == "" {
		header = "PRESCRIPTION"
	}
	return &TextRenderer{Header: header}
}

// Render writes one numbered block per entry.
func (r *TextRenderer) Render(entries []pkg.PrescriptionEntry) ([]byte, error) {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	var b strings.Builder
	b.WriteString(r.Header)
	b.WriteString("\n")
	b.WriteString("Issued: ")
	b.WriteString(now().Format("2006-01-02 15:04"))
	b.WriteString("\n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s", i+1, e.Name)
		if e.Quantity != "" {
			fmt.Fprintf(&b, " (%s)", e.Quantity)
		}
		b.WriteString("\n")
		if e.Instructions != "" {
			fmt.Fprintf(&b, "   Sig: %s\n", e.Instructions)
		}
	}
	return []byte(b.String()), nil
}
