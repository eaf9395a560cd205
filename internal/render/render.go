// Package render turns note bodies into HTML or styled terminal text.
package render

import (
	"bytes"
	"fmt"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/quill/internal/parser"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// HTML converts the Markdown body of a note, header excluded, to HTML.
func HTML(note []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := md.Convert(parser.Body(note), &buf); err != nil {
		return nil, fmt.Errorf("render: html: %w", err)
	}
	return buf.Bytes(), nil
}

// Terminal renders a note for display in a terminal. The title and
// description are shown as a heading above the body. An empty style picks
// one from the terminal background.
func Terminal(note []byte, style string, width int) (string, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("render: terminal: %w", err)
	}

	var src bytes.Buffer
	if res, err := parser.Parse(bytes.NewReader(note)); err == nil && res.HasTitle() {
		fmt.Fprintf(&src, "# %s\n\n", res.Title)
		if res.HasDescription() {
			fmt.Fprintf(&src, "> %s\n\n", res.Description)
		}
	}
	src.Write(parser.Body(note))

	out, err := r.Render(src.String())
	if err != nil {
		return "", fmt.Errorf("render: terminal: %w", err)
	}
	return out, nil
}
