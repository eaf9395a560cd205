// Package parser extracts the title and description from a note's front matter.
//
// Only a fixed two-key subset is understood: the file must open with a "---"
// line, and "title:" / "description:" lines are read until the closing "---"
// line or end of file. Anything else in the header is ignored.
package parser

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/starford/quill/internal/apperr"
)

const (
	delimLine         = "---\n"
	titlePrefix       = "title:"
	descriptionPrefix = "description:"

	// MaxTitleLen is the longest title, in bytes, that is recorded.
	MaxTitleLen = 255
)

// Status is the outcome of parsing a header.
type Status int

const (
	// NoTitle means the file is not a note.
	NoTitle Status = iota
	// TitleOnly means a title was found but no description.
	TitleOnly
	// TitleDescription means both fields were found.
	TitleDescription
)

// Result holds the fields found in a header.
type Result struct {
	Title       string
	Description string
	Status      Status
}

// HasTitle reports whether the file is a note.
func (r Result) HasTitle() bool { return r.Status != NoTitle }

// HasDescription reports whether a non-empty description was found.
func (r Result) HasDescription() bool { return r.Status == TitleDescription }

// Parse scans the header at the start of r. A missing opening delimiter is not
// an error; it yields a Result with Status NoTitle.
func Parse(r io.Reader) (Result, error) {
	br := bufio.NewReader(r)

	first, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return Result{}, err
	}
	if first != delimLine {
		return Result{}, nil
	}

	var res Result
	for {
		line, err := br.ReadString('\n')
		if line == delimLine {
			break
		}
		if line != "" {
			res.scan(line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Result{}, err
		}
	}
	return res, nil
}

// ParseFile opens path and parses its header. A file that cannot be opened is
// reported as NoTitle; a read failure after opening is a KindFileRead error.
func ParseFile(path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, nil
	}
	defer f.Close()

	res, err := Parse(f)
	if err != nil {
		return Result{}, apperr.E(apperr.KindFileRead, "parse", path, err)
	}
	return res, nil
}

func (r *Result) scan(line string) {
	switch {
	case strings.HasPrefix(line, titlePrefix):
		v, ok := fieldValue(line, titlePrefix)
		if !ok || len(v) > MaxTitleLen {
			return
		}
		// A later title supersedes any description seen before it.
		r.Title = v
		r.Description = ""
		r.Status = TitleOnly
	case r.Status == TitleOnly && strings.HasPrefix(line, descriptionPrefix):
		if v, ok := fieldValue(line, descriptionPrefix); ok {
			r.Description = v
			r.Status = TitleDescription
		}
	}
}

// fieldValue strips the prefix, leading spaces and the line terminator.
func fieldValue(line, prefix string) (string, bool) {
	v := strings.TrimLeft(line[len(prefix):], " ")
	v = strings.TrimSuffix(v, "\n")
	return v, v != ""
}

// Template renders a header carrying title and, when non-empty, description.
func Template(title, description string) string {
	var b strings.Builder
	b.WriteString(delimLine)
	b.WriteString(titlePrefix + " " + title + "\n")
	if description != "" {
		b.WriteString(descriptionPrefix + " " + description + "\n")
	}
	b.WriteString(delimLine)
	return b.String()
}

// Body returns data with its header removed. Data that does not open with a
// header is returned unchanged; an unterminated header leaves nothing.
func Body(data []byte) []byte {
	s := string(data)
	if !strings.HasPrefix(s, delimLine) {
		return data
	}
	rest := s[len(delimLine):]
	for rest != "" {
		line, tail, found := strings.Cut(rest, "\n")
		if found && line+"\n" == delimLine {
			return []byte(tail)
		}
		rest = tail
	}
	return nil
}
