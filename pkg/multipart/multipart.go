// Package multipart decodes a raw multipart/form-data body into named
// fields. It deliberately works on the byte level: the standard
// library's reader-based parser is fine for forms, but the publish
// endpoint must carry a gzip archive through untouched, so boundary
// scanning and content slicing never go through a text decode.
package multipart

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
)

// ErrMissingBoundary is returned when a form is decoded without a
// boundary token, typically because the Content-Type header lacked one.
var ErrMissingBoundary = errors.New("multipart: missing boundary")

// Field is one decoded form field. Exactly one of Text or Data carries
// the payload, discriminated by Binary.
type Field struct {
	Name   string
	Binary bool
	Text   string
	Data   []byte
}

// Form maps field names to decoded fields.
type Form map[string]Field

// File returns the named binary field's bytes, if present.
func (f Form) File(name string) ([]byte, bool) {
	field, ok := f[name]
	if !ok || !field.Binary {
		return nil, false
	}
	return field.Data, true
}

// Text returns the named text field's value, if present.
func (f Form) Text(name string) (string, bool) {
	field, ok := f[name]
	if !ok || field.Binary {
		return "", false
	}
	return field.Text, true
}

var dispositionName = regexp.MustCompile(`name="([^"]*)"`)

// Decode splits body into fields delimited by "--" + boundary.
// Fields named binaryField are kept as raw bytes; everything else is
// decoded as UTF-8 text. A body with no delimiter at all yields an
// empty form, not an error. Parts whose headers carry no
// Content-Disposition name are skipped.
func Decode(body []byte, boundary string, binaryField string) (Form, error) {
	if boundary == "" {
		return nil, ErrMissingBoundary
	}

	delimiter := []byte("--" + boundary)
	form := make(Form)

	pos := bytes.Index(body, delimiter)
	if pos < 0 {
		return form, nil
	}

	for {
		start := pos + len(delimiter)
		// "--" right after the delimiter marks the terminal one.
		if bytes.HasPrefix(body[start:], []byte("--")) {
			break
		}
		next := bytes.Index(body[start:], delimiter)
		if next < 0 {
			break
		}
		part := body[start : start+next]
		pos = start + next

		name, content, ok := splitPart(part)
		if !ok {
			continue
		}
		if name == binaryField {
			form[name] = Field{Name: name, Binary: true, Data: content}
		} else {
			form[name] = Field{Name: name, Text: string(content)}
		}
	}

	return form, nil
}

// splitPart separates one part into its header block and content,
// returning the Content-Disposition field name. Content keeps its raw
// bytes; only the header block is interpreted as text. The trailing
// CRLF that precedes the next delimiter is trimmed from the content.
func splitPart(part []byte) (name string, content []byte, ok bool) {
	part = bytes.TrimPrefix(part, []byte("\r\n"))

	sep := bytes.Index(part, []byte("\r\n\r\n"))
	if sep < 0 {
		return "", nil, false
	}
	headerBlock := string(part[:sep])
	content = part[sep+4:]
	content = bytes.TrimSuffix(content, []byte("\r\n"))

	for _, line := range strings.Split(headerBlock, "\r\n") {
		if !strings.HasPrefix(strings.ToLower(line), "content-disposition:") {
			continue
		}
		m := dispositionName.FindStringSubmatch(line)
		if m == nil {
			return "", nil, false
		}
		return m[1], content, true
	}
	return "", nil, false
}
