// Package infotext models the line-oriented "key: value" metadata block
// stored in the archive-backed container and patches it without moving
// lines it does not touch.
package infotext

import (
	"slices"
	"strings"
)

// Line is one line of the block. A line containing a colon is a key/value
// pair; any other line is opaque and reproduced verbatim.
type Line struct {
	Raw   string
	Key   string
	Value string
	KV    bool

	// eol is the terminator that followed the line: "\n", "\r\n", or ""
	// for a final unterminated line.
	eol   string
	dirty bool
}

// String renders the line without its terminator. Untouched lines keep
// their original text.
func (l Line) String() string {
	if l.KV && l.dirty {
		return l.Key + ": " + l.Value
	}
	return l.Raw
}

// Document is a parsed metadata block.
type Document struct {
	lines []Line
	// eol terminates inserted lines: whichever of "\r\n" and "\n" ends
	// more of the parsed lines, "\r\n" on a tie.
	eol string
}

// Parse splits text into lines on "\n". Each line keeps its own
// terminator, so a block with mixed line endings renders back unchanged.
func Parse(text string) *Document {
	d := &Document{eol: "\n"}
	crlf, lf := 0, 0
	for text != "" {
		raw, eol := text, ""
		if i := strings.IndexByte(text, '\n'); i >= 0 {
			raw, text = text[:i], text[i+1:]
			eol = "\n"
			if strings.HasSuffix(raw, "\r") {
				raw, eol = raw[:len(raw)-1], "\r\n"
				crlf++
			} else {
				lf++
			}
		} else {
			text = ""
		}
		l := parseLine(raw)
		l.eol = eol
		d.lines = append(d.lines, l)
	}
	if crlf > 0 && crlf >= lf {
		d.eol = "\r\n"
	}
	return d
}

func parseLine(raw string) Line {
	key, value, ok := strings.Cut(raw, ":")
	if !ok {
		return Line{Raw: raw}
	}
	return Line{
		Raw:   raw,
		Key:   strings.TrimSpace(key),
		Value: strings.TrimSpace(value),
		KV:    true,
	}
}

// String renders the document.
func (d *Document) String() string {
	var b strings.Builder
	for _, l := range d.lines {
		b.WriteString(l.String())
		b.WriteString(l.eol)
	}
	return b.String()
}

// Lines returns a copy of the parsed lines.
func (d *Document) Lines() []Line {
	return append([]Line(nil), d.lines...)
}

// Pairs returns the key/value lines in document order.
func (d *Document) Pairs() []Line {
	var out []Line
	for _, l := range d.lines {
		if l.KV {
			out = append(out, l)
		}
	}
	return out
}

// Get returns the value of the first line with key.
func (d *Document) Get(key string) (string, bool) {
	if i := d.index(key); i >= 0 {
		return d.lines[i].Value, true
	}
	return "", false
}

// Has reports whether any line has key.
func (d *Document) Has(key string) bool { return d.index(key) >= 0 }

// Set replaces the value of the first line with key, keeping its position.
// It reports whether the key was found.
func (d *Document) Set(key, value string) bool {
	i := d.index(key)
	if i < 0 {
		return false
	}
	d.lines[i].Value = value
	d.lines[i].dirty = true
	return true
}

// InsertAfter places new key/value lines directly after the first line with
// key anchor, in the order given. It reports false and changes nothing when
// the anchor is absent.
func (d *Document) InsertAfter(anchor string, pairs ...[2]string) bool {
	i := d.index(anchor)
	if i < 0 {
		return false
	}
	if len(pairs) == 0 {
		return true
	}
	added := make([]Line, 0, len(pairs))
	for _, p := range pairs {
		added = append(added, Line{Key: p[0], Value: p[1], KV: true, eol: d.eol, dirty: true})
	}
	// Inserting after an unterminated last line moves the missing
	// terminator to the new last line.
	if d.lines[i].eol == "" {
		d.lines[i].eol = d.eol
		added[len(added)-1].eol = ""
	}
	d.lines = slices.Insert(d.lines, i+1, added...)
	return true
}

func (d *Document) index(key string) int {
	for i, l := range d.lines {
		if l.KV && l.Key == key {
			return i
		}
	}
	return -1
}
