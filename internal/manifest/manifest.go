// Package manifest reads and rewrites OSGi bundle manifests (META-INF/MANIFEST.MF).
//
// Only the main section is interpreted. Rewriting a version touches the
// Bundle-Version header and nothing else: line endings, header order and
// per-entry sections are carried over byte for byte.
package manifest

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/danieljhkim/bundlever/internal/version"
)

const (
	// RelPath is the manifest location relative to a plugin project root.
	RelPath = "META-INF/MANIFEST.MF"

	HeaderSymbolicName = "Bundle-SymbolicName"
	HeaderVersion      = "Bundle-Version"
	HeaderName         = "Bundle-Name"
	HeaderManifestVer  = "Manifest-Version"

	// maxLineBytes is the jar manifest line limit, excluding the line ending.
	maxLineBytes = 72
)

// header is one main-section header including its continuation lines.
// start and end are byte offsets into the raw manifest; end includes the
// trailing line ending.
type header struct {
	name  string
	value string
	start int
	end   int
}

// Manifest is a parsed manifest that remembers where every header lives so it
// can be rewritten in place.
type Manifest struct {
	raw     []byte
	headers []header
	eol     string
	// mainEnd is the offset just past the last main-section header.
	mainEnd int
}

// Parse parses raw manifest bytes. Errors wrap ErrParse.
func Parse(data []byte) (*Manifest, error) {
	m := &Manifest{raw: data, eol: detectEOL(data)}

	pos := 0
	for pos < len(data) {
		line, next := readLine(data, pos)

		if len(line) == 0 {
			// blank line ends the main section
			break
		}

		if line[0] == ' ' {
			if len(m.headers) == 0 {
				return nil, fmt.Errorf("%w: continuation line at offset %d without a header", ErrParse, pos)
			}
			h := &m.headers[len(m.headers)-1]
			h.value += string(line[1:])
			h.end = next
			m.mainEnd = next
			pos = next
			continue
		}

		idx := bytes.Index(line, []byte(": "))
		if idx <= 0 {
			// "Name:" with an empty value is legal
			if bytes.HasSuffix(line, []byte(":")) && len(line) > 1 {
				idx = len(line) - 1
			} else {
				return nil, fmt.Errorf("%w: malformed header line %q", ErrParse, truncate(string(line), 40))
			}
		}

		value := ""
		if idx+2 <= len(line) {
			value = string(line[idx+2:])
		}
		m.headers = append(m.headers, header{
			name:  string(line[:idx]),
			value: value,
			start: pos,
			end:   next,
		})
		m.mainEnd = next
		pos = next
	}

	if len(m.headers) == 0 {
		return nil, fmt.Errorf("%w: no headers in main section", ErrParse)
	}
	return m, nil
}

// Get returns the value of a main-section header. Header names compare
// case-insensitively.
func (m *Manifest) Get(name string) (string, bool) {
	if h := m.find(name); h != nil {
		return strings.TrimSpace(h.value), true
	}
	return "", false
}

// SymbolicName returns Bundle-SymbolicName without directives such as
// ";singleton:=true". Empty when the header is missing.
func (m *Manifest) SymbolicName() string {
	v, ok := m.Get(HeaderSymbolicName)
	if !ok {
		return ""
	}
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// Version parses Bundle-Version. A missing or malformed header wraps ErrParse.
func (m *Manifest) Version() (version.Version, error) {
	raw, ok := m.Get(HeaderVersion)
	if !ok {
		return version.Version{}, fmt.Errorf("%w: missing %s header", ErrParse, HeaderVersion)
	}
	v, err := version.Parse(raw)
	if err != nil {
		return version.Version{}, fmt.Errorf("%w: %s: %w", ErrParse, HeaderVersion, err)
	}
	return v, nil
}

// WithVersion returns the manifest bytes with Bundle-Version set to v.
// When the header is absent it is appended to the end of the main section.
func (m *Manifest) WithVersion(v version.Version) []byte {
	line := formatHeader(HeaderVersion, v.String(), m.eol)

	var out bytes.Buffer
	out.Grow(len(m.raw) + len(line))

	if h := m.find(HeaderVersion); h != nil {
		if !endsWithEOL(m.raw[h.start:h.end]) {
			line = strings.TrimSuffix(line, m.eol)
		}
		out.Write(m.raw[:h.start])
		out.WriteString(line)
		out.Write(m.raw[h.end:])
		return out.Bytes()
	}

	out.Write(m.raw[:m.mainEnd])
	if m.mainEnd > 0 && !endsWithEOL(m.raw[:m.mainEnd]) {
		out.WriteString(m.eol)
	}
	out.WriteString(line)
	out.Write(m.raw[m.mainEnd:])
	return out.Bytes()
}

func (m *Manifest) find(name string) *header {
	for i := range m.headers {
		if strings.EqualFold(m.headers[i].name, name) {
			return &m.headers[i]
		}
	}
	return nil
}

// formatHeader renders "Name: value" wrapped at the manifest line limit.
// Lines break on rune boundaries, so a line may fall short of the limit.
func formatHeader(name, value, eol string) string {
	full := name + ": " + value
	if len(full) <= maxLineBytes {
		return full + eol
	}

	var b strings.Builder
	n := runeCut(full, maxLineBytes)
	b.WriteString(full[:n])
	b.WriteString(eol)
	rest := full[n:]
	for len(rest) > 0 {
		n = runeCut(rest, maxLineBytes-1)
		b.WriteByte(' ')
		b.WriteString(rest[:n])
		b.WriteString(eol)
		rest = rest[n:]
	}
	return b.String()
}

// runeCut returns the largest prefix length of s, at most limit bytes, that
// ends on a rune boundary.
func runeCut(s string, limit int) int {
	if len(s) <= limit {
		return len(s)
	}
	n := limit
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	if n == 0 {
		return limit
	}
	return n
}

// readLine returns the line starting at pos without its ending, and the
// offset of the next line.
func readLine(data []byte, pos int) ([]byte, int) {
	i := bytes.IndexByte(data[pos:], '\n')
	if i < 0 {
		line := data[pos:]
		return bytes.TrimSuffix(line, []byte("\r")), len(data)
	}
	line := data[pos : pos+i]
	return bytes.TrimSuffix(line, []byte("\r")), pos + i + 1
}

func detectEOL(data []byte) string {
	if i := bytes.IndexByte(data, '\n'); i > 0 && data[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

func endsWithEOL(b []byte) bool {
	return len(b) > 0 && b[len(b)-1] == '\n'
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
