package message

import (
	"bytes"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/kbukum/httpsmgr/errors"
)

// Header is a single name/value pair. Order is preserved on the wire.
type Header struct {
	Name  string
	Value string
}

// Message is an HTTP/1.x request or response.
type Message struct {
	// MethodLine is the request line ("GET / HTTP/1.1") or the status line
	// ("HTTP/1.1 200 OK").
	MethodLine string
	Headers    []Header
	Content    []byte
}

// New creates a message with the given start line.
func New(methodLine string) *Message {
	return &Message{MethodLine: methodLine}
}

// NewRequest creates a request message for method and path.
func NewRequest(method, path string) *Message {
	if path == "" {
		path = "/"
	}
	return New(method + " " + path + " HTTP/1.1")
}

// Reset clears the message for reuse.
func (m *Message) Reset() {
	m.MethodLine = ""
	m.Headers = m.Headers[:0]
	m.Content = nil
}

// Get returns the first value for name, case-insensitively.
func (m *Message) Get(name string) string {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// Has reports whether a header named name is present.
func (m *Message) Has(name string) bool {
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			return true
		}
	}
	return false
}

// Values returns every value for name in wire order.
func (m *Message) Values(name string) []string {
	var out []string
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			out = append(out, h.Value)
		}
	}
	return out
}

// Add appends a header. Invalid names or values are rejected.
func (m *Message) Add(name, value string) error {
	if !httpguts.ValidHeaderFieldName(name) {
		return errors.InvalidInput("header", "invalid header name "+strconv.Quote(name))
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return errors.InvalidInput("header", "invalid value for header "+name)
	}
	m.Headers = append(m.Headers, Header{Name: textproto.CanonicalMIMEHeaderKey(name), Value: value})
	return nil
}

// Set replaces every value of name with value, keeping the position of the
// first occurrence.
func (m *Message) Set(name, value string) error {
	if !m.Has(name) {
		return m.Add(name, value)
	}
	if !httpguts.ValidHeaderFieldValue(value) {
		return errors.InvalidInput("header", "invalid value for header "+name)
	}
	replaced := false
	out := m.Headers[:0]
	for _, h := range m.Headers {
		if strings.EqualFold(h.Name, name) {
			if replaced {
				continue
			}
			h.Value = value
			replaced = true
		}
		out = append(out, h)
	}
	m.Headers = out
	return nil
}

// Del removes every header named name.
func (m *Message) Del(name string) {
	out := m.Headers[:0]
	for _, h := range m.Headers {
		if !strings.EqualFold(h.Name, name) {
			out = append(out, h)
		}
	}
	m.Headers = out
}

// StatusCode parses the numeric code from a status line. It returns 0 when
// the start line is not a response status line.
func (m *Message) StatusCode() int {
	fields := strings.Fields(m.MethodLine)
	if len(fields) < 2 || !strings.HasPrefix(fields[0], "HTTP/") {
		return 0
	}
	if len(fields[1]) != 3 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil || code < 100 {
		return 0
	}
	return code
}

// IsSuccess reports whether the start line carries a 2xx status.
func (m *Message) IsSuccess() bool {
	code := m.StatusCode()
	return code >= 200 && code < 300
}

// Serialize renders the message in wire form. A Content-Length header is
// written whenever content is present and none was set explicitly.
func (m *Message) Serialize() []byte {
	var b bytes.Buffer
	b.Grow(len(m.MethodLine) + 64*len(m.Headers) + len(m.Content) + 32)
	b.WriteString(m.MethodLine)
	b.WriteString("\r\n")
	chunked := m.chunked()
	for _, h := range m.Headers {
		if chunked && strings.EqualFold(h.Name, "Transfer-Encoding") {
			continue
		}
		if strings.EqualFold(h.Name, "Content-Length") && len(m.Content) > 0 {
			continue
		}
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\r\n")
	}
	if len(m.Content) > 0 {
		b.WriteString("Content-Length: ")
		b.WriteString(strconv.Itoa(len(m.Content)))
		b.WriteString("\r\n")
	}
	b.WriteString("\r\n")
	b.Write(m.Content)
	return b.Bytes()
}

func (m *Message) chunked() bool {
	for _, v := range m.Values("Transfer-Encoding") {
		if strings.Contains(strings.ToLower(v), "chunked") {
			return true
		}
	}
	return false
}
