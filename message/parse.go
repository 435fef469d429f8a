package message

import (
	"bytes"
	"net/textproto"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/kbukum/httpsmgr/errors"
)

// MaxHeaderBytes bounds the start line plus headers. A buffer holding more
// than this without a header terminator is malformed.
const MaxHeaderBytes = 64 << 10

// Deserialize parses exactly one message from the front of buf into m.
// It returns the number of bytes the message occupies, or 0 with a nil
// error if buf does not yet hold a complete message. buf is not modified.
// On success m is replaced; on 0 or error m is left untouched.
func (m *Message) Deserialize(buf []byte) (int, error) {
	end, bodyStart := headerEnd(buf)
	if end < 0 {
		if len(buf) > MaxHeaderBytes {
			return 0, errors.MalformedMessage("header section exceeds limit")
		}
		return 0, nil
	}

	lines := splitLines(buf[:end])
	if len(lines) == 0 || lines[0] == "" {
		return 0, errors.MalformedMessage("missing start line")
	}
	parsed := Message{MethodLine: lines[0]}
	for _, line := range lines[1:] {
		if line == "" {
			return 0, errors.MalformedMessage("empty header line")
		}
		if line[0] == ' ' || line[0] == '\t' {
			return 0, errors.MalformedMessage("obsolete header line folding")
		}
		name, value, ok := strings.Cut(line, ":")
		if !ok || !httpguts.ValidHeaderFieldName(name) {
			return 0, errors.MalformedMessage("invalid header line " + strconv.Quote(line))
		}
		value = strings.Trim(value, " \t")
		if !httpguts.ValidHeaderFieldValue(value) {
			return 0, errors.MalformedMessage("invalid value for header " + name)
		}
		parsed.Headers = append(parsed.Headers, Header{Name: textproto.CanonicalMIMEHeaderKey(name), Value: value})
	}

	var (
		n   int
		err error
	)
	switch {
	case parsed.chunked():
		n, err = parsed.readChunked(buf, bodyStart)
	case parsed.Has("Content-Length"):
		n, err = parsed.readFixed(buf, bodyStart)
	default:
		n = bodyStart
	}
	if err != nil || n == 0 {
		return 0, err
	}
	*m = parsed
	return n, nil
}

func (m *Message) readFixed(buf []byte, start int) (int, error) {
	values := m.Values("Content-Length")
	length := -1
	for _, v := range values {
		l, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil || l < 0 {
			return 0, errors.MalformedMessage("invalid Content-Length " + strconv.Quote(v))
		}
		if length >= 0 && l != length {
			return 0, errors.MalformedMessage("conflicting Content-Length values")
		}
		length = l
	}
	if len(buf)-start < length {
		return 0, nil
	}
	if length > 0 {
		m.Content = append([]byte(nil), buf[start:start+length]...)
	}
	return start + length, nil
}

func (m *Message) readChunked(buf []byte, pos int) (int, error) {
	var content []byte
	for {
		line, next := readLine(buf, pos)
		if next < 0 {
			return 0, nil
		}
		sizeField, _, _ := strings.Cut(line, ";")
		size, err := strconv.ParseInt(strings.TrimSpace(sizeField), 16, 64)
		if err != nil || size < 0 {
			return 0, errors.MalformedMessage("invalid chunk size " + strconv.Quote(line))
		}
		pos = next
		if size == 0 {
			break
		}
		if int64(len(buf)-pos) < size {
			return 0, nil
		}
		content = append(content, buf[pos:pos+int(size)]...)
		pos += int(size)
		rest, after := readLine(buf, pos)
		if after < 0 {
			return 0, nil
		}
		if rest != "" {
			return 0, errors.MalformedMessage("missing chunk terminator")
		}
		pos = after
	}
	// Trailers are skipped up to the terminating blank line.
	for {
		line, next := readLine(buf, pos)
		if next < 0 {
			return 0, nil
		}
		pos = next
		if line == "" {
			break
		}
	}
	m.Content = content
	return pos, nil
}

// headerEnd locates the blank line ending the header section. It returns the
// offset of the terminator and the offset of the first body byte, or -1.
func headerEnd(buf []byte) (int, int) {
	crlf := bytes.Index(buf, []byte("\r\n\r\n"))
	lf := bytes.Index(buf, []byte("\n\n"))
	switch {
	case crlf >= 0 && (lf < 0 || crlf < lf):
		return crlf, crlf + 4
	case lf >= 0:
		return lf, lf + 2
	}
	return -1, -1
}

// readLine returns the line starting at pos without its terminator and the
// offset after it, or -1 when no full line is available.
func readLine(buf []byte, pos int) (string, int) {
	i := bytes.IndexByte(buf[pos:], '\n')
	if i < 0 {
		return "", -1
	}
	line := buf[pos : pos+i]
	return string(bytes.TrimSuffix(line, []byte("\r"))), pos + i + 1
}

func splitLines(head []byte) []string {
	raw := strings.Split(string(head), "\n")
	out := raw[:0]
	for _, l := range raw {
		out = append(out, strings.TrimSuffix(l, "\r"))
	}
	return out
}
