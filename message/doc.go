// Package message implements the HTTP/1.x wire representation used by the
// transaction manager: a start line, ordered headers, and a body.
//
// Deserialize is incremental. Callers feed it the whole receive buffer on
// every poll cycle; it reports how many bytes form exactly one complete
// message, or 0 while more bytes are needed, and never mutates the buffer.
//
//	n, err := resp.Deserialize(recv)
//	if err != nil { /* malformed framing */ }
//	if n > 0 { recv = recv[n:] }
package message
