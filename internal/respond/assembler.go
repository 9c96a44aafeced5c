// Package respond implements the Response Assembler of spec.md §4.6: it
// turns a httpparse.Outcome into a status line, headers, and a body
// written into the slot's write buffer, then arranges the write vector
// (headers plus, for a successful non-empty file, the mapped body) for
// vectored send.
package respond

import (
	"fmt"

	"github.com/watt-toolkit/reactord/internal/httpparse"
	"github.com/watt-toolkit/reactord/internal/slot"
)

const emptyFileBody = "<html><body>hello</body></html>"

var errorBody = map[int]string{
	400: "Your request has bad syntax or is inherently impossible to satisfy.\n",
	403: "You do not have permission to get file from this server.\n",
	404: "The requested file was not found on this server.\n",
	500: "There was an unusual problem serving the requested file.\n",
}

var reason = map[int]string{
	200: "OK",
	400: "Bad Request",
	403: "Forbidden",
	404: "Not Found",
	500: "Internal Error",
}

// Assemble builds the response for outcome into s's write buffer and
// sets up s.Vector/s.VectorCount for vectored send. It reports false if
// the formatted headers would not fit in the remaining write buffer
// (spec.md §4.6/§7: assembler-level overflow is a fatal error — the
// caller responds with 500 if possible or simply closes).
func Assemble(s *slot.Slot, outcome httpparse.Outcome) bool {
	switch outcome {
	case httpparse.FileRequest:
		return assembleFileRequest(s)
	case httpparse.BadRequest:
		return assembleError(s, 400)
	case httpparse.Forbidden:
		return assembleError(s, 403)
	case httpparse.NotFound:
		return assembleError(s, 404)
	default:
		return assembleError(s, 500)
	}
}

func assembleFileRequest(s *slot.Slot) bool {
	if s.Resolved.Size > 0 {
		if !addStatusLine(s, 200) || !addHeaders(s, int(s.Resolved.Size)) {
			return false
		}
		s.Vector[0] = s.Write[:s.WriteEnd]
		s.Vector[1] = s.Resolved.Mapping
		s.VectorCount = 2
		return true
	}

	if !addStatusLine(s, 200) || !addHeaders(s, len(emptyFileBody)) || !addContent(s, emptyFileBody) {
		return false
	}
	s.Vector[0] = s.Write[:s.WriteEnd]
	s.VectorCount = 1
	return true
}

func assembleError(s *slot.Slot, code int) bool {
	body := errorBody[code]
	if !addStatusLine(s, code) || !addHeaders(s, len(body)) || !addContent(s, body) {
		return false
	}
	s.Vector[0] = s.Write[:s.WriteEnd]
	s.VectorCount = 1
	return true
}

func addStatusLine(s *slot.Slot, code int) bool {
	return appendResponse(s, "HTTP/1.1 %d %s\r\n", code, reason[code])
}

func addHeaders(s *slot.Slot, contentLength int) bool {
	if !appendResponse(s, "Content-Length: %d\r\n", contentLength) {
		return false
	}
	conn := "close"
	if s.KeepAlive {
		conn = "keep-alive"
	}
	if !appendResponse(s, "Connection: %s\r\n", conn) {
		return false
	}
	return appendResponse(s, "\r\n")
}

func addContent(s *slot.Slot, body string) bool {
	return appendResponse(s, "%s", body)
}

// appendResponse mirrors the source's add_response: format into the
// unused tail of the write buffer, failing closed if the result would
// not fit rather than writing a truncated line.
func appendResponse(s *slot.Slot, format string, args ...any) bool {
	if s.WriteEnd >= len(s.Write) {
		return false
	}
	out := fmt.Appendf(nil, format, args...)
	if s.WriteEnd+len(out) > len(s.Write) {
		return false
	}
	s.WriteEnd += copy(s.Write[s.WriteEnd:], out)
	return true
}
