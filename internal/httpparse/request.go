package httpparse

import (
	"bytes"
	"strconv"

	"github.com/watt-toolkit/reactord/internal/logsink"
	"github.com/watt-toolkit/reactord/internal/resolve"
	"github.com/watt-toolkit/reactord/internal/slot"
)

// Outcome is the Request State Machine's verdict for one Advance call,
// per spec.md §2 and §4.4.
type Outcome int

const (
	// NeedMoreData means the transaction is still incomplete; the
	// caller should re-arm the socket readable and wait for more bytes.
	NeedMoreData Outcome = iota
	// FileRequest means a complete, valid request resolved to a
	// servable file (spec.md §4.5).
	FileRequest
	// BadRequest covers malformed lines, an unsupported method or
	// version, a missing path, or a directory target.
	BadRequest
	// Forbidden means the resolved file lacks world-read permission.
	Forbidden
	// NotFound means the resolved path does not exist.
	NotFound
	// InternalError means a resolver operation (open/mmap) failed
	// after stat had already succeeded.
	InternalError
)

var (
	connectionPrefix    = []byte("Connection:")
	contentLengthPrefix = []byte("Content-Length:")
	hostPrefix          = []byte("Host:")
	keepAliveToken      = []byte("keep-alive")
	httpPrefix          = []byte("http://")
	httpVersion         = []byte("HTTP/1.1")
	getMethod           = []byte("GET")
)

// Advance drives the Request State Machine forward over whatever new
// bytes sit in s.Read[s.CheckIndex:s.ReadEnd), consuming as many
// complete lines (or, in the content phase, body bytes) as are
// available. It returns NeedMoreData as soon as the buffer runs dry,
// and otherwise returns the terminal outcome of one transaction:
// a resolver verdict or a parse failure. log receives a note for
// header fields the parser does not recognise; pass logsink.Discard{}
// to suppress it.
func Advance(s *slot.Slot, docRoot string, log logsink.Sink) (Outcome, error) {
	for {
		if s.Phase == slot.PhaseContent {
			if s.ReadEnd < s.CheckIndex+s.ContentLength {
				return NeedMoreData, nil
			}
			if end := s.CheckIndex + s.ContentLength; end >= 0 && end < len(s.Read) {
				s.Read[end] = 0
			}
			return resolveRequest(s, docRoot)
		}

		next, status := ExtractLine(s.Read, s.CheckIndex, s.ReadEnd)
		switch status {
		case LineIncomplete:
			return NeedMoreData, nil
		case LineBad:
			return BadRequest, nil
		}

		lineStart, lineEnd := s.LineStart, next-2
		s.LineStart = next
		s.CheckIndex = next

		switch s.Phase {
		case slot.PhaseRequestLine:
			if !parseRequestLine(s, lineStart, lineEnd) {
				return BadRequest, nil
			}
			s.Phase = slot.PhaseHeaders

		case slot.PhaseHeaders:
			if lineStart == lineEnd {
				if s.ContentLength == 0 {
					return resolveRequest(s, docRoot)
				}
				s.Phase = slot.PhaseContent
				continue
			}
			switch hstatus, name := applyHeader(s, lineStart, lineEnd); hstatus {
			case headerBad:
				return BadRequest, nil
			case headerUnknown:
				log.Logf("httpparse: ignoring unrecognised header %q", name)
			}
		}
	}
}

// parseRequestLine splits s.Read[lineStart:lineEnd) into method, target,
// and version on runs of space/tab, per spec.md §4.4. Only GET and
// HTTP/1.1 are accepted; an absolute-form target has its
// "http://<authority>" prefix stripped down to the path.
func parseRequestLine(s *slot.Slot, lineStart, lineEnd int) bool {
	buf := s.Read

	i := lineStart
	for i < lineEnd && !isSpaceOrTab(buf[i]) {
		i++
	}
	if i == lineEnd {
		return false
	}
	if !bytes.EqualFold(buf[lineStart:i], getMethod) {
		return false
	}
	s.Method = slot.MethodGET

	i = skipWS(buf, i, lineEnd)
	urlStart := i
	for i < lineEnd && !isSpaceOrTab(buf[i]) {
		i++
	}
	if i == lineEnd {
		return false
	}
	urlEnd := i

	i = skipWS(buf, i, lineEnd)
	versionStart := i

	if !bytes.EqualFold(buf[versionStart:lineEnd], httpVersion) {
		return false
	}

	if urlEnd-urlStart >= len(httpPrefix) && bytes.EqualFold(buf[urlStart:urlStart+len(httpPrefix)], httpPrefix) {
		rest := buf[urlStart+len(httpPrefix) : urlEnd]
		idx := bytes.IndexByte(rest, '/')
		if idx < 0 {
			return false
		}
		urlStart = urlStart + len(httpPrefix) + idx
	}
	if urlStart >= urlEnd || buf[urlStart] != '/' {
		return false
	}

	s.URL = slot.Span{Offset: urlStart, Length: urlEnd - urlStart}
	s.Version = slot.Span{Offset: versionStart, Length: lineEnd - versionStart}
	return true
}

// headerStatus is applyHeader's verdict for one header line.
type headerStatus int

const (
	headerOK headerStatus = iota
	// headerUnknown is a recognised-as-harmless field the parser does
	// not act on; the caller just logs it.
	headerUnknown
	// headerBad is a recognised field with a value the parser cannot
	// trust, e.g. a negative or implausibly large Content-Length —
	// the untrusted-client model (spec.md §1) requires rejecting this
	// outright rather than letting it drive an out-of-range index later.
	headerBad
)

// applyHeader recognises Connection, Content-Length, and Host; any
// other field is reported back as unknown so the caller can log it.
func applyHeader(s *slot.Slot, lineStart, lineEnd int) (status headerStatus, name []byte) {
	buf := s.Read
	line := buf[lineStart:lineEnd]

	if hasPrefixFold(line, connectionPrefix) {
		i := skipWS(buf, lineStart+len(connectionPrefix), lineEnd)
		if bytes.EqualFold(buf[i:lineEnd], keepAliveToken) {
			s.KeepAlive = true
		}
		return headerOK, nil
	}
	if hasPrefixFold(line, contentLengthPrefix) {
		i := skipWS(buf, lineStart+len(contentLengthPrefix), lineEnd)
		n, err := strconv.Atoi(string(buf[i:lineEnd]))
		if err != nil || n < 0 || n > len(s.Read) {
			return headerBad, contentLengthPrefix
		}
		s.ContentLength = n
		return headerOK, nil
	}
	if hasPrefixFold(line, hostPrefix) {
		i := skipWS(buf, lineStart+len(hostPrefix), lineEnd)
		s.Host = slot.Span{Offset: i, Length: lineEnd - i}
		return headerOK, nil
	}
	return headerUnknown, line
}

func resolveRequest(s *slot.Slot, docRoot string) (Outcome, error) {
	urlBytes := s.URL.Bytes(s.Read)
	res, err := resolve.Resolve(docRoot, urlBytes, s.ResolvedPath)
	s.Resolved = res
	if err != nil {
		return InternalError, err
	}
	switch res.Outcome {
	case resolve.FileRequest:
		return FileRequest, nil
	case resolve.NotFound:
		return NotFound, nil
	case resolve.Forbidden:
		return Forbidden, nil
	case resolve.BadRequest:
		return BadRequest, nil
	default:
		return InternalError, nil
	}
}

func isSpaceOrTab(b byte) bool { return b == ' ' || b == '\t' }

func skipWS(buf []byte, i, end int) int {
	for i < end && isSpaceOrTab(buf[i]) {
		i++
	}
	return i
}

func hasPrefixFold(line, prefix []byte) bool {
	return len(line) >= len(prefix) && bytes.EqualFold(line[:len(prefix)], prefix)
}
