// Package httpparse implements the two-level incremental HTTP/1.1 parser
// of spec.md §4.3/§4.4: a CRLF line extractor feeding a request-phase
// state machine, both operating in place over a slot's read buffer via
// index-based spans rather than pointers.
package httpparse

// LineStatus is the line extractor's verdict for one scan pass.
type LineStatus int

const (
	// LineOK means a complete line was found and NUL-terminated in
	// place; the line's bytes run from the scan's line-start to the
	// original CR (or LF) position.
	LineOK LineStatus = iota
	// LineBad means the bytes in range cannot form a valid line.
	LineBad
	// LineIncomplete means no CRLF was found before read-end; the
	// caller should read more and retry from the same check-index.
	LineIncomplete
)

// ExtractLine scans buf[checkIndex:readEnd) for a CRLF-terminated line,
// ported from the reference parser's line-by-line CR/LF state walk
// (spec.md §4.3). On LineOK it overwrites the terminator bytes with NUL
// in place and returns the index just past them; on LineBad or
// LineIncomplete it returns checkIndex unchanged.
func ExtractLine(buf []byte, checkIndex, readEnd int) (next int, status LineStatus) {
	i := checkIndex
	for ; i < readEnd; i++ {
		b := buf[i]
		switch b {
		case '\r':
			if i+1 == readEnd {
				return checkIndex, LineIncomplete
			}
			if buf[i+1] == '\n' {
				buf[i] = 0
				buf[i+1] = 0
				return i + 2, LineOK
			}
			return checkIndex, LineBad
		case '\n':
			// Mirrors the reference extractor's defensive branch: a
			// bare LF is only accepted if the immediately preceding
			// byte is still an unconsumed CR. Given the CR branch
			// above always returns before advancing past a '\r', this
			// path is not reachable through normal multi-read
			// resumption, but the check is kept for parity.
			if i > 0 && buf[i-1] == '\r' {
				buf[i-1] = 0
				buf[i] = 0
				return i + 1, LineOK
			}
			return checkIndex, LineBad
		}
	}
	return checkIndex, LineIncomplete
}
