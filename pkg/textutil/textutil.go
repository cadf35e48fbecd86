// Package textutil provides byte-level helpers for Python source text:
// binary detection, line counting and newline normalization.
package textutil

import (
	"bytes"
)

// BinarySniffLength is the maximum number of bytes scanned for null-byte
// detection. Matches the heuristic used by Git and most editors.
const BinarySniffLength = 8000

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// IsBinary returns true if data contains a null byte within the first
// BinarySniffLength bytes. Empty data is not binary.
func IsBinary(data []byte) bool {
	sniff := data
	if len(sniff) > BinarySniffLength {
		sniff = sniff[:BinarySniffLength]
	}

	return bytes.IndexByte(sniff, 0) >= 0
}

// CountLines returns the number of newline-delimited lines in data.
// A non-empty buffer without a trailing newline counts the last partial line.
func CountLines(data []byte) int {
	if len(data) == 0 {
		return 0
	}

	lines := bytes.Count(data, []byte{'\n'})

	if data[len(data)-1] != '\n' {
		lines++
	}

	return lines
}

// NormalizeSource strips a leading UTF-8 byte order mark and converts CRLF
// and lone CR line endings to LF. Sources are normalized before parsing, so
// parser spans refer to the normalized text. data itself is never modified.
func NormalizeSource(data []byte) []byte {
	data = bytes.TrimPrefix(data, utf8BOM)

	if bytes.IndexByte(data, '\r') < 0 {
		return data
	}

	out := make([]byte, 0, len(data))

	for i := 0; i < len(data); i++ {
		if data[i] != '\r' {
			out = append(out, data[i])

			continue
		}

		out = append(out, '\n')

		if i+1 < len(data) && data[i+1] == '\n' {
			i++
		}
	}

	return out
}
