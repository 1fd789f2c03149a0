// Package chunk reads the RIFX container used by Director movies and casts.
//
// A container is parsed into an ordered list of chunk headers. Payloads are not
// copied: uncompressed chunks are sub-slices of the input buffer, Afterburner
// chunks are inflated on first access and cached.
package chunk

import "errors"

var (
	// ErrMalformedContainer is returned for layout violations: bad magic,
	// truncated headers, lengths that run past the end of the buffer.
	ErrMalformedContainer = errors.New("malformed container")

	// ErrTruncated is returned by Reader when a read runs past the buffer.
	ErrTruncated = errors.New("truncated data")

	// ErrNotFound is returned when a chunk id or tag is not present.
	ErrNotFound = errors.New("chunk not found")

	// ErrUnsupportedCompression is returned for Afterburner resources using a
	// compression scheme other than zlib or none.
	ErrUnsupportedCompression = errors.New("unsupported compression")
)
