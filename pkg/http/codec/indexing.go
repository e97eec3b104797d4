package codec

import (
	"golang.org/x/net/http2/hpack"
)

// HeaderIndexingStrategy decides, per header field, whether the HPACK
// encoder may add the field to its dynamic table. Indexing a field saves
// bytes on repetition but leaks its value into shared compression state, so
// controllers typically exempt sensitive or high-cardinality headers.
type HeaderIndexingStrategy interface {
	// ShouldIndex reports whether hf may be entered into the dynamic table.
	ShouldIndex(hf hpack.HeaderField) bool
}

// DefaultIndexingHeaderSizeLimit bounds the size of fields the default
// strategy will index; very large values rarely repeat verbatim.
const DefaultIndexingHeaderSizeLimit = 1024

// neverIndexedNames are header names the default strategy refuses to index
// regardless of size. They either carry secrets or change per request.
var neverIndexedNames = map[string]struct{}{
	"authorization":       {},
	"cookie":              {},
	"set-cookie":          {},
	"proxy-authorization": {},
	"content-length":      {},
	"if-modified-since":   {},
	"if-none-match":       {},
	"location":            {},
}

// DefaultHeaderIndexingStrategy is the built-in indexing policy: index
// everything except sensitive or per-request header fields and fields
// larger than SizeLimit.
type DefaultHeaderIndexingStrategy struct {
	// SizeLimit overrides DefaultIndexingHeaderSizeLimit when non-zero.
	SizeLimit uint32
}

// ShouldIndex implements HeaderIndexingStrategy.
func (s *DefaultHeaderIndexingStrategy) ShouldIndex(hf hpack.HeaderField) bool {
	if hf.Sensitive {
		return false
	}
	if _, never := neverIndexedNames[hf.Name]; never {
		return false
	}
	limit := uint32(DefaultIndexingHeaderSizeLimit)
	if s.SizeLimit != 0 {
		limit = s.SizeLimit
	}
	return hf.Size() <= limit
}
