package codec

import (
	"bytes"
	"sync"

	"golang.org/x/net/http2/hpack"
)

// defaultEgressSettings returns the settings advertised by a fresh HTTP/2
// codec before the session or controller adjusts them.
func defaultEgressSettings() *Settings {
	s := NewSettings()
	s.Set(SettingHeaderTableSize, 4096)
	s.Set(SettingMaxConcurrentStreams, 100)
	s.Set(SettingInitialWindowSize, 65535)
	return s
}

// HTTP2Codec is the minimal HTTP/2 codec surface: protocol identity, egress
// settings, and HPACK header encoding under a configurable indexing policy.
//
// It implements HeaderIndexingConfigurer, so sessions discover the indexing
// capability through a type assertion rather than a concrete-type cast.
type HTTP2Codec struct {
	direction TransportDirection
	settings  *Settings

	mu       sync.Mutex
	strategy HeaderIndexingStrategy
	hpackBuf bytes.Buffer
	hpackEnc *hpack.Encoder
}

// NewHTTP2Codec creates an HTTP/2 codec for the given direction.
func NewHTTP2Codec(direction TransportDirection) *HTTP2Codec {
	c := &HTTP2Codec{
		direction: direction,
		settings:  defaultEgressSettings(),
	}
	c.hpackEnc = hpack.NewEncoder(&c.hpackBuf)
	return c
}

// Protocol implements Codec.
func (c *HTTP2Codec) Protocol() Protocol {
	return ProtocolHTTP2
}

// TransportDirection implements Codec.
func (c *HTTP2Codec) TransportDirection() TransportDirection {
	return c.direction
}

// EgressSettings implements Codec.
func (c *HTTP2Codec) EgressSettings() *Settings {
	return c.settings
}

// SetHeaderIndexingStrategy implements HeaderIndexingConfigurer.
func (c *HTTP2Codec) SetHeaderIndexingStrategy(strategy HeaderIndexingStrategy) {
	c.mu.Lock()
	c.strategy = strategy
	c.mu.Unlock()
}

// HeaderIndexingStrategy returns the currently installed policy, or nil when
// the default HPACK behavior applies.
func (c *HTTP2Codec) HeaderIndexingStrategy() HeaderIndexingStrategy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.strategy
}

// EncodeHeaders encodes a header block with HPACK, consulting the installed
// indexing strategy per field. Fields the strategy refuses to index are
// emitted with the never-indexed representation so intermediaries will not
// index them either.
func (c *HTTP2Codec) EncodeHeaders(fields []hpack.HeaderField) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hpackBuf.Reset()
	for _, hf := range fields {
		if c.strategy != nil && !c.strategy.ShouldIndex(hf) {
			hf.Sensitive = true
		}
		if err := c.hpackEnc.WriteField(hf); err != nil {
			return nil, err
		}
	}

	block := make([]byte, c.hpackBuf.Len())
	copy(block, c.hpackBuf.Bytes())
	return block, nil
}
