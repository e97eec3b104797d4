package codec

// HTTP1Codec is the minimal HTTP/1.x codec surface.
//
// HTTP/1.x has no settings exchange and no header compression, so the codec
// exposes neither egress settings nor the header-indexing capability;
// callers that probe for HeaderIndexingConfigurer will find it absent.
type HTTP1Codec struct {
	direction TransportDirection
}

// NewHTTP1Codec creates an HTTP/1.1 codec for the given direction.
func NewHTTP1Codec(direction TransportDirection) *HTTP1Codec {
	return &HTTP1Codec{direction: direction}
}

// Protocol implements Codec.
func (c *HTTP1Codec) Protocol() Protocol {
	return ProtocolHTTP1_1
}

// TransportDirection implements Codec.
func (c *HTTP1Codec) TransportDirection() TransportDirection {
	return c.direction
}

// EgressSettings implements Codec. HTTP/1.x has no settings exchange.
func (c *HTTP1Codec) EgressSettings() *Settings {
	return nil
}
