package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2/hpack"
)

// ============================================================================
// Capability Surface Tests
// ============================================================================

func TestCodecCapabilities(t *testing.T) {
	t.Run("HTTP1HasNoSettingsOrIndexing", func(t *testing.T) {
		c := NewHTTP1Codec(DirectionDownstream)

		assert.Equal(t, ProtocolHTTP1_1, c.Protocol())
		assert.Nil(t, c.EgressSettings())

		var iface Codec = c
		_, ok := iface.(HeaderIndexingConfigurer)
		assert.False(t, ok, "HTTP/1.x must not expose the indexing capability")
	})

	t.Run("HTTP2ExposesBoth", func(t *testing.T) {
		c := NewHTTP2Codec(DirectionUpstream)

		assert.Equal(t, ProtocolHTTP2, c.Protocol())
		assert.Equal(t, DirectionUpstream, c.TransportDirection())
		require.NotNil(t, c.EgressSettings())

		var iface Codec = c
		_, ok := iface.(HeaderIndexingConfigurer)
		assert.True(t, ok)
	})

	t.Run("ProtocolIsHTTP2", func(t *testing.T) {
		assert.False(t, ProtocolHTTP1_1.IsHTTP2())
		assert.True(t, ProtocolHTTP2.IsHTTP2())
	})
}

func TestProtocolStrings(t *testing.T) {
	assert.Equal(t, "http/1.1", ProtocolHTTP1_1.String())
	assert.Equal(t, "h2", ProtocolHTTP2.String())
	assert.Equal(t, "downstream", DirectionDownstream.String())
	assert.Equal(t, "upstream", DirectionUpstream.String())
}

// ============================================================================
// Settings Tests
// ============================================================================

func TestSettings(t *testing.T) {
	t.Run("SetAndGet", func(t *testing.T) {
		s := NewSettings()
		_, ok := s.Get(SettingEnableExHeaders)
		assert.False(t, ok)

		s.Set(SettingEnableExHeaders, 1)
		v, ok := s.Get(SettingEnableExHeaders)
		require.True(t, ok)
		assert.Equal(t, uint32(1), v)
	})

	t.Run("SetReplaces", func(t *testing.T) {
		s := NewSettings()
		s.Set(SettingMaxConcurrentStreams, 100)
		s.Set(SettingMaxConcurrentStreams, 200)

		v, _ := s.Get(SettingMaxConcurrentStreams)
		assert.Equal(t, uint32(200), v)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("HTTP2Defaults", func(t *testing.T) {
		c := NewHTTP2Codec(DirectionDownstream)
		s := c.EgressSettings()

		table, ok := s.Get(SettingHeaderTableSize)
		require.True(t, ok)
		assert.Equal(t, uint32(4096), table)

		window, ok := s.Get(SettingInitialWindowSize)
		require.True(t, ok)
		assert.Equal(t, uint32(65535), window)
	})
}

// ============================================================================
// Indexing Strategy Tests
// ============================================================================

func TestDefaultHeaderIndexingStrategy(t *testing.T) {
	strategy := &DefaultHeaderIndexingStrategy{}

	t.Run("IndexesOrdinaryHeaders", func(t *testing.T) {
		assert.True(t, strategy.ShouldIndex(hpack.HeaderField{
			Name: "content-type", Value: "application/json",
		}))
	})

	t.Run("RefusesSensitiveNames", func(t *testing.T) {
		for _, name := range []string{"authorization", "cookie", "set-cookie", "proxy-authorization"} {
			assert.False(t, strategy.ShouldIndex(hpack.HeaderField{
				Name: name, Value: "secret",
			}), "header %q must never be indexed", name)
		}
	})

	t.Run("RefusesPerRequestNames", func(t *testing.T) {
		for _, name := range []string{"content-length", "if-modified-since", "if-none-match", "location"} {
			assert.False(t, strategy.ShouldIndex(hpack.HeaderField{
				Name: name, Value: "varies",
			}))
		}
	})

	t.Run("RefusesSensitiveFlag", func(t *testing.T) {
		assert.False(t, strategy.ShouldIndex(hpack.HeaderField{
			Name: "x-ordinary", Value: "v", Sensitive: true,
		}))
	})

	t.Run("RefusesOversizedFields", func(t *testing.T) {
		big := make([]byte, DefaultIndexingHeaderSizeLimit)
		for i := range big {
			big[i] = 'a'
		}
		assert.False(t, strategy.ShouldIndex(hpack.HeaderField{
			Name: "x-big", Value: string(big),
		}))
	})

	t.Run("SizeLimitOverride", func(t *testing.T) {
		tight := &DefaultHeaderIndexingStrategy{SizeLimit: 40}
		assert.False(t, tight.ShouldIndex(hpack.HeaderField{
			Name: "x-header", Value: "a-value-just-over-the-tight-limit",
		}))
		assert.True(t, tight.ShouldIndex(hpack.HeaderField{
			Name: "x", Value: "v",
		}))
	})
}

// ============================================================================
// HPACK Encoding Tests
// ============================================================================

// rejectAll refuses to index any field.
type rejectAll struct{}

func (rejectAll) ShouldIndex(hpack.HeaderField) bool { return false }

func TestEncodeHeaders(t *testing.T) {
	t.Run("RoundTripsThroughHPACK", func(t *testing.T) {
		c := NewHTTP2Codec(DirectionDownstream)
		block, err := c.EncodeHeaders([]hpack.HeaderField{
			{Name: ":method", Value: "GET"},
			{Name: ":path", Value: "/health"},
			{Name: "user-agent", Value: "proxygen-test"},
		})
		require.NoError(t, err)

		var decoded []hpack.HeaderField
		dec := hpack.NewDecoder(4096, func(hf hpack.HeaderField) {
			decoded = append(decoded, hf)
		})
		_, err = dec.Write(block)
		require.NoError(t, err)
		require.NoError(t, dec.Close())

		require.Len(t, decoded, 3)
		assert.Equal(t, ":method", decoded[0].Name)
		assert.Equal(t, "GET", decoded[0].Value)
		assert.Equal(t, "proxygen-test", decoded[2].Value)
	})

	t.Run("StrategyMarksFieldsNeverIndexed", func(t *testing.T) {
		c := NewHTTP2Codec(DirectionDownstream)
		c.SetHeaderIndexingStrategy(rejectAll{})

		block, err := c.EncodeHeaders([]hpack.HeaderField{
			{Name: "x-token", Value: "secret-value"},
		})
		require.NoError(t, err)

		var decoded []hpack.HeaderField
		dec := hpack.NewDecoder(4096, func(hf hpack.HeaderField) {
			decoded = append(decoded, hf)
		})
		_, err = dec.Write(block)
		require.NoError(t, err)

		require.Len(t, decoded, 1)
		assert.True(t, decoded[0].Sensitive, "refused fields use the never-indexed representation")
	})

	t.Run("StrategyIsReplaceable", func(t *testing.T) {
		c := NewHTTP2Codec(DirectionDownstream)
		c.SetHeaderIndexingStrategy(rejectAll{})
		assert.NotNil(t, c.HeaderIndexingStrategy())

		c.SetHeaderIndexingStrategy(nil)
		assert.Nil(t, c.HeaderIndexingStrategy())
	})
}
