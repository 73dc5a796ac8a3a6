package ribbit

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ribbitlabs/ribbit/internal/dsp"
)

// encodeFrame drains a full frame from the encoder in symbol-sized chunks.
func encodeFrame(t require.TestingT, payload []byte) []float32 {
	enc := NewEncoder()
	require.NoError(t, enc.Init(payload))

	var audio []float32
	chunk := make([]float32, ExtendedLength)
	for {
		done := enc.Read(chunk)
		require.LessOrEqual(t, enc.deque.Len(), 3*ExtendedLength)
		audio = append(audio, chunk...)
		if done {
			return audio
		}
		require.Less(t, len(audio), 40000, "encoder never finished")
	}
}

// decodeStream feeds audio using the given chunking and returns the fetched
// payload and flips count, or flips -1 if no frame was ever ready.
func decodeStream(t require.TestingT, audio []float32, nextChunk func() int) ([]byte, int, *Decoder) {
	dec := NewDecoder()
	ready := false
	for off := 0; off < len(audio); {
		n := nextChunk()
		if n > len(audio)-off {
			n = len(audio) - off
		}
		ok, err := dec.Feed(audio[off : off+n])
		require.NoError(t, err)
		require.GreaterOrEqual(t, dec.symbolNumber, -1)
		require.LessOrEqual(t, dec.symbolNumber, PayloadSymbols)
		if ok {
			require.False(t, ready, "frame reported ready twice")
			ready = true
		}
		off += n
	}
	payload := make([]byte, PayloadBytes)
	if !ready {
		return payload, -1, dec
	}
	return payload, dec.Fetch(payload), dec
}

func fixedChunks(n int) func() int {
	return func() int { return n }
}

func patternPayload() []byte {
	payload := make([]byte, PayloadBytes)
	for i := range payload {
		payload[i] = byte(i)
	}
	return payload
}

// trailing silence lets the decoder reach the boundaries that demodulate
// the last payload symbols.
func withTail(audio []float32) []float32 {
	return append(audio, make([]float32, 4*ExtendedLength)...)
}

func TestRoundTrip_ZeroPayload(t *testing.T) {
	payload := make([]byte, PayloadBytes)
	audio := withTail(encodeFrame(t, payload))

	got, flips, _ := decodeStream(t, audio, fixedChunks(ExtendedLength))
	require.Equal(t, 0, flips)
	assert.Equal(t, payload, got)
}

func TestRoundTrip_PatternPayload(t *testing.T) {
	payload := patternPayload()
	audio := withTail(encodeFrame(t, payload))

	got, flips, _ := decodeStream(t, audio, fixedChunks(ExtendedLength))
	require.Equal(t, 0, flips)
	assert.Equal(t, payload, got)
}

func TestRoundTrip_SingleSampleFeeds(t *testing.T) {
	payload := patternPayload()
	audio := withTail(encodeFrame(t, payload))

	got, flips, _ := decodeStream(t, audio, fixedChunks(1))
	require.Equal(t, 0, flips)
	assert.Equal(t, payload, got)
}

func TestRoundTrip_ChunkSizeIndependence(t *testing.T) {
	payload := patternPayload()
	audio := withTail(encodeFrame(t, payload))

	want, wantFlips, _ := decodeStream(t, audio, fixedChunks(ExtendedLength))
	require.Equal(t, 0, wantFlips)

	rapid.Check(t, func(t *rapid.T) {
		gen := rapid.IntRange(1, ExtendedLength)
		got, flips, _ := decodeStream(t, audio, func() int { return gen.Draw(t, "chunk") })
		assert.Equal(t, wantFlips, flips)
		assert.Equal(t, want, got)
	})
}

func TestRoundTrip_AWGN(t *testing.T) {
	payload := patternPayload()
	audio := withTail(encodeFrame(t, payload))

	rng := rand.New(rand.NewSource(1))
	noisy := make([]float32, len(audio))
	for i, s := range audio {
		noisy[i] = s + float32(rng.NormFloat64()*0.02)
	}

	got, flips, _ := decodeStream(t, noisy, fixedChunks(ExtendedLength))
	require.GreaterOrEqual(t, flips, 0, "decode failed under noise")
	assert.Equal(t, payload, got)
}

func TestRoundTrip_CarrierOffset(t *testing.T) {
	// 5 Hz at 8 kHz, applied on the analytic signal so the real waveform
	// is shifted as a single sideband.
	payload := make([]byte, PayloadBytes)
	audio := withTail(encodeFrame(t, payload))

	omega := 2 * math.Pi * 5 / 8000
	h := dsp.NewHilbert(filterLength)
	p := dsp.NewPhasor()
	p.Omega(omega)
	shifted := make([]float32, len(audio))
	for i, s := range audio {
		shifted[i] = float32(real(h.Filter(float64(s)) * p.Next()))
	}

	got, flips, dec := decodeStream(t, shifted, fixedChunks(ExtendedLength))
	require.Equal(t, 0, flips)
	assert.Equal(t, payload, got)

	cfo, ok := dec.SyncCFO()
	require.True(t, ok)
	assert.InDelta(t, omega, cfo, 0.1*omega+1e-4)
}

func TestRoundTrip_LeadingSilence(t *testing.T) {
	payload := patternPayload()
	audio := withTail(append(make([]float32, 10000), encodeFrame(t, payload)...))

	got, flips, _ := decodeStream(t, audio, fixedChunks(ExtendedLength))
	require.Equal(t, 0, flips)
	assert.Equal(t, payload, got)
}

func TestTruncatedStream_NeverReady(t *testing.T) {
	payload := patternPayload()
	audio := encodeFrame(t, payload)
	half := audio[:len(audio)/2]

	_, flips, dec := decodeStream(t, half, fixedChunks(ExtendedLength))
	assert.Equal(t, -1, flips)

	out := make([]byte, PayloadBytes)
	assert.Equal(t, -1, dec.Fetch(out))
}

func TestPreambleGate_WrongMarkerStaysIdle(t *testing.T) {
	enc := NewEncoder()
	require.NoError(t, enc.Init(patternPayload()))
	audio := withTail(renderFrameWithMarker(enc, 5))

	dec := NewDecoder()
	for off := 0; off < len(audio); off += ExtendedLength {
		end := off + ExtendedLength
		if end > len(audio) {
			end = len(audio)
		}
		ok, err := dec.Feed(audio[off:end])
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Equal(t, PayloadSymbols, dec.symbolNumber, "decoder left idle state")
	}
}

// renderFrameWithMarker emits a frame whose preamble carries an arbitrary
// marker value, bypassing the producer state machine.
func renderFrameWithMarker(e *Encoder, marker int) []float32 {
	var audio []float32
	drain := func() {
		for e.deque.Len() > 0 {
			audio = append(audio, float32(e.deque.PopBack()))
		}
	}
	for i := 0; i < NoiseSymbols; i++ {
		e.noiseSymbol()
		drain()
	}
	e.schmidlCox()
	drain()
	e.preamble(marker)
	drain()
	for i := 0; i < PayloadSymbols; i++ {
		e.payloadSymbol()
		e.symbolNumber++
		drain()
	}
	e.silence()
	drain()
	return audio
}

func TestEncoder_InitRejectsBadLength(t *testing.T) {
	enc := NewEncoder()
	assert.Error(t, enc.Init(make([]byte, 100)))
}

func TestDecoder_FeedRejectsOversizedChunk(t *testing.T) {
	dec := NewDecoder()
	_, err := dec.Feed(make([]float32, ExtendedLength+1))
	assert.Error(t, err)
}

func TestEncoder_IdleEmitsZeros(t *testing.T) {
	enc := NewEncoder()
	out := make([]float32, 512)
	done := enc.Read(out)
	assert.True(t, done)
	for _, s := range out {
		assert.Zero(t, s)
	}
}
