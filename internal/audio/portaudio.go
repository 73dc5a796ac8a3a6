// Package audio provides the host audio plumbing around the modem core:
// PortAudio playback and capture in modem-sized chunks, WAV file I/O and
// device discovery. The core itself never touches this package.
package audio

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// ChunkFrames is the buffer size used for live streams. It matches the
// decoder's maximum feed size, so captured chunks pass straight through.
const ChunkFrames = 288

// IO wraps PortAudio mono streams for the modem.
type IO struct {
	sampleRate   float64
	inputStream  *portaudio.Stream
	outputStream *portaudio.Stream
	inputBuf     []float32
	outputBuf    []float32
	mu           sync.Mutex
}

// Init initialises PortAudio.
func Init() error {
	return portaudio.Initialize()
}

// Terminate cleans up PortAudio.
func Terminate() error {
	return portaudio.Terminate()
}

// NewIO creates an audio pipe at the given sample rate. The modem is rate
// agnostic; the rate only selects the acoustic band.
func NewIO(sampleRate float64) *IO {
	return &IO{
		sampleRate: sampleRate,
		inputBuf:   make([]float32, ChunkFrames),
		outputBuf:  make([]float32, ChunkFrames),
	}
}

// OpenInput opens the default mono capture stream.
func (a *IO) OpenInput() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stream, err := portaudio.OpenDefaultStream(1, 0, a.sampleRate, ChunkFrames, a.inputBuf)
	if err != nil {
		return fmt.Errorf("open input stream: %w", err)
	}
	a.inputStream = stream
	return stream.Start()
}

// OpenOutput opens the default mono playback stream.
func (a *IO) OpenOutput() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	stream, err := portaudio.OpenDefaultStream(0, 1, a.sampleRate, ChunkFrames, a.outputBuf)
	if err != nil {
		return fmt.Errorf("open output stream: %w", err)
	}
	a.outputStream = stream
	return stream.Start()
}

// ReadChunk captures one chunk of samples into dst (len ChunkFrames).
func (a *IO) ReadChunk(dst []float32) error {
	if a.inputStream == nil {
		return fmt.Errorf("input stream not opened")
	}
	if err := a.inputStream.Read(); err != nil {
		return fmt.Errorf("read: %w", err)
	}
	copy(dst, a.inputBuf)
	return nil
}

// WriteSamples plays an arbitrary-length buffer in ChunkFrames pieces,
// zero-padding the tail.
func (a *IO) WriteSamples(samples []float32) error {
	if a.outputStream == nil {
		return fmt.Errorf("output stream not opened")
	}
	for i := 0; i < len(samples); i += ChunkFrames {
		end := i + ChunkFrames
		if end > len(samples) {
			for j := range a.outputBuf {
				a.outputBuf[j] = 0
			}
			copy(a.outputBuf, samples[i:])
		} else {
			copy(a.outputBuf, samples[i:end])
		}
		if err := a.outputStream.Write(); err != nil {
			return fmt.Errorf("write: %w", err)
		}
	}
	return nil
}

// Close stops and closes any open streams.
func (a *IO) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	if a.inputStream != nil {
		if err := a.inputStream.Close(); err != nil {
			errs = append(errs, err)
		}
		a.inputStream = nil
	}
	if a.outputStream != nil {
		if err := a.outputStream.Close(); err != nil {
			errs = append(errs, err)
		}
		a.outputStream = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
