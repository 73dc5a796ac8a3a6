package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Minimal 16-bit PCM mono WAV support for the offline encode/decode path.
// The sample rate is carried as file metadata only; the modem core is rate
// agnostic.

// WriteWAV stores float samples as a 16-bit PCM mono WAV file.
func WriteWAV(path string, samples []float32, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer f.Close()

	dataLen := 2 * len(samples)
	header := make([]byte, 44)
	copy(header[0:], "RIFF")
	binary.LittleEndian.PutUint32(header[4:], uint32(36+dataLen))
	copy(header[8:], "WAVE")
	copy(header[12:], "fmt ")
	binary.LittleEndian.PutUint32(header[16:], 16)
	binary.LittleEndian.PutUint16(header[20:], 1) // PCM
	binary.LittleEndian.PutUint16(header[22:], 1) // mono
	binary.LittleEndian.PutUint32(header[24:], uint32(sampleRate))
	binary.LittleEndian.PutUint32(header[28:], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(header[32:], 2)
	binary.LittleEndian.PutUint16(header[34:], 16)
	copy(header[36:], "data")
	binary.LittleEndian.PutUint32(header[40:], uint32(dataLen))
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}

	buf := make([]byte, dataLen)
	for i, s := range samples {
		v := float64(s)
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(int16(math.Round(v*32767))))
	}
	if _, err := f.Write(buf); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// ReadWAV loads a 16-bit PCM mono WAV file and returns its samples and
// sample rate.
func ReadWAV(path string) ([]float32, int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read wav: %w", err)
	}
	if len(raw) < 44 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, 0, fmt.Errorf("read wav: %s is not a RIFF/WAVE file", path)
	}

	var sampleRate int
	var data []byte
	// Walk the chunk list; only fmt and data matter.
	pos := 12
	var channels, bitsPer int
	for pos+8 <= len(raw) {
		id := string(raw[pos : pos+4])
		size := int(binary.LittleEndian.Uint32(raw[pos+4 : pos+8]))
		body := raw[pos+8:]
		if size > len(body) {
			size = len(body)
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, 0, fmt.Errorf("read wav: short fmt chunk")
			}
			format := int(binary.LittleEndian.Uint16(body[0:2]))
			channels = int(binary.LittleEndian.Uint16(body[2:4]))
			sampleRate = int(binary.LittleEndian.Uint32(body[4:8]))
			bitsPer = int(binary.LittleEndian.Uint16(body[14:16]))
			if format != 1 || bitsPer != 16 {
				return nil, 0, fmt.Errorf("read wav: only 16-bit PCM supported")
			}
		case "data":
			data = body[:size]
		}
		pos += 8 + size + size&1
	}
	if data == nil || channels == 0 {
		return nil, 0, fmt.Errorf("read wav: missing fmt or data chunk")
	}

	frames := len(data) / (2 * channels)
	samples := make([]float32, frames)
	for i := 0; i < frames; i++ {
		// Mix down to mono by taking the first channel.
		v := int16(binary.LittleEndian.Uint16(data[2*i*channels:]))
		samples[i] = float32(v) / 32768
	}
	return samples, sampleRate, nil
}
