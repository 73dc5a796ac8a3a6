// Command ribbit encodes and decodes modem frames, offline through WAV
// files or live through the default audio devices.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/ribbitlabs/ribbit"
	"github.com/ribbitlabs/ribbit/internal/audio"
)

func main() {
	var (
		input   = pflag.StringP("input", "i", "", "input file (payload or WAV)")
		output  = pflag.StringP("output", "o", "", "output file (WAV or payload)")
		rate    = pflag.Int("rate", 8000, "WAV / device sample rate (metadata only, the modem is rate-agnostic)")
		verbose = pflag.BoolP("verbose", "v", false, "debug logging")
	)
	pflag.Parse()
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}

	if pflag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: ribbit [flags] encode|decode|send|recv|devices")
		os.Exit(2)
	}

	var err error
	switch cmd := pflag.Arg(0); cmd {
	case "encode":
		err = encode(*input, *output, *rate)
	case "decode":
		err = decode(*input, *output)
	case "send":
		err = send(*input, *rate)
	case "recv":
		err = recv(*output, *rate)
	case "devices":
		err = devices()
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		log.Fatal("command failed", "err", err)
	}
}

// loadPayload reads a payload file, zero-padding it to the frame size.
func loadPayload(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) > ribbit.PayloadBytes {
		return nil, fmt.Errorf("payload %s is %d bytes, at most %d fit one frame", path, len(raw), ribbit.PayloadBytes)
	}
	payload := make([]byte, ribbit.PayloadBytes)
	copy(payload, raw)
	return payload, nil
}

// renderFrame drains one full frame from the encoder.
func renderFrame(payload []byte) ([]float32, error) {
	enc := ribbit.NewEncoder()
	if err := enc.Init(payload); err != nil {
		return nil, err
	}
	var samples []float32
	chunk := make([]float32, ribbit.ExtendedLength)
	for {
		done := enc.Read(chunk)
		samples = append(samples, chunk...)
		if done {
			return samples, nil
		}
	}
}

func encode(input, output string, rate int) error {
	if input == "" || output == "" {
		return fmt.Errorf("encode needs --input payload and --output wav")
	}
	payload, err := loadPayload(input)
	if err != nil {
		return err
	}
	samples, err := renderFrame(payload)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(output, samples, rate); err != nil {
		return err
	}
	log.Info("frame encoded", "samples", len(samples), "file", output)
	return nil
}

func decode(input, output string) error {
	if input == "" {
		return fmt.Errorf("decode needs --input wav")
	}
	samples, rate, err := audio.ReadWAV(input)
	if err != nil {
		return err
	}
	log.Debug("wav loaded", "samples", len(samples), "rate", rate)

	dec := ribbit.NewDecoder()
	ready := false
	for off := 0; off < len(samples) && !ready; off += ribbit.ExtendedLength {
		end := off + ribbit.ExtendedLength
		if end > len(samples) {
			end = len(samples)
		}
		ready, err = dec.Feed(samples[off:end])
		if err != nil {
			return err
		}
	}
	if !ready {
		return fmt.Errorf("no frame found in %s", input)
	}

	payload := make([]byte, ribbit.PayloadBytes)
	flips := dec.Fetch(payload)
	if flips < 0 {
		return fmt.Errorf("frame found but decode failed")
	}
	if cfo, ok := dec.SyncCFO(); ok {
		log.Debug("sync", "cfoRad", cfo)
	}
	log.Info("frame decoded", "flips", flips)

	if output == "" {
		_, err = os.Stdout.Write(payload)
		return err
	}
	return os.WriteFile(output, payload, 0o644)
}

func send(input string, rate int) error {
	if input == "" {
		return fmt.Errorf("send needs --input payload")
	}
	payload, err := loadPayload(input)
	if err != nil {
		return err
	}
	samples, err := renderFrame(payload)
	if err != nil {
		return err
	}

	if err := audio.Init(); err != nil {
		return err
	}
	defer audio.Terminate()

	io := audio.NewIO(float64(rate))
	if err := io.OpenOutput(); err != nil {
		return err
	}
	defer io.Close()

	log.Info("transmitting", "samples", len(samples), "rate", rate)
	return io.WriteSamples(samples)
}

func recv(output string, rate int) error {
	if err := audio.Init(); err != nil {
		return err
	}
	defer audio.Terminate()

	io := audio.NewIO(float64(rate))
	if err := io.OpenInput(); err != nil {
		return err
	}
	defer io.Close()

	log.Info("listening", "rate", rate)
	dec := ribbit.NewDecoder()
	chunk := make([]float32, audio.ChunkFrames)
	for {
		if err := io.ReadChunk(chunk); err != nil {
			return err
		}
		ready, err := dec.Feed(chunk)
		if err != nil {
			return err
		}
		if !ready {
			continue
		}
		payload := make([]byte, ribbit.PayloadBytes)
		flips := dec.Fetch(payload)
		if flips < 0 {
			log.Warn("frame failed CRC, still listening")
			continue
		}
		log.Info("frame decoded", "flips", flips)
		if output == "" {
			_, err = os.Stdout.Write(payload)
			return err
		}
		return os.WriteFile(output, payload, 0o644)
	}
}

func devices() error {
	if err := audio.Init(); err != nil {
		return err
	}
	defer audio.Terminate()

	list, err := audio.Devices()
	if err != nil {
		return err
	}
	for i, d := range list {
		fmt.Printf("%2d: %s\n", i, d)
	}
	return nil
}
