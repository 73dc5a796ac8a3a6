package server

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/ribbitlabs/ribbit"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Monitor owns one decoder and feeds it from WebSocket audio streams.
// Audio arrives as binary messages of little-endian float32 mono samples;
// decode events go back to every connected client.
type Monitor struct {
	hub *Hub

	mu      sync.Mutex
	decoder *ribbit.Decoder
	frames  int
	synced  bool
	lastCFO float64
}

// NewMonitor creates a monitor with a fresh decoder.
func NewMonitor() *Monitor {
	return &Monitor{hub: NewHub(), decoder: ribbit.NewDecoder()}
}

// HandleWS upgrades the connection and pumps audio into the decoder until
// the client goes away.
func (m *Monitor) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error("websocket upgrade", "err", err)
		return
	}
	m.hub.Add(conn)
	defer m.hub.Remove(conn)

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if err := m.feed(decodeSamples(data)); err != nil {
			log.Error("feed", "err", err)
		}
	}
}

// HandleStatus reports decode counters as JSON.
func (m *Monitor) HandleStatus(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	frames, synced := m.frames, m.synced
	m.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"frames":%d,"synced":%t}`+"\n", frames, synced)
}

// feed pushes samples through the decoder in feed-sized chunks and
// broadcasts sync and payload events as they happen.
func (m *Monitor) feed(samples []float32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for off := 0; off < len(samples); off += ribbit.ExtendedLength {
		end := off + ribbit.ExtendedLength
		if end > len(samples) {
			end = len(samples)
		}
		ready, err := m.decoder.Feed(samples[off:end])
		if err != nil {
			return err
		}

		if cfo, ok := m.decoder.SyncCFO(); ok && (!m.synced || cfo != m.lastCFO) {
			m.synced = true
			m.lastCFO = cfo
			m.hub.Broadcast(Event{Type: "sync", Payload: SyncPayload{CFORad: cfo}})
		}
		if ready {
			payload := make([]byte, ribbit.PayloadBytes)
			flips := m.decoder.Fetch(payload)
			if flips >= 0 {
				m.frames++
				log.Info("frame decoded", "flips", flips)
				m.hub.Broadcast(Event{Type: "payload", Payload: DecodePayload{Data: payload, Flips: flips}})
			} else {
				log.Warn("frame failed CRC")
				m.hub.Broadcast(Event{Type: "status", Payload: map[string]string{"status": "decode-failed"}})
			}
		}
	}
	return nil
}

func decodeSamples(data []byte) []float32 {
	samples := make([]float32, len(data)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
	}
	return samples
}
