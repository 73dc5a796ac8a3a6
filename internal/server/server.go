package server

import (
	"net/http"

	"github.com/charmbracelet/log"
)

// Server is the HTTP front of the monitor daemon.
type Server struct {
	mux     *http.ServeMux
	monitor *Monitor
	addr    string
}

// New wires the monitor routes onto a fresh mux.
func New(addr string, monitor *Monitor) *Server {
	s := &Server{
		mux:     http.NewServeMux(),
		monitor: monitor,
		addr:    addr,
	}
	s.mux.HandleFunc("/ws", monitor.HandleWS)
	s.mux.HandleFunc("/api/status", monitor.HandleStatus)
	return s
}

// Start blocks serving HTTP.
func (s *Server) Start() error {
	log.Info("monitor listening", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.mux)
}
