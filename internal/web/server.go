// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves the latest heading over HTTP and streams readings to
// websocket clients.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/relabs-tech/inertial_compass/internal/compass"
)

// clientBuffer is how many readings a slow websocket client may lag behind
// before readings are dropped for it.
const clientBuffer = 8

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the API is meant for the local network
	},
}

// Mode is the background flag holder, normally a *notify.Service.
type Mode interface {
	SetBackground(bool)
	Background() bool
	Stop() error
}

// WSMessage is a command sent by a websocket client.
type WSMessage struct {
	Action     string `json:"action"` // background, stop
	Background bool   `json:"background,omitempty"`
}

// Server implements broadcast.Publisher and the HTTP API.
type Server struct {
	log      *zap.SugaredLogger
	mode     Mode
	gatherer prometheus.Gatherer

	mu      sync.RWMutex
	last    compass.Reading
	have    bool
	clients map[chan compass.Reading]struct{}
}

// NewServer creates a Server. mode and gatherer may be nil; the matching
// endpoints then answer 404.
func NewServer(mode Mode, gatherer prometheus.Gatherer, logger *zap.SugaredLogger) *Server {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Server{
		log:      logger,
		mode:     mode,
		gatherer: gatherer,
		clients:  map[chan compass.Reading]struct{}{},
	}
}

// Publish stores r as the latest reading and forwards it to websocket clients.
func (s *Server) Publish(r compass.Reading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = r
	s.have = true
	for ch := range s.clients {
		select {
		case ch <- r:
		default:
		}
	}
}

// Latest returns the last published reading.
func (s *Server) Latest() (compass.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.have
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/heading", s.handleHeading)
	mux.HandleFunc("/ws", s.handleWS)
	if s.mode != nil {
		mux.HandleFunc("/api/background", s.handleBackground)
		mux.HandleFunc("/api/stop", s.handleStop)
	}
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// Run listens on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("web server listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return ctx.Err()
	}
}

func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warnf("json encode error: %v", err)
	}
}

func (s *Server) handleHeading(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	last, ok := s.Latest()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, s.log, last)
}

type backgroundBody struct {
	Background bool `json:"background"`
}

func (s *Server) handleBackground(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPost, http.MethodPut:
		var body backgroundBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
			return
		}
		s.mode.SetBackground(body.Background)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.log, backgroundBody{Background: s.mode.Background()})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.mode.Stop(); err != nil {
		s.log.Warnf("stop: %v", err)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) subscribe() chan compass.Reading {
	ch := make(chan compass.Reading, clientBuffer)
	s.mu.Lock()
	s.clients[ch] = struct{}{}
	if s.have {
		ch <- s.last
	}
	s.mu.Unlock()
	return ch
}

func (s *Server) unsubscribe(ch chan compass.Reading) {
	s.mu.Lock()
	delete(s.clients, ch)
	s.mu.Unlock()
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	// subscribe before the handshake completes so no reading published after
	// the client connected is missed
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnf("websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go s.readCommands(conn, closed)

	for {
		select {
		case <-closed:
			return
		case reading := <-ch:
			if err := conn.WriteJSON(reading); err != nil {
				s.log.Debugf("websocket write error: %v", err)
				return
			}
		}
	}
}

// readCommands handles client commands until the connection fails.
func (s *Server) readCommands(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debugf("websocket error: %v", err)
			}
			return
		}
		if s.mode == nil {
			continue
		}
		switch msg.Action {
		case "background":
			s.mode.SetBackground(msg.Background)
		case "stop":
			if err := s.mode.Stop(); err != nil {
				s.log.Warnf("stop: %v", err)
			}
		default:
			s.log.Debugf("unknown websocket action %q", msg.Action)
		}
	}
}
