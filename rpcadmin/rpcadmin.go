// This file is part of ratnet, a decentralised overlay router.
//
// SPDX-License-Identifier: AGPL3.0-or-later

// Package rpcadmin is the read-only admin/status HTTP surface: a
// /status endpoint summarising live router state and a /metrics
// endpoint exposing the metrics package in Prometheus exposition
// format.
package rpcadmin

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bfix/gospel/logger"
	"github.com/gorilla/mux"

	"ratnet/metrics"
)

// StatusFunc returns a live snapshot of router/journal/collector state
// for the /status endpoint.
type StatusFunc func() Status

// Status is the JSON body served at /status.
type Status struct {
	OnlineAddresses   int `json:"onlineAddresses"`
	KnownPeers        int `json:"knownPeers"`
	JournalSize       int `json:"journalSize"`
	CollectorWorkers  int `json:"collectorWorkersActive"`
}

// Server is the admin HTTP surface, started and stopped alongside the
// rest of the daemon's long-running tasks.
type Server struct {
	addr   string
	status StatusFunc
	http   *http.Server
}

// New creates an admin server bound to addr, serving status via fn.
func New(addr string, fn StatusFunc) *Server {
	router := mux.NewRouter()
	s := &Server{addr: addr, status: fn}
	router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	router.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)
	s.http = &http.Server{
		Handler:      router,
		Addr:         addr,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.status())
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	metrics.WritePrometheus(w)
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// shuts it down gracefully.
func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			logger.Printf(logger.WARN, "[admin] shutdown failed: %s", err.Error())
		}
	}()
	logger.Printf(logger.INFO, "[admin] listening on %s", s.addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
