// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/relabs-tech/pavilion_station/internal/archive"
	"github.com/relabs-tech/pavilion_station/internal/env"
)

const maxRecordsLimit = 500

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// newWebHandler builds the status API. store may be nil when the archive
// is disabled.
func newWebHandler(board *StatusBoard, store *archive.Store, gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()

	// 1) Current status
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, board.Snapshot())
	})

	// 2) Archived records: /api/records?kind=log&limit=20
	mux.HandleFunc("/api/records", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			http.Error(w, "archive disabled", http.StatusNotFound)
			return
		}
		kind := env.Kind(r.URL.Query().Get("kind"))
		if kind == "" {
			kind = env.KindLog
		}
		if kind != env.KindLog && kind != env.KindUplink {
			http.Error(w, "kind must be log or uplink", http.StatusBadRequest)
			return
		}
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 || n > maxRecordsLimit {
				http.Error(w, fmt.Sprintf("limit must be 1-%d", maxRecordsLimit), http.StatusBadRequest)
				return
			}
			limit = n
		}
		entries, err := store.Recent(r.Context(), kind, limit)
		if err != nil {
			log.Printf("web: %v", err)
			http.Error(w, "archive query failed", http.StatusInternalServerError)
			return
		}
		if entries == nil {
			entries = []archive.Entry{}
		}
		writeJSON(w, entries)
	})

	// 3) Live feed: the status once, then every event
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade: %v", err)
			return
		}
		defer conn.Close()

		events, cancel := board.Subscribe()
		defer cancel()

		// Reader goroutine notices the client going away.
		gone := make(chan struct{})
		go func() {
			defer close(gone)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		if err := conn.WriteJSON(board.Snapshot()); err != nil {
			return
		}
		for {
			select {
			case ev, ok := <-events:
				if !ok {
					return
				}
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteJSON(ev); err != nil {
					return
				}
			case <-gone:
				return
			}
		}
	})

	// 4) Metrics
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("web: json encode error: %v", err)
	}
}

// serveWeb runs the status server until ctx is done.
func serveWeb(ctx context.Context, port int, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web: status server listening on %s", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
