package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ttd2089/ring-queue/internal/metrics"
	"github.com/ttd2089/ring-queue/internal/ringbuf"
)

func newServer(addr string, stats *metrics.Count, recent *recentStore, logger log.FieldLogger) *http.Server {
	srv := &http.Server{
		Addr:    addr,
		Handler: newMux(stats, recent, logger),
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(log.Fields{"addr": addr, "error": err}).Error("Failed to serve")
		}
	}()

	return srv
}

func newMux(stats *metrics.Count, recent *recentStore, logger log.FieldLogger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /stats", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(w, stats.Data(), logger)
	})

	mux.HandleFunc("GET /recent", func(w http.ResponseWriter, r *http.Request) {
		serveJSON(w, recent.All(), logger)
	})

	mux.HandleFunc("GET /recent/{key}", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		if accepts(r, "text/plain") {
			text, err := recent.Render(key)
			if err != nil {
				serveError(w, err)
				return
			}
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(text + "\n"))
			return
		}
		snapshot, err := recent.Snapshot(key)
		if err != nil {
			serveError(w, err)
			return
		}
		serveJSON(w, snapshot, logger)
	})

	mux.HandleFunc("POST /recent/{key}/resize", func(w http.ResponseWriter, r *http.Request) {
		key := r.PathValue("key")
		capacity, err := strconv.Atoi(r.URL.Query().Get("capacity"))
		if err != nil {
			http.Error(w, "capacity must be an integer", http.StatusBadRequest)
			return
		}
		if err := recent.Resize(key, capacity); err != nil {
			serveError(w, err)
			return
		}
		logger.WithFields(log.Fields{"key": key, "capacity": capacity}).Info("Resized recent buffer")
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("DELETE /recent/{key}", func(w http.ResponseWriter, r *http.Request) {
		if err := recent.Clear(r.PathValue("key")); err != nil {
			serveError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func accepts(r *http.Request, contentType string) bool {
	accept := strings.Split(r.Header.Get("Accept"), ",")
	for i := range accept {
		accept[i], _, _ = strings.Cut(strings.TrimSpace(accept[i]), ";")
	}
	return slices.Contains(accept, contentType)
}

func serveError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errUnknownKey):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ringbuf.ErrInvalidCapacity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func serveJSON(w http.ResponseWriter, data any, logger log.FieldLogger) {
	body, err := json.MarshalIndent(data, "", "   ")
	if err != nil {
		logger.WithFields(log.Fields{"error": err}).Error("Failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
