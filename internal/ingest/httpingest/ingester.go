// Package httpingest accepts ingest.Envelope batches over HTTP and flushes
// the rows they carry into the store.
package httpingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"segstore/internal/flush"
	"segstore/internal/ingest"
	"segstore/internal/ingest/bodyutil"
	"segstore/internal/keytype"
	"segstore/internal/logging"
)

const maxBodyBytes = 10 << 20

// Config holds HTTP ingester configuration.
type Config struct {
	// Addr is the address to listen on (e.g., ":3110", "127.0.0.1:3110").
	Addr   string
	Logger *slog.Logger
}

// Ingester accepts ingest.Envelope batches via POST /push and flushes
// each one's rows through a flush.Protocol.
type Ingester struct {
	cfg      Config
	protocol *flush.Protocol
	keyType  keytype.KeyType
	listener net.Listener
	server   *http.Server
	logger   *slog.Logger
}

// New creates an HTTP ingester that flushes decoded rows through
// protocol, encoding keys with kt.
func New(cfg Config, protocol *flush.Protocol, kt keytype.KeyType) *Ingester {
	return &Ingester{
		cfg:      cfg,
		protocol: protocol,
		keyType:  kt,
		logger:   logging.Default(cfg.Logger).With("component", "ingest", "type", "http"),
	}
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (ing *Ingester) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /push", ing.handlePush)
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	ing.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var err error
	ing.listener, err = net.Listen("tcp", ing.cfg.Addr)
	if err != nil {
		return err
	}

	ing.logger.Info("http ingester starting", "addr", ing.listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := ing.server.Serve(ing.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		ing.logger.Info("http ingester stopping")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = ing.server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

// Addr returns the listener address. Only valid after Run() has started.
func (ing *Ingester) Addr() net.Addr {
	if ing.listener == nil {
		return nil
	}
	return ing.listener.Addr()
}

func (ing *Ingester) handlePush(w http.ResponseWriter, req *http.Request) {
	data, err := bodyutil.ReadBody(req.Body, req.Header.Get("Content-Encoding"), maxBodyBytes)
	if err != nil {
		http.Error(w, "failed to read body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var env ingest.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		ing.logger.Warn("failed to parse push body", "error", err)
		http.Error(w, "invalid JSON in request body", http.StatusBadRequest)
		return
	}

	batch, err := ingest.BuildBatch(env.Rows, ing.keyType)
	if err != nil {
		http.Error(w, "invalid rows: "+err.Error(), http.StatusBadRequest)
		return
	}
	if batch.NumRows == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if err := ing.flushWithRetry(req.Context(), env, batch); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (ing *Ingester) flushWithRetry(ctx context.Context, env ingest.Envelope, batch flush.Batch) error {
	for {
		ok, err := ing.protocol.Flush(ctx, env.Partition, env.Segment, batch)
		if err != nil {
			return fmt.Errorf("flush %s/%s: %w", env.Partition, env.Segment, err)
		}
		if ok {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
