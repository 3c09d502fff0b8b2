/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	applog "pagesnap/internal/log"
	"pagesnap/internal/storage"
	"pagesnap/internal/version"
)

// EnvAuthSecret names the HMAC secret for API tokens.
const EnvAuthSecret = "PAGESNAP_AUTH_SECRET"

const devSecret = "dev-secret-change-me"

// Server exposes a RunStore over a small read-mostly JSON API:
//
//	GET  /healthz, /readyz, /version
//	POST /api/auth/token            {subject, ttl_seconds} -> {token, expires_at}
//	GET  /api/runs?limit=N          (auth)
//	GET  /api/runs/{id}             (auth)
//	POST /api/runs                  (auth) body: replay.Run JSON
type Server struct {
	store  storage.RunStore
	secret string
	now    func() time.Time
	log    *slog.Logger
}

// pinger is implemented by stores with a remote connection.
type pinger interface {
	Ping(ctx context.Context) error
}

// NewServer wraps store. An empty secret selects an insecure development secret.
func NewServer(store storage.RunStore, secret string) *Server {
	l := applog.WithComponent("backend")
	if secret == "" {
		secret = devSecret
		l.Warn("auth secret not set; using insecure dev secret", slog.String("env", EnvAuthSecret))
	}
	return &Server{store: store, secret: secret, now: time.Now, log: l}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if p, ok := s.store.(pinger); ok {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte("db not ready"))
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})
	mux.HandleFunc("POST /api/auth/token", s.issueToken)
	mux.HandleFunc("GET /api/runs", s.withAuth(s.listRuns))
	mux.HandleFunc("GET /api/runs/{id}", s.withAuth(s.getRun))
	mux.HandleFunc("POST /api/runs", s.withAuth(s.saveRun))
	return mux
}

func (s *Server) issueToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subject    string `json:"subject"`
		TTLSeconds int64  `json:"ttl_seconds"`
	}
	b, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	_ = r.Body.Close()
	_ = json.Unmarshal(b, &req)
	if req.Subject == "" {
		req.Subject = "dev"
	}
	if req.TTLSeconds <= 0 || req.TTLSeconds > 24*3600 {
		req.TTLSeconds = 3600
	}
	exp := s.now().Add(time.Duration(req.TTLSeconds) * time.Second)
	tok, err := signToken(s.secret, req.Subject, exp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, Token{Token: tok, ExpiresAt: exp.UTC().Format(time.RFC3339)})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request, _ string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	list, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if list == nil {
		list = []storage.RunSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) getRun(w http.ResponseWriter, r *http.Request, _ string) {
	run, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	switch {
	case errors.Is(err, storage.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err)
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) saveRun(w http.ResponseWriter, r *http.Request, sub string) {
	b, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	_ = r.Body.Close()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	run, err := storage.DecodeRun(b)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if run.ID == "" {
		writeError(w, http.StatusBadRequest, errors.New("run id is required"))
		return
	}
	if err := s.store.SaveRun(r.Context(), run); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.log.Info("run uploaded", slog.String("id", run.ID), slog.String("by", sub))
	writeJSON(w, http.StatusCreated, map[string]string{"id": run.ID})
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutCtx); err != nil {
			return err
		}
		return nil
	}
}
