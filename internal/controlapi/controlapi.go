/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package controlapi exposes Component E's control messages (spec.md §4.E)
// over a local HTTP surface, the outer layer spec.md §1 leaves unspecified
// beyond "only the control messages they deliver are specified". Routing is
// grounded on github.com/gorilla/mux, matching the rest of the pack's
// preference for it over bare net/http muxing.
package controlapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/updatehub/agent/internal/control"
)

// Server wraps an http.Server whose routes all delegate to a control.Actor.
type Server struct {
	httpServer *http.Server
	log        *logrus.Logger
}

// NewServer builds a Server listening on addr (Config.ListenSocket) that
// proxies every route to actor. addr is handed to http.Server as a TCP
// host:port; a unix socket path is not supported.
func NewServer(addr string, actor *control.Actor, log *logrus.Logger) *Server {
	r := mux.NewRouter()

	r.HandleFunc("/info", infoHandler(actor)).Methods(http.MethodGet)
	r.HandleFunc("/log", logHandler(actor)).Methods(http.MethodGet)
	r.HandleFunc("/probe", probeHandler(actor)).Methods(http.MethodPost)
	r.HandleFunc("/update/download-abort", downloadAbortHandler(actor)).Methods(http.MethodPost)
	r.HandleFunc("/local-install", localInstallHandler(actor)).Methods(http.MethodPost)
	r.HandleFunc("/remote-install", remoteInstallHandler(actor)).Methods(http.MethodPost)

	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// ListenAndServe blocks serving HTTP until the server is shut down.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.httpServer.Addr).Info("control API listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeControlResponse(w http.ResponseWriter, res control.Response, err error) {
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	status := http.StatusAccepted
	if !res.Accepted {
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{"status": res.String()})
}

func infoHandler(actor *control.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := actor.Info(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func logHandler(actor *control.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lines, err := actor.Log(r.Context())
		if err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, lines)
	}
}

func probeHandler(actor *control.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			ServerAddress string `json:"server-address"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		res, err := actor.Probe(r.Context(), body.ServerAddress)
		writeControlResponse(w, res, err)
	}
}

func downloadAbortHandler(actor *control.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := actor.DownloadAbort(r.Context())
		writeControlResponse(w, res, err)
	}
}

func localInstallHandler(actor *control.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			File string `json:"file"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.File == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing \"file\""})
			return
		}

		res, err := actor.LocalInstall(r.Context(), body.File)
		writeControlResponse(w, res, err)
	}
}

func remoteInstallHandler(actor *control.Actor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.URL == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing \"url\""})
			return
		}

		res, err := actor.RemoteInstall(r.Context(), body.URL)
		writeControlResponse(w, res, err)
	}
}
