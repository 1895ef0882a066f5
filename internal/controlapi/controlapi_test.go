/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package controlapi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/updatehub/agent/internal/activeinactive"
	"github.com/updatehub/agent/internal/agent"
	"github.com/updatehub/agent/internal/client"
	"github.com/updatehub/agent/internal/control"
)

type noopClient struct{}

func (noopClient) Probe(ctx context.Context, baseURL string, req client.ProbeRequest) (*client.ProbeResult, error) {
	return &client.ProbeResult{}, nil
}
func (noopClient) FetchObject(ctx context.Context, baseURL, productUID, packageUID, sha256sum string, rangeStart int64) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader("")), 0, nil
}
func (noopClient) FetchURL(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader("")), 0, nil
}
func (noopClient) Report(ctx context.Context, baseURL string, event client.ReportEvent) error {
	return nil
}

type noopReboot struct{}

func (noopReboot) Reboot(ctx context.Context) (string, string, error) { return "", "", nil }

// newTestActor builds a control.Actor over an in-memory filesystem and
// no-op transport, for exercising the HTTP <-> Actor wiring in isolation
// from real network/state-machine behaviour (that's internal/control's own
// test responsibility).
func newTestActor() *control.Actor {
	fs := afero.NewMemMapFs()
	runtime, _ := agent.LoadRuntimeSettings(fs, "/runtime-settings.conf")
	aib := activeinactive.NewFileBackend(fs, "/active-installation-set")

	log := logrus.New()
	log.SetOutput(io.Discard)

	ss := agent.NewSharedState(agent.Config{}, runtime, agent.FirmwareMetadata{}, fs, noopClient{}, noopReboot{}, aib)
	ss.Log = log

	return control.NewActor(ss, "test-version", nil)
}

func TestLocalInstallHandlerRejectsMissingFile(t *testing.T) {
	actor := newTestActor()

	req := httptest.NewRequest(http.MethodPost, "/local-install", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	localInstallHandler(actor)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLocalInstallHandlerRejectsMalformedJSON(t *testing.T) {
	actor := newTestActor()

	req := httptest.NewRequest(http.MethodPost, "/local-install", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()
	localInstallHandler(actor)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRemoteInstallHandlerRejectsMissingURL(t *testing.T) {
	actor := newTestActor()

	req := httptest.NewRequest(http.MethodPost, "/remote-install", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	remoteInstallHandler(actor)(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestRemoteInstallHandlerAcceptsWellFormedBody exercises the handler
// against a live Actor (control.Actor.Run driving agent.EntryPoint{} ->
// Park, which grants RemoteInstall), confirming the HTTP layer
// correctly surfaces an accepted control.Response as 202.
func TestRemoteInstallHandlerAcceptsWellFormedBody(t *testing.T) {
	actor := newTestActor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	require.Eventually(t, func() bool {
		name := actor.CurrentStateName()
		return name == "park" || name == "idle"
	}, time.Second, time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/remote-install", strings.NewReader(`{"url":"http://example.test/pkg"}`))
	rec := httptest.NewRecorder()
	remoteInstallHandler(actor)(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestInfoHandlerReturnsCurrentSnapshot(t *testing.T) {
	actor := newTestActor()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go actor.Run(ctx)

	req := httptest.NewRequest(http.MethodGet, "/info", nil)
	rec := httptest.NewRecorder()
	infoHandler(actor)(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "State")
}
