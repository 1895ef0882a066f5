/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package control

import (
	"context"
	"io"
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
)

// fakeClient is a no-op client.Client: every method returns a zero result
// and records Report calls, for tests that only care about the actor's
// transition/capability logic, not the server wire format.
type fakeClient struct {
	reportEvents []client.ReportEvent
}

func (f *fakeClient) Probe(ctx context.Context, baseURL string, req client.ProbeRequest) (*client.ProbeResult, error) {
	return &client.ProbeResult{}, nil
}

func (f *fakeClient) FetchObject(ctx context.Context, baseURL, productUID, packageUID, sha256sum string, rangeStart int64) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader("")), 0, nil
}

func (f *fakeClient) FetchURL(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	return io.NopCloser(strings.NewReader("")), 0, nil
}

func (f *fakeClient) Report(ctx context.Context, baseURL string, event client.ReportEvent) error {
	f.reportEvents = append(f.reportEvents, event)
	return nil
}

// fakeReboot is a no-op reboot.Runner.
type fakeReboot struct{}

func (fakeReboot) Reboot(ctx context.Context) (string, string, error) { return "", "", nil }

func newTestActor(current agent.State) (*Actor, *fakeClient) {
	fs := afero.NewMemMapFs()
	runtime, _ := agent.LoadRuntimeSettings(fs, "/runtime-settings.conf")
	aib := activeinactive.NewFileBackend(fs, "/active-installation-set")

	log := logrus.New()
	log.SetOutput(io.Discard)

	fc := &fakeClient{}
	ss := agent.NewSharedState(agent.Config{}, runtime, agent.FirmwareMetadata{}, fs, fc, fakeReboot{}, aib)
	ss.Log = log

	a := NewActor(ss, "test-version", nil)
	a.current = current
	return a, fc
}

// blockingState never returns from Handle until ctx is cancelled, letting
// tests observe pre-emption of an in-flight Handle call. handleStarted is
// closed the instant Handle begins running.
type blockingState struct {
	caps          agent.Capabilities
	handleStarted chan struct{}
}

func (b *blockingState) Name() string                    { return "blocking" }
func (b *blockingState) Capabilities() agent.Capabilities { return b.caps }

func (b *blockingState) Handle(ctx context.Context, ss *agent.SharedState) (agent.State, agent.StepTransition, error) {
	close(b.handleStarted)
	<-ctx.Done()
	return nil, agent.Never(), ctx.Err()
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition never became true")
}

// Capability-gated message rejection (serve's dispatch in control.go):
// a state whose Capabilities deny a message kind must answer InvalidState
// without disturbing a.current, for both the idle and live dispatch paths.

func TestServeIdleRejectsCapabilityGatedMessage(t *testing.T) {
	a, _ := newTestActor(agent.Install{})

	reply := make(chan Response, 1)
	msg := message{kind: kindRemoteInstall, url: "http://example.test/pkg", controlReply: reply}

	transitioned := a.serveIdle(msg)
	assert.False(t, transitioned)

	res := <-reply
	assert.False(t, res.Accepted)
	assert.Equal(t, "install", res.State)
	assert.Equal(t, "install", a.current.Name())
}

func TestServeIdleAcceptsCapabilityPermittedMessage(t *testing.T) {
	a, _ := newTestActor(agent.Idle{})

	reply := make(chan Response, 1)
	msg := message{kind: kindRemoteInstall, url: "http://example.test/pkg", controlReply: reply}

	transitioned := a.serveIdle(msg)
	assert.True(t, transitioned)

	res := <-reply
	assert.True(t, res.Accepted)
	assert.Equal(t, "idle", res.State)
	assert.Equal(t, "direct_download", a.current.Name())
}

func TestServeIdleDownloadAbortRejectedOutsideDownloadStates(t *testing.T) {
	a, _ := newTestActor(agent.Idle{})

	reply := make(chan Response, 1)
	msg := message{kind: kindDownloadAbort, controlReply: reply}

	transitioned := a.serveIdle(msg)
	assert.False(t, transitioned)

	res := <-reply
	assert.False(t, res.Accepted)
	assert.Equal(t, "idle", a.current.Name())
}

// Pre-emption via context cancellation (Run's loop in control.go): a
// permitted control message arriving while Handle is in flight cancels the
// handleCtx passed to it and adopts the resulting transition without
// waiting for the blocked Handle to return on its own.

func TestRunPreEmptsInFlightHandleOnPermittedControlMessage(t *testing.T) {
	blocker := &blockingState{
		caps:          agent.Capabilities{RemoteInstall: true},
		handleStarted: make(chan struct{}),
	}
	a, _ := newTestActor(blocker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	select {
	case <-blocker.handleStarted:
	case <-time.After(time.Second):
		t.Fatal("blockingState.Handle never started")
	}

	res, err := a.RemoteInstall(ctx, "http://example.test/pkg")
	require.NoError(t, err)
	assert.True(t, res.Accepted)
	assert.Equal(t, "blocking", res.State)

	// The blocked Handle was given up rather than adopted: current moves off
	// "blocking" as soon as the pre-empting transition lands, regardless of
	// how far the state machine has since run on its own.
	waitFor(t, func() bool { return a.CurrentStateName() != "blocking" })

	cancel()
	<-done
}

func TestRunLeavesInFlightHandleRunningForDeniedControlMessage(t *testing.T) {
	blocker := &blockingState{
		caps:          agent.Capabilities{}, // denies everything
		handleStarted: make(chan struct{}),
	}
	a, _ := newTestActor(blocker)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	select {
	case <-blocker.handleStarted:
	case <-time.After(time.Second):
		t.Fatal("blockingState.Handle never started")
	}

	res, err := a.RemoteInstall(ctx, "http://example.test/pkg")
	require.NoError(t, err)
	assert.False(t, res.Accepted)
	assert.Equal(t, "blocking", a.CurrentStateName())

	cancel()
	<-done
}

func TestInfoReflectsCurrentStateWithoutDisturbingIt(t *testing.T) {
	a, _ := newTestActor(agent.Idle{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		a.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool {
		snap, err := a.Info(ctx)
		return err == nil && snap.State != ""
	})

	cancel()
	<-done
}
