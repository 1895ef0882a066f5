/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package agent

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/updatehub/agent/internal/client"
)

func TestProbeNoUpdateReturnsToIdle(t *testing.T) {
	fc := &fakeClient{probeResult: &client.ProbeResult{HasUpdate: false, AddExtraPollMS: 2000}}
	ss := newTestSharedState(Config{ServerAddress: "http://server"}, FirmwareMetadata{}, fc, &fakeReboot{})
	ss.Runtime.PollingRetries = 3

	next, step, err := Probe{}.Handle(context.Background(), ss)
	require.NoError(t, err)
	assert.Equal(t, "idle", next.Name())
	assert.True(t, step.IsImmediate())
	assert.Equal(t, 0, ss.Runtime.PollingRetries)
	assert.Equal(t, 2*time.Second, ss.Runtime.ExtraPollingInterval)
}

func TestProbeHasUpdateTransitionsToValidation(t *testing.T) {
	manifest := []byte(`{"product":"prod","version":"1.0","supported-hardware":["board-a"],"objects":[[]]}`)
	fc := &fakeClient{probeResult: &client.ProbeResult{HasUpdate: true, ManifestBytes: manifest, SignatureB64: "sig"}}
	ss := newTestSharedState(Config{ServerAddress: "http://server"}, FirmwareMetadata{}, fc, &fakeReboot{})

	next, step, err := Probe{}.Handle(context.Background(), ss)
	require.NoError(t, err)
	assert.Equal(t, "validation", next.Name())
	assert.True(t, step.IsImmediate())

	v, ok := next.(Validation)
	require.True(t, ok)
	assert.Equal(t, "sig", v.signatureB64)
}

func TestProbeTransientFailureRoutesToErrorAsRetryable(t *testing.T) {
	fc := &fakeClient{probeErr: errors.New("connection refused")}
	ss := newTestSharedState(Config{ServerAddress: "http://server"}, FirmwareMetadata{}, fc, &fakeReboot{})

	next, step, err := Probe{}.Handle(context.Background(), ss)
	require.NoError(t, err)
	assert.Equal(t, "error", next.Name())
	assert.True(t, step.IsImmediate())

	es, ok := next.(ErrorState)
	require.True(t, ok)
	assert.False(t, es.cause.Fatal())
	assert.ErrorIs(t, es.cause, ErrTransport)
	assert.Equal(t, 1, ss.Runtime.PollingRetries)
}

func TestProbeServerOverrideDoesNotMutateConfig(t *testing.T) {
	fc := &fakeClient{probeResult: &client.ProbeResult{HasUpdate: false}}
	ss := newTestSharedState(Config{ServerAddress: "http://configured"}, FirmwareMetadata{}, fc, &fakeReboot{})

	_, _, err := Probe{ServerOverride: "http://override"}.Handle(context.Background(), ss)
	require.NoError(t, err)
	assert.Equal(t, "http://configured", ss.Config.ServerAddress)
}
