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

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectDownloadFetchesAndHandsOffToPrepareLocalInstall(t *testing.T) {
	fc := &fakeClient{fetchURLBody: "archive-bytes"}
	ss := newTestSharedState(Config{DownloadDir: "/download"}, FirmwareMetadata{}, fc, &fakeReboot{})

	next, step, err := NewDirectDownload("http://example.invalid/pkg.tar.gz").Handle(context.Background(), ss)
	require.NoError(t, err)
	assert.Equal(t, "prepare_local_install", next.Name())
	assert.True(t, step.IsImmediate())

	data, readErr := afero.ReadFile(ss.FS, "/download/remote-install.tar.gz")
	require.NoError(t, readErr)
	assert.Equal(t, "archive-bytes", string(data))
}

func TestDirectDownloadTransportFailureRoutesToError(t *testing.T) {
	fc := &fakeClient{fetchURLErr: errors.New("dns error")}
	ss := newTestSharedState(Config{DownloadDir: "/download"}, FirmwareMetadata{}, fc, &fakeReboot{})

	next, _, err := NewDirectDownload("http://example.invalid/pkg.tar.gz").Handle(context.Background(), ss)
	require.NoError(t, err)
	es, ok := next.(ErrorState)
	require.True(t, ok)
	assert.ErrorIs(t, es.cause, ErrTransport)
}

func TestDirectDownloadAllowsDownloadAbort(t *testing.T) {
	d := NewDirectDownload("http://example.invalid")
	assert.True(t, d.Capabilities().DownloadAbort)
}
