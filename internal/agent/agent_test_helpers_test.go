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
	"io"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/updatehub/agent/internal/activeinactive"
	"github.com/updatehub/agent/internal/client"
)

// fakeClient is a stub client.Client for state tests: each method returns
// whatever the test preloads, and records the last call's arguments.
type fakeClient struct {
	probeResult *client.ProbeResult
	probeErr    error

	fetchObjectBody string
	fetchObjectErr  error

	fetchURLBody string
	fetchURLErr  error

	reportErr    error
	reportEvents []client.ReportEvent
}

func (f *fakeClient) Probe(ctx context.Context, baseURL string, req client.ProbeRequest) (*client.ProbeResult, error) {
	return f.probeResult, f.probeErr
}

func (f *fakeClient) FetchObject(ctx context.Context, baseURL, productUID, packageUID, sha256sum string, rangeStart int64) (io.ReadCloser, int64, error) {
	if f.fetchObjectErr != nil {
		return nil, -1, f.fetchObjectErr
	}
	body := f.fetchObjectBody[rangeStart:]
	return io.NopCloser(stringsReader(body)), int64(len(body)), nil
}

func (f *fakeClient) FetchURL(ctx context.Context, url string) (io.ReadCloser, int64, error) {
	if f.fetchURLErr != nil {
		return nil, -1, f.fetchURLErr
	}
	return io.NopCloser(stringsReader(f.fetchURLBody)), int64(len(f.fetchURLBody)), nil
}

func (f *fakeClient) Report(ctx context.Context, baseURL string, event client.ReportEvent) error {
	f.reportEvents = append(f.reportEvents, event)
	return f.reportErr
}

func stringsReader(s string) io.Reader { return &stringReaderImpl{s: s} }

type stringReaderImpl struct {
	s string
	i int
}

func (r *stringReaderImpl) Read(p []byte) (int, error) {
	if r.i >= len(r.s) {
		return 0, io.EOF
	}
	n := copy(p, r.s[r.i:])
	r.i += n
	return n, nil
}

// fakeReboot is a stub reboot.Runner.
type fakeReboot struct {
	stdout, stderr string
	err            error
	called         bool
}

func (f *fakeReboot) Reboot(ctx context.Context) (string, string, error) {
	f.called = true
	return f.stdout, f.stderr, f.err
}

// newTestSharedState builds a SharedState over an in-memory filesystem with
// stub collaborators, for state Handle unit tests.
func newTestSharedState(cfg Config, fw FirmwareMetadata, cl client.Client, rb *fakeReboot) *SharedState {
	fs := afero.NewMemMapFs()
	runtime, _ := LoadRuntimeSettings(fs, "/runtime-settings.conf")
	aib := activeinactive.NewFileBackend(fs, "/active-installation-set")

	log := logrus.New()
	log.SetOutput(io.Discard)

	return &SharedState{
		Config:         cfg,
		Runtime:        runtime,
		Firmware:       fw,
		FS:             fs,
		Client:         cl,
		Reboot:         rb,
		ActiveInactive: aib,
		Rand:           rand.New(rand.NewSource(1)),
		Now:            time.Now,
		Log:            log,
	}
}
