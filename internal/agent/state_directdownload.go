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
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DirectDownload is entered on a remote-install request carrying a URL
// (spec.md §4.D, §4.E RemoteInstall message): it downloads the single
// archive, then hands off to PrepareLocalInstall.
type DirectDownload struct {
	url string
}

// NewDirectDownload builds the state the RemoteInstall control message
// transitions to, for the given URL (spec.md §4.E).
func NewDirectDownload(url string) DirectDownload {
	return DirectDownload{url: url}
}

func (DirectDownload) Name() string { return "direct_download" }

func (DirectDownload) Capabilities() Capabilities { return Capabilities{DownloadAbort: true} }

func (d DirectDownload) Handle(ctx context.Context, ss *SharedState) (State, StepTransition, error) {
	if err := ss.FS.MkdirAll(ss.Config.DownloadDir, 0o755); err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: creating download dir: %s", ErrInstaller, err))}, Immediate(), nil
	}

	path := filepath.Join(ss.Config.DownloadDir, "remote-install.tar.gz")

	rc, _, err := ss.Client.FetchURL(ctx, d.url)
	if err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrTransport, err))}, Immediate(), nil
	}
	defer rc.Close()

	f, err := ss.FS.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrInstaller, err))}, Immediate(), nil
	}
	defer f.Close()

	if _, err := io.Copy(f, rc); err != nil {
		return ErrorState{cause: NewTransientError(fmt.Errorf("%w: %s", ErrTransport, err))}, Immediate(), nil
	}

	return PrepareLocalInstall{updateFile: path}, Immediate(), nil
}
