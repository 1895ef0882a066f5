/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package archive implements the member-extraction contract spec.md §1
// assigns to an external "archive decompressor" collaborator: pull a single
// named member out of a compressed archive stream. The core state engine
// (internal/agent's PrepareLocalInstall) only ever sees this interface.
package archive

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
)

// ErrMemberNotFound is returned when the archive does not contain the
// requested member — the PrepareLocalInstall state maps this to
// SignatureNotFound when member == "signature".
var ErrMemberNotFound = errors.New("member not found in archive")

// ExtractMember returns a reader over the bytes of member inside the
// tar+gzip archive read from r. Archives are read sequentially (gzip
// streams are not seekable), so extracting N members means N passes; for
// local/direct install this is bounded by a small, known member count.
func ExtractMember(r io.Reader, member string) (io.ReadCloser, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s", ErrMemberNotFound, member)
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}

		if hdr.Name != member {
			continue
		}

		buf := new(bytes.Buffer)
		if _, err := io.Copy(buf, tr); err != nil {
			return nil, fmt.Errorf("reading member %s: %w", member, err)
		}

		return io.NopCloser(buf), nil
	}
}

// Members lists every member name in the archive, in archive order.
func Members(r io.Reader) ([]string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening gzip stream: %w", err)
	}
	defer gz.Close()

	var names []string
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar entry: %w", err)
		}
		names = append(names, hdr.Name)
	}
}
