/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package utils holds small filesystem helpers shared across the agent,
// grounded on teacher's own utils package (referenced from
// updatehub/states.go as utils.FileSha256sum and utils.MergeErrorList).
package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
)

// FileSha256sum returns the hex-encoded SHA-256 of the file at path on fs.
func FileSha256sum(fs afero.Fs, path string) (string, error) {
	f, err := fs.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}

// MergeErrorList joins multiple errors raised during a best-effort pass
// (e.g. installer cleanup) into a single error.
func MergeErrorList(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}

	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}

	return errors.New(strings.Join(msgs, "; "))
}
