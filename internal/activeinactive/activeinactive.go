/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

// Package activeinactive is the installation-set switcher spec.md §1 lists
// as an external collaborator ("installation-set switcher (which slot is
// active/inactive)... specified only by their interface"). Teacher's
// updatehub/states.go already consumes exactly this shape
// (activeInactiveBackend.Active() / .SetActive(index)); this package
// provides the interface plus a simple file-backed implementation so the
// agent is runnable end to end without a real A/B bootloader.
package activeinactive

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Switcher reports which installation set is active and flips it after an
// install. Index 0 is slot A, index 1 is slot B.
type Switcher interface {
	Active() (int, error)
	SetActive(index int) error
}

// FileBackend persists the active slot index as a single digit in a file,
// the userspace-simulatable analogue of a real bootloader environment
// variable.
type FileBackend struct {
	fs   afero.Fs
	path string
}

// NewFileBackend returns a FileBackend backed by path on fs, defaulting to
// slot 0 if the file does not yet exist.
func NewFileBackend(fs afero.Fs, path string) *FileBackend {
	return &FileBackend{fs: fs, path: path}
}

func (b *FileBackend) Active() (int, error) {
	data, err := afero.ReadFile(b.fs, b.path)
	if err != nil {
		return 0, nil
	}

	idx, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("parsing active installation set: %w", err)
	}
	if idx != 0 && idx != 1 {
		return 0, fmt.Errorf("active installation set out of range: %d", idx)
	}

	return idx, nil
}

func (b *FileBackend) SetActive(index int) error {
	if index != 0 && index != 1 {
		return fmt.Errorf("installation set out of range: %d", index)
	}
	return afero.WriteFile(b.fs, b.path, []byte(strconv.Itoa(index)), 0o644)
}

// Inactive returns the complement of Active(): the slot an upgrade targets.
func Inactive(s Switcher) (int, error) {
	active, err := s.Active()
	if err != nil {
		return 0, err
	}
	return (active + 1) % 2, nil
}
