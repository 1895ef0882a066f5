/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package updatepackage

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// UpdatePackage is the typed representation of a parsed manifest (spec.md
// §3). Objects[0] is slot A's object list, Objects[1] is slot B's.
type UpdatePackage struct {
	Product            string     `json:"product"`
	Version            string     `json:"version"`
	SupportedHardware  []string   `json:"supported-hardware"`
	Objects            [][]Object `json:"objects"`

	// rawBytes holds the exact manifest bytes Parse was given: PackageUID
	// hashes these, never a re-serialisation (spec.md §4.B).
	rawBytes []byte
}

// Parse validates JSON shape and object-mode tags and returns the package.
func Parse(raw []byte) (*UpdatePackage, error) {
	var pkg UpdatePackage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, err)
	}

	if len(pkg.Objects) != 1 && len(pkg.Objects) != 2 {
		return nil, fmt.Errorf("%w: found %d", ErrSlotCount, len(pkg.Objects))
	}
	if len(pkg.Objects) == 2 && len(pkg.Objects[0]) != len(pkg.Objects[1]) {
		return nil, fmt.Errorf("%w: %d vs %d", ErrSlotMismatch, len(pkg.Objects[0]), len(pkg.Objects[1]))
	}

	pkg.rawBytes = append([]byte(nil), raw...)

	return &pkg, nil
}

// ObjectsFor returns the object list for the given installation slot index
// (0 or 1). A single-slot package (no active/inactive split) answers the
// same list for either index.
func (p *UpdatePackage) ObjectsFor(slot int) []Object {
	if len(p.Objects) == 1 {
		return p.Objects[0]
	}
	return p.Objects[slot]
}

// PackageUID is the SHA-256 of the exact bytes Parse consumed.
func (p *UpdatePackage) PackageUID() string {
	sum := sha256.Sum256(p.rawBytes)
	return hex.EncodeToString(sum[:])
}

// RawBytes returns the manifest bytes PackageUID and signature validation
// operate over.
func (p *UpdatePackage) RawBytes() []byte {
	return append([]byte(nil), p.rawBytes...)
}

// ClearUnrelatedFiles removes files in dir whose name is not the sha256sum
// of any object scheduled for slot (spec.md §4.B).
func ClearUnrelatedFiles(fs afero.Fs, dir string, slot int, pkg *UpdatePackage) error {
	wanted := make(map[string]bool)
	for _, o := range pkg.ObjectsFor(slot) {
		wanted[o.Sha256sum] = true
	}

	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return fmt.Errorf("listing download dir: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || wanted[entry.Name()] {
			continue
		}
		if err := fs.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("removing unrelated file %s: %w", entry.Name(), err)
		}
	}

	return nil
}
