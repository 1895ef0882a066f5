/*
 * UpdateHub
 * Copyright (C) 2017
 * O.S. Systems Sofware LTDA: contato@ossystems.com.br
 *
 * SPDX-License-Identifier:     GPL-2.0
 */

package activeinactive

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileBackendDefaultsToSlotZero(t *testing.T) {
	b := NewFileBackend(afero.NewMemMapFs(), "/active-installation-set")

	active, err := b.Active()
	require.NoError(t, err)
	assert.Equal(t, 0, active)
}

func TestFileBackendSetActiveRoundTrips(t *testing.T) {
	b := NewFileBackend(afero.NewMemMapFs(), "/active-installation-set")

	require.NoError(t, b.SetActive(1))

	active, err := b.Active()
	require.NoError(t, err)
	assert.Equal(t, 1, active)
}

func TestFileBackendSetActiveRejectsOutOfRange(t *testing.T) {
	b := NewFileBackend(afero.NewMemMapFs(), "/active-installation-set")
	assert.Error(t, b.SetActive(2))
}

func TestInactiveIsComplementOfActive(t *testing.T) {
	b := NewFileBackend(afero.NewMemMapFs(), "/active-installation-set")
	require.NoError(t, b.SetActive(0))

	inactive, err := Inactive(b)
	require.NoError(t, err)
	assert.Equal(t, 1, inactive)

	require.NoError(t, b.SetActive(1))
	inactive, err = Inactive(b)
	require.NoError(t, err)
	assert.Equal(t, 0, inactive)
}
