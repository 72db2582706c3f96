package store

import (
	"testing"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, "/data")
	require.NoError(t, fs.MkdirAll("/data", 0755))

	require.NoError(t, s.Save(1234.5678, 42.25))

	stored, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 1234.5678, stored.PanelWh)
	assert.Equal(t, 42.25, stored.LoadWh)
	assert.False(t, stored.ModTime.IsZero())

	raw, err := afero.ReadFile(fs, "/data/last_wh")
	require.NoError(t, err)
	assert.Equal(t, "1234.5678", string(raw))
}

func TestMissingFilesReadAsZero(t *testing.T) {

	s := NewFileStore(afero.NewMemMapFs(), "")

	stored, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.PanelWh)
	assert.Equal(t, 0.0, stored.LoadWh)
	assert.True(t, stored.ModTime.IsZero())
}

func TestGarbageReadsAsZero(t *testing.T) {

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "last_wh", []byte("not a number"), 0644))
	require.NoError(t, afero.WriteFile(fs, "house_last_wh", []byte(" 17.5\n"), 0644))
	s := NewFileStore(fs, ".")

	stored, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, stored.PanelWh)
	assert.Equal(t, 17.5, stored.LoadWh, "surrounding whitespace is trimmed")
}

func TestModTimeIsNewest(t *testing.T) {

	fs := afero.NewMemMapFs()
	s := NewFileStore(fs, ".")
	require.NoError(t, s.Save(1, 2))

	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, fs.Chtimes("last_wh", older, older))
	require.NoError(t, fs.Chtimes("house_last_wh", newer, newer))

	stored, err := s.Load()
	require.NoError(t, err)
	assert.True(t, stored.ModTime.Equal(newer))
}

func TestSaveFailure(t *testing.T) {

	s := NewFileStore(afero.NewReadOnlyFs(afero.NewMemMapFs()), ".")

	err := s.Save(1, 2)
	assert.ErrorIs(t, err, domain.ErrPersistence)
}
