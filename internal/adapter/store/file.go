package store

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/berfenger/energymon/internal/core/domain"
	"github.com/berfenger/energymon/internal/core/port"

	"github.com/spf13/afero"
)

const (
	PANEL_FILE = "last_wh"
	LOAD_FILE  = "house_last_wh"
)

// FileStore keeps each total in its own file as plain decimal text.
type FileStore struct {
	fs  afero.Fs
	dir string
}

var _ port.EnergyStore = (*FileStore)(nil)

func NewFileStore(fs afero.Fs, dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{fs: fs, dir: dir}
}

func NewOsFileStore(dir string) *FileStore {
	return NewFileStore(afero.NewOsFs(), dir)
}

// Load reads both totals. Missing or unparsable files read as 0. ModTime is
// the newest modification time of the files that exist.
func (s *FileStore) Load() (port.StoredEnergy, error) {
	var stored port.StoredEnergy
	var errs []error

	panelWh, panelMod, err := s.readValue(PANEL_FILE)
	if err != nil {
		errs = append(errs, err)
	}
	loadWh, loadMod, err := s.readValue(LOAD_FILE)
	if err != nil {
		errs = append(errs, err)
	}

	stored.PanelWh = panelWh
	stored.LoadWh = loadWh
	stored.ModTime = panelMod
	if loadMod.After(stored.ModTime) {
		stored.ModTime = loadMod
	}
	if len(errs) > 0 {
		return stored, fmt.Errorf("%w: %w", domain.ErrPersistence, errors.Join(errs...))
	}
	return stored, nil
}

func (s *FileStore) Save(panelWh, loadWh float64) error {
	err := errors.Join(
		s.writeValue(PANEL_FILE, panelWh),
		s.writeValue(LOAD_FILE, loadWh),
	)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (s *FileStore) readValue(name string) (float64, time.Time, error) {
	path := filepath.Join(s.dir, name)
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, time.Time{}, nil
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	var modTime time.Time
	if info, err := s.fs.Stat(path); err == nil {
		modTime = info.ModTime()
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(data)), 64)
	if err != nil {
		// garbage reads as zero
		return 0, modTime, nil
	}
	return value, modTime, nil
}

func (s *FileStore) writeValue(name string, value float64) error {
	return afero.WriteFile(s.fs, filepath.Join(s.dir, name), []byte(strconv.FormatFloat(value, 'f', -1, 64)), 0644)
}
