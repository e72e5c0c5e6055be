package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/danmuck/oscctl/internal/logging"
	"github.com/pelletier/go-toml/v2"
)

// FileStore keeps settings in a small TOML file.
type FileStore struct {
	path string
	mu   sync.Mutex
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string { return f.path }

func (f *FileStore) Load(ctx context.Context) (Settings, error) {
	if err := ctx.Err(); err != nil {
		return Settings{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debugf("settings.FileStore.Load path=%s missing, using defaults", f.path)
		return Default(), nil
	}
	if err != nil {
		return Settings{}, fmt.Errorf("settings load failed (%s): %w", f.path, err)
	}
	out := Default()
	if err := toml.Unmarshal(data, &out); err != nil {
		return Settings{}, fmt.Errorf("settings parse failed (%s): %w", f.path, err)
	}
	return out.Normalized(), nil
}

// Save writes through a temp file and rename so readers never see a
// partial document.
func (f *FileStore) Save(ctx context.Context, s Settings) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := toml.Marshal(s.Normalized())
	if err != nil {
		return fmt.Errorf("settings encode failed: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings dir create failed (%s): %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".settings-*.toml")
	if err != nil {
		return fmt.Errorf("settings write failed (%s): %w", f.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("settings write failed (%s): %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings write failed (%s): %w", f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("settings write failed (%s): %w", f.path, err)
	}
	logging.Infof("settings.FileStore.Save path=%s host=%q port=%q", f.path, s.Host, s.Port)
	return nil
}
