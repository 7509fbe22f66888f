// Package presets persists named multiroom layouts in the user config dir.
package presets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type Store interface {
	List() ([]PresetMeta, error)
	Get(name string) (Preset, bool, error)
	Put(preset Preset) error
	Delete(name string) error
}

type FileStore struct {
	path string
}

func NewFileStore() (*FileStore, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil, err
	}
	return &FileStore{path: filepath.Join(dir, "wiimctl", "presets.json")}, nil
}

func (s *FileStore) List() ([]PresetMeta, error) {
	data, err := s.readAll()
	if err != nil {
		return nil, err
	}
	metas := make([]PresetMeta, 0, len(data))
	for _, p := range data {
		metas = append(metas, PresetMeta{Name: p.Name, CreatedAt: p.CreatedAt})
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas, nil
}

func (s *FileStore) Get(name string) (Preset, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Preset{}, false, nil
	}
	data, err := s.readAll()
	if err != nil {
		return Preset{}, false, err
	}
	p, ok := data[name]
	return p, ok, nil
}

func (s *FileStore) Put(preset Preset) error {
	preset.Name = strings.TrimSpace(preset.Name)
	if preset.Name == "" {
		return errors.New("preset name is required")
	}
	if preset.Master == "" {
		return errors.New("preset master is required")
	}
	if preset.CreatedAt.IsZero() {
		preset.CreatedAt = time.Now().UTC()
	}

	data, err := s.readAll()
	if err != nil {
		return err
	}
	data[preset.Name] = preset
	return s.writeAll(data)
}

func (s *FileStore) Delete(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("preset name is required")
	}
	data, err := s.readAll()
	if err != nil {
		return err
	}
	if _, ok := data[name]; !ok {
		return nil
	}
	delete(data, name)
	return s.writeAll(data)
}

type fileFormat struct {
	Presets map[string]Preset `json:"presets"`
}

func (s *FileStore) readAll() (map[string]Preset, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]Preset{}, nil
		}
		return nil, err
	}
	var ff fileFormat
	if err := json.Unmarshal(b, &ff); err != nil {
		return nil, fmt.Errorf("parse presets store: %w", err)
	}
	if ff.Presets == nil {
		ff.Presets = map[string]Preset{}
	}
	return ff.Presets, nil
}

func (s *FileStore) writeAll(data map[string]Preset) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	ff := fileFormat{Presets: data}
	b, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
