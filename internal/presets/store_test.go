package presets

import (
	"path/filepath"
	"testing"
)

func TestFileStoreCRUD(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	s := &FileStore{path: filepath.Join(dir, "presets.json")}

	if metas, err := s.List(); err != nil || len(metas) != 0 {
		t.Fatalf("expected empty list, got metas=%v err=%v", metas, err)
	}

	p := Preset{
		Name:   "Evening",
		Master: "10.0.0.1",
		Slaves: []string{"10.0.0.2", "10.0.0.3"},
		Devices: []PresetDevice{
			{IP: "10.0.0.1", Name: "Living Room", Volume: 0.3},
			{IP: "10.0.0.2", Name: "Kitchen", Volume: 0.2},
		},
	}
	if err := s.Put(p); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := s.Get("Evening")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Master != "10.0.0.1" || len(got.Slaves) != 2 {
		t.Fatalf("preset: %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt to be set")
	}

	metas, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(metas) != 1 || metas[0].Name != "Evening" {
		t.Fatalf("unexpected metas: %v", metas)
	}

	if err := s.Delete("Evening"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err = s.Get("Evening")
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if ok {
		t.Fatalf("expected preset to be gone")
	}

	// Deleting a missing preset is not an error.
	if err := s.Delete("Evening"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestPutValidation(t *testing.T) {
	t.Parallel()

	s := &FileStore{path: filepath.Join(t.TempDir(), "presets.json")}
	if err := s.Put(Preset{Master: "10.0.0.1"}); err == nil {
		t.Fatalf("expected error for missing name")
	}
	if err := s.Put(Preset{Name: "x"}); err == nil {
		t.Fatalf("expected error for missing master")
	}
}
