package grammar

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadManifestMissingFileIsEmpty(t *testing.T) {
	m, err := LoadManifest(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Grammars) != 0 {
		t.Fatalf("expected empty manifest, got %d entries", len(m.Grammars))
	}
}

func TestLoadManifestParsesEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "grammars.toml")
	content := `
[[grammar]]
name = "python"
repo = "https://github.com/tree-sitter/tree-sitter-python"
rev = "master"

[[grammar]]
name = "typescript"
repo = "https://github.com/tree-sitter/tree-sitter-typescript"
rev = "master"
path = "typescript"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest: %v", err)
	}
	if len(m.Grammars) != 2 {
		t.Fatalf("expected 2 grammars, got %d", len(m.Grammars))
	}
	if m.Grammars[1].Path != "typescript" {
		t.Fatalf("expected typescript path, got %q", m.Grammars[1].Path)
	}
}

func TestManagerSelectedFiltersByOnly(t *testing.T) {
	mf := DefaultManifest()
	m := NewManager(t.TempDir(), mf)

	all := m.selected(nil)
	if len(all) != len(mf.Grammars) {
		t.Fatalf("expected all %d grammars, got %d", len(mf.Grammars), len(all))
	}

	only := m.selected([]string{"python"})
	if len(only) != 1 || only[0].Name != "python" {
		t.Fatalf("expected only python, got %+v", only)
	}
}

func TestManagerStatusAllReportsUnfetched(t *testing.T) {
	mf := &Manifest{Grammars: []Spec{{Name: "python", Repo: "https://example.invalid/ts-python", Rev: "master"}}}
	m := NewManager(t.TempDir(), mf)

	statuses := m.StatusAll()
	if len(statuses) != 1 {
		t.Fatalf("expected 1 status, got %d", len(statuses))
	}
	if statuses[0].Fetched || statuses[0].Built {
		t.Fatalf("expected unfetched/unbuilt status for fresh cache dir, got %+v", statuses[0])
	}
}

func TestManagerBuildRequiresFetchFirst(t *testing.T) {
	mf := &Manifest{Grammars: []Spec{{Name: "python", Repo: "https://example.invalid/ts-python", Rev: "master"}}}
	m := NewManager(t.TempDir(), mf)

	err := m.buildOne(nil, mf.Grammars[0])
	if err == nil {
		t.Fatal("expected error building without a fetched source tree")
	}
}
