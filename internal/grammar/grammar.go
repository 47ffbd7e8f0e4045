// Package grammar manages tree-sitter grammar sources beyond the one
// statically linked into internal/syntax (github.com/smacker/go-tree-sitter's
// golang binding). Additional languages are tracked by a manifest of git
// repositories, fetched into a local cache directory, and compiled into
// shared libraries a future dynamic-loading path in internal/syntax could
// dlopen — the same fetch/build/sync split the original implementation's
// `grammar` subcommand exposes (fetch sources, build .so, or both via sync),
// translated from cargo-style build scripts to `git`/`cc` invocations the
// way _examples/Aureuma-si/tools/si/internal/vault/git.go shells out to git.
package grammar

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/rs/zerolog/log"
)

// Spec describes one grammar's upstream source.
type Spec struct {
	Name string `toml:"name"`
	Repo string `toml:"repo"`
	Rev  string `toml:"rev"`
	// Path is the subdirectory within Repo containing parser.c/scanner.c,
	// for multi-grammar repos (e.g. tree-sitter-typescript's typescript/ and
	// tsx/ subdirectories). Empty means the repo root.
	Path string `toml:"path"`
}

// Manifest is the on-disk grammars.toml listing every grammar tome knows
// how to fetch and build.
type Manifest struct {
	Grammars []Spec `toml:"grammar"`
}

// LoadManifest parses a grammars.toml file. A missing file is not an error;
// it yields an empty Manifest so a fresh config dir doesn't block startup.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return &m, nil
	}
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("grammar: decode manifest %s: %w", path, err)
	}
	return &m, nil
}

// DefaultManifest is the manifest shipped for languages known to the pack's
// highlight/syntax stack beyond the statically linked Go grammar.
func DefaultManifest() *Manifest {
	return &Manifest{Grammars: []Spec{
		{Name: "python", Repo: "https://github.com/tree-sitter/tree-sitter-python", Rev: "master"},
		{Name: "javascript", Repo: "https://github.com/tree-sitter/tree-sitter-javascript", Rev: "master"},
		{Name: "typescript", Repo: "https://github.com/tree-sitter/tree-sitter-typescript", Rev: "master", Path: "typescript"},
		{Name: "rust", Repo: "https://github.com/tree-sitter/tree-sitter-rust", Rev: "master"},
	}}
}

// Status reports one grammar's on-disk state relative to dir.
type Status struct {
	Name    string
	Fetched bool
	Built   bool
}

// Manager fetches and builds grammar sources under a root cache directory,
// one subdirectory per grammar name.
type Manager struct {
	dir      string
	manifest *Manifest
}

// NewManager returns a Manager rooted at dir (created by Fetch/Build as
// needed), working from manifest.
func NewManager(dir string, manifest *Manifest) *Manager {
	return &Manager{dir: dir, manifest: manifest}
}

func (m *Manager) sourceDir(name string) string { return filepath.Join(m.dir, name, "src") }
func (m *Manager) sharedLibPath(name string) string {
	return filepath.Join(m.dir, name, name+".so")
}

// selected filters m.manifest.Grammars to only, or returns all of them when
// only is empty.
func (m *Manager) selected(only []string) []Spec {
	if len(only) == 0 {
		return m.manifest.Grammars
	}
	want := make(map[string]bool, len(only))
	for _, n := range only {
		want[n] = true
	}
	var out []Spec
	for _, s := range m.manifest.Grammars {
		if want[s.Name] {
			out = append(out, s)
		}
	}
	return out
}

// Fetch clones (or, if already present, updates) each selected grammar's
// git repository into its source directory.
func (m *Manager) Fetch(ctx context.Context, only []string) error {
	for _, spec := range m.selected(only) {
		if err := m.fetchOne(ctx, spec); err != nil {
			return fmt.Errorf("grammar: fetch %s: %w", spec.Name, err)
		}
	}
	return nil
}

func (m *Manager) fetchOne(ctx context.Context, spec Spec) error {
	dst := m.sourceDir(spec.Name)
	if _, err := os.Stat(filepath.Join(dst, ".git")); err == nil {
		log.Info().Str("grammar", spec.Name).Msg("updating grammar source")
		if err := runGit(ctx, dst, "fetch", "--depth", "1", "origin", spec.Rev); err != nil {
			return err
		}
		return runGit(ctx, dst, "checkout", "FETCH_HEAD")
	}
	log.Info().Str("grammar", spec.Name).Str("repo", spec.Repo).Msg("cloning grammar source")
	if err := os.MkdirAll(filepath.Dir(dst), 0750); err != nil {
		return err
	}
	if err := runGit(ctx, "", "clone", "--depth", "1", "--branch", spec.Rev, spec.Repo, dst); err != nil {
		return err
	}
	return nil
}

// Build compiles each selected grammar's parser.c (and scanner.c, if
// present) into a position-independent shared library.
func (m *Manager) Build(ctx context.Context, only []string) error {
	for _, spec := range m.selected(only) {
		if err := m.buildOne(ctx, spec); err != nil {
			return fmt.Errorf("grammar: build %s: %w", spec.Name, err)
		}
	}
	return nil
}

func (m *Manager) buildOne(ctx context.Context, spec Spec) error {
	srcRoot := m.sourceDir(spec.Name)
	if spec.Path != "" {
		srcRoot = filepath.Join(srcRoot, spec.Path)
	}
	srcDir := filepath.Join(srcRoot, "src")
	parserC := filepath.Join(srcDir, "parser.c")
	if _, err := os.Stat(parserC); err != nil {
		return fmt.Errorf("parser.c not found, run fetch first: %w", err)
	}

	args := []string{"-fPIC", "-shared", "-O2", "-I", srcDir, "-o", m.sharedLibPath(spec.Name), parserC}
	if scannerC := filepath.Join(srcDir, "scanner.c"); fileExists(scannerC) {
		args = append(args, scannerC)
	} else if scannerCC := filepath.Join(srcDir, "scanner.cc"); fileExists(scannerCC) {
		args = append(args, scannerCC, "-lstdc++")
	}
	if err := os.MkdirAll(filepath.Dir(m.sharedLibPath(spec.Name)), 0750); err != nil {
		return err
	}
	log.Info().Str("grammar", spec.Name).Msg("building grammar shared library")
	return runCC(ctx, args...)
}

// Sync fetches and then builds each selected grammar.
func (m *Manager) Sync(ctx context.Context, only []string) error {
	if err := m.Fetch(ctx, only); err != nil {
		return err
	}
	return m.Build(ctx, only)
}

// StatusAll reports the on-disk fetch/build state of every grammar in the
// manifest.
func (m *Manager) StatusAll() []Status {
	out := make([]Status, 0, len(m.manifest.Grammars))
	for _, spec := range m.manifest.Grammars {
		out = append(out, Status{
			Name:    spec.Name,
			Fetched: fileExists(filepath.Join(m.sourceDir(spec.Name), "src", "parser.c")) || dirHasParser(m, spec),
			Built:   fileExists(m.sharedLibPath(spec.Name)),
		})
	}
	return out
}

func dirHasParser(m *Manager, spec Spec) bool {
	root := m.sourceDir(spec.Name)
	if spec.Path != "" {
		root = filepath.Join(root, spec.Path)
	}
	return fileExists(filepath.Join(root, "src", "parser.c"))
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func runGit(ctx context.Context, dir string, args ...string) error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found in PATH")
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

func runCC(ctx context.Context, args ...string) error {
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	if _, err := exec.LookPath(cc); err != nil {
		return fmt.Errorf("%s not found in PATH", cc)
	}
	cmd := exec.CommandContext(ctx, cc, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}
