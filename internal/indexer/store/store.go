// Package store lays out index generations on disk. Every build writes a new
// generation directory; a build only becomes visible once the CURRENT pointer
// file is atomically replaced to name it.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/corpus-search/pkg/logger"
)

const (
	currentFile  = "CURRENT"
	manifestFile = "manifest.json"
	genPrefix    = "gen-"
	pendingExt   = ".building"
)

// Manifest describes a committed generation.
type Manifest struct {
	Generation string    `json:"generation"`
	Backend    string    `json:"backend"`
	Fields     []string  `json:"fields"`
	DocCount   int       `json:"doc_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store manages generation directories under a root directory.
type Store struct {
	root   string
	keep   int
	logger *slog.Logger
	now    func() time.Time
}

// New returns a Store rooted at root that keeps keep superseded generations
// after each commit.
func New(root string, keep int) *Store {
	if keep < 0 {
		keep = 0
	}
	return &Store{
		root:   root,
		keep:   keep,
		logger: logger.WithComponent("index-store"),
		now:    time.Now,
	}
}

// Pending is a generation being built. It is invisible to Current until
// Commit succeeds.
type Pending struct {
	store *Store
	name  string
	dir   string
	done  bool
}

// Begin creates an empty pending generation directory.
func (s *Store) Begin() (*Pending, error) {
	if err := os.MkdirAll(s.root, 0755); err != nil {
		return nil, fmt.Errorf("creating index root: %w", err)
	}
	name := fmt.Sprintf("%s%d", genPrefix, s.now().UnixNano())
	dir := filepath.Join(s.root, name+pendingExt)
	if err := os.Mkdir(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating pending generation: %w", err)
	}
	return &Pending{store: s, name: name, dir: dir}, nil
}

// Name is the generation name the build will publish under.
func (p *Pending) Name() string { return p.name }

// Dir is where backends write their files.
func (p *Pending) Dir() string { return p.dir }

// Commit writes the manifest, moves the generation into place, repoints
// CURRENT at it and prunes generations beyond the keep limit.
func (p *Pending) Commit(m Manifest) error {
	if p.done {
		return errors.New("pending generation already finished")
	}
	m.Generation = p.name
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(p.dir, manifestFile), data, 0644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	final := filepath.Join(p.store.root, p.name)
	if err := os.Rename(p.dir, final); err != nil {
		return fmt.Errorf("publishing generation: %w", err)
	}
	p.dir = final
	if err := p.store.setCurrent(p.name); err != nil {
		return err
	}
	p.done = true
	p.store.logger.Info("generation committed", "generation", p.name, "docs", m.DocCount, "backend", m.Backend)
	if err := p.store.prune(p.name); err != nil {
		p.store.logger.Warn("pruning old generations failed", "error", err)
	}
	return nil
}

// Abort removes the pending generation. It is a no-op after Commit.
func (p *Pending) Abort() error {
	if p.done {
		return nil
	}
	p.done = true
	if err := os.RemoveAll(p.dir); err != nil {
		return fmt.Errorf("removing pending generation: %w", err)
	}
	return nil
}

func (s *Store) setCurrent(name string) error {
	path := filepath.Join(s.root, currentFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(name+"\n"), 0644); err != nil {
		return fmt.Errorf("writing current pointer: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing current pointer: %w", err)
	}
	return nil
}

// Current returns the manifest and directory of the published generation.
// It fails with ErrIndexNotFound when nothing has been committed.
func (s *Store) Current() (Manifest, string, error) {
	data, err := os.ReadFile(filepath.Join(s.root, currentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, "", fmt.Errorf("no index at %s: %w", s.root, apperrors.ErrIndexNotFound)
		}
		return Manifest{}, "", fmt.Errorf("reading current pointer: %w", err)
	}
	name := strings.TrimSpace(string(data))
	dir := filepath.Join(s.root, name)
	raw, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return Manifest{}, "", fmt.Errorf("generation %s has no manifest: %w", name, apperrors.ErrIndexNotFound)
		}
		return Manifest{}, "", fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return Manifest{}, "", fmt.Errorf("parsing manifest: %w", err)
	}
	return m, dir, nil
}

// Generations lists committed generation names, oldest first.
func (s *Store) Generations() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index root: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), genPrefix) && !strings.HasSuffix(e.Name(), pendingExt) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// prune deletes committed generations older than current beyond the keep
// limit, along with any abandoned pending directories.
func (s *Store) prune(current string) error {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() && strings.HasSuffix(e.Name(), pendingExt) {
			if err := os.RemoveAll(filepath.Join(s.root, e.Name())); err != nil {
				return err
			}
		}
	}
	gens, err := s.Generations()
	if err != nil {
		return err
	}
	var older []string
	for _, g := range gens {
		if g != current {
			older = append(older, g)
		}
	}
	if len(older) <= s.keep {
		return nil
	}
	for _, g := range older[:len(older)-s.keep] {
		if err := os.RemoveAll(filepath.Join(s.root, g)); err != nil {
			return err
		}
		s.logger.Debug("generation removed", "generation", g)
	}
	return nil
}
