package sindex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jward/sindex/internal/store"
)

// slotState tracks what the registry knows about a frontend stream.
type slotState uint8

const (
	slotFresh   slotState = iota // stream not yet resolved
	slotFile                     // resolved to a file id
	slotIgnored                  // outside the project root, contributes nothing
)

type slot struct {
	state slotState
	id    int64
}

// fileRegistry maps the frontend's stream numbers to file ids, creating
// or invalidating file records on first contact with each stream. Slots
// grow lazily as the frontend reveals more streams and never shrink
// during a run.
type fileRegistry struct {
	root  string
	store *store.Store
	slots []slot
}

// ensure resolves a stream to its file id. The second return is false for
// ignored streams. The lookup / delete-if-stale / insert sequence runs
// inside the store's write transaction (see store.EnsureFile); the stat
// that supplies the mtime happens before that transaction begins.
func (r *fileRegistry) ensure(path string, stream int) (int64, bool, error) {
	for stream >= len(r.slots) {
		r.slots = append(r.slots, slot{})
	}
	switch r.slots[stream].state {
	case slotFile:
		return r.slots[stream].id, true, nil
	case slotIgnored:
		return 0, false, nil
	}

	fi, err := os.Stat(path)
	if err != nil {
		return 0, false, fmt.Errorf("stat %s: %w", path, err)
	}
	if !fi.Mode().IsRegular() {
		r.slots[stream].state = slotIgnored
		return 0, false, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return 0, false, fmt.Errorf("resolve %s: %w", path, err)
	}
	real, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return 0, false, fmt.Errorf("resolve %s: %w", path, err)
	}
	if !strings.HasPrefix(real, r.root+string(filepath.Separator)) {
		r.slots[stream].state = slotIgnored
		return 0, false, nil
	}

	rel, err := filepath.Rel(r.root, real)
	if err != nil {
		return 0, false, fmt.Errorf("resolve %s: %w", path, err)
	}
	id, err := r.store.EnsureFile(rel, fi.ModTime().Unix())
	if err != nil {
		return 0, false, err
	}
	r.slots[stream] = slot{state: slotFile, id: id}
	return id, true, nil
}
