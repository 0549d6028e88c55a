package tracker

import (
	"sort"
	"sync"
	"time"

	"code.cloudfoundry.org/clock"
	"k8s.io/klog/v2"
)

// Entry is a volume this run unmounted and has not yet remounted
type Entry struct {
	// ID is the host volume identifier
	ID string `json:"id"`

	// UnmountedAt is when the unmount succeeded
	UnmountedAt time.Time `json:"unmountedAt"`

	// Stranded is set once a remount attempt failed
	Stranded bool `json:"stranded"`

	remounting bool
}

// Persister stores the registered set after every mutation
type Persister interface {
	Save(entries []Entry) error
}

// Tracker is the set of volumes the run must put back. It is safe for
// concurrent use.
type Tracker struct {
	// mu protects entries
	mu sync.RWMutex

	entries map[string]*Entry

	clock     clock.Clock
	persister Persister
}

// New creates an empty Tracker. persister may be nil for in-memory only.
func New(clk clock.Clock, persister Persister) *Tracker {
	return &Tracker{
		entries:   make(map[string]*Entry),
		clock:     clk,
		persister: persister,
	}
}

// Register records that id was unmounted by this run. Call it only after the
// unmount succeeded. Registering an already tracked id keeps the original entry.
func (t *Tracker) Register(id string) {
	t.mu.Lock()
	if _, exists := t.entries[id]; exists {
		t.mu.Unlock()
		klog.V(2).Infof("Volume %s already registered for remount", id)
		return
	}
	t.entries[id] = &Entry{ID: id, UnmountedAt: t.clock.Now()}
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	klog.V(2).Infof("Registered %s for remount", id)
	t.persist(snapshot)
}

// Release removes id after a successful remount. Unknown ids are ignored.
func (t *Tracker) Release(id string) {
	t.mu.Lock()
	if _, exists := t.entries[id]; !exists {
		t.mu.Unlock()
		klog.V(2).Infof("Volume %s not registered, nothing to release", id)
		return
	}
	delete(t.entries, id)
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	klog.V(2).Infof("Released %s", id)
	t.persist(snapshot)
}

// BeginRemount claims the remount of a pending id. It returns false when id is
// not registered, already stranded, or claimed by another caller, so each
// volume is remounted at most once.
func (t *Tracker) BeginRemount(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, exists := t.entries[id]
	if !exists || e.Stranded || e.remounting {
		return false
	}
	e.remounting = true
	return true
}

// MarkStranded records a failed remount. The id stays registered.
func (t *Tracker) MarkStranded(id string) {
	t.mu.Lock()
	entry, exists := t.entries[id]
	if !exists {
		entry = &Entry{ID: id, UnmountedAt: t.clock.Now()}
		t.entries[id] = entry
	}
	entry.Stranded = true
	entry.remounting = false
	snapshot := t.snapshotLocked()
	t.mu.Unlock()

	klog.V(2).Infof("Marked %s stranded", id)
	t.persist(snapshot)
}

// Pending returns registered ids with no remount attempted yet, sorted
func (t *Tracker) Pending() []string {
	return t.ids(func(e *Entry) bool { return !e.Stranded && !e.remounting })
}

// Stranded returns registered ids whose remount failed, sorted
func (t *Tracker) Stranded() []string {
	return t.ids(func(e *Entry) bool { return e.Stranded })
}

// List returns every registered id, sorted
func (t *Tracker) List() []string {
	return t.ids(func(*Entry) bool { return true })
}

// Len returns the number of registered volumes
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

func (t *Tracker) ids(keep func(*Entry) bool) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ids := make([]string, 0, len(t.entries))
	for id, e := range t.entries {
		if keep(e) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// snapshotLocked copies the entries sorted by id. Caller must hold mu.
func (t *Tracker) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		entry := *e
		entry.remounting = false
		out = append(out, entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// persist failures never block the state change; they only lose crash recovery
func (t *Tracker) persist(entries []Entry) {
	if t.persister == nil {
		return
	}
	if err := t.persister.Save(entries); err != nil {
		klog.Warningf("Failed to persist remount state: %v", err)
		return
	}
	klog.V(4).Infof("Persisted %d tracked volumes", len(entries))
}
