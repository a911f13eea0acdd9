// Package notify delivers configuration change notifications to observers.
package notify

import (
	"sort"
	"sync"
)

// ChangeType identifies what happened to a setting.
type ChangeType int

const (
	// ChangeSet means a setting was added or changed.
	ChangeSet ChangeType = iota
	// ChangeDelete means a setting was removed.
	ChangeDelete
	// ChangeReload means the whole configuration was reloaded.
	ChangeReload
)

// String returns the change type name.
func (ct ChangeType) String() string {
	switch ct {
	case ChangeSet:
		return "set"
	case ChangeDelete:
		return "delete"
	case ChangeReload:
		return "reload"
	default:
		return "unknown"
	}
}

// Change describes one configuration change. Path is a dotted setting path
// such as "logging.level" or "keymap.undo"; it is empty for ChangeReload.
type Change struct {
	Path     string
	Type     ChangeType
	OldValue any
	NewValue any
	Source   string
}

// Observer receives changes.
type Observer func(Change)

// Subscription is returned by Subscribe and removes the observer on
// Unsubscribe.
type Subscription struct {
	id       uint64
	notifier *Notifier
	once     sync.Once
}

// Unsubscribe stops further deliveries. It is safe to call more than once.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() { s.notifier.unsubscribe(s.id) })
}

type entry struct {
	id   uint64
	path string
	obs  Observer
}

// Notifier fans changes out to observers synchronously, in subscription
// order. Observers run outside the notifier's lock and may subscribe or
// unsubscribe.
type Notifier struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []entry
}

// New creates an empty notifier.
func New() *Notifier {
	return &Notifier{}
}

// Subscribe registers an observer for every change.
func (n *Notifier) Subscribe(obs Observer) *Subscription {
	return n.SubscribePath("", obs)
}

// SubscribePath registers an observer for changes at path or beneath it
// ("keymap" matches "keymap.undo"). Reload events reach every observer.
func (n *Notifier) SubscribePath(path string, obs Observer) *Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	n.entries = append(n.entries, entry{id: n.nextID, path: path, obs: obs})
	return &Subscription{id: n.nextID, notifier: n}
}

// Len returns the number of observers.
func (n *Notifier) Len() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.entries)
}

// Notify delivers change to every matching observer.
func (n *Notifier) Notify(change Change) {
	n.mu.RLock()
	var matched []Observer
	for _, e := range n.entries {
		if change.Type == ChangeReload || matches(e.path, change.Path) {
			matched = append(matched, e.obs)
		}
	}
	n.mu.RUnlock()

	for _, obs := range matched {
		obs(change)
	}
}

// Publish delivers changes sorted by path, followed by a single reload
// event carrying source.
func (n *Notifier) Publish(source string, changes []Change) {
	sorted := append([]Change(nil), changes...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })
	for _, c := range sorted {
		if c.Source == "" {
			c.Source = source
		}
		n.Notify(c)
	}
	n.Notify(Change{Type: ChangeReload, Source: source})
}

func (n *Notifier) unsubscribe(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, e := range n.entries {
		if e.id == id {
			n.entries = append(n.entries[:i:i], n.entries[i+1:]...)
			return
		}
	}
}

// matches reports whether a subscription at path covers changed.
// e.g., "logging" covers "logging.level".
func matches(path, changed string) bool {
	if path == "" || path == changed {
		return true
	}
	return len(changed) > len(path) && changed[:len(path)] == path && changed[len(path)] == '.'
}
