package notify

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrNoNotifiers is returned by Registry.Send when nothing is registered.
var ErrNoNotifiers = errors.New("notify: no notifiers registered")

// Registry fans a message out to every registered channel.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds a notifier under name, replacing any previous one.
func (r *Registry) Register(name string, n Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifiers[name] = n
}

// Get returns the notifier registered under name.
func (r *Registry) Get(name string) (Notifier, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifiers[name]
	return n, ok
}

// Names lists registered channels in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Send delivers msg on every channel. A failing channel does not stop the
// others; all failures are joined into the returned error.
func (r *Registry) Send(ctx context.Context, msg Message) error {
	names := r.Names()
	if len(names) == 0 {
		return ErrNoNotifiers
	}

	var errs []error
	for _, name := range names {
		n, _ := r.Get(name)
		if err := n.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("notify.Registry.Send: %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
