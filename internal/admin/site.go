// Package admin provides the data-entry site for dynamically registered models.
//
// Registrations are keyed by table name. Every upload builds a new model
// value for the same table, so replacing a registration means finding it by
// table name, not by model identity. After each change the site rebuilds its
// routes and swaps them in, so new pages are reachable on the next request.
package admin

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/JonMunkholm/schemadmin/internal/core"
	"github.com/go-chi/chi/v5"
)

// Prefix is the path the site is mounted under.
const Prefix = "/admin"

var (
	// ErrAlreadyRegistered is returned by Register for a table that already has a registration.
	ErrAlreadyRegistered = errors.New("model already registered")

	// ErrNotRegistered is returned by Unregister for an unknown table.
	ErrNotRegistered = errors.New("model not registered")
)

// ModelAdmin customizes how a model is presented. A nil *ModelAdmin means defaults.
type ModelAdmin struct {
	// ListDisplay names the fields shown on the change list. Empty shows all fields.
	ListDisplay []string

	// ListTitle overrides the model title on the change list.
	ListTitle string
}

// Registration associates a model with its presentation options.
type Registration struct {
	Model *core.Model
	Admin *ModelAdmin
}

// Site is an admin site: a registry of models plus the handler serving their pages.
type Site struct {
	rows core.RowStore

	mu             sync.RWMutex
	registry       map[string]Registration
	customizations map[string]*ModelAdmin

	routes     atomic.Pointer[chi.Mux]
	generation atomic.Int64
}

// NewSite creates an empty site whose pages read and write rows through rows.
func NewSite(rows core.RowStore) *Site {
	s := &Site{
		rows:           rows,
		registry:       make(map[string]Registration),
		customizations: make(map[string]*ModelAdmin),
	}
	s.reload()
	return s
}

// Register adds a model. Fails with ErrAlreadyRegistered if its table is taken.
func (s *Site) Register(m *core.Model, ma *ModelAdmin) error {
	s.mu.Lock()
	if _, exists := s.registry[m.Table]; exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, m.Table)
	}
	s.registry[m.Table] = Registration{Model: m, Admin: ma}
	s.mu.Unlock()

	s.reload()
	return nil
}

// Unregister removes the registration for a table.
func (s *Site) Unregister(table string) error {
	s.mu.Lock()
	if _, exists := s.registry[table]; !exists {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotRegistered, table)
	}
	delete(s.registry, table)
	s.mu.Unlock()

	s.reload()
	return nil
}

// Reregister installs m, replacing any registration that uses the same table name.
func (s *Site) Reregister(m *core.Model, ma *ModelAdmin) {
	s.mu.Lock()
	for table, reg := range s.registry {
		if reg.Model.Table == m.Table {
			delete(s.registry, table)
		}
	}
	s.mu.Unlock()

	// The lookup above already removed it; this only cleans up a stray entry.
	if err := s.Unregister(m.Table); err != nil && !errors.Is(err, ErrNotRegistered) {
		slog.Warn("admin: unregister failed", "table", m.Table, "error", err)
	}

	if err := s.Register(m, ma); err != nil {
		// Another writer registered the table in between; last writer wins.
		s.mu.Lock()
		s.registry[m.Table] = Registration{Model: m, Admin: ma}
		s.mu.Unlock()
		s.reload()
	}
}

// Customize sets the presentation options Replace uses for a table.
func (s *Site) Customize(table string, ma *ModelAdmin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customizations[table] = ma
}

// Replace re-registers m with the options set by Customize, if any.
// It implements core.Registry.
func (s *Site) Replace(m *core.Model) {
	s.mu.RLock()
	ma := s.customizations[m.Table]
	s.mu.RUnlock()

	s.Reregister(m, ma)
}

// Lookup returns the registration for a table.
func (s *Site) Lookup(table string) (Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registry[table]
	return reg, ok
}

// Registrations returns every registration sorted by table name.
func (s *Site) Registrations() []Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Registration, 0, len(s.registry))
	for _, reg := range s.registry {
		result = append(result, reg)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Model.Table < result[j].Model.Table
	})

	return result
}

// Models returns the registered models sorted by table name.
// It implements core.Registry.
func (s *Site) Models() []*core.Model {
	regs := s.Registrations()
	models := make([]*core.Model, len(regs))
	for i, reg := range regs {
		models[i] = reg.Model
	}
	return models
}

// Generation counts route reloads.
func (s *Site) Generation() int64 {
	return s.generation.Load()
}

// ServeHTTP serves the current route table.
func (s *Site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.routes.Load().ServeHTTP(w, r)
}

// reload rebuilds the routes from the current registry and swaps them in.
// Requests already in flight finish on the previous router.
func (s *Site) reload() {
	regs := s.Registrations()

	r := chi.NewRouter()
	r.Get("/", s.handleIndex)
	for _, reg := range regs {
		v := &modelView{site: s, table: reg.Model.Table}
		r.Route("/"+reg.Model.Table, v.routes)
	}

	s.routes.Store(r)
	gen := s.generation.Add(1)
	slog.Debug("admin: routes reloaded", "generation", gen, "models", len(regs))
}
