package sources

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds every registered connector keyed by source key. The
// aggregator depends only on the Connector interface through it.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

func NewRegistry() *Registry {
	return &Registry{connectors: map[string]Connector{}}
}

func (r *Registry) Register(connector Connector) error {
	if connector == nil {
		return fmt.Errorf("connector is nil")
	}

	key := connector.Source().Key
	if key == "" {
		return fmt.Errorf("connector source key is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.connectors[key]; exists {
		return fmt.Errorf("connector %q already registered", key)
	}

	r.connectors[key] = connector
	return nil
}

func (r *Registry) Get(key string) (Connector, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connector, ok := r.connectors[key]
	return connector, ok
}

// All returns every connector sorted by source key.
func (r *Registry) All() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Connector, 0, len(r.connectors))
	for _, connector := range r.connectors {
		items = append(items, connector)
	}
	sortConnectors(items)
	return items
}

// Scraped returns the connectors without a structured API, sorted by key.
func (r *Registry) Scraped() []Connector {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Connector, 0, len(r.connectors))
	for _, connector := range r.connectors {
		if !connector.Source().HasAPI {
			items = append(items, connector)
		}
	}
	sortConnectors(items)
	return items
}

// List returns the source descriptors sorted by key, for UI labeling.
func (r *Registry) List() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]Source, 0, len(r.connectors))
	for _, connector := range r.connectors {
		items = append(items, connector.Source())
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].Key < items[j].Key
	})
	return items
}

func sortConnectors(items []Connector) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Source().Key < items[j].Source().Key
	})
}
