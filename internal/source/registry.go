package source

// Registry holds adapters in registration order; the orchestrator processes
// sources in this order on every run.
type Registry struct {
	adapters []Adapter
	byName   map[string]Adapter
}

// NewRegistry creates a registry with the given adapters, preserving order.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{byName: make(map[string]Adapter, len(adapters))}
	for _, a := range adapters {
		r.adapters = append(r.adapters, a)
		r.byName[a.Name()] = a
	}
	return r
}

// All returns the adapters in registration order.
func (r *Registry) All() []Adapter {
	return r.adapters
}

// Get returns the adapter with the given name, or nil.
func (r *Registry) Get(name string) Adapter {
	return r.byName[name]
}

// Names returns the source names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return names
}

// Select returns the adapters matching names, in registration order.
// An empty names list selects everything.
func (r *Registry) Select(names []string) []Adapter {
	if len(names) == 0 {
		return r.adapters
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []Adapter
	for _, a := range r.adapters {
		if want[a.Name()] {
			out = append(out, a)
		}
	}
	return out
}
