package carriers

import (
	"fmt"
	"strings"
)

// Registry holds carrier targets in registration order.
type Registry struct {
	targets map[string]*Target
	order   []string
}

// NewRegistry creates a registry with the built-in carriers.
func NewRegistry() *Registry {
	r := &Registry{targets: make(map[string]*Target)}
	for _, t := range []*Target{USPS(), SeventeenTrack(), FedEx()} {
		if err := r.Register(t); err != nil {
			panic(fmt.Sprintf("built-in carrier %s: %v", t.Name, err))
		}
	}
	return r
}

// Register adds a target. Names are case-insensitive and must be unique.
func (r *Registry) Register(t *Target) error {
	if t == nil {
		return fmt.Errorf("carrier target is nil")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	key := strings.ToLower(t.Name)
	if _, exists := r.targets[key]; exists {
		return fmt.Errorf("carrier %q already registered", t.Name)
	}
	r.targets[key] = t
	r.order = append(r.order, key)
	return nil
}

// Get returns a copy of the named target so callers can adjust it for a run.
func (r *Registry) Get(name string) (*Target, error) {
	t, ok := r.targets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownCarrier, name, strings.Join(r.Names(), ", "))
	}

	cp := *t
	cp.Selectors = append(cp.Selectors[:0:0], t.Selectors...)
	return &cp, nil
}

// Names returns the registered carrier names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Targets returns all registered targets in registration order.
func (r *Registry) Targets() []*Target {
	out := make([]*Target, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.targets[name])
	}
	return out
}
