package adapters

import (
	"errors"
	"sort"

	"github.com/kndndrj/priam/core"
)

var (
	errNoValidTypeAliases   = errors.New("no valid type aliases provided")
	ErrUnsupportedTypeAlias = errors.New("no adapter registered for provided type alias")
)

// Factory builds an adapter from a config.
type Factory func(cfg *Config, opts ...ClusterOption) (core.Adapter, error)

// registeredAdapters holds implemented adapters - specific adapters register themselves in their init functions.
var registeredAdapters = make(map[string]Factory)

// register registers a new adapter factory under aliases
func register(factory Factory, aliases ...string) error {
	if len(aliases) < 1 {
		return errNoValidTypeAliases
	}

	invalidCount := 0
	for _, alias := range aliases {
		if alias == "" {
			invalidCount++
			continue
		}
		registeredAdapters[alias] = factory
	}

	if invalidCount == len(aliases) {
		return errNoValidTypeAliases
	}

	return nil
}

func init() {
	// scylla speaks the same protocol
	_ = register(func(cfg *Config, opts ...ClusterOption) (core.Adapter, error) {
		cluster, err := NewClusterFromConfig(cfg, opts...)
		if err != nil {
			return nil, err
		}
		return cluster, nil
	}, "cassandra", "scylla", "scylladb")
}

// Mux is an interface to all internal adapters.
type Mux struct{}

// GetAdapter builds the adapter registered for cfg.Type.
func (*Mux) GetAdapter(cfg *Config, opts ...ClusterOption) (core.Adapter, error) {
	factory, ok := registeredAdapters[cfg.Type]
	if !ok {
		return nil, ErrUnsupportedTypeAlias
	}

	return factory(cfg, opts...)
}

func (*Mux) AddAdapter(typ string, factory Factory) error {
	return register(factory, typ)
}

// Types lists registered type aliases.
func (*Mux) Types() []string {
	types := make([]string, 0, len(registeredAdapters))
	for typ := range registeredAdapters {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
