package source

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected source. A nil logger discards output.
type Factory func(*slog.Logger) Source

// Source types are matched case-insensitively: "SQLite" in a config file
// selects the "sqlite" source.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register makes a source type available to New. Driver packages call it
// from init, so importing a driver package for its side effect is enough to
// enable the matching source.type value. Registering a type again replaces
// its factory.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[strings.ToLower(name)] = factory
}

// New returns an unconnected source for cfg.Type; the caller connects it.
func New(cfg Config, logger *slog.Logger) (Source, error) {
	if cfg.Type == "" {
		return nil, fmt.Errorf("source type not specified")
	}

	registryMu.RLock()
	factory, ok := factories[strings.ToLower(cfg.Type)]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnknownSourceError{Type: cfg.Type, Available: List()}
	}
	return factory(logger), nil
}

// List returns the registered source types in sorted order.
func List() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered reports whether a source type can be created.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[strings.ToLower(name)]
	return ok
}

// UnknownSourceError reports a source.type no driver package registered.
type UnknownSourceError struct {
	Type      string
	Available []string
}

func (e *UnknownSourceError) Error() string {
	return fmt.Sprintf("unknown source type %q\nAvailable sources: %s\n"+
		"Hint: set source.type in leapexport.yaml, LEAPEXPORT_SOURCE__TYPE or --source-type",
		e.Type, strings.Join(e.Available, ", "))
}
