// Package registry maps connector names to factories. Connectors register
// themselves from init functions; the CLI resolves them by name.
package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/cinemigrate/pkg/config"
	"github.com/ajitpratap0/cinemigrate/pkg/connector/core"
	"github.com/ajitpratap0/cinemigrate/pkg/etlerrors"
)

// SourceFactory opens a source connector from the run configuration.
type SourceFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.Source, error)

// DestinationFactory opens a destination connector from the run configuration.
type DestinationFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (core.Destination, error)

// ConnectorInfo describes a registered connector
type ConnectorInfo struct {
	Name        string             `json:"name"`
	Type        core.ConnectorType `json:"type"`
	Description string             `json:"description"`
}

// Registry manages connector registration and instantiation
type Registry struct {
	sources      map[string]SourceFactory
	destinations map[string]DestinationFactory
	info         map[core.ConnectorType]map[string]ConnectorInfo
	mu           sync.RWMutex
}

// Global registry instance
var globalRegistry = NewRegistry()

// NewRegistry creates a new connector registry
func NewRegistry() *Registry {
	return &Registry{
		sources:      make(map[string]SourceFactory),
		destinations: make(map[string]DestinationFactory),
		info: map[core.ConnectorType]map[string]ConnectorInfo{
			core.ConnectorTypeSource:      {},
			core.ConnectorTypeDestination: {},
		},
	}
}

// RegisterSource registers a source connector factory
func (r *Registry) RegisterSource(name, description string, factory SourceFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sources[name]; exists {
		return etlerrors.New(etlerrors.ErrorTypeConfig, fmt.Sprintf("source connector %s already registered", name))
	}

	r.sources[name] = factory
	r.info[core.ConnectorTypeSource][name] = ConnectorInfo{Name: name, Type: core.ConnectorTypeSource, Description: description}
	return nil
}

// RegisterDestination registers a destination connector factory
func (r *Registry) RegisterDestination(name, description string, factory DestinationFactory) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.destinations[name]; exists {
		return etlerrors.New(etlerrors.ErrorTypeConfig, fmt.Sprintf("destination connector %s already registered", name))
	}

	r.destinations[name] = factory
	r.info[core.ConnectorTypeDestination][name] = ConnectorInfo{Name: name, Type: core.ConnectorTypeDestination, Description: description}
	return nil
}

// CreateSource creates a source connector instance
func (r *Registry) CreateSource(ctx context.Context, name string, cfg *config.Config, logger *zap.Logger) (core.Source, error) {
	r.mu.RLock()
	factory, exists := r.sources[name]
	r.mu.RUnlock()

	if !exists {
		return nil, etlerrors.New(etlerrors.ErrorTypeConfig, fmt.Sprintf("source connector %s not found", name))
	}

	return factory(ctx, cfg, logger)
}

// CreateDestination creates a destination connector instance
func (r *Registry) CreateDestination(ctx context.Context, name string, cfg *config.Config, logger *zap.Logger) (core.Destination, error) {
	r.mu.RLock()
	factory, exists := r.destinations[name]
	r.mu.RUnlock()

	if !exists {
		return nil, etlerrors.New(etlerrors.ErrorTypeConfig, fmt.Sprintf("destination connector %s not found", name))
	}

	return factory(ctx, cfg, logger)
}

// ListSources returns registered source connectors sorted by name
func (r *Registry) ListSources() []ConnectorInfo {
	return r.list(core.ConnectorTypeSource)
}

// ListDestinations returns registered destination connectors sorted by name
func (r *Registry) ListDestinations() []ConnectorInfo {
	return r.list(core.ConnectorTypeDestination)
}

func (r *Registry) list(t core.ConnectorType) []ConnectorInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]ConnectorInfo, 0, len(r.info[t]))
	for _, info := range r.info[t] {
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// Global registry functions

// RegisterSource registers a source connector in the global registry
func RegisterSource(name, description string, factory SourceFactory) error {
	return globalRegistry.RegisterSource(name, description, factory)
}

// RegisterDestination registers a destination connector in the global registry
func RegisterDestination(name, description string, factory DestinationFactory) error {
	return globalRegistry.RegisterDestination(name, description, factory)
}

// CreateSource creates a source connector from the global registry
func CreateSource(ctx context.Context, name string, cfg *config.Config, logger *zap.Logger) (core.Source, error) {
	return globalRegistry.CreateSource(ctx, name, cfg, logger)
}

// CreateDestination creates a destination connector from the global registry
func CreateDestination(ctx context.Context, name string, cfg *config.Config, logger *zap.Logger) (core.Destination, error) {
	return globalRegistry.CreateDestination(ctx, name, cfg, logger)
}

// ListSources returns registered sources from the global registry
func ListSources() []ConnectorInfo {
	return globalRegistry.ListSources()
}

// ListDestinations returns registered destinations from the global registry
func ListDestinations() []ConnectorInfo {
	return globalRegistry.ListDestinations()
}
