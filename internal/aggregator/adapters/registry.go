package adapters

import (
	"github.com/smallbiznis/ordersync/internal/aggregator/domain"
	"github.com/smallbiznis/ordersync/pkg/integration"
)

type Registry struct {
	factories map[integration.Provider]domain.Factory
}

func NewRegistry(factories ...domain.Factory) *Registry {
	registry := &Registry{factories: map[integration.Provider]domain.Factory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := factory.Provider()
		if !provider.IsAggregator() {
			continue
		}
		registry.factories[provider] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(provider integration.Provider) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[provider]
	return ok
}

func (r *Registry) NewAdapter(provider integration.Provider, cfg domain.AdapterConfig) (domain.Adapter, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	factory, ok := r.factories[provider]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return factory.NewAdapter(cfg)
}
