package aggregator

import (
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters"
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters/pedidosya"
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters/rappi"
	"github.com/smallbiznis/ordersync/internal/aggregator/adapters/uber"
	"go.uber.org/fx"
)

var Module = fx.Module("aggregator.adapters",
	fx.Provide(func() *adapters.Registry {
		return adapters.NewRegistry(
			uber.NewFactory(),
			rappi.NewFactory(),
			pedidosya.NewFactory(),
		)
	}),
)
