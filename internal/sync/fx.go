package sync

import (
	"github.com/smallbiznis/ordersync/internal/sync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sync.service",
	fx.Provide(service.New),
)
