package loyverse

import "go.uber.org/fx"

var Module = fx.Module("pos.loyverse",
	fx.Provide(NewFactory),
)
