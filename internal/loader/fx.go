package loader

import "go.uber.org/fx"

var Module = fx.Module("loader",
	fx.Provide(New),
)
