package email

import "go.uber.org/fx"

var Module = fx.Module("providers.email",
	fx.Provide(NewLogSender),
)
