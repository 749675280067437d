package invitation

import (
	"go.uber.org/fx"

	"github.com/groveworks/grove/internal/invitation/repository"
	"github.com/groveworks/grove/internal/invitation/service"
)

var Module = fx.Module("invitation.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
