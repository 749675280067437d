package member

import (
	"go.uber.org/fx"

	"github.com/groveworks/grove/internal/member/repository"
	"github.com/groveworks/grove/internal/member/service"
)

var Module = fx.Module("member.service",
	fx.Provide(repository.New),
	fx.Provide(service.New),
)
