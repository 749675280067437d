package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/groveworks/grove/internal/auth"
	authdomain "github.com/groveworks/grove/internal/auth/domain"
	"github.com/groveworks/grove/internal/auth/session"
	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/config"
	"github.com/groveworks/grove/internal/invitation"
	invitationdomain "github.com/groveworks/grove/internal/invitation/domain"
	"github.com/groveworks/grove/internal/member"
	memberdomain "github.com/groveworks/grove/internal/member/domain"
	obsmetrics "github.com/groveworks/grove/internal/observability/metrics"
	"github.com/groveworks/grove/internal/organization"
	organizationdomain "github.com/groveworks/grove/internal/organization/domain"
	"github.com/groveworks/grove/internal/providers/email"
	"github.com/groveworks/grove/internal/team"
	teamdomain "github.com/groveworks/grove/internal/team/domain"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(obsmetrics.HTTP),
	authorization.Module,
	auth.Module,
	session.Module,
	email.Module,
	organization.Module,
	team.Module,
	member.Module,
	invitation.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	authsvc         authdomain.Service
	sessions        *session.Manager
	genID           *snowflake.Node
	authz           *authorization.Evaluator
	organizationSvc organizationdomain.Service
	teamSvc         teamdomain.Service
	memberSvc       memberdomain.Service
	invitationSvc   invitationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Authsvc         authdomain.Service
	Sessions        *session.Manager
	GenID           *snowflake.Node
	Authz           *authorization.Evaluator
	OrganizationSvc organizationdomain.Service
	TeamSvc         teamdomain.Service
	MemberSvc       memberdomain.Service
	InvitationSvc   invitationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		authsvc:         p.Authsvc,
		sessions:        p.Sessions,
		genID:           p.GenID,
		authz:           p.Authz,
		organizationSvc: p.OrganizationSvc,
		teamSvc:         p.TeamSvc,
		memberSvc:       p.MemberSvc,
		invitationSvc:   p.InvitationSvc,
	}

	svc.registerAuthRoutes()
	svc.registerOrganizationRoutes()
	svc.registerInvitationRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")

	auth.POST("/register", s.Register)
	auth.POST("/login", s.Login)
	auth.POST("/logout", s.Logout)
	auth.POST("/refresh", s.Refresh)
	auth.GET("/me", s.AuthRequired(), s.Me)
	auth.PATCH("/me", s.AuthRequired(), s.UpdateProfile)
	auth.POST("/change-password", s.AuthRequired(), s.ChangePassword)
}

func (s *Server) registerOrganizationRoutes() {
	orgs := s.engine.Group("/organizations", s.AuthRequired())

	orgs.GET("", s.ListOrganizations)
	orgs.POST("", s.CreateOrganization)

	org := orgs.Group("/:orgId")
	{
		org.GET("", s.GetOrganization)
		org.PATCH("", s.UpdateOrganization)
		org.DELETE("", s.authorizeOrgAction(authorization.ObjectOrganization, authorization.ActionDelete), s.DeleteOrganization)
		org.GET("/settings", s.GetOrganizationSettings)
		org.PATCH("/settings", s.UpdateOrganizationSettings)

		org.GET("/teams", s.ListTeams)
		org.POST("/teams", s.CreateTeam)
		org.GET("/teams/:teamId", s.GetTeam)
		org.PATCH("/teams/:teamId", s.UpdateTeam)
		org.DELETE("/teams/:teamId", s.DeleteTeam)
		org.POST("/teams/:teamId/members", s.AddTeamMember)
		org.DELETE("/teams/:teamId/members/:membershipId", s.RemoveTeamMember)

		org.GET("/members", s.ListMembers)
		org.GET("/members/:membershipId", s.GetMember)
		org.PATCH("/members/:membershipId", s.UpdateMember)
		org.DELETE("/members/:membershipId", s.RemoveMember)
		org.POST("/leave", s.LeaveOrganization)
		org.POST("/transfer-ownership", s.authorizeOrgAction(authorization.ObjectMember, authorization.ActionTransfer), s.TransferOwnership)

		org.GET("/invitations", s.ListOrgInvitations)
		org.POST("/invitations", s.CreateInvitation)
		org.POST("/invitations/bulk", s.BulkCreateInvitations)
		org.DELETE("/invitations/:invitationId", s.RevokeInvitation)
		org.POST("/invitations/:invitationId/resend", s.ResendInvitation)
	}
}

func (s *Server) registerInvitationRoutes() {
	invites := s.engine.Group("/invitations", s.AuthRequired())

	invites.GET("", s.ListMyInvitations)
	invites.POST("/:token/accept", s.AcceptInvitation)
	invites.POST("/:token/decline", s.DeclineInvitation)
}
