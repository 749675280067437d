package server

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	authdomain "github.com/groveworks/grove/internal/auth/domain"
	"github.com/groveworks/grove/internal/auth/session"
	"github.com/groveworks/grove/internal/authorization"
	"github.com/groveworks/grove/internal/config"
	orgdomain "github.com/groveworks/grove/internal/organization/domain"
)

type fakeAuthService struct {
	registerCalls int
	loginCalls    int
}

func (f *fakeAuthService) Register(ctx context.Context, req authdomain.RegisterRequest) (*authdomain.User, error) {
	f.registerCalls++
	_ = ctx
	return &authdomain.User{
		ID:    snowflake.ID(200),
		Email: req.Email,
	}, nil
}

func (f *fakeAuthService) Login(ctx context.Context, req authdomain.LoginRequest) (*authdomain.LoginResult, error) {
	f.loginCalls++
	_ = ctx
	return &authdomain.LoginResult{
		User:      &authdomain.User{ID: snowflake.ID(200), Email: req.Email},
		RawToken:  "session-token",
		ExpiresAt: time.Now().Add(time.Hour),
		SessionID: snowflake.ID(300),
	}, nil
}

func (f *fakeAuthService) Logout(ctx context.Context, rawToken string) error {
	_ = ctx
	_ = rawToken
	return nil
}

func (f *fakeAuthService) Authenticate(ctx context.Context, rawToken string) (*authdomain.Session, error) {
	_ = ctx
	_ = rawToken
	return &authdomain.Session{UserID: snowflake.ID(200)}, nil
}

func (f *fakeAuthService) Refresh(ctx context.Context, rawToken string) (*authdomain.LoginResult, error) {
	_ = ctx
	_ = rawToken
	return nil, authdomain.ErrSessionNotFound
}

func (f *fakeAuthService) GetUser(ctx context.Context, userID snowflake.ID) (*authdomain.User, error) {
	_ = ctx
	return &authdomain.User{ID: userID}, nil
}

func (f *fakeAuthService) UpdateProfile(ctx context.Context, userID snowflake.ID, patch authdomain.ProfilePatch) (*authdomain.User, error) {
	_ = ctx
	_ = patch
	return &authdomain.User{ID: userID}, nil
}

func (f *fakeAuthService) ChangePassword(ctx context.Context, userID snowflake.ID, currentPassword, newPassword string) error {
	_ = ctx
	_ = userID
	_ = currentPassword
	_ = newPassword
	return nil
}

type fakeOrganizationService struct {
	getErr    error
	createErr error
	updateErr error
	org       *orgdomain.OrganizationResponse
}

func newFakeOrganizationService() *fakeOrganizationService {
	return &fakeOrganizationService{
		org: &orgdomain.OrganizationResponse{
			ID:   snowflake.ID(100).String(),
			Name: "Acme",
			Slug: "acme",
			Plan: "free",
		},
	}
}

func (f *fakeOrganizationService) List(ctx context.Context, userID snowflake.ID) ([]orgdomain.OrganizationWithRole, error) {
	_ = ctx
	_ = userID
	return nil, nil
}

func (f *fakeOrganizationService) Create(ctx context.Context, userID snowflake.ID, req orgdomain.CreateOrganizationRequest) (*orgdomain.OrganizationResponse, error) {
	_ = ctx
	_ = userID
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.org.Name = req.Name
	return f.org, nil
}

func (f *fakeOrganizationService) Get(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.OrganizationResponse, error) {
	_ = ctx
	_ = userID
	_ = orgID
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.org, nil
}

func (f *fakeOrganizationService) Update(ctx context.Context, userID, orgID snowflake.ID, patch orgdomain.OrganizationPatch) (*orgdomain.OrganizationResponse, error) {
	_ = ctx
	_ = userID
	_ = orgID
	_ = patch
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return f.org, nil
}

func (f *fakeOrganizationService) Delete(ctx context.Context, userID, orgID snowflake.ID) error {
	_ = ctx
	_ = userID
	_ = orgID
	return nil
}

func (f *fakeOrganizationService) GetSettings(ctx context.Context, userID, orgID snowflake.ID) (*orgdomain.OrganizationSettings, error) {
	_ = ctx
	_ = userID
	_ = orgID
	return &orgdomain.OrganizationSettings{DefaultMemberRole: orgdomain.RoleMember}, nil
}

func (f *fakeOrganizationService) UpdateSettings(ctx context.Context, userID, orgID snowflake.ID, patch orgdomain.SettingsPatch) (*orgdomain.OrganizationSettings, error) {
	_ = ctx
	_ = userID
	_ = orgID
	_ = patch
	return &orgdomain.OrganizationSettings{DefaultMemberRole: orgdomain.RoleMember}, nil
}

func newTestRouter(srv *Server) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.Use(func(c *gin.Context) {
		c.Set(contextUserIDKey, snowflake.ID(200))
		c.Next()
	})
	router.GET("/organizations/:orgId", srv.GetOrganization)
	router.POST("/organizations", srv.CreateOrganization)
	router.PATCH("/organizations/:orgId", srv.UpdateOrganization)
	return router
}

func TestRegisterHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authsvc := &fakeAuthService{}
	srv := &Server{authsvc: authsvc, sessions: session.NewManager(config.Config{})}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/auth/register", srv.Register)

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(`{"email":"alice@example.com","password":"strong-password"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", resp.Code)
	}
	if authsvc.registerCalls != 1 {
		t.Fatalf("expected one register call, got %d", authsvc.registerCalls)
	}
}

func TestLoginSetsSessionCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)

	authsvc := &fakeAuthService{}
	srv := &Server{authsvc: authsvc, sessions: session.NewManager(config.Config{})}

	router := gin.New()
	router.Use(ErrorHandlingMiddleware())
	router.POST("/auth/login", srv.Login)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"alice@example.com","password":"strong-password"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var found bool
	for _, cookie := range resp.Result().Cookies() {
		if cookie.Name == session.DefaultCookieName && cookie.Value == "session-token" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected session cookie set")
	}
}

func TestOrganizationNotFoundMapsTo404(t *testing.T) {
	orgsvc := newFakeOrganizationService()
	orgsvc.getErr = orgdomain.ErrOrganizationNotFound
	srv := &Server{organizationSvc: orgsvc}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/organizations/123", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestUnparsableOrgIDMapsTo404(t *testing.T) {
	srv := &Server{organizationSvc: newFakeOrganizationService()}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodGet, "/organizations/not-a-snowflake", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", resp.Code)
	}
}

func TestSlugTakenMapsTo400(t *testing.T) {
	orgsvc := newFakeOrganizationService()
	orgsvc.createErr = orgdomain.ErrSlugTaken
	srv := &Server{organizationSvc: orgsvc}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/organizations", bytes.NewBufferString(`{"name":"Acme","slug":"acme"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}

func TestAdminRequiredMapsTo403(t *testing.T) {
	orgsvc := newFakeOrganizationService()
	orgsvc.updateErr = authorization.ErrAdminRequired
	srv := &Server{organizationSvc: orgsvc}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPatch, "/organizations/123", bytes.NewBufferString(`{"name":"Acme"}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", resp.Code)
	}
}

func TestInvalidNameMapsTo400(t *testing.T) {
	orgsvc := newFakeOrganizationService()
	orgsvc.createErr = orgdomain.ErrInvalidName
	srv := &Server{organizationSvc: orgsvc}
	router := newTestRouter(srv)

	req := httptest.NewRequest(http.MethodPost, "/organizations", bytes.NewBufferString(`{"name":""}`))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", resp.Code)
	}
}
