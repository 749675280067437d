package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	teamdomain "github.com/groveworks/grove/internal/team/domain"
)

type CreateTeamRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

type UpdateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type TeamMemberRequest struct {
	MembershipID string `json:"membership_id"`
}

func (s *Server) ListTeams(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	teams, err := s.teamSvc.List(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"teams": teams})
}

func (s *Server) CreateTeam(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req CreateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.teamSvc.Create(c.Request.Context(), userID, orgID, teamdomain.CreateTeamRequest{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, team)
}

func (s *Server) GetTeam(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	team, err := s.teamSvc.Get(c.Request.Context(), userID, orgID, teamID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, team)
}

func (s *Server) UpdateTeam(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req UpdateTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	team, err := s.teamSvc.Update(c.Request.Context(), userID, orgID, teamID, teamdomain.TeamPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, team)
}

func (s *Server) DeleteTeam(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.teamSvc.Delete(c.Request.Context(), userID, orgID, teamID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) AddTeamMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req TeamMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	membershipID, err := parseID(req.MembershipID)
	if err != nil {
		AbortWithError(c, newValidationError("membership_id", "invalid", "invalid membership id"))
		return
	}

	if err := s.teamSvc.AddMember(c.Request.Context(), userID, orgID, teamID, membershipID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) RemoveTeamMember(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	orgID, err := pathID(c, "orgId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	teamID, err := pathID(c, "teamId")
	if err != nil {
		AbortWithError(c, err)
		return
	}
	membershipID, err := pathID(c, "membershipId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.teamSvc.RemoveMember(c.Request.Context(), userID, orgID, teamID, membershipID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
