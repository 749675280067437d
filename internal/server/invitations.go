package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	invitationdomain "github.com/groveworks/grove/internal/invitation/domain"
)

type CreateInvitationRequest struct {
	Email   string   `json:"email"`
	Role    string   `json:"role"`
	Message string   `json:"message"`
	TeamIDs []string `json:"team_ids"`
}

type BulkInvitationRequest struct {
	Emails  []string `json:"emails"`
	Role    string   `json:"role"`
	Message string   `json:"message"`
	TeamIDs []string `json:"team_ids"`
}

func (s *Server) CreateInvitation(c *gin.Context) {
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

	var req CreateInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	teamIDs, err := parseIDs(req.TeamIDs)
	if err != nil {
		AbortWithError(c, newValidationError("team_ids", "invalid", "invalid team id"))
		return
	}

	inv, err := s.invitationSvc.Create(c.Request.Context(), userID, orgID, invitationdomain.CreateInvitationRequest{
		Email:   req.Email,
		Role:    req.Role,
		Message: req.Message,
		TeamIDs: teamIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, inv)
}

func (s *Server) BulkCreateInvitations(c *gin.Context) {
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

	var req BulkInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	teamIDs, err := parseIDs(req.TeamIDs)
	if err != nil {
		AbortWithError(c, newValidationError("team_ids", "invalid", "invalid team id"))
		return
	}

	result, err := s.invitationSvc.BulkCreate(c.Request.Context(), userID, orgID, invitationdomain.BulkInvitationRequest{
		Emails:  req.Emails,
		Role:    req.Role,
		Message: req.Message,
		TeamIDs: teamIDs,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) ListOrgInvitations(c *gin.Context) {
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

	invs, err := s.invitationSvc.ListPending(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invs})
}

func (s *Server) ListMyInvitations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	invs, err := s.invitationSvc.ListMine(c.Request.Context(), userID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invitations": invs})
}

func (s *Server) AcceptInvitation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.invitationSvc.Accept(c.Request.Context(), userID, c.Param("token"))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) DeclineInvitation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	if err := s.invitationSvc.Decline(c.Request.Context(), userID, c.Param("token")); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) RevokeInvitation(c *gin.Context) {
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
	invitationID, err := pathID(c, "invitationId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.invitationSvc.Revoke(c.Request.Context(), userID, orgID, invitationID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) ResendInvitation(c *gin.Context) {
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
	invitationID, err := pathID(c, "invitationId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	inv, err := s.invitationSvc.Resend(c.Request.Context(), userID, orgID, invitationID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, inv)
}

func parseIDs(raw []string) ([]snowflake.ID, error) {
	ids := make([]snowflake.ID, 0, len(raw))
	for _, r := range raw {
		id, err := snowflake.ParseString(r)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
