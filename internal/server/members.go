package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	memberdomain "github.com/groveworks/grove/internal/member/domain"
)

type UpdateMemberRequest struct {
	Role       *string `json:"role"`
	IsActive   *bool   `json:"is_active"`
	JobTitle   *string `json:"job_title"`
	Department *string `json:"department"`
}

type TransferOwnershipRequest struct {
	MembershipID string `json:"membership_id"`
}

func (s *Server) ListMembers(c *gin.Context) {
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

	members, err := s.memberSvc.List(c.Request.Context(), userID, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

func (s *Server) GetMember(c *gin.Context) {
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
	membershipID, err := pathID(c, "membershipId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	member, err := s.memberSvc.Get(c.Request.Context(), userID, orgID, membershipID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) UpdateMember(c *gin.Context) {
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
	membershipID, err := pathID(c, "membershipId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	member, err := s.memberSvc.Update(c.Request.Context(), userID, orgID, membershipID, memberdomain.MemberPatch{
		Role:       req.Role,
		IsActive:   req.IsActive,
		JobTitle:   req.JobTitle,
		Department: req.Department,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, member)
}

func (s *Server) RemoveMember(c *gin.Context) {
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
	membershipID, err := pathID(c, "membershipId")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	if err := s.memberSvc.Remove(c.Request.Context(), userID, orgID, membershipID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) LeaveOrganization(c *gin.Context) {
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

	if err := s.memberSvc.Leave(c.Request.Context(), userID, orgID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) TransferOwnership(c *gin.Context) {
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

	var req TransferOwnershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	membershipID, err := parseID(req.MembershipID)
	if err != nil {
		AbortWithError(c, newValidationError("membership_id", "invalid", "invalid membership id"))
		return
	}

	if err := s.memberSvc.TransferOwnership(c.Request.Context(), userID, orgID, membershipID); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
