package server

import (
	"github.com/gin-gonic/gin"
)

// authorizeOrgAction gates a route on the policy engine. The organization
// comes from the :orgId path parameter and the user from the session.
func (s *Server) authorizeOrgAction(obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
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
		if err := s.authz.Authorize(c.Request.Context(), userID, orgID, obj, act); err != nil {
			AbortWithError(c, err)
			return
		}
		c.Next()
	}
}
