package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
)

const contextUserIDKey = "user_id"

// AuthRequired resolves the session cookie into a user id for downstream
// handlers.
func (s *Server) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := s.sessions.ReadToken(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		session, err := s.authsvc.Authenticate(c.Request.Context(), token)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextUserIDKey, session.UserID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) (snowflake.ID, bool) {
	v, ok := c.Get(contextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(snowflake.ID)
	return id, ok
}

// pathID parses a snowflake id path parameter. An unparsable id behaves
// like a missing resource so ids stay unguessable.
func pathID(c *gin.Context, name string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil {
		return 0, ErrNotFound
	}
	return id, nil
}

func parseID(raw string) (snowflake.ID, error) {
	return snowflake.ParseString(raw)
}
