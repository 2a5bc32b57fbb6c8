package middleware

import (
	"strings"

	"github.com/energyadmin/backend/internal/domain/lead"
	"github.com/energyadmin/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

const (
	// ActorHeader names the acting user. Authentication happens upstream.
	ActorHeader = "X-User-ID"
	// ActorKey is the gin context key holding the acting user
	ActorKey = "actor"
	// MaxActorLength matches the performed_by column width
	MaxActorLength = 100
)

// Actor resolves the acting user from the X-User-ID header and attaches it to
// the gin and request contexts. A missing header acts as the system user.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := strings.TrimSpace(c.GetHeader(ActorHeader))
		if len(actor) > MaxActorLength {
			actor = actor[:MaxActorLength]
		}
		if actor == "" {
			actor = lead.SystemActor
		}
		c.Set(ActorKey, actor)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

// GetActor returns the actor set by Actor, or the system user
func GetActor(c *gin.Context) string {
	if actor := c.GetString(ActorKey); actor != "" {
		return actor
	}
	return lead.SystemActor
}
