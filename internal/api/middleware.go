package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pnwmakes/h3-network-platform-sub003/infrastructure/jwt"
	infralogger "github.com/pnwmakes/h3-network-platform-sub003/infrastructure/logger"
	"github.com/pnwmakes/h3-network-platform-sub003/internal/domain"
)

const actorKey = "actor"

// actorMiddleware turns verified claims into a domain.Actor. Creators are
// resolved to their profile; a missing profile leaves CreatorID empty and
// the service answers 404.
func (r *Router) actorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := jwt.GetClaims(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		actor := domain.Actor{UserID: claims.Sub, Role: domain.Role(claims.Role)}
		if actor.CanSchedule() && r.deps.Creators != nil {
			creator, err := r.deps.Creators.FindByUserID(c.Request.Context(), claims.Sub)
			switch {
			case err == nil:
				actor.CreatorID = creator.ID
			case errors.Is(err, domain.ErrNotFound):
			default:
				infralogger.FromContext(c.Request.Context()).Error("Failed to resolve creator profile",
					infralogger.String("user_id", claims.Sub),
					infralogger.Error(err),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve creator profile"})
				return
			}
		}

		c.Set(actorKey, actor)
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, isActor := v.(domain.Actor); isActor {
			return actor
		}
	}
	return domain.Actor{}
}
