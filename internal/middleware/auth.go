package middleware

import (
	"context"
	"net/http"
	"strings"

	"delegate-portal/internal/dto"
	"delegate-portal/internal/service"
	"delegate-portal/internal/token"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Context keys for user info
const (
	CtxUserID    = "user_id"
	CtxUserRole  = "user_role"
	CtxUserEmail = "user_email"
	CtxUserName  = "user_name"
)

type TokenVerifier interface {
	ParseAndValidateAccess(ctx context.Context, token string) (*token.Claims, error)
}

// AuthRequired validates the Bearer access token and puts the caller into both
// the gin context and the request context used by the services.
func AuthRequired(tokens TokenVerifier, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if authz == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("missing Authorization header"))
			return
		}
		raw, ok := ExtractBearerToken(authz)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid Authorization header"))
			return
		}
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("empty token"))
			return
		}

		claims, err := tokens.ParseAndValidateAccess(c.Request.Context(), raw)
		if err != nil {
			log.Warn("access token rejected", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewUnauthorizedError("invalid token"))
			return
		}

		role := service.RoleDelegate
		if service.Role(claims.Role) == service.RoleAdmin {
			role = service.RoleAdmin
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserRole, role)
		c.Set(CtxUserEmail, claims.Email)
		c.Set(CtxUserName, claims.Name)

		ctx := service.WithUserID(c.Request.Context(), claims.UserID)
		ctx = service.WithRole(ctx, role)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

type UserSyncer interface {
	Sync(ctx context.Context, id service.Identity) error
}

// SyncUser must run after AuthRequired. Tokens without an email are let
// through unsynced, and a failed sync does not fail the request.
func SyncUser(users UserSyncer, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid, ok := UserID(c)
		email := c.GetString(CtxUserEmail)
		if !ok || email == "" {
			c.Next()
			return
		}
		err := users.Sync(c.Request.Context(), service.Identity{
			UserID:   uid,
			Email:    email,
			FullName: c.GetString(CtxUserName),
		})
		if err != nil {
			log.Error("user sync failed", zap.String("user_id", uid.String()), zap.Error(err))
		}
		c.Next()
	}
}

// AdminOnly must run after AuthRequired.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, _ := c.Get(CtxUserRole)
		if role != service.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, dto.NewForbiddenError("admin role required"))
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated caller set by AuthRequired.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}

// ExtractBearerToken pulls the token out of an Authorization header. It
// tolerates quotes around the token and trailing junk after a comma or space:
//   - "Bearer abc.def.ghi"
//   - "Bearer \"abc.def.ghi\""
//   - "Bearer abc.def.ghi, extra"
func ExtractBearerToken(authz string) (string, bool) {
	if authz == "" {
		return "", false
	}
	parts := strings.SplitN(authz, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	t := strings.Trim(strings.TrimSpace(parts[1]), " \"'")
	if i := strings.IndexRune(t, ','); i >= 0 {
		t = strings.Trim(t[:i], " \"'")
	}
	if i := strings.IndexByte(t, ' '); i >= 0 {
		t = strings.Trim(t[:i], " \"'")
	}
	return t, true
}
