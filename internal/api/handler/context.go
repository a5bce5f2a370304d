package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/credential-service/internal/core/domain"
)

// IdentityKey is the echo.Context key under which the Auth middleware stores
// the resolved domain.Identity.
const IdentityKey = "identity"

// ctxIdentity returns the identity injected by the Auth middleware. Its
// absence means the route was mounted without the middleware, which is
// reported as an unauthenticated request.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	id, ok := c.Get(IdentityKey).(domain.Identity)
	if !ok || id.Username == "" {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}
