package middleware

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/credential-service/internal/api/handler"
	"github.com/99minutos/credential-service/internal/api/metrics"
	"github.com/99minutos/credential-service/internal/core/domain"
	"github.com/99minutos/credential-service/internal/core/ports"
)

// Auth resolves the Authorization header through guard and injects the
// caller identity into the context. Failures are returned as domain errors
// so the central error handler renders the 401 and WWW-Authenticate header.
func Auth(guard ports.AccessGuard) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, err := guard.Resolve(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				result := "invalid"
				if errors.Is(err, domain.ErrUnauthenticated) {
					result = "missing"
				}
				metrics.TokenValidationsTotal.WithLabelValues(result).Inc()
				return err
			}

			metrics.TokenValidationsTotal.WithLabelValues(metrics.ResultSuccess).Inc()
			c.Set(handler.IdentityKey, id)
			return next(c)
		}
	}
}
