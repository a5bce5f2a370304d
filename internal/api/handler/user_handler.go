package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/99minutos/credential-service/internal/api/metrics"
	"github.com/99minutos/credential-service/internal/core/ports"
)

type UserHandler struct {
	authService ports.AuthService
}

func NewUserHandler(authService ports.AuthService) *UserHandler {
	return &UserHandler{authService: authService}
}

// Me returns the profile of the authenticated caller.
//
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  ports.UserProfile
// @Failure      401  {object}  errorBody
// @Router       /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	timer := prometheus.NewTimer(metrics.RequestDuration.WithLabelValues("me"))
	defer timer.ObserveDuration()

	id, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	profile, err := h.authService.Profile(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, profile)
}
