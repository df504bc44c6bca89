package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/pagination"
	"ledgerwise/internal/services"
)

// AdminHandler handles admin reporting requests. Routes are guarded by the
// admin role.
type AdminHandler struct {
	adminService services.AdminServicer
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService services.AdminServicer) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// GetStats returns platform usage figures
// @Summary     Platform stats
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.AdminStats "Stats"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin role required"
// @Router      /admin/stats [get]
func (h *AdminHandler) GetStats(c *gin.Context) {
	stats, err := h.adminService.GetStats()
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// ListUsers lists users with their ledger activity
// @Summary     List users
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Param       page      query int    false "Page number"
// @Param       page_size query int    false "Page size (max 100)"
// @Param       search    query string false "Name or email contains"
// @Success     200 {object} pagination.PageResponse[services.UserActivity] "Users"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin role required"
// @Router      /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	result, err := h.adminService.ListUsers(page, c.Query("search"))
	if err != nil {
		respondWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetSettings returns the bookkeeping defaults
// @Summary     Settings
// @Tags        admin
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.Settings "Settings"
// @Failure     403 {object} ErrorResponse "Admin role required"
// @Router      /admin/settings [get]
func (h *AdminHandler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"settings": h.adminService.GetSettings()})
}
