package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/middleware"
	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
	"ledgerwise/internal/services"
)

// --- mock admin service ---

type mockAdminService struct {
	getStatsFn    func() (*services.AdminStats, error)
	listUsersFn   func(page pagination.PageRequest, search string) (*pagination.PageResponse[services.UserActivity], error)
	getSettingsFn func() *services.Settings
}

func (m *mockAdminService) GetStats() (*services.AdminStats, error) {
	if m.getStatsFn != nil {
		return m.getStatsFn()
	}
	return &services.AdminStats{}, nil
}

func (m *mockAdminService) ListUsers(page pagination.PageRequest, search string) (*pagination.PageResponse[services.UserActivity], error) {
	if m.listUsersFn != nil {
		return m.listUsersFn(page, search)
	}
	resp := pagination.NewPageResponse([]services.UserActivity{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockAdminService) GetSettings() *services.Settings {
	if m.getSettingsFn != nil {
		return m.getSettingsFn()
	}
	return &services.Settings{}
}

var _ services.AdminServicer = (*mockAdminService)(nil)

func injectRole(role models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextRole, string(role))
		c.Next()
	}
}

func setupAdminRouter(handler *AdminHandler, role models.Role) *gin.Engine {
	r := gin.New()
	admin := r.Group("/admin", injectUserID(testUserID), injectRole(role), middleware.RequireRole(models.RoleAdmin))
	admin.GET("/stats", handler.GetStats)
	admin.GET("/users", handler.ListUsers)
	admin.GET("/settings", handler.GetSettings)
	return r
}

func TestAdminHandler_GetStats(t *testing.T) {
	t.Run("returns 200 for admins", func(t *testing.T) {
		svc := &mockAdminService{
			getStatsFn: func() (*services.AdminStats, error) {
				return &services.AdminStats{TotalUsers: 4, ActiveUsers: 2, TotalGST: 5400}, nil
			},
		}
		r := setupAdminRouter(NewAdminHandler(svc), models.RoleAdmin)

		rec := doRequest(r, "GET", "/admin/stats", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		stats := parseJSON(t, rec)["stats"].(map[string]interface{})
		if stats["total_users"].(float64) != 4 {
			t.Errorf("expected total_users 4, got %v", stats["total_users"])
		}
	})

	t.Run("returns 403 for regular users", func(t *testing.T) {
		r := setupAdminRouter(NewAdminHandler(&mockAdminService{}), models.RoleUser)

		rec := doRequest(r, "GET", "/admin/stats", "")

		if rec.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "FORBIDDEN")
	})

	t.Run("returns 500 on service failure", func(t *testing.T) {
		svc := &mockAdminService{
			getStatsFn: func() (*services.AdminStats, error) { return nil, apperrors.ErrInternalServer },
		}
		r := setupAdminRouter(NewAdminHandler(svc), models.RoleAdmin)

		rec := doRequest(r, "GET", "/admin/stats", "")

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", rec.Code)
		}
	})
}

func TestAdminHandler_ListUsers(t *testing.T) {
	var gotSearch string
	svc := &mockAdminService{
		listUsersFn: func(page pagination.PageRequest, search string) (*pagination.PageResponse[services.UserActivity], error) {
			gotSearch = search
			resp := pagination.NewPageResponse([]services.UserActivity{
				{ID: testUserID, Email: "asha@example.com", TransactionCount: 3},
			}, page.Page, page.PageSize, 1)
			return &resp, nil
		},
	}
	r := setupAdminRouter(NewAdminHandler(svc), models.RoleAdmin)

	rec := doRequest(r, "GET", "/admin/users?page=1&page_size=10&search=asha", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotSearch != "asha" {
		t.Errorf("expected search asha, got %q", gotSearch)
	}
	data := parseJSON(t, rec)["data"].([]interface{})
	if len(data) != 1 {
		t.Errorf("expected 1 user, got %d", len(data))
	}
}

func TestAdminHandler_GetSettings(t *testing.T) {
	svc := &mockAdminService{
		getSettingsFn: func() *services.Settings {
			return &services.Settings{DefaultGSTRate: 18, Currency: "INR", SupportedRates: []int{0, 5, 12, 18, 28}}
		},
	}
	r := setupAdminRouter(NewAdminHandler(svc), models.RoleAdmin)

	rec := doRequest(r, "GET", "/admin/settings", "")

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	settings := parseJSON(t, rec)["settings"].(map[string]interface{})
	if settings["currency"] != "INR" {
		t.Errorf("expected currency INR, got %v", settings["currency"])
	}
}
