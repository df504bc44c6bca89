package handlers

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
	"ledgerwise/internal/services"
)

const testCategoryID = "0190a6b2-3c4d-7e5f-8a9b-1c1d2e3f4a5b"

// --- mock category service ---

type mockCategoryService struct {
	createCategoryFn       func(ownerID *string, name, description string) (*models.Category, error)
	listCategoriesFn       func(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	listGlobalCategoriesFn func(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error)
	getCategoryByIDFn      func(userID, categoryID string) (*models.Category, error)
	updateCategoryFn       func(ownerID *string, categoryID, name, description string) (*models.Category, error)
	deleteCategoryFn       func(ownerID *string, categoryID string) error
}

func (m *mockCategoryService) CreateCategory(ownerID *string, name, description string) (*models.Category, error) {
	if m.createCategoryFn != nil {
		return m.createCategoryFn(ownerID, name, description)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) ListCategories(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.listCategoriesFn != nil {
		return m.listCategoriesFn(userID, page)
	}
	resp := pagination.NewPageResponse([]models.Category{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockCategoryService) ListGlobalCategories(page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
	if m.listGlobalCategoriesFn != nil {
		return m.listGlobalCategoriesFn(page)
	}
	resp := pagination.NewPageResponse([]models.Category{}, 1, 20, 0)
	return &resp, nil
}

func (m *mockCategoryService) GetCategoryByID(userID, categoryID string) (*models.Category, error) {
	if m.getCategoryByIDFn != nil {
		return m.getCategoryByIDFn(userID, categoryID)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) UpdateCategory(ownerID *string, categoryID, name, description string) (*models.Category, error) {
	if m.updateCategoryFn != nil {
		return m.updateCategoryFn(ownerID, categoryID, name, description)
	}
	return &models.Category{}, nil
}

func (m *mockCategoryService) DeleteCategory(ownerID *string, categoryID string) error {
	if m.deleteCategoryFn != nil {
		return m.deleteCategoryFn(ownerID, categoryID)
	}
	return nil
}

var _ services.CategoryServicer = (*mockCategoryService)(nil)

func setupCategoryRouter(handler *CategoryHandler) *gin.Engine {
	r := gin.New()
	auth := r.Group("", injectUserID(testUserID))
	auth.POST("/categories", handler.CreateCategory)
	auth.GET("/categories", handler.GetUserCategories)
	auth.GET("/categories/:id", handler.GetCategoryByID)
	auth.PUT("/categories/:id", handler.UpdateCategory)
	auth.DELETE("/categories/:id", handler.DeleteCategory)
	auth.POST("/admin/categories", handler.CreateGlobalCategory)
	auth.GET("/admin/categories", handler.GetGlobalCategories)
	auth.PUT("/admin/categories/:id", handler.UpdateGlobalCategory)
	auth.DELETE("/admin/categories/:id", handler.DeleteGlobalCategory)
	return r
}

func TestCategoryHandler_CreateCategory(t *testing.T) {
	t.Run("returns 201 with an owned category", func(t *testing.T) {
		var gotOwner *string
		catSvc := &mockCategoryService{
			createCategoryFn: func(ownerID *string, name, desc string) (*models.Category, error) {
				gotOwner = ownerID
				return &models.Category{Base: models.Base{ID: testCategoryID}, UserID: ownerID, Name: name, Description: desc}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"Cloud Hosting","description":"AWS and friends"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if gotOwner == nil || *gotOwner != testUserID {
			t.Errorf("expected owner %s, got %v", testUserID, gotOwner)
		}
		cat := parseJSON(t, rec)["category"].(map[string]interface{})
		if cat["name"] != "Cloud Hosting" {
			t.Errorf("expected name Cloud Hosting, got %v", cat["name"])
		}
	})

	t.Run("returns 400 on blank name", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"  "}`)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "INVALID_INPUT")
	})

	t.Run("returns 409 on duplicate name", func(t *testing.T) {
		catSvc := &mockCategoryService{
			createCategoryFn: func(_ *string, _, _ string) (*models.Category, error) {
				return nil, apperrors.ErrDuplicateCategory
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/categories", `{"name":"Travel"}`)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "DUPLICATE_CATEGORY")
	})

	t.Run("global create passes no owner", func(t *testing.T) {
		called := false
		catSvc := &mockCategoryService{
			createCategoryFn: func(ownerID *string, name, _ string) (*models.Category, error) {
				called = true
				if ownerID != nil {
					t.Errorf("expected nil owner, got %v", *ownerID)
				}
				return &models.Category{Base: models.Base{ID: testCategoryID}, Name: name}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "POST", "/admin/categories", `{"name":"Rent"}`)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if !called {
			t.Error("expected service to be called")
		}
	})
}

func TestCategoryHandler_GetUserCategories(t *testing.T) {
	t.Run("returns 200 with paginated categories", func(t *testing.T) {
		catSvc := &mockCategoryService{
			listCategoriesFn: func(_ string, page pagination.PageRequest) (*pagination.PageResponse[models.Category], error) {
				resp := pagination.NewPageResponse([]models.Category{
					{Base: models.Base{ID: testCategoryID}, Name: "Consulting"},
				}, page.Page, page.PageSize, 1)
				return &resp, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories?page=1&page_size=10", "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		data := parseJSON(t, rec)["data"].([]interface{})
		if len(data) != 1 {
			t.Errorf("expected 1 category, got %d", len(data))
		}
	})

	t.Run("returns 400 on page_size over the limit", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories?page_size=500", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_GetCategoryByID(t *testing.T) {
	t.Run("returns 400 on invalid ID", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories/abc", "")

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("returns 404 when not found", func(t *testing.T) {
		catSvc := &mockCategoryService{
			getCategoryByIDFn: func(_, _ string) (*models.Category, error) {
				return nil, apperrors.ErrCategoryNotFound
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "GET", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_UpdateCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		catSvc := &mockCategoryService{
			updateCategoryFn: func(_ *string, id, name, _ string) (*models.Category, error) {
				return &models.Category{Base: models.Base{ID: id}, Name: name}, nil
			},
		}
		audit := &mockAuditService{}
		handler := NewCategoryHandler(catSvc, audit)
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "PUT", "/categories/"+testCategoryID, `{"name":"Renamed"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if len(audit.actions) != 1 || audit.actions[0] != services.AuditActionUpdate {
			t.Errorf("expected one update audit entry, got %v", audit.actions)
		}
	})

	t.Run("global update passes no owner", func(t *testing.T) {
		catSvc := &mockCategoryService{
			updateCategoryFn: func(ownerID *string, id, name, _ string) (*models.Category, error) {
				if ownerID != nil {
					t.Errorf("expected nil owner, got %v", *ownerID)
				}
				return &models.Category{Base: models.Base{ID: id}, Name: name}, nil
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "PUT", "/admin/categories/"+testCategoryID, `{"name":"Rent & Lease"}`)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})
}

func TestCategoryHandler_DeleteCategory(t *testing.T) {
	t.Run("returns 200 on success", func(t *testing.T) {
		handler := NewCategoryHandler(&mockCategoryService{}, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "DELETE", "/categories/"+testCategoryID, "")

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("returns 409 when category is in use", func(t *testing.T) {
		catSvc := &mockCategoryService{
			deleteCategoryFn: func(_ *string, _ string) error {
				return apperrors.ErrCategoryInUse
			},
		}
		handler := NewCategoryHandler(catSvc, &mockAuditService{})
		r := setupCategoryRouter(handler)

		rec := doRequest(r, "DELETE", "/admin/categories/"+testCategoryID, "")

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected 409, got %d", rec.Code)
		}
		assertErrorCode(t, parseJSON(t, rec), "CATEGORY_IN_USE")
	})
}
