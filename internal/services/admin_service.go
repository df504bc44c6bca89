package services

import (
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "ledgerwise/internal/errors"
	"ledgerwise/internal/gst"
	"ledgerwise/internal/models"
	"ledgerwise/internal/pagination"
)

const activeUserWindow = 30 * 24 * time.Hour

// adminService handles platform-wide reporting for admins.
type adminService struct {
	db       *gorm.DB
	settings Settings
	now      func() time.Time
}

// NewAdminService creates a new AdminServicer. SupportedRates is always the
// fixed GST slab list.
func NewAdminService(db *gorm.DB, settings Settings) AdminServicer {
	settings.SupportedRates = make([]int, 0, len(gst.Rates()))
	for _, r := range gst.Rates() {
		settings.SupportedRates = append(settings.SupportedRates, int(r))
	}
	return &adminService{db: db, settings: settings, now: time.Now}
}

// GetStats counts users, transactions and processed invoices. Active users
// are those who signed in during the last 30 days.
func (s *adminService) GetStats() (*AdminStats, error) {
	var stats AdminStats

	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.User{}).
		Where("last_login_at >= ?", s.now().Add(-activeUserWindow)).
		Count(&stats.ActiveUsers).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.Transaction{}).Count(&stats.TotalTransactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.Transaction{}).
		Select("COALESCE(SUM(gst_amount), 0)").
		Scan(&stats.TotalGST).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if err := s.db.Model(&models.InvoiceExtraction{}).Count(&stats.InvoicesProcessed).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return &stats, nil
}

// ListUsers returns users ordered by sign-up date with their ledger activity.
// search matches name or email, ignoring case.
func (s *adminService) ListUsers(page pagination.PageRequest, search string) (*pagination.PageResponse[UserActivity], error) {
	page.Defaults()

	base := s.db.Model(&models.User{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		base = base.Where("(LOWER(users.email) LIKE ? OR LOWER(users.name) LIKE ?)", like, like)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var users []UserActivity
	if err := base.Scopes(pagination.Paginate(page)).
		Select("users.id, users.email, users.name, users.role, users.is_active, users.last_login_at, users.created_at, " +
			"COUNT(transactions.id) AS transaction_count, COALESCE(SUM(transactions.gst_amount), 0) AS gst_total").
		Joins("LEFT JOIN transactions ON transactions.user_id = users.id AND transactions.deleted_at IS NULL").
		Group("users.id, users.email, users.name, users.role, users.is_active, users.last_login_at, users.created_at").
		Order("users.created_at DESC").
		Scan(&users).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if users == nil {
		users = []UserActivity{}
	}

	result := pagination.NewPageResponse(users, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetSettings returns the configured bookkeeping defaults.
func (s *adminService) GetSettings() *Settings {
	out := s.settings
	out.SupportedRates = append([]int(nil), s.settings.SupportedRates...)
	return &out
}
