package models

// Category groups transactions. A nil UserID marks a global category managed
// by admins and visible to every user.
type Category struct {
	Base
	UserID      *string `gorm:"type:uuid;index" json:"user_id,omitempty"`
	Name        string  `gorm:"not null" json:"name"`
	Description string  `json:"description"`
}

// IsGlobal reports whether the category is shared by all users.
func (c *Category) IsGlobal() bool {
	return c.UserID == nil
}
