// internal/models/user.go
package models

// User is the account record shared by the storefront. Registration and login
// live in the external auth service; this backend only needs the identity row
// that affiliates and admins hang off.
type User struct {
	BaseModel
	Username string     `json:"username" gorm:"size:50;uniqueIndex;not null"`
	Email    string     `json:"email" gorm:"size:255;uniqueIndex;not null"`
	UserType UserType   `json:"user_type" gorm:"type:varchar(20);default:'customer';index"`
	Status   UserStatus `json:"status" gorm:"type:varchar(20);default:'active';index"`
}
