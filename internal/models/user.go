package models

// UserRole distinguishes the two parties on the platform
type UserRole string

const (
	RoleCreator  UserRole = "creator"
	RoleMarketer UserRole = "marketer"
)

// User represents a platform account. Authentication lives outside this
// service; users exist here so money and notifications have an owner.
type User struct {
	Base
	Email string   `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name  string   `gorm:"type:varchar(255)" json:"name"`
	Role  UserRole `gorm:"type:varchar(20);not null;default:'marketer'" json:"role"`
}
