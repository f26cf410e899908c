package model

// User is an account that can authenticate and own schedules.
type User struct {
	ID           string  `json:"id" gorm:"type:varchar(64);primaryKey"`
	PasswordHash string  `json:"-" gorm:"column:pass;type:varchar(255);not null"` // Never expose in JSON
	FirstName    *string `json:"first_name,omitempty" gorm:"type:varchar(255)"`
	LastName     *string `json:"last_name,omitempty" gorm:"type:varchar(255)"`
	IsAdmin      bool    `json:"is_admin" gorm:"column:isadmin;not null;default:false"`
}

// TableName pins the table name used by the schema.
func (User) TableName() string { return "users" }
