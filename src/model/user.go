package model

import "time"

// User owns broker accounts. Deleting a user cascades to everything the
// user linked.
type User struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"size:255;not null" json:"-"`
	FullName      string    `gorm:"size:255;not null" json:"full_name"`
	IsActive      bool      `gorm:"not null;default:true" json:"is_active"`
	EmailVerified bool      `gorm:"not null;default:false" json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	BrokerAccounts []BrokerAccount `gorm:"foreignKey:UserID" json:"broker_accounts,omitempty"`
}

func (User) TableName() string {
	return "users"
}
