package domain

import "time"

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID           uint64    `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	PasswordHash string    `json:"-" gorm:"size:255;not null"`
	Name         string    `json:"name" gorm:"size:255;not null"`
	Phone        string    `json:"phone" gorm:"size:32"`
	Address      Address   `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	Role         Role      `json:"role" gorm:"type:enum('customer','admin');not null;default:'customer'"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}
