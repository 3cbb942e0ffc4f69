// Package model holds the GORM persistence models, kept separate from the
// pure domain entities.
package model

import (
	"time"

	"github.com/google/uuid"
)

// AccountModel mirrors the 'accounts' table. PostgreSQL generates UUIDs via
// uuid_generate_v7(). The unique indexes on username and email are the
// authoritative uniqueness guard; service-level existence checks are only a
// pre-check.
type AccountModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	Username       string    `gorm:"type:varchar(50);uniqueIndex:idx_accounts_username;not null"`
	Email          string    `gorm:"type:varchar(255);uniqueIndex:idx_accounts_email;not null"`
	PasswordHash   string    `gorm:"type:varchar(255);not null"`
	Active         bool      `gorm:"not null;default:true"`
	FailedAttempts int       `gorm:"not null;default:0"`
	Locked         bool      `gorm:"not null;default:false"`
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TableName explicitly sets the table name for GORM.
func (AccountModel) TableName() string {
	return "accounts"
}
