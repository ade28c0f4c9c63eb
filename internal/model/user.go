package model

import "time"

// AuthProvider names the mechanism that established a user's identity.
type AuthProvider string

const (
	ProviderPassword AuthProvider = "password"
	ProviderGoogle   AuthProvider = "google"
)

// User stores account and profile data. PasswordHash and the pending
// Telegram link code never leave the server.
type User struct {
	ID                    string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Email                 string         `gorm:"uniqueIndex;size:320;not null" json:"email"`
	PasswordHash          *string        `gorm:"size:255" json:"-"`
	AuthProvider          AuthProvider   `gorm:"size:16;not null;default:password" json:"auth_provider"`
	Name                  string         `gorm:"size:50" json:"name"`
	Gender                string         `gorm:"size:32" json:"gender"`
	DOB                   string         `gorm:"column:dob;size:10" json:"dob"`
	Preferences           map[string]any `gorm:"serializer:json;type:text" json:"preferences"`
	TelegramChatID        *int64         `gorm:"uniqueIndex" json:"telegram_chat_id,omitempty"`
	TelegramLinkCode      *string        `gorm:"uniqueIndex;size:16" json:"-"`
	TelegramLinkExpiresAt *time.Time     `json:"-"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// Credential returns the provider-specific credential of the account.
func (u User) Credential() (Credential, error) {
	switch u.AuthProvider {
	case ProviderPassword:
		if u.PasswordHash == nil || *u.PasswordHash == "" {
			return nil, ErrCorruptCredential
		}
		return PasswordCredential{Hash: *u.PasswordHash}, nil
	case ProviderGoogle:
		return GoogleCredential{}, nil
	default:
		return nil, ErrCorruptCredential
	}
}
