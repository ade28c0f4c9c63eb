package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskwell/internal/model"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// UserRepository handles persistence of user accounts.
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user. A taken email yields ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find user by email: %w", err)
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
}

// UpdatePasswordHash replaces the hash of a password account. It matches
// nothing, and returns ErrNotFound, if the account is not a password account.
func (r *UserRepository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND auth_provider = ?", id, model.ProviderPassword).
		Update("password_hash", hash)
	if res.Error != nil {
		return fmt.Errorf("update password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpgradeToPassword sets the first password of a Google account and switches
// its provider in one statement. Non-Google accounts yield ErrNotFound.
func (r *UserRepository) UpgradeToPassword(ctx context.Context, id, hash string) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND auth_provider = ?", id, model.ProviderGoogle).
		Updates(map[string]interface{}{
			"password_hash": hash,
			"auth_provider": model.ProviderPassword,
		})
	if res.Error != nil {
		return fmt.Errorf("upgrade to password: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ProfileUpdate lists the profile fields to change; nil fields are left alone.
// A Telegram chat can only be cleared here; linking goes through
// LinkTelegramChat.
type ProfileUpdate struct {
	Name              *string
	Preferences       map[string]any
	SetPreferences    bool
	ClearTelegramChat bool
}

// UpdateProfile applies a partial profile update.
func (r *UserRepository) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) error {
	var (
		fields []string
		values model.User
	)
	if update.Name != nil {
		fields = append(fields, "name")
		values.Name = *update.Name
	}
	if update.SetPreferences {
		fields = append(fields, "preferences")
		values.Preferences = update.Preferences
	}
	if update.ClearTelegramChat {
		fields = append(fields, "telegram_chat_id")
	}
	if len(fields) == 0 {
		return nil
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Select(fields).
		Updates(&values)
	if res.Error != nil {
		return fmt.Errorf("update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListWithTelegram returns users who linked a Telegram chat.
func (r *UserRepository) ListWithTelegram(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := r.db.WithContext(ctx).Where("telegram_chat_id IS NOT NULL").Order("created_at ASC").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list telegram users: %w", err)
	}
	return users, nil
}

// FindByTelegramChatID returns the user who linked chatID.
func (r *UserRepository) FindByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("telegram_chat_id = ?", chatID).First(&user).Error
	switch {
	case err == nil:
		return &user, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("find user by telegram chat: %w", err)
	}
}

// SetTelegramLinkCode stores a pending link code for the user, replacing any
// earlier one. A code already held by another user yields ErrDuplicate.
func (r *UserRepository) SetTelegramLinkCode(ctx context.Context, id, code string, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"telegram_link_code":       code,
			"telegram_link_expires_at": expiresAt,
		})
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("set telegram link code: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// LinkTelegramChat binds chatID to the user holding code and consumes the
// code. An unknown or expired code yields ErrNotFound; a chat already linked
// to another user yields ErrDuplicate.
func (r *UserRepository) LinkTelegramChat(ctx context.Context, code string, chatID int64, now time.Time) (*model.User, error) {
	var user model.User
	err := r.db.WithContext(ctx).Where("telegram_link_code = ?", code).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, ErrNotFound
	case err != nil:
		return nil, fmt.Errorf("find telegram link code: %w", err)
	}
	if user.TelegramLinkExpiresAt == nil || !now.Before(*user.TelegramLinkExpiresAt) {
		return nil, ErrNotFound
	}

	owner, err := r.FindByTelegramChatID(ctx, chatID)
	switch {
	case err == nil && owner.ID != user.ID:
		return nil, ErrDuplicate
	case err != nil && !errors.Is(err, ErrNotFound):
		return nil, err
	}

	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ? AND telegram_link_code = ?", user.ID, code).
		Updates(map[string]interface{}{
			"telegram_chat_id":         chatID,
			"telegram_link_code":       nil,
			"telegram_link_expires_at": nil,
		})
	if res.Error != nil {
		// The unique index catches a concurrent link of the same chat.
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("link telegram chat: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	user.TelegramChatID = &chatID
	user.TelegramLinkCode = nil
	user.TelegramLinkExpiresAt = nil
	return &user, nil
}
