package devserver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Account is a registered user of the dev backend.
type Account struct {
	ID           string `gorm:"primaryKey;type:uuid"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

// Token is one issued session: an opaque access token plus its refresh
// counterpart. The hosted backend issues JWTs; opaque tokens are enough
// for a dev stub.
type Token struct {
	Access    string `gorm:"primaryKey"`
	Refresh   string `gorm:"uniqueIndex;not null"`
	AccountID string `gorm:"index;not null"`
	ExpiresAt time.Time
	CreatedAt time.Time
}

// AccountRepository handles accounts and their session tokens.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// Create registers a new account. A duplicate email surfaces as the
// database's uniqueness error.
func (r *AccountRepository) Create(ctx context.Context, email, password string) (*Account, error) {
	account := Account{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hashPassword(password),
	}
	if err := r.db.WithContext(ctx).Create(&account).Error; err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	return &account, nil
}

// Authenticate returns the account matching the credentials, or
// gorm.ErrRecordNotFound when either part is wrong.
func (r *AccountRepository) Authenticate(ctx context.Context, email, password string) (*Account, error) {
	var account Account
	err := r.db.WithContext(ctx).
		Where("email = ? AND password_hash = ?", email, hashPassword(password)).
		First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// tokenTTL matches the hosted backend's default access token lifetime.
const tokenTTL = time.Hour

// IssueToken mints a fresh access/refresh pair for the account.
func (r *AccountRepository) IssueToken(ctx context.Context, accountID string) (*Token, error) {
	token := Token{
		Access:    uuid.NewString(),
		Refresh:   uuid.NewString(),
		AccountID: accountID,
		ExpiresAt: time.Now().Add(tokenTTL),
	}
	if err := r.db.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &token, nil
}

// FindByAccess resolves a live access token to its session.
func (r *AccountRepository) FindByAccess(ctx context.Context, access string) (*Token, error) {
	var token Token
	err := r.db.WithContext(ctx).
		Where("access = ? AND expires_at > ?", access, time.Now()).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// Rotate exchanges a refresh token for a new pair, revoking the old one.
func (r *AccountRepository) Rotate(ctx context.Context, refresh string) (*Token, error) {
	var old Token
	db := r.db.WithContext(ctx)
	if err := db.Where("refresh = ?", refresh).First(&old).Error; err != nil {
		return nil, err
	}
	if err := db.Delete(&old).Error; err != nil {
		return nil, fmt.Errorf("revoke token: %w", err)
	}
	return r.IssueToken(ctx, old.AccountID)
}

// Revoke drops the session behind an access token. Idempotent.
func (r *AccountRepository) Revoke(ctx context.Context, access string) error {
	if err := r.db.WithContext(ctx).Where("access = ?", access).Delete(&Token{}).Error; err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// FindAccount loads an account by id.
func (r *AccountRepository) FindAccount(ctx context.Context, id string) (*Account, error) {
	var account Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &account, nil
}
