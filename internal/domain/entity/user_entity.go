package entity

import (
	"time"

	"github.com/learnova/learnova-api/pkg/helpers"
)

// UserRole is the authorization role assigned at registration.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleInstructor UserRole = "instructor"
	RoleAdmin      UserRole = "admin"
)

// UserStatus gates authentication; only active accounts may log in.
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusSuspended UserStatus = "suspended"
	StatusPending   UserStatus = "pending"
)

// User is the aggregate root for authentication and profile state.
// The refresh-token list and the reset-token slot live on the user row and
// are persisted together with it in a single write.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	Password  string     `json:"-"` // bcrypt hash, never serialized
	Name      string     `json:"name"`
	Role      UserRole   `json:"role"`
	Status    UserStatus `json:"status"`
	AvatarURL string     `json:"avatar_url,omitempty"`

	RefreshTokens SessionList `json:"-"`

	// Reset ledger: hash of the delivered token plus its expiry.
	// Both set or both nil.
	ResetPasswordToken  *string    `json:"-"`
	ResetPasswordExpire *time.Time `json:"-"`

	LastLogin *time.Time `json:"last_login,omitempty"`

	// Version backs the optimistic compare-and-swap on updates.
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetPassword re-hashes the plaintext synchronously; the plaintext is
// never stored on the entity.
func (u *User) SetPassword(plain string) error {
	hash, err := helpers.HashPassword(plain)
	if err != nil {
		return err
	}
	u.Password = hash
	return nil
}

// CheckPassword reports whether plain matches the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return helpers.CompareHashAndPassword(u.Password, plain)
}

// CanAuthenticate reports whether the account may log in or refresh.
func (u *User) CanAuthenticate() bool {
	return u.Status == StatusActive
}

// SetResetToken stores the hash of a delivered reset token with its expiry.
func (u *User) SetResetToken(hash string, expiresAt time.Time) {
	u.ResetPasswordToken = &hash
	u.ResetPasswordExpire = &expiresAt
}

// ClearResetToken empties the reset slot.
func (u *User) ClearResetToken() {
	u.ResetPasswordToken = nil
	u.ResetPasswordExpire = nil
}

// HasLiveResetToken reports whether an unexpired reset token is pending.
// While one is live no new token is issued (cooldown).
func (u *User) HasLiveResetToken(now time.Time) bool {
	return u.ResetPasswordToken != nil && u.ResetPasswordExpire != nil && now.Before(*u.ResetPasswordExpire)
}
