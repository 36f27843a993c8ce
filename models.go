package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the primary account record
type User struct {
	bun.BaseModel  `bun:"table:users,alias:usr"`
	ID             uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FirstName      string     `bun:"first_name" json:"first_name,omitempty"`
	LastName       string     `bun:"last_name" json:"last_name,omitempty"`
	Username       string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Phone          string     `bun:"phone_number" json:"phone_number,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Active         bool       `bun:"active" json:"active"`
	ActivationDate *time.Time `bun:"activation_date,nullzero" json:"activation_date,omitempty"`
	Token          string     `bun:"token,nullzero" json:"-"`
	TokenExpires   *time.Time `bun:"token_expires,nullzero" json:"-"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt      *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// HasValidationToken reports whether the user carries an outstanding token.
func (u *User) HasValidationToken() bool {
	return u.Token != "" && u.TokenExpires != nil
}

// TokenExpiredAt reports whether the outstanding token is stale at the given
// instant. A missing expiration counts as expired, the invariant requires
// both token fields set together.
func (u *User) TokenExpiredAt(now time.Time) bool {
	if u.TokenExpires == nil {
		return true
	}
	return now.After(*u.TokenExpires)
}

// DisplayName is the first-name prefix used in notification subjects.
func (u *User) DisplayName() string {
	if u.FirstName == "" {
		return ""
	}
	return u.FirstName + ", "
}

// SocialAccount is a secondary identity attached to a User through an
// external provider. The (provider, reference) pair is unique and an
// account belongs to exactly one User. Active is monotonic: once a social
// account is validated nothing in this package flips it back.
type SocialAccount struct {
	bun.BaseModel `bun:"table:social_accounts,alias:sac"`
	ID            uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID        uuid.UUID      `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	User          *User          `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
	Provider      string         `bun:"provider,notnull" json:"provider,omitempty"`
	Reference     string         `bun:"reference,notnull" json:"reference,omitempty"`
	Email         string         `bun:"email" json:"email,omitempty"`
	Avatar        string         `bun:"avatar" json:"avatar,omitempty"`
	Description   string         `bun:"description" json:"description,omitempty"`
	Token         string         `bun:"token" json:"-"`
	TokenSecret   string         `bun:"token_secret" json:"-"`
	TokenExpires  *time.Time     `bun:"token_expires,nullzero" json:"-"`
	Active        bool           `bun:"active" json:"active"`
	Data          map[string]any `bun:"data,type:jsonb" json:"data,omitempty"`
	CreatedAt     *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}
