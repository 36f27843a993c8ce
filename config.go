package users

import "time"

// Notification template names. Mailer implementations resolve them to
// whatever view files they ship with.
const (
	TemplateResetPassword    = "reset_password"
	TemplateValidation       = "validation"
	TemplateSocialValidation = "social_account_validation"
)

// Config carries the lifecycle settings. It is passed explicitly to
// handlers and controllers at construction, there is no package level
// configuration store.
type Config struct {
	// TokenExpiration is the lifetime of email validation and password
	// reset tokens.
	TokenExpiration time.Duration

	// ValidateEmail controls whether registration creates inactive
	// accounts that must confirm their email address.
	ValidateEmail bool

	// ValidationTemplate, ResetTemplate and SocialTemplate name the
	// notification templates for each flow.
	ValidationTemplate string
	ResetTemplate      string
	SocialTemplate     string

	// ResetSessionKey signs the short lived change-password session token
	// minted after a reset token validates.
	ResetSessionKey string

	// ResetSessionTTL bounds how long the change-password form stays
	// usable after the reset token validated.
	ResetSessionTTL time.Duration
}

// WithDefaults fills the zero values and returns the result.
func (c Config) WithDefaults() Config {
	if c.TokenExpiration <= 0 {
		c.TokenExpiration = time.Hour
	}
	if c.ValidationTemplate == "" {
		c.ValidationTemplate = TemplateValidation
	}
	if c.ResetTemplate == "" {
		c.ResetTemplate = TemplateResetPassword
	}
	if c.SocialTemplate == "" {
		c.SocialTemplate = TemplateSocialValidation
	}
	if c.ResetSessionTTL <= 0 {
		c.ResetSessionTTL = 15 * time.Minute
	}
	return c
}
