package users

import (
	"context"
)

// Notification is a templated message dispatched to a single recipient.
// The token link lives inside Vars, transport and rendering are the
// Notifier's concern.
type Notification struct {
	To       string
	Subject  string
	Template string
	Vars     map[string]any
}

// Notifier dispatches notifications. Sends are best-effort: callers log
// failures and never roll back state that already committed.
type Notifier interface {
	Send(ctx context.Context, msg Notification) error
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(ctx context.Context, msg Notification) error

// Send implements Notifier.
func (f NotifierFunc) Send(ctx context.Context, msg Notification) error {
	if f == nil {
		return nil
	}
	return f(ctx, msg)
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, Notification) error {
	return nil
}

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}

// ResetPasswordNotification builds the message sent when a reset or
// validation token is issued. The template decides which flow it reads as.
func ResetPasswordNotification(user *User, template string) Notification {
	subject := user.DisplayName() + "Your reset password link"
	if template == TemplateValidation {
		subject = user.DisplayName() + "Your account validation link"
	}
	return Notification{
		To:       user.Email,
		Subject:  subject,
		Template: template,
		Vars:     userVars(user),
	}
}

// SocialValidationNotification builds the message sent to the owning
// user's email, never to a provider-side address.
func SocialValidationNotification(user *User, account *SocialAccount) Notification {
	vars := userVars(user)
	vars["social_account"] = map[string]any{
		"id":        account.ID.String(),
		"provider":  account.Provider,
		"reference": account.Reference,
		"token":     account.Token,
	}
	return Notification{
		To:       user.Email,
		Subject:  user.DisplayName() + "Your social account validation link",
		Template: TemplateSocialValidation,
		Vars:     vars,
	}
}

func userVars(user *User) map[string]any {
	return map[string]any{
		"id":         user.ID.String(),
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"username":   user.Username,
		"email":      user.Email,
		"token":      user.Token,
	}
}
