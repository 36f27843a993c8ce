package users

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-router/flash"
	"github.com/google/uuid"
)

// ResetSessionCookie carries the change-password session token between the
// token validation redirect and the change-password form.
const ResetSessionCookie = "users_reset_session"

func RegisterLifecycleRoutes[T any](app router.Router[T], opts ...LifecycleControllerOption) {

	controller := NewLifecycleController(opts...)

	app.
		Get(fmt.Sprintf("%s/:token", controller.Routes.ValidateEmail),
			controller.ValidateEmail,
		).
		SetName("validate-email.get")

	app.
		Get(fmt.Sprintf("%s/:token", controller.Routes.ValidatePassword),
			controller.ValidatePasswordToken,
		).
		SetName("validate-password.get")

	app.Get(controller.Routes.ResendValidation, controller.ResendValidationShow).
		SetName("resend-validation.get")
	app.Post(controller.Routes.ResendValidation, controller.ResendValidationPost).
		SetName("resend-validation.post")

	app.Get(controller.Routes.PasswordReset, controller.PasswordResetShow).
		SetName("pwd-reset.get")
	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")

	app.Get(controller.Routes.ChangePassword, controller.ChangePasswordShow).
		SetName("pwd-change.get")
	app.Post(controller.Routes.ChangePassword, controller.ChangePasswordPost).
		SetName("pwd-change.post")

	app.
		Get(fmt.Sprintf("%s/:provider/:reference/:token", controller.Routes.SocialValidate),
			controller.SocialValidate,
		).
		SetName("social-validate.get")

	app.
		Get(fmt.Sprintf("%s/:provider/:reference", controller.Routes.SocialResend),
			controller.SocialResend,
		).
		SetName("social-resend.get")
}

type LifecycleControllerRoutes struct {
	Login            string
	ValidateEmail    string
	ValidatePassword string
	ResendValidation string
	PasswordReset    string
	ChangePassword   string
	SocialValidate   string
	SocialResend     string
}

type LifecycleControllerViews struct {
	ResendValidation string
	PasswordReset    string
	ChangePassword   string
}

type LifecycleController struct {
	Debug    bool
	Logger   Logger
	Repo     RepositoryManager
	Config   Config
	Notifier Notifier
	Activity ActivitySink
	Session  *ResetSession
	Routes   *LifecycleControllerRoutes
	Views    *LifecycleControllerViews
}

type LifecycleControllerOption func(*LifecycleController) *LifecycleController

func NewLifecycleController(opts ...LifecycleControllerOption) *LifecycleController {
	c := &LifecycleController{
		Logger:   defLogger{},
		Notifier: noopNotifier{},
		Activity: noopActivitySink{},
		Routes: &LifecycleControllerRoutes{
			Login:            "/login",
			ValidateEmail:    "/users/validate/email",
			ValidatePassword: "/users/validate/password",
			ResendValidation: "/users/resend-token-validation",
			PasswordReset:    "/users/password-reset",
			ChangePassword:   "/users/change-password",
			SocialValidate:   "/social-accounts/validate",
			SocialResend:     "/social-accounts/resend",
		},
		Views: &LifecycleControllerViews{
			ResendValidation: "resend_validation",
			PasswordReset:    "password_reset",
			ChangePassword:   "change_password",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	c.Config = c.Config.WithDefaults()

	if c.Repo == nil {
		panic("Missing RepositoryManager in lifecycle controller...")
	}

	if c.Session == nil {
		c.Session = NewResetSession([]byte(c.Config.ResetSessionKey), c.Config.ResetSessionTTL)
	}

	return c
}

// ValidateEmail consumes the token from an account validation link and
// activates the account.
func (a *LifecycleController) ValidateEmail(ctx router.Context) error {
	token := ctx.Param("token", "")

	var res *ValidateTokenResponse
	req := ValidateTokenMessage{
		Token: token,
		Mode:  ModeActivateAccount,
		OnResponse: func(resp *ValidateTokenResponse) {
			res = resp
		},
	}

	validate := NewValidateTokenHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := validate.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("validate email token: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Account validation failed",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	if a.Debug {
		fmt.Println("======= VALIDATE EMAIL ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("=============================")
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "User account validated successfully",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// ValidatePasswordToken consumes the token from a reset link. On success it
// mints a short lived session cookie and forwards to the change-password
// form, the account itself is not touched.
func (a *LifecycleController) ValidatePasswordToken(ctx router.Context) error {
	token := ctx.Param("token", "")

	var res *ValidateTokenResponse
	req := ValidateTokenMessage{
		Token: token,
		Mode:  ModeResetPassword,
		OnResponse: func(resp *ValidateTokenResponse) {
			res = resp
		},
	}

	validate := NewValidateTokenHandler(a.Repo).WithLogger(a.Logger)

	if err := validate.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("validate reset token: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Password reset failed",
		}).Redirect(a.Routes.PasswordReset, fiber.StatusSeeOther)
	}

	session, err := a.Session.Mint(res.User.ID)
	if err != nil {
		a.Logger.Error("mint reset session: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  "Something went wrong, please request a new link",
			"system_message": "Password reset failed",
		}).Redirect(a.Routes.PasswordReset, fiber.StatusSeeOther)
	}

	a.setCookie(ctx, ResetSessionCookie, session, a.Config.ResetSessionTTL)

	return ctx.Redirect(a.Routes.ChangePassword, fiber.StatusSeeOther)
}

func (a *LifecycleController) ResendValidationShow(ctx router.Context) error {
	return ctx.Render(a.Views.ResendValidation, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// ReferencePayload identifies an account by username or email.
type ReferencePayload struct {
	Reference string `form:"reference" json:"reference"`
}

// Validate will run validation rules
func (r ReferencePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Reference,
			validation.Required,
			validation.Length(1, 255),
		),
	)
}

func (a *LifecycleController) ResendValidationPost(ctx router.Context) error {
	errors := map[string]string{}
	payload := new(ReferencePayload)

	if err := ctx.Bind(payload); err != nil {
		errors["form"] = "Failed to parse form"
		a.Logger.Error("resend validation parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ResendValidation, router.ViewContext{
			"errors": errors,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("resend validation validate payload: %v", err)
		errors := FormatValidationErrorToMap(err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ResendValidation, router.ViewContext{
			"record":     payload,
			"validation": errors,
		})
	}

	req := IssueTokenMessage{
		Reference:       payload.Reference,
		Expiration:      a.Config.TokenExpiration,
		RequireInactive: true,
		SendEmail:       true,
		Template:        a.Config.ValidationTemplate,
	}

	issueToken := NewIssueTokenHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := issueToken.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("resend validation token: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Token could not be reset",
		}).Render(a.Views.ResendValidation, router.ViewContext{
			"record": payload,
			"errors": []string{a.flashMessage(err)},
		})
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Token has been reset successfully. Please check your email.",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *LifecycleController) PasswordResetShow(ctx router.Context) error {
	return ctx.Render(a.Views.PasswordReset, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// PasswordResetPayload holds values for password reset
type PasswordResetPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *LifecycleController) PasswordResetPost(ctx router.Context) error {
	errors := map[string]string{}
	payload := new(PasswordResetPayload)

	if err := ctx.Bind(payload); err != nil {
		errors["form"] = "Failed to parse form"
		a.Logger.Error("password reset parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.PasswordReset, router.ViewContext{
			"errors": errors,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: %v", err)
		errors := FormatValidationErrorToMap(err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record":     payload,
			"validation": errors,
		})
	}

	var res *IssueTokenResponse
	req := IssueTokenMessage{
		Reference:  payload.Email,
		Expiration: a.Config.TokenExpiration,
		SendEmail:  true,
		Template:   a.Config.ResetTemplate,
		OnResponse: func(resp *IssueTokenResponse) {
			res = resp
		},
	}

	issueToken := NewIssueTokenHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := issueToken.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset issue token: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Password reset failed",
		}).Render(a.Views.PasswordReset, router.ViewContext{
			"record": payload,
			"errors": []string{a.flashMessage(err)},
		})
	}

	if a.Debug {
		fmt.Println("======= PASSWORD RESET ======")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("=============================")
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Please check your email to continue with the password reset process",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

func (a *LifecycleController) ChangePasswordShow(ctx router.Context) error {
	if _, err := a.resetSessionUser(ctx); err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Password change session expired",
		}).Redirect(a.Routes.PasswordReset, fiber.StatusSeeOther)
	}

	return ctx.Render(a.Views.ChangePassword, router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

// ChangePasswordPayload holds the new password pair
type ChangePasswordPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *LifecycleController) ChangePasswordPost(ctx router.Context) error {
	userID, err := a.resetSessionUser(ctx)
	if err != nil {
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Password change session expired",
		}).Redirect(a.Routes.PasswordReset, fiber.StatusSeeOther)
	}

	errors := map[string]string{}
	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		errors["form"] = "Failed to parse form"
		a.Logger.Error("change password parse payload: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error parsing body",
		}).Status(fiber.StatusBadRequest).Render(a.Views.ChangePassword, router.ViewContext{
			"errors": errors,
			"record": payload,
		})
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("change password validate payload: %v", err)
		errors = FormatValidationErrorToMap(err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  err.Error(),
			"system_message": "Error validating payload",
		}).Render(a.Views.ChangePassword, router.ViewContext{
			"record":     payload,
			"validation": errors,
		})
	}

	req := ChangePasswordMessage{
		UserID:   userID,
		Password: payload.Password,
	}

	changePassword := NewChangePasswordHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := changePassword.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("change password: %v", err)
		errors["validation"] = a.flashMessage(err)
		return ctx.Render(a.Views.ChangePassword, router.ViewContext{
			"errors": errors,
			"record": payload,
		})
	}

	a.cookieDel(ctx, ResetSessionCookie)

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Password has been changed successfully",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// SocialValidate consumes the validation link for a linked social account.
func (a *LifecycleController) SocialValidate(ctx router.Context) error {
	req := ValidateSocialAccountMessage{
		Provider:  ctx.Param("provider", ""),
		Reference: ctx.Param("reference", ""),
		Token:     ctx.Param("token", ""),
	}

	validate := NewValidateSocialAccountHandler(a.Repo).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := validate.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("validate social account: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Social account could not be validated",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Social account was validated successfully",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// SocialResend re-sends the validation email for a linked social account.
func (a *LifecycleController) SocialResend(ctx router.Context) error {
	req := ResendSocialValidationMessage{
		Provider:  ctx.Param("provider", ""),
		Reference: ctx.Param("reference", ""),
	}

	resend := NewResendSocialValidationHandler(a.Repo).
		WithNotifier(a.Notifier).
		WithLogger(a.Logger)

	if err := resend.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("resend social validation: %v", err)
		return flash.WithError(ctx, router.ViewContext{
			"error_message":  a.flashMessage(err),
			"system_message": "Email could not be sent",
		}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
	}

	return flash.WithSuccess(ctx, router.ViewContext{
		"system_message": "Email sent successfully",
	}).Redirect(a.Routes.Login, fiber.StatusSeeOther)
}

// resetSessionUser verifies the change-password session cookie.
func (a *LifecycleController) resetSessionUser(ctx router.Context) (userID uuid.UUID, err error) {
	session := ctx.Cookies(ResetSessionCookie)
	if session == "" {
		return uuid.Nil, ErrResetSessionInvalid
	}
	return a.Session.Verify(session)
}

// flashMessage maps handler errors to the user facing copy. Unexpected
// errors keep a generic message, internals never reach the view.
func (a *LifecycleController) flashMessage(err error) string {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return "Something went wrong, please try again"
	}

	switch richErr.TextCode {
	case TextCodeUserNotFound:
		return "Invalid token and/or email"
	case TextCodeUserAlreadyActive:
		return "User already active"
	case TextCodeTokenExpired:
		return "Token already expired"
	case TextCodeSocialAccountNotFound:
		return "Invalid token and/or social account"
	case TextCodeSocialAlreadyActive:
		return "Social account already active"
	case TextCodeResetSessionInvalid:
		return "Your password reset session expired, please request a new link"
	case TextCodeWrongPassword:
		return "The old password does not match"
	default:
		return richErr.Message
	}
}

func (a *LifecycleController) setCookie(c router.Context, name, val string, duration time.Duration) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func (a *LifecycleController) cookieDel(c router.Context, name string) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}
