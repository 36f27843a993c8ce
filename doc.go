// Package users implements the account lifecycle around email validation
// and password reset tokens, plus validation of linked social accounts.
//
// Token lifecycle:
//   - IssueTokenHandler attaches a fresh random token to an account looked
//     up by username or email. With RequireInactive the account is re-opened
//     (active flag cleared) so the token gates activation again.
//   - ValidateTokenHandler consumes a token from a link. In activation mode
//     it flips the account active and clears the token; in reset mode it
//     only proves ownership, the token survives until the password change.
//   - ChangePasswordHandler rehashes the password and clears any
//     outstanding token in the same transaction. It can optionally verify
//     the current password against the persisted hash first.
//
// Social accounts:
//   - ValidateSocialAccountHandler and ResendSocialValidationHandler cover
//     the validation link flow for identities linked through an external
//     provider. A missing account and a wrong token are indistinguishable
//     on purpose.
//   - NewSocialAccountCreatedHook wires the after-create notification that
//     mails the validation link when a social identity is first linked.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter used by the handlers to
//     describe token issuance, activation, password change, and social
//     validation events. Sinks run best-effort (errors are logged) so you
//     can forward to a database or queue without blocking the flow.
//
// HTTP:
//   - RegisterLifecycleRoutes mounts the validation link endpoints and the
//     resend/reset/change-password forms on a go-router application. The
//     reset flow carries the validated user in a short lived signed cookie
//     between the token link and the change-password form.
package users
