package users

import (
	"context"

	"github.com/goliatone/go-repository-bun"
)

// NewSocialAccountCreatedHook builds the after-create hook that mails a
// validation link for freshly linked social identities. It skips accounts
// that arrive already active, and skips owners that have not completed
// their own email validation yet.
func NewSocialAccountCreatedHook(users Users, notifier Notifier, logger Logger) SocialAccountHook {
	notifier = normalizeNotifier(notifier)
	logger = normalizeLogger(logger)

	return func(ctx context.Context, account *SocialAccount) error {
		if account == nil || account.Active {
			return nil
		}

		owner, err := users.GetByID(ctx, account.UserID.String())
		if err != nil {
			if repository.IsRecordNotFound(err) {
				return nil
			}
			return err
		}

		if !owner.Active {
			return nil
		}

		msg := SocialValidationNotification(owner, account)
		if err := notifier.Send(ctx, msg); err != nil {
			logger.Error("social validation notification dispatch: %v", err)
		}

		return nil
	}
}
