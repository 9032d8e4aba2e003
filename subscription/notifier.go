package subscription

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/entitledhq/entitled/pkg/async"
	"github.com/entitledhq/entitled/pkg/email"
	"github.com/entitledhq/entitled/pkg/logger"
)

// EmailNotifier sends subscription lifecycle notices. Sends are dispatched
// on a future and never awaited on the webhook path; the state change is
// already persisted by the time a notice goes out.
type EmailNotifier struct {
	sender email.EmailSender
	log    *slog.Logger
}

// NewEmailNotifier creates a notifier backed by an email sender.
func NewEmailNotifier(sender email.EmailSender, log *slog.Logger) *EmailNotifier {
	if sender == nil {
		panic("subscription: EmailSender is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &EmailNotifier{sender: sender, log: log}
}

// NotifyTransition implements Notifier.
func (n *EmailNotifier) NotifyTransition(ctx context.Context, acct AccountSubscription, from, to Status) {
	if acct.Email == "" {
		return
	}

	params, ok := noticeFor(acct, from, to)
	if !ok {
		return
	}

	// Detach from the request context so a webhook response does not cancel
	// an in-flight send.
	async.Async(context.WithoutCancel(ctx), params, func(ctx context.Context, p email.SendEmailParams) (struct{}, error) {
		if err := n.sender.SendEmail(ctx, p); err != nil {
			n.log.ErrorContext(ctx, "failed to send subscription notice",
				logger.AccountID(acct.AccountID),
				slog.String("tag", p.Tag),
				logger.Error(err))
		}
		return struct{}{}, nil
	})
}

func noticeFor(acct AccountSubscription, from, to Status) (email.SendEmailParams, bool) {
	switch {
	case to == StatusActive && from == StatusCanceled:
		return email.SendEmailParams{
			SendTo:   acct.Email,
			Subject:  "Your subscription is back on",
			BodyHTML: "<p>Your cancellation was reversed and your subscription is active again. Nothing else to do.</p>",
			Tag:      "subscription-reactivated",
		}, true

	case to == StatusActive:
		return email.SendEmailParams{
			SendTo:   acct.Email,
			Subject:  "Welcome aboard",
			BodyHTML: "<p>Your subscription is active. Thanks for subscribing!</p>",
			Tag:      "subscription-welcome",
		}, true

	case to == StatusCanceled:
		body := "<p>Your subscription has been canceled."
		if acct.SubscriptionEnd != nil {
			body += fmt.Sprintf(" You keep full access until %s.", acct.SubscriptionEnd.Format("January 2, 2006"))
		}
		body += "</p>"
		return email.SendEmailParams{
			SendTo:   acct.Email,
			Subject:  "Subscription canceled",
			BodyHTML: body,
			Tag:      "subscription-canceled",
		}, true

	case to == StatusPastDue:
		return email.SendEmailParams{
			SendTo:   acct.Email,
			Subject:  "Payment issue with your subscription",
			BodyHTML: "<p>Your latest payment did not go through. Please update your payment method to keep access.</p>",
			Tag:      "payment-failed",
		}, true
	}

	return email.SendEmailParams{}, false
}
