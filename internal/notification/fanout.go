package notification

import (
	"context"
	"log/slog"

	"github.com/hawiyya/hawiyya-server/internal/account"
)

// DeliveryResult records the outcome of delivering one notification to
// one account. Failures are collected instead of aborting the batch; the
// caller decides what to do with them.
type DeliveryResult struct {
	AccountID string
	// Skipped is set when the preference gate found an identical unseen
	// notification already in the inbox.
	Skipped bool
	Err     error
}

// Fanout appends a notification to each target inbox and dispatches push
// messages grouped by language. Delivery is best effort throughout.
type Fanout struct {
	repo          account.Repository
	push          PushSender
	logger        *slog.Logger
	inboxCapacity int
}

// NewFanout constructs the fan-out dispatcher.
func NewFanout(repo account.Repository, push PushSender, logger *slog.Logger, inboxCapacity int) *Fanout {
	if inboxCapacity < 1 {
		inboxCapacity = 10
	}
	return &Fanout{repo: repo, push: push, logger: logger, inboxCapacity: inboxCapacity}
}

// Send delivers the notification to every listed account. Per-account
// failures land in the result slice and never stop the loop.
func (f *Fanout) Send(ctx context.Context, accountIDs []string, n account.Notification) []DeliveryResult {
	results := make([]DeliveryResult, 0, len(accountIDs))
	tokensByLang := make(map[account.Language][]string)

	for _, id := range accountIDs {
		a, err := f.repo.FindByID(ctx, id)
		if err != nil {
			results = append(results, DeliveryResult{AccountID: id, Err: err})
			continue
		}
		if !a.ShouldReceive(n) {
			results = append(results, DeliveryResult{AccountID: id, Skipped: true})
			continue
		}
		a = a.WithNotification(n, f.inboxCapacity)
		if err := f.repo.Update(ctx, a); err != nil {
			results = append(results, DeliveryResult{AccountID: id, Err: err})
			continue
		}
		if a.DeviceToken != "" {
			tokensByLang[a.Language] = append(tokensByLang[a.Language], a.DeviceToken)
		}
		results = append(results, DeliveryResult{AccountID: id})
	}

	f.dispatch(ctx, tokensByLang, n)
	return results
}

// NotifyAdminsOfServerErrors alerts every verified admin about pending
// server errors. The inbox preference gate keeps a recurring scheduler
// tick from stacking duplicates.
func (f *Fanout) NotifyAdminsOfServerErrors(ctx context.Context, count int) ([]DeliveryResult, error) {
	if count < 1 {
		return nil, nil
	}
	admins, err := f.repo.FindAdmins(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(admins))
	for i, a := range admins {
		ids[i] = a.ID
	}
	return f.Send(ctx, ids, ServerErrorsOccurred(count)), nil
}

func (f *Fanout) dispatch(ctx context.Context, tokensByLang map[account.Language][]string, n account.Notification) {
	for lang, tokens := range tokensByLang {
		push := Push{
			Title:    n.Title.EN,
			Body:     n.Body.EN,
			PhotoURL: n.PhotoURL,
			Tokens:   tokens,
		}
		if lang == account.LanguageArabic {
			push.Title = n.Title.AR
			push.Body = n.Body.AR
		}
		if err := f.push.Send(ctx, push); err != nil && f.logger != nil {
			f.logger.Warn("push dispatch failed", "lang", lang, "tokens", len(tokens), "error", err)
		}
	}
}
