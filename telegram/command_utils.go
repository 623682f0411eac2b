package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ENSWatch/domain"
	"ENSWatch/ens"
	"ENSWatch/internal/app"
	"ENSWatch/tools"
)

const helpText = `ENS expiry watch
/watch <name> - add or remove a name
/list - show watched names
/check - notify about names expiring within 7 days
/refresh - re-read expiry dates from the registrar
/lookup <name> - show owner and expiry without watching`

func (h *CommandHandler) handleWatchCommand(ctx context.Context, operator string, args []string) {
	if len(args) != 1 {
		h.sendText(ctx, "usage: /watch <name>")
		return
	}
	req, err := app.ParseRPCRequest(app.MethodAddOrRemoveENSDomain, addParams(args[0]))
	if err != nil {
		h.sendText(ctx, fmt.Sprintf("invalid name %q: %v", args[0], err))
		return
	}
	res, err := h.Service.Handle(ctx, req)
	if err != nil {
		h.sendText(ctx, describeError(err))
		return
	}
	toggle := res.(*app.ToggleResult)
	switch toggle.Action {
	case app.ActionAdded:
		h.sendText(ctx, fmt.Sprintf("%s added %s.eth (expires %s)", operator, toggle.Label, h.formatDate(toggle.Record.ExpirationDate)))
	case app.ActionRemoved:
		h.sendText(ctx, fmt.Sprintf("%s removed %s.eth", operator, toggle.Label))
	default:
		h.sendText(ctx, fmt.Sprintf("%s.eth unchanged", toggle.Label))
	}
}

func (h *CommandHandler) handleListCommand(ctx context.Context) {
	w, err := h.Service.List(ctx)
	if err != nil {
		h.sendText(ctx, describeError(err))
		return
	}
	h.sendText(ctx, formatWatchlist(w, h.now(), h.Service.Location))
}

func (h *CommandHandler) handleCheckCommand(ctx context.Context) {
	res, err := h.Service.Handle(ctx, app.CheckExpirationDate{})
	if err != nil {
		h.sendText(ctx, describeError(err))
		return
	}
	check := res.(*app.CheckResult)
	if len(check.Expiring) == 0 {
		h.sendText(ctx, "no watched name expires within 7 days")
	}
}

func (h *CommandHandler) handleRefreshCommand(ctx context.Context) {
	res, err := h.Service.Handle(ctx, app.UpdateExpirationDates{})
	if err != nil {
		h.sendText(ctx, describeError(err))
		return
	}
	update := res.(*app.UpdateResult)
	var b strings.Builder
	fmt.Fprintf(&b, "refreshed %d name(s)", len(update.Updated))
	for _, label := range update.Updated {
		fmt.Fprintf(&b, "\n- %s.eth", label)
	}
	if len(update.Failures) > 0 {
		fmt.Fprintf(&b, "\nfailed %d name(s)", len(update.Failures))
		for _, f := range update.Failures {
			fmt.Fprintf(&b, "\n- %s.eth: %s", f.Label, f.Reason)
		}
	}
	h.sendText(ctx, b.String())
}

func (h *CommandHandler) handleLookupCommand(ctx context.Context, args []string) {
	if len(args) != 1 {
		h.sendText(ctx, "usage: /lookup <name>")
		return
	}
	label, rec, err := h.Service.Lookup(ctx, args[0])
	if err != nil {
		h.sendText(ctx, describeError(err))
		return
	}
	h.sendText(ctx, fmt.Sprintf("%s.eth\nowner: %s\nexpires: %s (%d days)",
		label, rec.Owner, h.formatDate(rec.ExpirationDate), tools.DaysUntil(rec.ExpirationDate, h.now())))
}

func (h *CommandHandler) sendText(ctx context.Context, msg string) {
	if err := h.Sender.Send(ctx, msg); err != nil {
		h.Logger.Warn("reply failed", zap.Error(err))
	}
}

func (h *CommandHandler) now() time.Time {
	if h.Service != nil && h.Service.Now != nil {
		return h.Service.Now()
	}
	return time.Now()
}

func (h *CommandHandler) formatDate(ms int64) string {
	var loc *time.Location
	if h.Service != nil {
		loc = h.Service.Location
	}
	return tools.FormatExpiry(ms, loc)
}

func formatWatchlist(w *domain.Watchlist, now time.Time, loc *time.Location) string {
	if w == nil || w.Len() == 0 {
		return "watchlist is empty"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "watching %d name(s)", w.Len())
	w.Range(func(label string, rec domain.Record) bool {
		fmt.Fprintf(&b, "\n%s.eth  %s  %dd  %s", label, tools.FormatExpiry(rec.ExpirationDate, loc), tools.DaysUntil(rec.ExpirationDate, now), rec.Owner)
		return true
	})
	return b.String()
}

func describeError(err error) string {
	var rerr *ens.ResolutionError
	var perr *domain.PersistenceError
	switch {
	case errors.Is(err, ens.ErrNotRegistered):
		return "name is not registered"
	case errors.As(err, &rerr):
		return "registrar lookup failed: " + rerr.Error()
	case errors.As(err, &perr):
		return "watchlist storage failed: " + perr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	}
	return "failed: " + err.Error()
}

func addParams(name string) []byte {
	data, _ := json.Marshal(app.AddOrRemoveENSDomain{ENSDomain: name})
	return data
}

func formatOperator(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return fmt.Sprintf("id:%d", u.ID)
}
