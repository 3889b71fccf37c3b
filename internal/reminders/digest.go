package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/txtalert/reminder-gateway/internal/gateway"
	"github.com/txtalert/reminder-gateway/internal/model"
	"github.com/txtalert/reminder-gateway/pkg/logger"
)

const digestEmailSubject = "[TxtAlert] Messages Sent Report"

const digestEmailText = `
%d TXTAlert Messages Sent on %s
Attended Yesterday: %d
Missed Yesterday: %d (%.1f%%)
Pending Tomorrow: %d
Pending in 2 weeks: %d
`

const digestSMSText = `
TXTAlert %d Messages Sent:
Attended Yesterday - %d
Missed Yesterday - %d (%.1f%%)
Pending Tomorrow - %d
Pending in 2 weeks- %d
`

type SettingStore interface {
	GetByName(ctx context.Context, name string) (*model.Setting, error)
}

type EmailSender interface {
	Send(ctx context.Context, subject, body string, to []string) error
}

// Digest delivers the daily stats summary to the operators: an email to
// the "Stats Emails" list and an SMS to the "Stats MSISDNs" list. Both
// lists live in the settings store, one recipient per line.
type Digest struct {
	settings SettingStore
	email    EmailSender
	gateway  gateway.Gateway
}

func NewDigest(settings SettingStore, email EmailSender, gw gateway.Gateway) *Digest {
	return &Digest{
		settings: settings,
		email:    email,
		gateway:  gw,
	}
}

// Send delivers both digest channels. Email failures are logged and
// swallowed; an SMS dispatch failure is returned.
func (d *Digest) Send(ctx context.Context, stats *Stats) error {
	d.sendEmail(ctx, stats)
	return d.sendSMS(ctx, stats)
}

func (d *Digest) sendEmail(ctx context.Context, stats *Stats) {
	emails, err := d.recipients(ctx, model.SettingStatsEmails)
	if err != nil {
		logger.Warn("No stats email recipients", "error", err)
		return
	}

	body := fmt.Sprintf(digestEmailText,
		stats.Total,
		stats.Date.Format("2006-01-02"),
		stats.Attended,
		stats.Missed,
		stats.MissedPercentage,
		stats.Tomorrow,
		stats.TwoWeeks)

	logger.Info("Sending stats emails", "recipients", strings.Join(emails, ", "))
	logger.Debug(body)

	if err := d.email.Send(ctx, digestEmailSubject, body, emails); err != nil {
		logger.Warn("Failed to send stats email", "error", err)
	}
}

func (d *Digest) sendSMS(ctx context.Context, stats *Stats) error {
	msisdns, err := d.recipients(ctx, model.SettingStatsMSISDNs)
	if err != nil {
		logger.Warn("No stats SMS recipients", "error", err)
		return nil
	}

	body := fmt.Sprintf(digestSMSText,
		stats.Total,
		stats.Attended,
		stats.Missed,
		stats.MissedPercentage,
		stats.Tomorrow,
		stats.TwoWeeks)

	logger.Info("Sending stats SMSs", "recipients", strings.Join(msisdns, ", "))
	logger.Debug(body)

	texts := make([]string, len(msisdns))
	for i := range texts {
		texts[i] = body
	}

	_, err = d.gateway.SendBatch(ctx, msisdns, texts, gateway.SendOptions{
		Delivery: time.Now(),
		Expiry:   time.Now().Add(24 * time.Hour),
		Priority: model.PriorityStandard,
	})
	if err != nil {
		return fmt.Errorf("send stats sms: %w", err)
	}
	return nil
}

// recipients splits a settings list value into one entry per line.
func (d *Digest) recipients(ctx context.Context, settingName string) ([]string, error) {
	setting, err := d.settings.GetByName(ctx, settingName)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.ReplaceAll(setting.Value, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("setting %q has no entries", settingName)
	}
	return out, nil
}
