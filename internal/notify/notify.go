// Package notify delivers one-time codes to credential owners.
//
// Delivery is best effort: the workflow proceeds whether or not any channel
// succeeds, so notifiers log failures and never propagate them into the
// request path. The console channel always runs, which keeps local
// development usable without mail infrastructure.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
)

// OTPMessage carries everything a channel needs to reach the owner.
type OTPMessage struct {
	OwnerIDNo    string
	OwnerEmail   string
	OwnerMobile  string
	BusinessName string
	Code         string
	ExpiresIn    string
}

// Notifier sends an OTP over one channel.
type Notifier interface {
	SendOTP(ctx context.Context, msg OTPMessage) error
}

// ConsoleNotifier prints the code to the application log. Always wired,
// mirrors printing to stdout in development setups.
type ConsoleNotifier struct {
	logger *slog.Logger
}

func NewConsole(logger *slog.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n *ConsoleNotifier) SendOTP(_ context.Context, msg OTPMessage) error {
	n.logger.Info("verification OTP issued",
		"owner_id_no", msg.OwnerIDNo,
		"business", msg.BusinessName,
		"otp", msg.Code,
		"expires_in", msg.ExpiresIn,
	)
	return nil
}

// SMTPNotifier emails the code via a plain SMTP relay.
type SMTPNotifier struct {
	addr string
	from string
}

// NewSMTP returns nil when addr is empty, which disables the channel.
func NewSMTP(addr, from string) *SMTPNotifier {
	if addr == "" {
		return nil
	}
	return &SMTPNotifier{addr: addr, from: from}
}

func (n *SMTPNotifier) SendOTP(_ context.Context, msg OTPMessage) error {
	if msg.OwnerEmail == "" {
		return fmt.Errorf("owner has no email address")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", n.from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.OwnerEmail)
	fmt.Fprintf(&b, "Subject: Credential verification request from %s\r\n", msg.BusinessName)
	b.WriteString("\r\n")
	fmt.Fprintf(&b, "%s has requested to verify your credentials.\r\n", msg.BusinessName)
	fmt.Fprintf(&b, "Your one-time confirmation code is %s. It expires in %s.\r\n", msg.Code, msg.ExpiresIn)
	fmt.Fprintf(&b, "If you did not expect this, ignore this message.\r\n")
	return smtp.SendMail(n.addr, nil, n.from, []string{msg.OwnerEmail}, []byte(b.String()))
}

// Dispatcher fans an OTP out to every channel, swallowing per-channel
// failures after logging them.
type Dispatcher struct {
	channels []Notifier
	logger   *slog.Logger
	onResult func(failed bool)
}

// NewDispatcher builds a dispatcher over the non-nil channels. onResult is
// called once per channel attempt; pass nil to skip instrumentation.
func NewDispatcher(logger *slog.Logger, onResult func(failed bool), channels ...Notifier) *Dispatcher {
	d := &Dispatcher{logger: logger, onResult: onResult}
	for _, c := range channels {
		if c != nil && !isNilNotifier(c) {
			d.channels = append(d.channels, c)
		}
	}
	return d
}

// Dispatch attempts delivery on every channel. Never returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, msg OTPMessage) {
	for _, c := range d.channels {
		err := c.SendOTP(ctx, msg)
		if d.onResult != nil {
			d.onResult(err != nil)
		}
		if err != nil {
			d.logger.Warn("OTP delivery failed",
				"owner_id_no", msg.OwnerIDNo,
				"error", err,
			)
		}
	}
}

// isNilNotifier guards against typed-nil interface values, e.g. a nil
// *SMTPNotifier passed through the Notifier interface.
func isNilNotifier(n Notifier) bool {
	switch v := n.(type) {
	case *SMTPNotifier:
		return v == nil
	case *ConsoleNotifier:
		return v == nil
	default:
		return false
	}
}
