package method

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/smtp"
	"os/exec"
	"strings"
	"time"

	"git.ghink.net/ghink/host-checker/internal/model"
)

var (
	ErrSendmailFailed = errors.New("sendmail failed")
	ErrSMTPConnection = errors.New("smtp connection failed")
)

const DefaultSMTPTimeout = 30 * time.Second

// Sender delivers a finished report to its recipients.
type Sender interface {
	Send(ctx context.Context, report model.Report) error
}

func NewSender(cfg model.MailSenderConfig) (Sender, error) {
	switch cfg.Type {
	case "", model.SenderSendmail:
		path := cfg.Sendmail
		if path == "" {
			path = DefaultSendmail
		}
		return &SendmailSender{Path: path}, nil
	case model.SenderSMTP:
		return &SMTPSender{Address: cfg.Address, Dialer: &netDialer{timeout: DefaultSMTPTimeout}}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSender, cfg.Type)
	}
}

// SendmailSender hands the message to the local transport agent, one process
// per recipient.
type SendmailSender struct {
	Path string
}

func (s *SendmailSender) Send(ctx context.Context, report model.Report) error {
	msg := BuildMessage(report)

	for _, rcpt := range report.Recipients {
		var stderr bytes.Buffer
		cmd := exec.CommandContext(ctx, s.Path, envelopeAddress(rcpt))
		cmd.Stdin = bytes.NewReader(msg)
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return fmt.Errorf("%w for %s: %v: %s", ErrSendmailFailed, rcpt, err, strings.TrimSpace(stderr.String()))
		}
		Logger("DEBUG", "Report handed to ", s.Path, " for ", rcpt)
	}

	return nil
}

// SMTPDialer opens a session to a mail relay.
type SMTPDialer interface {
	DialContext(ctx context.Context, addr string) (SMTPClient, error)
}

// SMTPClient is the part of *smtp.Client used for submission.
type SMTPClient interface {
	Mail(from string) error
	Rcpt(to string) error
	Data() (io.WriteCloser, error)
	Quit() error
	Close() error
}

// SMTPSender submits a single message addressed to every recipient.
type SMTPSender struct {
	Address string
	Dialer  SMTPDialer
}

func (s *SMTPSender) Send(ctx context.Context, report model.Report) error {
	addr := relayAddress(s.Address)

	client, err := s.Dialer.DialContext(ctx, addr)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSMTPConnection, addr, err)
	}
	defer client.Close()

	if err := client.Mail(envelopeAddress(report.From)); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}
	for _, rcpt := range report.Recipients {
		if err := client.Rcpt(envelopeAddress(rcpt)); err != nil {
			return fmt.Errorf("RCPT TO failed for %s: %w", rcpt, err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("DATA failed: %w", err)
	}
	if _, err := w.Write(BuildMessage(report)); err != nil {
		_ = w.Close()
		return fmt.Errorf("write message failed: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("message rejected: %w", err)
	}

	return client.Quit()
}

// relayAddress adds the SMTP port when the configured relay has none.
func relayAddress(address string) string {
	address = strings.TrimSpace(address)
	if address == "" {
		address = "localhost"
	}
	if _, _, err := net.SplitHostPort(address); err != nil {
		return net.JoinHostPort(address, "25")
	}
	return address
}

// envelopeAddress strips a display name: "Name <a@b>" becomes "a@b".
func envelopeAddress(s string) string {
	if i := strings.LastIndex(s, "<"); i >= 0 {
		if j := strings.Index(s[i:], ">"); j > 0 {
			return s[i+1 : i+j]
		}
	}
	return strings.TrimSpace(s)
}

type netDialer struct {
	timeout time.Duration
}

func (d *netDialer) DialContext(ctx context.Context, addr string) (SMTPClient, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid SMTP address %q: %w", addr, err)
	}

	dialer := &net.Dialer{Timeout: d.timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}

	client, err := smtp.NewClient(conn, host)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return client, nil
}
