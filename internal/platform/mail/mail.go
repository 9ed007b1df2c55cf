package mail

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/consultorio/consultorio/internal/config"
)

// ErrDisabled is returned by Send when outbound mail is switched off.
var ErrDisabled = errors.New("mail delivery is disabled")

// InvalidMessageError reports a message that cannot be sent as built.
type InvalidMessageError struct{ Reason string }

func (e *InvalidMessageError) Error() string { return "invalid mail message: " + e.Reason }

// SendError wraps a failure reported by the SMTP server or dialer.
type SendError struct{ Err error }

func (e *SendError) Error() string { return fmt.Sprintf("smtp send failed: %v", e.Err) }
func (e *SendError) Unwrap() error { return e.Err }

type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

type Message struct {
	To          []string
	Subject     string
	TextBody    string
	Attachments []Attachment
}

// Sender delivers messages. Client is the SMTP implementation.
type Sender interface {
	Enabled() bool
	Send(ctx context.Context, m Message) error
}

type Config struct {
	Enabled  bool
	From     string
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	Timeout  time.Duration
}

// FromConfig picks the mail settings out of the application config.
func FromConfig(cfg *config.Config) Config {
	return Config{
		Enabled:  cfg.MailEnabled,
		From:     cfg.MailFrom,
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		UseTLS:   cfg.SMTPUseTLS,
		Timeout:  cfg.SMTPTimeout,
	}
}

type Client struct {
	cfg  Config
	send func(*gomail.Message) error
}

func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := &Client{cfg: cfg}
	c.send = func(m *gomail.Message) error { return c.newDialer().DialAndSend(m) }
	return c
}

func (c *Client) Enabled() bool { return c.cfg.Enabled }

// Send builds the message and hands it to the SMTP server. The dial runs in
// its own goroutine so a hung server cannot outlive ctx or the configured
// timeout.
func (c *Client) Send(ctx context.Context, m Message) error {
	if !c.cfg.Enabled {
		return ErrDisabled
	}

	msg, err := buildMessage(c.cfg.From, m)
	if err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		done <- c.send(msg)
	}()

	wait := c.cfg.Timeout
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 && d < wait {
			wait = d
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			return &SendError{Err: err}
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return context.DeadlineExceeded
	}
}

func (c *Client) newDialer() *gomail.Dialer {
	d := gomail.NewDialer(c.cfg.Host, c.cfg.Port, c.cfg.Username, c.cfg.Password)
	// Implicit TLS (port 465). Without it gomail still upgrades with STARTTLS
	// when the server offers it.
	d.SSL = c.cfg.UseTLS
	d.TLSConfig = &tls.Config{ServerName: c.cfg.Host, MinVersion: tls.VersionTLS12}
	return d
}

func buildMessage(from string, m Message) (*gomail.Message, error) {
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, &InvalidMessageError{Reason: "from is required"}
	}
	to := cleanAddrs(m.To)
	if len(to) == 0 {
		return nil, &InvalidMessageError{Reason: "at least one recipient is required"}
	}
	subject := strings.TrimSpace(m.Subject)
	if subject == "" {
		return nil, &InvalidMessageError{Reason: "subject is required"}
	}
	if strings.TrimSpace(m.TextBody) == "" {
		return nil, &InvalidMessageError{Reason: "body is required"}
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", m.TextBody)

	for _, a := range m.Attachments {
		if a.Name == "" {
			return nil, &InvalidMessageError{Reason: "attachment name is required"}
		}
		data := a.Data
		settings := []gomail.FileSetting{
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
		}
		if a.ContentType != "" {
			settings = append(settings, gomail.SetHeader(map[string][]string{
				"Content-Type": {a.ContentType},
			}))
		}
		msg.Attach(a.Name, settings...)
	}
	return msg, nil
}

func cleanAddrs(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}
