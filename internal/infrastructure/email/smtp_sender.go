package email

import (
	"context"
	"strings"
	"time"

	"github.com/baechuer/summons/internal/notify"
	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

type SMTPSender struct {
	lg zerolog.Logger

	host     string
	port     int
	user     string
	pass     string
	from     string
	insecure bool

	timeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
	Insecure bool
}

func NewSMTPSender(cfg SMTPConfig, lg zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		lg:       lg.With().Str("component", "smtp_sender").Logger(),
		host:     cfg.Host,
		port:     cfg.Port,
		user:     cfg.Username,
		pass:     cfg.Password,
		from:     cfg.From,
		insecure: cfg.Insecure,
		timeout:  cfg.Timeout,
	}
}

func (s *SMTPSender) Send(ctx context.Context, msg notify.Message) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	m, err := s.build(msg)
	if err != nil {
		return err
	}

	tlsPolicy := mail.TLSMandatory
	if s.insecure {
		tlsPolicy = mail.TLSOpportunistic
	}
	opts := []mail.Option{
		mail.WithPort(s.port),
		mail.WithTLSPolicy(tlsPolicy),
	}
	if s.user != "" {
		opts = append(opts, mail.WithSMTPAuth(mail.SMTPAuthPlain), mail.WithUsername(s.user), mail.WithPassword(s.pass))
	}

	c, err := mail.NewClient(s.host, opts...)
	if err != nil {
		return PermanentError{msg: "smtp client init failed: " + err.Error()}
	}

	if err := c.DialAndSendWithContext(ctx, m); err != nil {
		s.lg.Error().Err(err).Str("subject", msg.Subject).Msg("smtp send failed")
		text := err.Error()
		if containsAny(text, "535", "5.7.8", "authentication") {
			return PermanentError{msg: "smtp auth failed: " + text}
		}
		return TemporaryError{msg: "smtp transient failure: " + text}
	}

	s.lg.Debug().Str("subject", msg.Subject).Msg("smtp send ok")
	return nil
}

func (s *SMTPSender) build(msg notify.Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return nil, PermanentError{msg: "invalid from address: " + err.Error()}
	}
	if err := m.To(msg.To); err != nil {
		return nil, PermanentError{msg: "invalid to address: " + err.Error()}
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Text)
	if msg.HTML != "" {
		m.AddAlternativeString(mail.TypeTextHTML, msg.HTML)
	}
	return m, nil
}

func containsAny(s string, subs ...string) bool {
	for _, x := range subs {
		if x != "" && strings.Contains(s, x) {
			return true
		}
	}
	return false
}
