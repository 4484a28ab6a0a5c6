package email

import (
	"context"
	"fmt"
	"time"

	"github.com/jwalitptl/practice-api/pkg/circuitbreaker"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Sender abstracts gomail's dialer so tests can capture messages.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

type smtpService struct {
	cfg    SMTPConfig
	sender Sender
	cb     *circuitbreaker.CircuitBreaker
	logger *zap.Logger
}

func NewSMTPService(cfg SMTPConfig, logger *zap.Logger) Service {
	return NewService(cfg, gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password), logger)
}

func NewService(cfg SMTPConfig, sender Sender, logger *zap.Logger) Service {
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
		Name:        "smtp",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		MaxFailures: 5,
		OnStateChange: func(name, from, to string) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name), zap.String("from", from), zap.String("to", to))
		},
	})
	return &smtpService{cfg: cfg, sender: sender, cb: cb, logger: logger}
}

func (s *smtpService) SendConfirmation(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`<p>Olá,</p><p>Confirme seu e-mail para ativar sua conta:</p><p><a href="%s">Confirmar e-mail</a></p>`, link)
	return s.send(ctx, to, "Confirme seu e-mail", body)
}

func (s *smtpService) SendPasswordReset(ctx context.Context, to, link string) error {
	body := fmt.Sprintf(`<p>Recebemos um pedido para redefinir sua senha.</p><p><a href="%s">Redefinir senha</a></p><p>Se não foi você, ignore este e-mail.</p>`, link)
	return s.send(ctx, to, "Redefinição de senha", body)
}

func (s *smtpService) SendNotification(ctx context.Context, to, subject, body string) error {
	return s.send(ctx, to, subject, "<p>"+body+"</p>")
}

func (s *smtpService) send(ctx context.Context, to, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/html", html)

	err := s.cb.Execute(func() error {
		return s.sender.DialAndSend(m)
	})
	if err != nil {
		s.logger.Error("failed to send email",
			zap.String("to", to), zap.String("subject", subject), zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}
