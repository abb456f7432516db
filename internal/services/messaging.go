package services

import (
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ses"
	"github.com/aws/aws-sdk-go/service/ses/sesiface"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/registration-backend/internal/config"
)

// Email is a rendered outbound message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// Mailer delivers emails.
type Mailer interface {
	Send(ctx context.Context, email Email) error
}

// SMSSender delivers text messages.
type SMSSender interface {
	Send(ctx context.Context, phone, message string) error
}

// NewMailer selects the email transport configured by EMAIL_PROVIDER.
func NewMailer(cfg config.EmailConfig, sess *session.Session) (Mailer, error) {
	switch cfg.Provider {
	case "ses":
		if sess == nil {
			return nil, fmt.Errorf("EMAIL_PROVIDER=ses requires an AWS session")
		}
		return NewSESMailer(ses.New(sess), cfg), nil
	case "smtp":
		return NewSMTPMailer(cfg), nil
	default:
		return NewLogMailer(), nil
	}
}

// NewSMSSender selects the SMS transport configured by SMS_PROVIDER.
func NewSMSSender(cfg config.SMSConfig, sess *session.Session) (SMSSender, error) {
	switch cfg.Provider {
	case "sns":
		if sess == nil {
			return nil, fmt.Errorf("SMS_PROVIDER=sns requires an AWS session")
		}
		return NewSNSSender(sns.New(sess), cfg.SenderID), nil
	default:
		return NewLogSMSSender(), nil
	}
}

type SESMailer struct {
	client sesiface.SESAPI
	from   string
}

func NewSESMailer(client sesiface.SESAPI, cfg config.EmailConfig) *SESMailer {
	return &SESMailer{client: client, from: formatFrom(cfg)}
}

func (m *SESMailer) Send(ctx context.Context, email Email) error {
	input := &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &ses.Destination{ToAddresses: []*string{aws.String(email.To)}},
		Message: &ses.Message{
			Subject: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(email.Subject)},
			Body: &ses.Body{
				Html: &ses.Content{Charset: aws.String("UTF-8"), Data: aws.String(email.HTML)},
			},
		},
	}

	if _, err := m.client.SendEmailWithContext(ctx, input); err != nil {
		return fmt.Errorf("ses send email: %w", err)
	}
	return nil
}

type SMTPMailer struct {
	cfg config.EmailConfig
}

func NewSMTPMailer(cfg config.EmailConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(_ context.Context, email Email) error {
	var auth smtp.Auth
	if m.cfg.SMTPUsername != "" {
		auth = smtp.PlainAuth("", m.cfg.SMTPUsername, m.cfg.SMTPPassword, m.cfg.SMTPHost)
	}

	msg := []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		formatFrom(m.cfg), email.To, mime.QEncoding.Encode("utf-8", email.Subject), email.HTML,
	))

	addr := fmt.Sprintf("%s:%s", m.cfg.SMTPHost, m.cfg.SMTPPort)
	if err := smtp.SendMail(addr, auth, m.cfg.FromEmail, []string{email.To}, msg); err != nil {
		return fmt.Errorf("smtp send mail: %w", err)
	}
	return nil
}

// LogMailer only logs; used when no transport is configured.
type LogMailer struct{}

func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

func (m *LogMailer) Send(_ context.Context, email Email) error {
	logrus.WithFields(logrus.Fields{
		"to":      email.To,
		"subject": email.Subject,
	}).Info("Email would be sent")
	return nil
}

type SNSSender struct {
	client   snsiface.SNSAPI
	senderID string
}

func NewSNSSender(client snsiface.SNSAPI, senderID string) *SNSSender {
	return &SNSSender{client: client, senderID: senderID}
}

func (s *SNSSender) Send(ctx context.Context, phone, message string) error {
	input := &sns.PublishInput{
		PhoneNumber: aws.String(phone),
		Message:     aws.String(message),
		MessageAttributes: map[string]*sns.MessageAttributeValue{
			"AWS.SNS.SMS.SMSType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("Transactional"),
			},
		},
	}
	if s.senderID != "" {
		input.MessageAttributes["AWS.SNS.SMS.SenderID"] = &sns.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.senderID),
		}
	}

	if _, err := s.client.PublishWithContext(ctx, input); err != nil {
		return fmt.Errorf("sns publish: %w", err)
	}
	return nil
}

type LogSMSSender struct{}

func NewLogSMSSender() *LogSMSSender {
	return &LogSMSSender{}
}

func (s *LogSMSSender) Send(_ context.Context, phone, message string) error {
	logrus.WithFields(logrus.Fields{
		"phone":  maskPhone(phone),
		"length": len(message),
	}).Info("SMS would be sent")
	return nil
}

func formatFrom(cfg config.EmailConfig) string {
	if cfg.FromName == "" {
		return cfg.FromEmail
	}
	return fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", cfg.FromName), cfg.FromEmail)
}

func maskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
