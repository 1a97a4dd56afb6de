// Package sender отправляет письма участникам по сообщениям из очередей уведомлений.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/membership-service/internal/lib/sl"
	"github.com/magabrotheeeer/membership-service/internal/lib/smtp"
	"github.com/magabrotheeeer/membership-service/internal/models"
)

const dateLayout = "02 Jan 2006"

// SenderService формирует и отправляет письма.
type SenderService struct {
	transport smtp.TransportInterface
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService.
func NewSenderService(transport smtp.TransportInterface, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		log:       log,
	}
}

// SendPaymentReceipt отправляет квитанцию об оплате тарифа.
func (s *SenderService) SendPaymentReceipt(body []byte) error {
	const op = "sender.SendPaymentReceipt"

	var message models.PaymentReceipt
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}

	subject := "Payment received: " + message.PlanName
	bodyText := fmt.Sprintf("Hello %s,\r\n\r\n"+
		"We have received your payment of %.2f %s for the %s plan (order %s).\r\n"+
		"Your membership is valid from %s to %s.\r\n\r\n"+
		"Thank you!",
		message.FirstName, message.Amount, message.Currency, message.PlanName, message.OrderID,
		message.PlanStart.Format(dateLayout), message.PlanEnd.Format(dateLayout))

	if err := s.sendEmail([]string{message.Email}, subject, bodyText); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// SendMembershipExpiring отправляет напоминание об окончании членства.
func (s *SenderService) SendMembershipExpiring(body []byte) error {
	const op = "sender.SendMembershipExpiring"

	var message models.MembershipExpiring
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Op(op), sl.Err(err))
		return fmt.Errorf("%s: error unmarshalling message: %w", op, err)
	}

	subject := "Your membership is about to expire"
	bodyText := fmt.Sprintf("Hello %s,\r\n\r\n"+
		"Your membership ends on %s.\r\n"+
		"Renew your plan to keep access to the facility.",
		message.FirstName, message.PlanEnd.Format(dateLayout))

	if err := s.sendEmail([]string{message.Email}, subject, bodyText); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	from := s.transport.Sender()
	msg := strings.Join([]string{
		"From: " + from,
		"To: " + strings.Join(to, ", "),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer client.Close()

	if err := client.Mail(from); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", from), sl.Err(err))
		return err
	}
	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}
	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}
	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}
	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
