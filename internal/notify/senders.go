package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	mailjet "github.com/mailjet/mailjet-apiv3-go"
)

type LogSender struct {
	Log *slog.Logger
}

func (s LogSender) Send(_ context.Context, job Job) error {
	s.Log.Info("new subscription",
		"meetup_id", job.Meetup.ID,
		"meetup_title", job.Meetup.Title,
		"organizer_id", job.Meetup.OwnerID,
		"user_id", job.Subscriber.ID,
		"user_name", job.Subscriber.Name,
	)
	return nil
}

// messageText: текст письма/сообщения организатору.
func messageText(job Job) string {
	name := job.Subscriber.Name
	if name == "" {
		name = fmt.Sprintf("user #%d", job.Subscriber.ID)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s subscribed to your meetup \"%s\".\n", name, job.Meetup.Title)
	fmt.Fprintf(&b, "When: %s\n", job.Meetup.Date.Format("02.01.2006 15:04"))
	fmt.Fprintf(&b, "Where: %s\n", job.Meetup.Location)
	if job.Subscriber.Email != "" {
		fmt.Fprintf(&b, "Contact: %s\n", job.Subscriber.Email)
	}
	return b.String()
}

// MailSender отправляет письмо организатору через MailJet.
type MailSender struct {
	sender string
	owners UserGetter
	send   func(*mailjet.MessagesV31) error
}

func NewMailSender(publicKey, privateKey, sender string, owners UserGetter) *MailSender {
	clt := mailjet.NewMailjetClient(publicKey, privateKey)
	return &MailSender{
		sender: sender,
		owners: owners,
		send: func(m *mailjet.MessagesV31) error {
			_, err := clt.SendMailV31(m)
			return err
		},
	}
}

func (s *MailSender) Send(ctx context.Context, job Job) error {
	owner, err := s.owners.Get(ctx, job.Meetup.OwnerID)
	if err != nil {
		return fmt.Errorf("lookup organizer %d: %w", job.Meetup.OwnerID, err)
	}
	if owner.Email == "" {
		return ErrNoRecipient
	}

	info := []mailjet.InfoMessagesV31{{
		From:     &mailjet.RecipientV31{Email: s.sender},
		To:       &mailjet.RecipientsV31{mailjet.RecipientV31{Email: owner.Email, Name: owner.Name}},
		Subject:  "New subscription: " + job.Meetup.Title,
		TextPart: messageText(job),
	}}
	if err := s.send(&mailjet.MessagesV31{Info: info}); err != nil {
		return fmt.Errorf("could not send mail: %w", err)
	}
	return nil
}

type telegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender пишет организатору в Telegram, если у него привязан аккаунт.
type TelegramSender struct {
	api    telegramAPI
	owners UserGetter
}

func NewTelegramSender(api *tgbotapi.BotAPI, owners UserGetter) *TelegramSender {
	return &TelegramSender{api: api, owners: owners}
}

func (s *TelegramSender) Send(ctx context.Context, job Job) error {
	owner, err := s.owners.Get(ctx, job.Meetup.OwnerID)
	if err != nil {
		return fmt.Errorf("lookup organizer %d: %w", job.Meetup.OwnerID, err)
	}
	if owner.TelegramID == 0 {
		return ErrNoRecipient
	}
	if _, err := s.api.Send(tgbotapi.NewMessage(owner.TelegramID, messageText(job))); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// FirstOf пробует каналы по порядку и останавливается на первом, у которого есть адресат.
type FirstOf []Sender

func (f FirstOf) Send(ctx context.Context, job Job) error {
	var errs []error
	for _, s := range f {
		err := s.Send(ctx, job)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrNoRecipient) {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return ErrNoRecipient
}
