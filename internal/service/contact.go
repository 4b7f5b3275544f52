package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/erazemk/komponente/internal/model"
	"github.com/erazemk/komponente/internal/notify"
)

// Contact relays messages from users to the inventory administrator.
type Contact struct {
	Sender notify.Sender
	To     string
}

// ContactInput is a contact form submission.
type ContactInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Send delivers the message. Delivery failures are returned, not retried.
func (c *Contact) Send(ctx context.Context, s *model.Session, in ContactInput) error {
	if err := Authorize(s, model.RoleUser); err != nil {
		return err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Message = strings.TrimSpace(in.Message)
	if in.Name == "" {
		in.Name = s.DisplayName
	}
	if in.Email == "" {
		return model.Required("email")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return &model.ValidationError{Field: "email", Message: "invalid address"}
	}
	if in.Message == "" {
		return model.Required("message")
	}
	if c.To == "" {
		return &model.ExternalError{Service: "mail", Err: fmt.Errorf("no contact recipient configured")}
	}

	msg := notify.Message{
		FromName: in.Name,
		ReplyTo:  in.Email,
		To:       c.To,
		Subject:  fmt.Sprintf("Mensaje de %s desde Inventario", in.Name),
		Body:     fmt.Sprintf("Nombre: %s\nCorreo: %s\nMensaje:\n%s\n", in.Name, in.Email, in.Message),
	}
	if err := c.Sender.Send(ctx, msg); err != nil {
		slog.Error("contact message failed", "user", s.Username, "error", err)
		return &model.ExternalError{Service: "mail", Err: err}
	}

	slog.Info("contact message sent", "user", s.Username)
	return nil
}
