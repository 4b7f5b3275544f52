package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/komponente/internal/model"
)

func TestContactSend(t *testing.T) {
	e := newEnv(t)

	err := e.Contact.Send(context.Background(), e.User, ContactInput{Email: "ana@example.com", Message: " Falta un cable "})
	require.NoError(t, err)

	require.Len(t, e.Outbox.sent, 1)
	m := e.Outbox.sent[0]
	assert.Equal(t, "docente@example.com", m.To)
	assert.Equal(t, "ana@example.com", m.ReplyTo)
	assert.Equal(t, "Ana", m.FromName)
	assert.Equal(t, "Mensaje de Ana desde Inventario", m.Subject)
	assert.Contains(t, m.Body, "Mensaje:\nFalta un cable")
}

func TestContactValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	cases := []ContactInput{
		{Message: "hola"},
		{Email: "not-an-address", Message: "hola"},
		{Email: "ana@example.com", Message: "   "},
	}
	for _, in := range cases {
		err := e.Contact.Send(ctx, e.User, in)
		var verr *model.ValidationError
		assert.ErrorAs(t, err, &verr, "%+v", in)
	}
	assert.Empty(t, e.Outbox.sent)

	assert.ErrorIs(t, e.Contact.Send(ctx, nil, ContactInput{Email: "a@b.c", Message: "x"}), model.ErrAuth)
}

func TestContactDeliveryFailure(t *testing.T) {
	e := newEnv(t)
	e.Outbox.err = errors.New("connection refused")

	err := e.Contact.Send(context.Background(), e.User, ContactInput{Email: "ana@example.com", Message: "hola"})
	var xerr *model.ExternalError
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, "mail", xerr.Service)
}
