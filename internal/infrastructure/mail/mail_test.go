package mail

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/storefront-api/internal/core/domain"
)

func TestNewSMTPSender_Validation(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{From: "shop@x.com"})
	assert.Error(t, err)

	_, err = NewSMTPSender(SMTPConfig{Host: "smtp.x.com"})
	assert.Error(t, err)

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.x.com", From: "shop@x.com"})
	require.NoError(t, err)
	assert.Equal(t, 587, s.cfg.Port)
}

func TestSMTPSender_RequiresRecipient(t *testing.T) {
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.x.com", From: "shop@x.com"})
	require.NoError(t, err)

	assert.Error(t, s.Send(context.Background(), domain.Notification{Subject: "hi"}))
}

func TestNewClient_ClosesConnOnBadGreeting(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	done := make(chan error, 1)
	go func() {
		_, _ = server.Write([]byte("554 no service\r\n"))
		_, err := bufio.NewReader(server).ReadByte()
		done <- err
	}()

	_, err := newClient(client, "smtp.x.com")
	require.Error(t, err)

	select {
	case err := <-done:
		assert.True(t, errors.Is(err, io.EOF), "expected closed connection, got %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("connection left open after failed greeting")
	}
}

func TestBuildMessage(t *testing.T) {
	msg := buildMessage("shop@x.com", "Shop", domain.Notification{To: "a@x.com", Subject: "Code", Body: "123456"})

	assert.True(t, strings.HasPrefix(msg, "From: Shop <shop@x.com>\r\n"))
	assert.Contains(t, msg, "To: a@x.com\r\n")
	assert.Contains(t, msg, "Subject: Code\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\n123456"))

	bare := buildMessage("shop@x.com", "", domain.Notification{To: "a@x.com"})
	assert.True(t, strings.HasPrefix(bare, "From: shop@x.com\r\n"))
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(zerolog.New(&buf))

	err := s.Send(context.Background(), domain.Notification{Kind: domain.NotificationOTP, To: "a@x.com", Subject: "Code"})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `"to":"a@x.com"`)
	assert.Contains(t, buf.String(), `"kind":"otp"`)
}
