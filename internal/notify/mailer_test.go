package notify

import (
	"context"
	"net/smtp"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMailer() *Mailer {
	return NewMailer(MailerConfig{
		Host:       "smtp.example.com",
		Port:       587,
		Username:   "mailer",
		Password:   "secret",
		FromEmail:  "noreply@tripbuddy.example.com",
		FromName:   "TripBuddy",
		AppBaseURL: "https://tripbuddy.example.com/",
	}, nil)
}

func TestNotifySuccessMail(t *testing.T) {
	t.Parallel()

	mailer := testMailer()

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg string
	mailer.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr = addr
		gotFrom = from
		gotTo = to
		gotMsg = string(msg)
		return nil
	}

	tripID := uuid.New()
	err := mailer.Notify(context.Background(), Message{
		To:       "user@example.com",
		TripName: "Trip to Jaipur, Udaipur",
		TripID:   tripID,
		Outcome:  OutcomeCompleted,
	})
	require.NoError(t, err)

	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "noreply@tripbuddy.example.com", gotFrom)
	assert.Equal(t, []string{"user@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Your itinerary for Trip to Jaipur, Udaipur is ready!")
	assert.Contains(t, gotMsg, "https://tripbuddy.example.com/trip/"+tripID.String())
	assert.Contains(t, gotMsg, "View Itinerary")
}

func TestNotifyFailureMail(t *testing.T) {
	t.Parallel()

	mailer := testMailer()

	var gotMsg string
	mailer.send = func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
		gotMsg = string(msg)
		return nil
	}

	tripID := uuid.New()
	err := mailer.Notify(context.Background(), Message{
		To:       "user@example.com",
		TripName: "Trip to Goa",
		TripID:   tripID,
		Outcome:  OutcomeFailed,
	})
	require.NoError(t, err)

	assert.Contains(t, gotMsg, "Subject: Itinerary generation for Trip to Goa failed")
	assert.Contains(t, gotMsg, "retry it anytime")
	assert.Contains(t, gotMsg, "/trip/"+tripID.String())
}

func TestNotifyMissingCredentials(t *testing.T) {
	t.Parallel()

	mailer := NewMailer(MailerConfig{Host: "smtp.example.com", Port: 587}, nil)
	called := false
	mailer.send = func(_ string, _ smtp.Auth, _ string, _ []string, _ []byte) error {
		called = true
		return nil
	}

	err := mailer.Notify(context.Background(), Message{To: "user@example.com", Outcome: OutcomeFailed})
	require.Error(t, err)
	assert.False(t, called)
}

func TestNotifyContextCancelled(t *testing.T) {
	t.Parallel()

	mailer := testMailer()
	mailer.send = func(_ string, _ smtp.Auth, _ string, _ []string, _ []byte) error {
		t.Fatal("send should not be called after cancellation")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := mailer.Notify(ctx, Message{To: "user@example.com", Outcome: OutcomeCompleted})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), context.Canceled.Error()))
}
