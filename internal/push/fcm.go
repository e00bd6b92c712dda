package push

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/sapliy/pushbridge/internal/dispatch"
)

// Client sends push messages through Firebase Cloud Messaging.
type Client struct {
	mc *messaging.Client
}

// NewClient initializes the Firebase Admin SDK from service-account JSON and
// returns an FCM-backed sender.
func NewClient(ctx context.Context, credentialsJSON []byte) (*Client, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsJSON(credentialsJSON))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	mc, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init fcm messaging client: %w", err)
	}

	return &Client{mc: mc}, nil
}

// Send delivers one message to one device token. An unregistered-token error
// from FCM is mapped to SendInvalidToken so the dispatcher can clear the
// stored token; every other error is an opaque transport failure.
func (c *Client) Send(ctx context.Context, token, title, body string, data map[string]string) (dispatch.SendResult, error) {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	if _, err := c.mc.Send(ctx, msg); err != nil {
		if messaging.IsUnregistered(err) {
			return dispatch.SendInvalidToken, err
		}
		return dispatch.SendFailed, fmt.Errorf("fcm send: %w", err)
	}
	return dispatch.SendOK, nil
}
