package dispatch

import (
	"context"
	"log"

	"github.com/sapliy/pushbridge/internal/classify"
)

// Reason is the closed set of per-attempt delivery results.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonNoProfile     Reason = "no_profile"
	ReasonNoToken       Reason = "no_token"
	ReasonInvalidToken  Reason = "invalid_token"
	ReasonProviderError Reason = "provider_error"
)

// Outcome reports what happened to a single delivery attempt.
type Outcome struct {
	RecipientID string `json:"recipient_id"`
	Delivered   bool   `json:"delivered"`
	Reason      Reason `json:"reason"`
}

// TokenStore is the profile-store surface the dispatcher needs: a point
// lookup of the device token and an idempotent clear keyed by profile id.
type TokenStore interface {
	// Token returns the stored device token for a profile. The boolean
	// reports whether the profile exists; an existing profile may still have
	// an empty token.
	Token(ctx context.Context, profileID string) (string, bool, error)
	ClearToken(ctx context.Context, profileID string) error
}

// SendResult classifies a push transport attempt.
type SendResult int

const (
	SendOK SendResult = iota
	// SendInvalidToken means the transport reported the token as no longer
	// registered. The stored token should be cleared.
	SendInvalidToken
	SendFailed
)

// Sender delivers one message to one device token. Retry policy, if any,
// belongs to the transport, not to the dispatcher.
type Sender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) (SendResult, error)
}

// Dispatcher resolves an intent's recipient to a device token and attempts a
// single delivery. Every failure mode is absorbed into the Outcome; nothing
// here escalates to the webhook response.
type Dispatcher struct {
	store  TokenStore
	sender Sender
}

func New(store TokenStore, sender Sender) *Dispatcher {
	return &Dispatcher{store: store, sender: sender}
}

// Dispatch attempts delivery of one intent.
func (d *Dispatcher) Dispatch(ctx context.Context, intent classify.Intent) Outcome {
	token, found, err := d.store.Token(ctx, intent.RecipientID)
	if err != nil {
		log.Printf("token lookup failed for %s: %v", intent.RecipientID, err)
		return Outcome{RecipientID: intent.RecipientID, Reason: ReasonNoProfile}
	}
	if !found {
		log.Printf("no profile found for recipient %s", intent.RecipientID)
		return Outcome{RecipientID: intent.RecipientID, Reason: ReasonNoProfile}
	}
	if token == "" {
		log.Printf("no device token registered for recipient %s", intent.RecipientID)
		return Outcome{RecipientID: intent.RecipientID, Reason: ReasonNoToken}
	}

	result, err := d.sender.Send(ctx, token, intent.Title, intent.Body, intent.Data)
	switch result {
	case SendOK:
		return Outcome{RecipientID: intent.RecipientID, Delivered: true, Reason: ReasonOK}
	case SendInvalidToken:
		log.Printf("stale device token for recipient %s, clearing: %v", intent.RecipientID, err)
		if clearErr := d.store.ClearToken(ctx, intent.RecipientID); clearErr != nil {
			// Best effort. The token will be cleared on the next attempt.
			log.Printf("failed to clear stale token for %s: %v", intent.RecipientID, clearErr)
		}
		return Outcome{RecipientID: intent.RecipientID, Reason: ReasonInvalidToken}
	default:
		log.Printf("push delivery failed for recipient %s: %v", intent.RecipientID, err)
		return Outcome{RecipientID: intent.RecipientID, Reason: ReasonProviderError}
	}
}

// DispatchAll processes each intent independently. A failed delivery never
// prevents the remaining intents from being attempted.
func (d *Dispatcher) DispatchAll(ctx context.Context, intents []classify.Intent) []Outcome {
	outcomes := make([]Outcome, 0, len(intents))
	for _, intent := range intents {
		outcomes = append(outcomes, d.Dispatch(ctx, intent))
	}
	return outcomes
}
