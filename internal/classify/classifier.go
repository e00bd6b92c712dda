package classify

import (
	"context"
	"fmt"
	"log"
	"unicode/utf8"

	"github.com/sapliy/pushbridge/internal/event"
)

// Intent is a fully formed, not-yet-delivered notification for one recipient.
type Intent struct {
	RecipientID string
	Title       string
	Body        string
	Data        map[string]string
}

// Status describes what the classifier decided for an event.
type Status string

const (
	StatusProcessed Status = "processed"
	StatusIgnored   Status = "ignored"
)

// Result is the classification of a single change event. Intents is empty
// when Status is StatusIgnored.
type Result struct {
	Status  Status
	Reason  string
	Intents []Intent
}

// NoRecipientError reports a rule that requires a recipient but found none
// under any of its candidate columns. This is a terminal failure for the
// event, not an ignorable condition.
type NoRecipientError struct {
	Table string
}

func (e *NoRecipientError) Error() string {
	return fmt.Sprintf("no recipient id found in record for table %q", e.Table)
}

// NameLookup resolves a profile id to a display name. The second return
// value reports whether the profile exists.
type NameLookup interface {
	DisplayName(ctx context.Context, profileID string) (string, bool, error)
}

const (
	// Chat bodies are capped for display, not for the transport.
	maxChatBody = 100

	fallbackSenderName  = "Someone"
	fallbackProfileName = "there"
	fallbackProductName = "a product"
)

// Candidate column names per rule, in priority order. The upstream schema has
// been renamed more than once and old rows still arrive with old names.
var (
	bookingRecipientKeys = []string{"provider_id", "seller_id", "vendor_id"}
	bookingCategoryKeys  = []string{"category", "type"}
	chatRecipientKeys    = []string{"userid", "user_id", "receiver_id", "recipient_id", "to_id"}
	chatSenderKeys       = []string{"isme", "sender_id", "senderid", "from_id", "author_id"}
	chatTextKeys         = []string{"text", "content", "message"}
	orderRecipientKeys   = []string{"seller_id", "vendor_id"}
	productTaggerKeys    = []string{"owner_id", "user_id", "created_by"}
	productNameKeys      = []string{"name", "title"}
	profileNameKeys      = []string{"username", "display_name", "name"}
)

// Classifier turns change events into notification intents. It is stateless
// apart from the display-name lookup used for chat and tagging events.
type Classifier struct {
	names NameLookup
}

func New(names NameLookup) *Classifier {
	return &Classifier{names: names}
}

// Classify applies the rule set for the event's table. Unknown tables and
// skip conditions yield StatusIgnored. A rule whose required recipient cannot
// be resolved returns a NoRecipientError.
func (c *Classifier) Classify(ctx context.Context, ev event.ChangeEvent) (Result, error) {
	switch ev.Table {
	case "service_booking":
		return c.classifyBooking(ev)
	case "chats":
		return c.classifyChat(ctx, ev)
	case "sale_order":
		return c.classifyOrder(ev)
	case "product":
		return c.classifyProductTags(ctx, ev)
	case "kyc_profile":
		return c.classifyNewProfile(ev)
	default:
		return ignored(fmt.Sprintf("table %q not configured for notifications", ev.Table)), nil
	}
}

func (c *Classifier) classifyBooking(ev event.ChangeEvent) (Result, error) {
	// Broadcast bookings are fanned out by a separate pipeline. Producing an
	// intent here would double-notify every provider.
	if ev.Record.First(bookingCategoryKeys...) == "broadcast" {
		return ignored("broadcast booking handled by fan-out pipeline"), nil
	}

	recipient := ev.Record.First(bookingRecipientKeys...)
	if recipient == "" {
		return Result{}, &NoRecipientError{Table: ev.Table}
	}

	return processed(Intent{
		RecipientID: recipient,
		Title:       "New Booking Request",
		Body:        "You have a new service booking request",
		Data: map[string]string{
			"type":     "new_quest",
			"quest_id": ev.Record.First("id"),
			"table":    ev.Table,
		},
	}), nil
}

func (c *Classifier) classifyChat(ctx context.Context, ev event.ChangeEvent) (Result, error) {
	recipient := ev.Record.First(chatRecipientKeys...)
	if recipient == "" {
		return Result{}, &NoRecipientError{Table: ev.Table}
	}

	// The sender id is optional: without it we still notify, just with a
	// generic sender name.
	senderName := fallbackSenderName
	if senderID := ev.Record.First(chatSenderKeys...); senderID != "" {
		senderName = c.lookupName(ctx, senderID, fallbackSenderName)
	}

	body := ev.Record.First(chatTextKeys...)
	if body == "" {
		body = "sent you a message"
	}
	body = truncate(body, maxChatBody)

	return processed(Intent{
		RecipientID: recipient,
		Title:       "New message from " + senderName,
		Body:        body,
		Data: map[string]string{
			"type":       "new_message",
			"chat_id":    ev.Record.First("chat_id"),
			"message_id": ev.Record.First("id"),
			"table":      ev.Table,
		},
	}), nil
}

func (c *Classifier) classifyOrder(ev event.ChangeEvent) (Result, error) {
	recipient := ev.Record.First(orderRecipientKeys...)
	if recipient == "" {
		return Result{}, &NoRecipientError{Table: ev.Table}
	}

	return processed(Intent{
		RecipientID: recipient,
		Title:       "New Order",
		Body:        "You have a new order",
		Data: map[string]string{
			"type":     "new_order",
			"order_id": ev.Record.First("id"),
			"table":    ev.Table,
		},
	}), nil
}

func (c *Classifier) classifyProductTags(ctx context.Context, ev event.ChangeEvent) (Result, error) {
	added := addedTags(ev)
	if len(added) == 0 {
		return ignored("no newly tagged profiles"), nil
	}

	productName := ev.Record.First(productNameKeys...)
	if productName == "" {
		productName = fallbackProductName
	}

	taggerName := fallbackSenderName
	if taggerID := ev.Record.First(productTaggerKeys...); taggerID != "" {
		taggerName = c.lookupName(ctx, taggerID, fallbackSenderName)
	}

	intents := make([]Intent, 0, len(added))
	for _, id := range added {
		intents = append(intents, Intent{
			RecipientID: id,
			Title:       "You were tagged",
			Body:        fmt.Sprintf("%s tagged you in %s", taggerName, productName),
			// Each intent gets its own map so mutating one recipient's
			// payload cannot leak into its siblings.
			Data: map[string]string{
				"type":       "new_tag",
				"product_id": ev.Record.First("id"),
				"table":      ev.Table,
			},
		})
	}
	return Result{Status: StatusProcessed, Intents: intents}, nil
}

func (c *Classifier) classifyNewProfile(ev event.ChangeEvent) (Result, error) {
	if ev.Operation != event.OpInsert {
		return ignored("profile welcome applies to INSERT only"), nil
	}

	recipient := ev.Record.First("id")
	if recipient == "" {
		return Result{}, &NoRecipientError{Table: ev.Table}
	}

	name := ev.Record.First(profileNameKeys...)
	if name == "" {
		name = fallbackProfileName
	}

	return processed(Intent{
		RecipientID: recipient,
		Title:       "Welcome!",
		Body:        fmt.Sprintf("Welcome aboard, %s! Your profile is ready.", name),
		Data: map[string]string{
			"type":  "welcome",
			"table": ev.Table,
		},
	}), nil
}

// addedTags computes which tagged profile ids are new in this event. Without
// an old record there is no prior state, so every current tag counts as new.
func addedTags(ev event.ChangeEvent) []string {
	current := ev.Record.StringList("tagged_profiles_ids")
	if ev.OldRecord == nil {
		return current
	}

	previous := make(map[string]struct{})
	for _, id := range ev.OldRecord.StringList("tagged_profiles_ids") {
		previous[id] = struct{}{}
	}

	var added []string
	for _, id := range current {
		if _, ok := previous[id]; !ok {
			added = append(added, id)
		}
	}
	return added
}

// lookupName resolves a display name, falling back without failing the
// classification when the profile is missing or the store errors.
func (c *Classifier) lookupName(ctx context.Context, profileID, fallback string) string {
	name, ok, err := c.names.DisplayName(ctx, profileID)
	if err != nil {
		log.Printf("display name lookup failed for %s: %v", profileID, err)
		return fallback
	}
	if !ok || name == "" {
		return fallback
	}
	return name
}

// truncate caps s at n characters, not bytes, so a multi-byte rune is never
// split mid-sequence.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func processed(intents ...Intent) Result {
	return Result{Status: StatusProcessed, Intents: intents}
}

func ignored(reason string) Result {
	return Result{Status: StatusIgnored, Reason: reason}
}
