package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sapliy/pushbridge/internal/classify"
	"github.com/sapliy/pushbridge/internal/dispatch"
	"github.com/sapliy/pushbridge/pkg/observability"
)

func testLogger() *observability.Logger {
	return &observability.Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// fakeProfiles backs both the classifier's name lookups and the dispatcher's
// token store.
type fakeProfiles struct {
	tokens     map[string]string
	names      map[string]string
	clearCalls []string
}

func (f *fakeProfiles) Token(ctx context.Context, profileID string) (string, bool, error) {
	token, ok := f.tokens[profileID]
	return token, ok, nil
}

func (f *fakeProfiles) DisplayName(ctx context.Context, profileID string) (string, bool, error) {
	name, ok := f.names[profileID]
	return name, ok, nil
}

func (f *fakeProfiles) ClearToken(ctx context.Context, profileID string) error {
	f.clearCalls = append(f.clearCalls, profileID)
	return nil
}

type sentMessage struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type fakeSender struct {
	result dispatch.SendResult
	sent   []sentMessage
}

func (f *fakeSender) Send(ctx context.Context, token, title, body string, data map[string]string) (dispatch.SendResult, error) {
	f.sent = append(f.sent, sentMessage{Token: token, Title: title, Body: body, Data: data})
	return f.result, nil
}

type capturedOutcome struct {
	Key   string
	Value string
}

type fakeSink struct {
	published []capturedOutcome
}

func (f *fakeSink) Publish(ctx context.Context, key string, value []byte) error {
	f.published = append(f.published, capturedOutcome{Key: key, Value: string(value)})
	return nil
}

func newTestServer(profiles *fakeProfiles, sender *fakeSender, sink OutcomeSink) *Server {
	return NewServer(
		classify.New(profiles),
		dispatch.New(profiles, sender),
		sink,
		testLogger(),
	)
}

func postEvent(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/notify-user", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	return w
}

func TestHandleNotify_ProductTagDelta(t *testing.T) {
	profiles := &fakeProfiles{tokens: map[string]string{"u1": "tok-u1", "u2": "tok-u2"}}
	sender := &fakeSender{result: dispatch.SendOK}
	sink := &fakeSink{}
	srv := newTestServer(profiles, sender, sink)

	w := postEvent(t, srv, `{
		"table": "product",
		"record": {"id": "p1", "tagged_profiles_ids": ["u1", "u2"]},
		"old_record": {"tagged_profiles_ids": ["u1"]}
	}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"success"`) {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Send calls = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].Token != "tok-u2" {
		t.Errorf("Sent to token %q, want tok-u2", sender.sent[0].Token)
	}
	if len(sink.published) != 1 || !strings.Contains(sink.published[0].Value, `"delivered":true`) {
		t.Errorf("Unexpected outcome records: %+v", sink.published)
	}
}

func TestHandleNotify_ProfileUpdateIgnored(t *testing.T) {
	sender := &fakeSender{result: dispatch.SendOK}
	srv := newTestServer(&fakeProfiles{}, sender, nil)

	w := postEvent(t, srv, `{"table": "kyc_profile", "type": "UPDATE", "record": {"id": "u1"}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ignored"`) {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
	if len(sender.sent) != 0 {
		t.Errorf("No sends expected, got %d", len(sender.sent))
	}
}

func TestHandleNotify_ChatWithoutSender(t *testing.T) {
	profiles := &fakeProfiles{tokens: map[string]string{"u9": "tok-u9"}}
	sender := &fakeSender{result: dispatch.SendOK}
	srv := newTestServer(profiles, sender, nil)

	w := postEvent(t, srv, `{"table": "chats", "record": {"userid": "u9", "text": "hi"}}`)

	if !strings.Contains(w.Body.String(), `"status":"success"`) {
		t.Fatalf("Unexpected body: %s", w.Body.String())
	}
	if len(sender.sent) != 1 {
		t.Fatalf("Send calls = %d, want 1", len(sender.sent))
	}
	if sender.sent[0].Title != "New message from Someone" {
		t.Errorf("Title = %q", sender.sent[0].Title)
	}
}

func TestHandleNotify_UnknownTableIgnored(t *testing.T) {
	srv := newTestServer(&fakeProfiles{}, &fakeSender{}, nil)

	w := postEvent(t, srv, `{"table": "audit_log", "record": {"id": "x"}}`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"ignored"`) {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestHandleNotify_BroadcastBookingSkipped(t *testing.T) {
	profiles := &fakeProfiles{tokens: map[string]string{"p1": "tok-p1"}}
	sender := &fakeSender{result: dispatch.SendOK}
	srv := newTestServer(profiles, sender, nil)

	w := postEvent(t, srv, `{
		"table": "service_booking",
		"record": {"id": "b1", "provider_id": "p1", "category": "broadcast"}
	}`)

	if !strings.Contains(w.Body.String(), `"status":"ignored"`) {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
	if len(sender.sent) != 0 {
		t.Errorf("Broadcast must never reach the sender, got %d sends", len(sender.sent))
	}
}

func TestHandleNotify_MissingRecipientIsError(t *testing.T) {
	srv := newTestServer(&fakeProfiles{}, &fakeSender{}, nil)

	w := postEvent(t, srv, `{"table": "sale_order", "record": {"id": "o1"}}`)

	// The webhook contract absorbs classification failures into the body.
	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"error"`) {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestHandleNotify_InvalidJSON(t *testing.T) {
	srv := newTestServer(&fakeProfiles{}, &fakeSender{}, nil)

	w := postEvent(t, srv, `{not json`)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want 200", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"failure"`) {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
}

func TestHandleNotify_InvalidTokenClearsProfile(t *testing.T) {
	profiles := &fakeProfiles{tokens: map[string]string{"s1": "tok-stale"}}
	sender := &fakeSender{result: dispatch.SendInvalidToken}
	srv := newTestServer(profiles, sender, nil)

	w := postEvent(t, srv, `{"table": "sale_order", "record": {"id": "o1", "seller_id": "s1"}}`)

	// Delivery failed but the event itself was processed.
	if !strings.Contains(w.Body.String(), `"status":"success"`) {
		t.Errorf("Unexpected body: %s", w.Body.String())
	}
	if len(profiles.clearCalls) != 1 || profiles.clearCalls[0] != "s1" {
		t.Errorf("ClearToken calls = %v, want [s1]", profiles.clearCalls)
	}
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&fakeProfiles{}, &fakeSender{}, nil)

	for _, path := range []string{"/", "/health"} {
		for _, method := range []string{"GET", "HEAD"} {
			req := httptest.NewRequest(method, path, nil)
			w := httptest.NewRecorder()
			srv.Routes().ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Errorf("%s %s = %d, want 200", method, path, w.Code)
			}
		}
	}

	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()
	srv.Routes().ServeHTTP(w, req)
	if !strings.Contains(w.Body.String(), "healthy") {
		t.Errorf("Unexpected health body: %s", w.Body.String())
	}
}
