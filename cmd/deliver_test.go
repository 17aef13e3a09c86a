package cmd

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"

	"prmirror/internal/domain/webhook"
)

func TestDeliverPayloadSignsRequest(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"action":"opened","number":7}`)
	var gotEvent, gotDelivery string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !webhook.VerifySignature([]byte("local-dev-secret"), body, r.Header.Get("X-Hub-Signature-256")) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		gotEvent = r.Header.Get("X-GitHub-Event")
		gotDelivery = r.Header.Get("X-GitHub-Delivery")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	t.Cleanup(server.Close)

	out, err := deliverPayload(context.Background(), server.Client(), deliveryInput{
		URL:     server.URL,
		Event:   "pull_request",
		Secret:  "local-dev-secret",
		Payload: payload,
	})
	if err != nil {
		t.Fatalf("deliverPayload() error = %v", err)
	}
	if out.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", out.StatusCode)
	}
	if gotEvent != "pull_request" {
		t.Fatalf("event header = %q, want pull_request", gotEvent)
	}
	if _, err := uuid.Parse(gotDelivery); err != nil || gotDelivery != out.DeliveryID {
		t.Fatalf("delivery header = %q (result %q), want generated uuid", gotDelivery, out.DeliveryID)
	}
}

func TestDeliverPayloadKeepsExplicitDeliveryID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("X-GitHub-Delivery")))
	}))
	t.Cleanup(server.Close)

	out, err := deliverPayload(context.Background(), server.Client(), deliveryInput{
		URL:        server.URL,
		Event:      "ping",
		DeliveryID: "d-42",
		Secret:     "s",
		Payload:    []byte(`{}`),
	})
	if err != nil {
		t.Fatalf("deliverPayload() error = %v", err)
	}
	if string(out.Body) != "d-42" || out.DeliveryID != "d-42" {
		t.Fatalf("delivery = %q body = %q, want d-42", out.DeliveryID, out.Body)
	}
}

func TestDeliverPayloadValidatesInput(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		input deliveryInput
		want  string
	}{
		{name: "no secret", input: deliveryInput{Event: "ping", Payload: []byte(`{}`)}, want: "secret"},
		{name: "no event", input: deliveryInput{Secret: "s", Payload: []byte(`{}`)}, want: "event"},
		{name: "array payload", input: deliveryInput{Secret: "s", Event: "ping", Payload: []byte(`[]`)}, want: "JSON object"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := deliverPayload(context.Background(), http.DefaultClient, testCase.input)
			if err == nil || !strings.Contains(err.Error(), testCase.want) {
				t.Fatalf("deliverPayload() error = %v, want containing %q", err, testCase.want)
			}
		})
	}
}

func TestReadPayload(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.json")
	if err := os.WriteFile(path, []byte(`{"a":1}`), 0o600); err != nil {
		t.Fatalf("write payload: %v", err)
	}

	fromFile, err := readPayload(strings.NewReader("ignored"), path)
	if err != nil || string(fromFile) != `{"a":1}` {
		t.Fatalf("readPayload(file) = %q, %v", fromFile, err)
	}
	fromStdin, err := readPayload(strings.NewReader(`{"b":2}`), "-")
	if err != nil || string(fromStdin) != `{"b":2}` {
		t.Fatalf("readPayload(-) = %q, %v", fromStdin, err)
	}
}
