package tools

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"inmobot/models"

	"google.golang.org/api/option"
)

func TestNormalizeWhatsAppTo(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+34 600 11 22 33", "34600112233", false},
		{"600112233", "34600112233", false},
		{"0034600112233", "34600112233", false},
		{"5511999998888", "5511999998888", false},
		{"12345", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := NormalizeWhatsAppTo(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("NormalizeWhatsAppTo(%q) = %q, %v; want %q, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestCheckSecret(t *testing.T) {
	hashed := "sha512:" + EncryptTextSHA512("s3cret")
	tests := []struct {
		configured, submitted string
		want                  bool
	}{
		{"s3cret", "s3cret", true},
		{"s3cret", "other", false},
		{hashed, "s3cret", true},
		{hashed, "nope", false},
		{"", "", false},
	}
	for _, tt := range tests {
		if got := CheckSecret(tt.configured, tt.submitted); got != tt.want {
			t.Errorf("CheckSecret(%q, %q) = %v; want %v", tt.configured, tt.submitted, got, tt.want)
		}
	}
}

func TestWhatsAppSendText(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := WhatsAppClient{AccessToken: "tok", PhoneNumberID: "123", ApiVersion: "v20.0", BaseURL: srv.URL}
	if err := c.SendText(context.Background(), "34600112233", "hola"); err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if gotPath != "/v20.0/123/messages" || gotAuth != "Bearer tok" {
		t.Errorf("path=%q auth=%q", gotPath, gotAuth)
	}
	text, _ := gotBody["text"].(map[string]any)
	if gotBody["to"] != "34600112233" || text["body"] != "hola" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestWhatsAppErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := WhatsAppClient{AccessToken: "tok", PhoneNumberID: "123", BaseURL: srv.URL}
	err := c.SendText(context.Background(), "34600112233", "hola")
	var apiErr WhatsAppAPIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusUnauthorized {
		t.Errorf("SendText err = %v; want WhatsAppAPIError 401", err)
	}

	if err := (WhatsAppClient{}).SendText(context.Background(), "1", "x"); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("unconfigured SendText err = %v", err)
	}
}

func TestOpenAIAnswerAndEmbed(t *testing.T) {
	var chatPrompt string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/chat/completions"):
			var req struct {
				Messages []struct {
					Role    string `json:"role"`
					Content string `json:"content"`
				} `json:"messages"`
			}
			json.NewDecoder(r.Body).Decode(&req)
			if len(req.Messages) == 2 {
				chatPrompt = req.Messages[1].Content
			}
			io.WriteString(w, `{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":" Te recomiendo REF-1 "},"finish_reason":"stop"}]}`)
		case strings.HasSuffix(r.URL.Path, "/embeddings"):
			io.WriteString(w, `{"object":"list","data":[{"object":"embedding","index":1,"embedding":[0,1]},{"object":"embedding","index":0,"embedding":[1,0]}],"model":"m"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	o := NewOpenAI("key", srv.URL+"/v1", "gpt-test", "emb-test", "")
	ctx := context.Background()

	l := models.Listing{Reference: "REF-1", Kind: "piso", City: "Valencia", Price: 120000}
	got, err := o.Answer(ctx, "¿algo en Valencia?", []models.Listing{l}, nil)
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "Te recomiendo REF-1" {
		t.Errorf("Answer = %q", got)
	}
	if !strings.Contains(chatPrompt, "REF-1") || !strings.Contains(chatPrompt, "¿algo en Valencia?") {
		t.Errorf("prompt = %q", chatPrompt)
	}
	if strings.Contains(chatPrompt, "INFORMACIÓN DEL MANUAL") {
		t.Errorf("prompt without manual has a manual section: %q", chatPrompt)
	}

	if _, err := o.Answer(ctx, "¿cómo reservo?", nil, []string{"Señal del 10%.", "Firma en notaría."}); err != nil {
		t.Fatalf("Answer with manual: %v", err)
	}
	if !strings.Contains(chatPrompt, "INFORMACIÓN DEL MANUAL:\nSeñal del 10%.\n\nFirma en notaría.") {
		t.Errorf("manual missing from prompt: %q", chatPrompt)
	}

	vecs, err := o.EmbedBatch(ctx, []string{"a", "b"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("EmbedBatch order = %v", vecs)
	}
}

func TestOpenAIUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	o := NewOpenAI("key", srv.URL+"/v1", "m", "e", "")
	if _, err := o.Answer(context.Background(), "q", nil, nil); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("Answer err = %v", err)
	}
	if _, err := o.Embed(context.Background(), "q"); !errors.Is(err, models.ErrUpstreamUnavailable) {
		t.Errorf("Embed err = %v", err)
	}
}

func TestGoogleCalendarCreateEvent(t *testing.T) {
	var got struct {
		Summary  string `json:"summary"`
		Location string `json:"location"`
		Start    struct {
			DateTime string `json:"dateTime"`
		} `json:"start"`
		End struct {
			DateTime string `json:"dateTime"`
		} `json:"end"`
	}
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"id":"evt1"}`)
	}))
	defer srv.Close()

	ctx := context.Background()
	cal, err := NewGoogleCalendar(ctx, "", "agenda@example.com", time.Hour, time.UTC,
		option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewGoogleCalendar: %v", err)
	}

	when := time.Date(2099, 1, 1, 10, 0, 0, 0, time.UTC)
	v := models.Visit{ClientName: "Jane Doe", ClientID: "34600112233", ScheduledAt: when}
	l := models.Listing{Reference: "REF-10", Address: "Calle Colón 4", City: "Xàtiva"}
	if err := cal.CreateEvent(ctx, v, l); err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/events") {
		t.Errorf("path = %q", gotPath)
	}
	if got.Summary != "Visita: REF-10 - Jane Doe" || got.Location != "Calle Colón 4, Xàtiva" {
		t.Errorf("event = %+v", got)
	}
	if got.Start.DateTime != "2099-01-01T10:00:00Z" || got.End.DateTime != "2099-01-01T11:00:00Z" {
		t.Errorf("start/end = %s/%s", got.Start.DateTime, got.End.DateTime)
	}
}
