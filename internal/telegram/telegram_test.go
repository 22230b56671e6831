package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/giftgate/giftgate/internal/logging"
	"github.com/giftgate/giftgate/internal/notification"
)

const testBotToken = "123456:TEST-token"

func signedContact(t *testing.T, phone string, at time.Time) string {
	t.Helper()
	contact, err := json.Marshal(WebAppContact{UserID: 42, PhoneNumber: phone, FirstName: "Ivan"})
	if err != nil {
		t.Fatalf("marshal contact: %v", err)
	}
	return SignInitData(url.Values{
		"auth_date": {strconv.FormatInt(at.Unix(), 10)},
		"contact":   {string(contact)},
	}, testBotToken)
}

type contactHost struct{}

func (contactHost) RequestContact(context.Context) (bool, error) { return true, nil }
func (contactHost) SubscribeContact(func(ContactEvent)) func()   { return func() {} }
func (contactHost) SharePhone(context.Context) (string, error)   { return "", nil }

type shareHost struct{}

func (shareHost) SharePhone(context.Context) (string, error) { return "79991234567", nil }

func TestDetect(t *testing.T) {
	cases := []struct {
		name string
		host Host
		want Capability
	}{
		{"absent", nil, CapabilityUnavailable},
		{"contact wins over share", contactHost{}, CapabilityContactRequest},
		{"direct share", shareHost{}, CapabilityDirectShare},
		{"sender only", NewBridge(notification.NewLoggerNotifier(nil)), CapabilityUnsupported},
	}
	for _, tc := range cases {
		if got := Detect(tc.host); got != tc.want {
			t.Fatalf("%s: expected %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestValidateInitData(t *testing.T) {
	now := time.Now()
	raw := signedContact(t, "+7 999 123-45-67", now.Add(-time.Minute))

	data, err := ValidateInitData(raw, testBotToken, now, time.Hour)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if data.Phone() != "+7 999 123-45-67" {
		t.Fatalf("unexpected phone %q", data.Phone())
	}

	if _, err := ValidateInitData(raw, "other-token", now, time.Hour); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected signature mismatch, got %v", err)
	}

	tampered := strings.Replace(raw, "Ivan", "Petr", 1)
	if _, err := ValidateInitData(tampered, testBotToken, now, time.Hour); !errors.Is(err, ErrSignatureMismatch) {
		t.Fatalf("expected tampered data to fail, got %v", err)
	}

	if _, err := ValidateInitData(raw, testBotToken, now.Add(2*time.Hour), time.Hour); !errors.Is(err, ErrInitDataExpired) {
		t.Fatalf("expected expiry, got %v", err)
	}

	if _, err := ValidateInitData("auth_date=1", testBotToken, now, 0); !errors.Is(err, ErrMissingHash) {
		t.Fatalf("expected missing hash, got %v", err)
	}
}

func TestVerifierUsesEndpointVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body ContactAuthData
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verified": ` + strconv.FormatBool(body.PhoneNumber == "79991234567") + `}`))
	}))
	defer srv.Close()

	v := NewVerifier(srv.URL, false, time.Second, logging.Discard())
	ok, err := v.Verify(context.Background(), ContactAuthData{PhoneNumber: "79991234567"})
	if err != nil || !ok {
		t.Fatalf("expected verified, got %v %v", ok, err)
	}
	ok, err = v.Verify(context.Background(), ContactAuthData{PhoneNumber: "70000000000"})
	if err != nil || ok {
		t.Fatalf("expected rejection, got %v %v", ok, err)
	}
}

func TestVerifierFailOpen(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("not json"))
	}))
	defer srv.Close()

	open := NewVerifier(srv.URL, true, time.Second, logging.Discard())
	if ok, err := open.Verify(context.Background(), ContactAuthData{}); err != nil || !ok {
		t.Fatalf("fail-open verifier should accept, got %v %v", ok, err)
	}

	closed := NewVerifier(srv.URL, false, time.Second, logging.Discard())
	if ok, err := closed.Verify(context.Background(), ContactAuthData{}); err == nil || ok {
		t.Fatalf("fail-closed verifier should reject, got %v %v", ok, err)
	}
}

func TestVerifyTelegramDataHandler(t *testing.T) {
	h := NewHandler(testBotToken, time.Hour, logging.Discard())
	app := fiber.New()
	app.Post("/api/verify-telegram-data", h.VerifyTelegramData)

	call := func(body ContactAuthData) bool {
		payload, _ := json.Marshal(body)
		req := httptest.NewRequest(fiber.MethodPost, "/api/verify-telegram-data", strings.NewReader(string(payload)))
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		defer resp.Body.Close()
		var out verifyResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return out.Verified
	}

	raw := signedContact(t, "79991234567", time.Now())
	if !call(ContactAuthData{PhoneNumber: "+7 (999) 123-45-67", Response: raw}) {
		t.Fatal("expected signed contact to verify")
	}
	if call(ContactAuthData{PhoneNumber: "70000000000", Response: raw}) {
		t.Fatal("expected phone mismatch to be rejected")
	}
	if call(ContactAuthData{PhoneNumber: "79991234567"}) {
		t.Fatal("expected unsigned contact to be rejected")
	}
}

func TestHandlerVerifyInProcess(t *testing.T) {
	h := NewHandler(testBotToken, time.Hour, logging.Discard())
	raw := signedContact(t, "79991234567", time.Now())
	if ok, err := h.Verify(context.Background(), ContactAuthData{PhoneNumber: "79991234567", Response: raw}); err != nil || !ok {
		t.Fatalf("expected in-process verification, got %v %v", ok, err)
	}
	unsigned := NewHandler("", time.Hour, logging.Discard())
	if ok, _ := unsigned.Verify(context.Background(), ContactAuthData{PhoneNumber: "79991234567", Response: raw}); ok {
		t.Fatal("handler without bot token must reject")
	}
}
