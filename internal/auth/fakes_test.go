package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/giftgate/giftgate/internal/telegram"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func sequenceCodes(codes ...string) CodeGenerator {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}

type contactHost struct {
	shared bool
	err    error
	event  *telegram.ContactEvent

	mu       sync.Mutex
	handler  func(telegram.ContactEvent)
	released int
}

func (h *contactHost) SubscribeContact(fn func(telegram.ContactEvent)) func() {
	h.mu.Lock()
	h.handler = fn
	h.mu.Unlock()
	return func() {
		h.mu.Lock()
		h.handler = nil
		h.released++
		h.mu.Unlock()
	}
}

func (h *contactHost) RequestContact(context.Context) (bool, error) {
	if h.shared && h.event != nil {
		ev := *h.event
		go func() {
			h.mu.Lock()
			fn := h.handler
			h.mu.Unlock()
			if fn != nil {
				fn(ev)
			}
		}()
	}
	return h.shared, h.err
}

func (h *contactHost) releasedCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}

type shareHost struct {
	phone string
	err   error
}

func (h shareHost) SharePhone(context.Context) (string, error) {
	return h.phone, h.err
}

type sentPayload struct {
	Action    string `json:"action"`
	Phone     string `json:"phone"`
	Code      string `json:"code"`
	Timestamp int64  `json:"timestamp"`
}

type senderHost struct {
	mu       sync.Mutex
	payloads []sentPayload
	fail     bool
	initData string
}

func (h *senderHost) SendData(_ context.Context, payload []byte) error {
	if h.fail {
		return errors.New("bot unreachable")
	}
	var p sentPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return err
	}
	h.mu.Lock()
	h.payloads = append(h.payloads, p)
	h.mu.Unlock()
	return nil
}

func (h *senderHost) InitDataPhone() string {
	return h.initData
}

type staticVerifier struct {
	ok  bool
	err error
}

func (v staticVerifier) Verify(context.Context, telegram.ContactAuthData) (bool, error) {
	return v.ok, v.err
}
