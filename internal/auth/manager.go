package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/giftgate/giftgate/internal/logging"
	"github.com/giftgate/giftgate/internal/session"
	"github.com/giftgate/giftgate/internal/telegram"
)

const (
	defaultCodeTTL        = 60 * time.Second
	defaultContactTimeout = 10 * time.Second

	actionSendVerification = "send_verification"
)

// State is the position of the current verification attempt.
type State int

const (
	StateIdle State = iota
	StateRequestingPhone
	StateCodeSent
	StateVerified
)

func (s State) String() string {
	switch s {
	case StateRequestingPhone:
		return "requesting_phone"
	case StateCodeSent:
		return "code_sent"
	case StateVerified:
		return "verified"
	default:
		return "idle"
	}
}

// ContactVerifier checks shared contact data against the verification endpoint.
type ContactVerifier interface {
	Verify(ctx context.Context, data telegram.ContactAuthData) (bool, error)
}

// CodeGenerator returns a fresh six digit code.
type CodeGenerator func() (string, error)

// Options configures a Manager.
type Options struct {
	ClientID       string
	Repo           session.Repository
	Host           telegram.Host
	Verifier       ContactVerifier
	Logger         *slog.Logger
	MaxAge         time.Duration
	CodeTTL        time.Duration
	ContactTimeout time.Duration
	// LogCodes writes issued codes to the debug log. Demo deployments only.
	LogCodes bool
	Now      func() time.Time
	Codes    CodeGenerator
	OnTick   func(remaining int)
}

// PendingVerification is a snapshot of an issued, unconfirmed code.
type PendingVerification struct {
	ID               string
	TargetPhone      string
	Code             string
	IssuedAt         time.Time
	ExpiresInSeconds int
}

type pending struct {
	PendingVerification
	countdown *Countdown
	verifying bool
}

// Manager owns one client's phone verification attempt and session.
type Manager struct {
	clientID       string
	repo           session.Repository
	host           telegram.Host
	verifier       ContactVerifier
	logger         *slog.Logger
	maxAge         time.Duration
	codeTTL        time.Duration
	contactTimeout time.Duration
	logCodes       bool
	now            func() time.Time
	codes          CodeGenerator
	onTick         func(int)

	mu      sync.Mutex
	state   State
	attempt uint64
	phone   string
	pending *pending
	session *session.Session
	preview telegram.InitDataProvider
}

// NewManager builds a manager. Repo is required; everything else has defaults.
func NewManager(opts Options) *Manager {
	m := &Manager{
		clientID:       opts.ClientID,
		repo:           opts.Repo,
		host:           opts.Host,
		verifier:       opts.Verifier,
		maxAge:         opts.MaxAge,
		codeTTL:        opts.CodeTTL,
		contactTimeout: opts.ContactTimeout,
		logCodes:       opts.LogCodes,
		now:            opts.Now,
		codes:          opts.Codes,
		onTick:         opts.OnTick,
	}
	m.logger = logging.Component(opts.Logger, "auth").With(slog.String("client_id", opts.ClientID))
	if m.repo == nil {
		m.repo = session.NewMemoryRepository()
	}
	if m.maxAge <= 0 {
		m.maxAge = session.DefaultMaxAge
	}
	if m.codeTTL <= 0 {
		m.codeTTL = defaultCodeTTL
	}
	if m.contactTimeout <= 0 {
		m.contactTimeout = defaultContactTimeout
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.codes == nil {
		m.codes = RandomCode
	}
	return m
}

// RandomCode draws a uniform code in [100000, 999999].
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// RestoreSession loads the persisted session. A missing or incomplete group
// means no session. An expired session is cleared from storage.
func (m *Manager) RestoreSession(ctx context.Context) (*session.Session, error) {
	fields, err := m.repo.Load(ctx, m.clientID)
	if err != nil {
		m.mu.Lock()
		m.session = nil
		m.mu.Unlock()
		if errors.Is(err, session.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("restore session: %w", err)
	}

	s, err := session.FromFields(fields)
	if err != nil {
		m.mu.Lock()
		m.session = nil
		m.mu.Unlock()
		return nil, nil
	}

	if !s.Valid(m.now(), m.maxAge) {
		if err := m.repo.Clear(ctx, m.clientID); err != nil {
			return nil, fmt.Errorf("clear expired session: %w", err)
		}
		m.mu.Lock()
		m.session = nil
		m.state = StateIdle
		m.mu.Unlock()
		m.logger.Info("session expired", slog.String("phone", s.Phone), slog.Duration("age", s.Age(m.now())))
		return nil, nil
	}

	m.mu.Lock()
	m.session = &s
	m.phone = s.Phone
	m.mu.Unlock()
	return &s, nil
}

// IsAuthorized reports whether an unexpired verified session is held in memory.
func (m *Manager) IsAuthorized() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.Valid(m.now(), m.maxAge)
}

// Session returns the active session, if any.
func (m *Manager) Session() (session.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return session.Session{}, false
	}
	return *m.session, true
}

// State returns the state of the current attempt.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Phone returns the phone of the current attempt or session.
func (m *Manager) Phone() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phone
}

// AttachInitData records the initData verified for the current request. Its
// phone takes precedence over one exposed by the host.
func (m *Manager) AttachInitData(p telegram.InitDataProvider) {
	m.mu.Lock()
	m.preview = p
	m.mu.Unlock()
}

// PreviewPhone returns the phone pre-shared through initData.
func (m *Manager) PreviewPhone() string {
	m.mu.Lock()
	p := m.preview
	m.mu.Unlock()
	if p != nil {
		if phone := NormalizeDigits(p.InitDataPhone()); phone != "" {
			return phone
		}
	}
	if p, ok := m.host.(telegram.InitDataProvider); ok {
		return NormalizeDigits(p.InitDataPhone())
	}
	return ""
}

// RequestPhoneNumber acquires the phone through the host SDK. Capabilities
// are detected once per attempt. Every error means the caller should offer
// manual entry.
func (m *Manager) RequestPhoneNumber(ctx context.Context) (string, error) {
	m.mu.Lock()
	m.attempt++
	attempt := m.attempt
	m.state = StateRequestingPhone
	m.mu.Unlock()

	var (
		phone string
		err   error
	)
	switch capability := telegram.Detect(m.host); capability {
	case telegram.CapabilityUnavailable:
		err = ErrHostUnavailable
	case telegram.CapabilityContactRequest:
		phone, err = m.requestViaContact(ctx, m.host.(telegram.ContactRequester))
	case telegram.CapabilityDirectShare:
		phone, err = m.requestViaShare(ctx, m.host.(telegram.PhoneSharer))
	default:
		err = ErrUnsupportedCapability
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if attempt != m.attempt {
		return "", ErrSuperseded
	}
	if err != nil {
		m.state = StateIdle
		m.logger.Info("phone request failed", slog.Any("error", err))
		return "", err
	}
	m.phone = phone
	return phone, nil
}

func (m *Manager) requestViaContact(ctx context.Context, requester telegram.ContactRequester) (string, error) {
	events := make(chan telegram.ContactEvent, 1)
	release := requester.SubscribeContact(func(ev telegram.ContactEvent) {
		if ev.Status != telegram.ContactStatusSent || ev.AuthData.PhoneNumber == "" {
			return
		}
		select {
		case events <- ev:
		default:
		}
	})
	defer release()

	shared, err := requester.RequestContact(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedCapability, err)
	}
	if !shared {
		return "", ErrUserDeclined
	}

	timer := time.NewTimer(m.contactTimeout)
	defer timer.Stop()

	select {
	case ev := <-events:
		return m.verifyContact(ctx, ev.AuthData)
	case <-timer.C:
		return "", ErrContactTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) requestViaShare(ctx context.Context, sharer telegram.PhoneSharer) (string, error) {
	phone, err := sharer.SharePhone(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoPhoneReturned, err)
	}
	phone = NormalizeDigits(phone)
	if phone == "" {
		return "", ErrNoPhoneReturned
	}
	return phone, nil
}

// AcceptContact handles contact data delivered outside RequestPhoneNumber,
// such as a contact event forwarded by the Mini App.
func (m *Manager) AcceptContact(ctx context.Context, data telegram.ContactAuthData) (string, error) {
	phone, err := m.verifyContact(ctx, data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.phone = phone
	m.mu.Unlock()
	return phone, nil
}

func (m *Manager) verifyContact(ctx context.Context, data telegram.ContactAuthData) (string, error) {
	phone := NormalizeDigits(data.PhoneNumber)
	if phone == "" {
		return "", ErrNoPhoneReturned
	}
	if m.verifier != nil {
		ok, err := m.verifier.Verify(ctx, data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrContactRejected, err)
		}
		if !ok {
			return "", ErrContactRejected
		}
	}
	return phone, nil
}

// SubmitManualPhone accepts a manually typed phone number.
func (m *Manager) SubmitManualPhone(dialCode, localDigits string) (string, error) {
	phone, err := ManualPhone(dialCode, localDigits)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.attempt++
	m.phone = phone
	m.mu.Unlock()
	return phone, nil
}

// IssueVerificationCode starts a new pending verification for phone, replacing
// any previous code and countdown. An empty phone reuses the attempt's phone.
// Delivery to the bot is best effort.
func (m *Manager) IssueVerificationCode(ctx context.Context, phone string) (PendingVerification, error) {
	code, err := m.codes()
	if err != nil {
		return PendingVerification{}, err
	}

	m.mu.Lock()
	if phone == "" {
		phone = m.phone
	}
	phone = NormalizeDigits(phone)
	if phone == "" {
		m.mu.Unlock()
		return PendingVerification{}, ErrInvalidPhoneFormat
	}
	if m.pending != nil {
		m.pending.countdown.Stop()
	}
	now := m.now()
	p := &pending{
		PendingVerification: PendingVerification{
			ID:          uuid.NewString(),
			TargetPhone: phone,
			Code:        code,
			IssuedAt:    now,
		},
		countdown: StartCountdown(m.codeTTL, m.now, m.onTick),
	}
	m.pending = p
	m.phone = phone
	m.state = StateCodeSent
	snapshot := p.snapshot()
	m.mu.Unlock()

	m.deliver(ctx, phone, code, now)

	m.logger.Info("verification code issued", slog.String("phone", phone), slog.String("verification_id", snapshot.ID))
	if m.logCodes {
		m.logger.Debug("demo verification code", slog.String("code", code))
	}
	return snapshot, nil
}

func (m *Manager) deliver(ctx context.Context, phone, code string, at time.Time) {
	sender, ok := m.host.(telegram.DataSender)
	if !ok {
		return
	}
	payload, err := json.Marshal(struct {
		Action    string `json:"action"`
		Phone     string `json:"phone"`
		Code      string `json:"code"`
		Timestamp int64  `json:"timestamp"`
	}{actionSendVerification, phone, code, at.UnixMilli()})
	if err != nil {
		m.logger.Warn("encode verification payload", slog.Any("error", err))
		return
	}
	if err := sender.SendData(ctx, payload); err != nil {
		m.logger.Warn("verification code delivery failed", slog.String("phone", phone), slog.Any("error", err))
	}
}

// Resend reissues a code to the pending phone and restarts the countdown.
func (m *Manager) Resend(ctx context.Context) (PendingVerification, error) {
	m.mu.Lock()
	if m.pending == nil {
		m.mu.Unlock()
		return PendingVerification{}, ErrNoPendingVerification
	}
	phone := m.pending.TargetPhone
	m.mu.Unlock()
	return m.IssueVerificationCode(ctx, phone)
}

// Pending returns the current pending verification.
func (m *Manager) Pending() (PendingVerification, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return PendingVerification{}, false
	}
	return m.pending.snapshot(), true
}

// VerifyCode compares entered with the pending code. On a match the session is
// persisted and becomes active; on a mismatch nothing changes. The session is
// saved without holding the manager lock. A code reissued or cancelled while
// the save runs wins, and the saved session is removed again.
func (m *Manager) VerifyCode(ctx context.Context, entered string) (bool, error) {
	m.mu.Lock()
	p := m.pending
	if p == nil {
		m.mu.Unlock()
		return false, ErrNoPendingVerification
	}
	if p.verifying {
		m.mu.Unlock()
		return false, ErrVerificationInProgress
	}
	if subtle.ConstantTimeCompare([]byte(entered), []byte(p.Code)) != 1 {
		m.mu.Unlock()
		return false, nil
	}
	p.verifying = true
	s := session.New(p.TargetPhone, m.now())
	m.mu.Unlock()

	saveErr := m.repo.Save(ctx, m.clientID, s.Fields())

	m.mu.Lock()
	p.verifying = false
	if m.pending != p {
		m.mu.Unlock()
		if saveErr == nil {
			if err := m.repo.Clear(ctx, m.clientID); err != nil {
				m.logger.Warn("clear superseded session", slog.Any("error", err))
			}
		}
		return false, ErrSuperseded
	}
	if saveErr != nil {
		m.mu.Unlock()
		return false, fmt.Errorf("persist session: %w", saveErr)
	}
	p.countdown.Stop()
	m.pending = nil
	m.session = &s
	m.phone = s.Phone
	m.state = StateVerified
	m.mu.Unlock()

	m.logger.Info("phone verified", slog.String("phone", s.Phone))
	return true, nil
}

// CancelPending drops the pending code and stops its countdown, as when the
// code dialog is dismissed.
func (m *Manager) CancelPending() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending != nil {
		m.pending.countdown.Stop()
		m.pending = nil
	}
	if m.state != StateVerified {
		m.state = StateIdle
	}
}

// Logout clears the session from memory and storage.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.pending != nil {
		m.pending.countdown.Stop()
		m.pending = nil
	}
	m.session = nil
	m.phone = ""
	m.state = StateIdle
	m.attempt++
	m.mu.Unlock()

	if err := m.repo.Clear(ctx, m.clientID); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	m.logger.Info("session cleared")
	return nil
}

func (p *pending) snapshot() PendingVerification {
	out := p.PendingVerification
	out.ExpiresInSeconds = p.countdown.Remaining()
	return out
}

// CanResend reports whether the countdown of the pending code has run out.
func (p PendingVerification) CanResend() bool {
	return p.ExpiresInSeconds == 0
}
