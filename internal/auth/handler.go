package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/giftgate/giftgate/internal/telegram"
)

// ClientIDHeader identifies the Mini App client, usually its Telegram user id.
const ClientIDHeader = "X-Client-ID"

const fallbackManualEntry = "manual_entry"

// Handler exposes the phone verification flow over HTTP.
type Handler struct {
	registry *Registry
}

// NewHandler constructs an auth HTTP handler.
func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

type sessionResponse struct {
	Authorized    bool       `json:"authorized"`
	State         string     `json:"state"`
	Phone         string     `json:"phone,omitempty"`
	DisplayPhone  string     `json:"display_phone,omitempty"`
	EstablishedAt *time.Time `json:"established_at,omitempty"`
	PreviewPhone  string     `json:"preview_phone,omitempty"`
}

type pendingResponse struct {
	VerificationID string `json:"verification_id"`
	Phone          string `json:"phone"`
	DisplayPhone   string `json:"display_phone"`
	ExpiresIn      int    `json:"expires_in"`
	CanResend      bool   `json:"can_resend"`
}

type manualPhoneRequest struct {
	DialCode string `json:"dial_code"`
	Digits   string `json:"digits"`
}

type verifyCodeRequest struct {
	Code string `json:"code"`
}

// ClientID reads the client id header. The value is copied out of the request
// buffer, so it stays valid after the handler returns.
func ClientID(c *fiber.Ctx) (string, error) {
	id := strings.TrimSpace(c.Get(ClientIDHeader))
	if id == "" {
		return "", fiber.NewError(http.StatusBadRequest, ClientIDHeader+" header is required")
	}
	return utils.CopyString(id), nil
}

func (h *Handler) manager(c *fiber.Ctx) (*Manager, error) {
	id, err := ClientID(c)
	if err != nil {
		return nil, err
	}
	m := h.registry.Get(id)
	attachInitData(c, m)
	return m, nil
}

func attachInitData(c *fiber.Ctx, m *Manager) {
	if data, ok := c.Locals("init_data").(telegram.InitData); ok {
		m.AttachInitData(data)
	}
}

// Session restores and reports the client's session.
func (h *Handler) Session(c *fiber.Ctx) error {
	id, err := ClientID(c)
	if err != nil {
		return err
	}
	m, err := h.registry.Authorize(c.UserContext(), id)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	attachInitData(c, m)
	resp := sessionResponse{State: m.State().String(), PreviewPhone: m.PreviewPhone()}
	if s, ok := m.Session(); ok && m.IsAuthorized() {
		at := s.EstablishedAt.UTC()
		resp.Authorized = true
		resp.Phone = s.Phone
		resp.DisplayPhone = FormatPhoneForDisplay(s.Phone)
		resp.EstablishedAt = &at
	}
	return c.Status(http.StatusOK).JSON(resp)
}

// Logout clears the session.
func (h *Handler) Logout(c *fiber.Ctx) error {
	id, err := ClientID(c)
	if err != nil {
		return err
	}
	if err := h.registry.Get(id).Logout(c.UserContext()); err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	h.registry.Forget(id)
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "logged_out"})
}

// RequestPhone asks the host for the phone number and issues a code.
func (h *Handler) RequestPhone(c *fiber.Ctx) error {
	m, err := h.manager(c)
	if err != nil {
		return err
	}
	phone, err := m.RequestPhoneNumber(c.UserContext())
	if err != nil {
		return phoneFailure(c, err)
	}
	return h.issue(c, m, phone)
}

// ManualPhone accepts a typed phone number and issues a code.
func (h *Handler) ManualPhone(c *fiber.Ctx) error {
	m, err := h.manager(c)
	if err != nil {
		return err
	}
	var req manualPhoneRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	phone, err := m.SubmitManualPhone(req.DialCode, req.Digits)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return h.issue(c, m, phone)
}

// Contact accepts contact data forwarded by the Mini App and issues a code.
func (h *Handler) Contact(c *fiber.Ctx) error {
	m, err := h.manager(c)
	if err != nil {
		return err
	}
	var ev telegram.ContactEvent
	if err := c.BodyParser(&ev); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if ev.Status != "" && ev.Status != telegram.ContactStatusSent {
		return phoneFailure(c, ErrUserDeclined)
	}
	phone, err := m.AcceptContact(c.UserContext(), ev.AuthData)
	if err != nil {
		return phoneFailure(c, err)
	}
	return h.issue(c, m, phone)
}

// Resend reissues the pending code.
func (h *Handler) Resend(c *fiber.Ctx) error {
	m, err := h.manager(c)
	if err != nil {
		return err
	}
	p, err := m.Resend(c.UserContext())
	if err != nil {
		if errors.Is(err, ErrNoPendingVerification) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toPendingResponse(p))
}

// Verify checks the entered code.
func (h *Handler) Verify(c *fiber.Ctx) error {
	m, err := h.manager(c)
	if err != nil {
		return err
	}
	var req verifyCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ok, err := m.VerifyCode(c.UserContext(), strings.TrimSpace(req.Code))
	if err != nil {
		if errors.Is(err, ErrNoPendingVerification) || errors.Is(err, ErrSuperseded) || errors.Is(err, ErrVerificationInProgress) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"verified": false, "error": ErrVerificationMismatch.Error()})
	}
	phone := m.Phone()
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"verified":      true,
		"phone":         phone,
		"display_phone": FormatPhoneForDisplay(phone),
	})
}

// Countries lists the dial codes offered for manual entry.
func (h *Handler) Countries(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"countries": Countries, "default": DefaultDialCode})
}

func (h *Handler) issue(c *fiber.Ctx, m *Manager, phone string) error {
	p, err := m.IssueVerificationCode(c.UserContext(), phone)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusAccepted).JSON(toPendingResponse(p))
}

func phoneFailure(c *fiber.Ctx, err error) error {
	switch {
	case NeedsManualEntry(err):
		return c.Status(http.StatusConflict).JSON(fiber.Map{"error": err.Error(), "fallback": fallbackManualEntry})
	case errors.Is(err, ErrSuperseded):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

func toPendingResponse(p PendingVerification) pendingResponse {
	return pendingResponse{
		VerificationID: p.ID,
		Phone:          p.TargetPhone,
		DisplayPhone:   FormatPhoneForDisplay(p.TargetPhone),
		ExpiresIn:      p.ExpiresInSeconds,
		CanResend:      p.CanResend(),
	}
}
