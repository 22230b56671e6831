package telegram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingHash       = errors.New("init data hash missing")
	ErrSignatureMismatch = errors.New("init data signature mismatch")
	ErrInitDataExpired   = errors.New("init data expired")
)

const webAppDataKey = "WebAppData"

// WebAppUser is the user object embedded in initData.
type WebAppUser struct {
	ID          int64  `json:"id"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name,omitempty"`
	Username    string `json:"username,omitempty"`
	PhoneNumber string `json:"phone_number,omitempty"`
}

// WebAppContact is the contact object returned by a contact request.
type WebAppContact struct {
	UserID      int64  `json:"user_id"`
	PhoneNumber string `json:"phone_number"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name,omitempty"`
}

// InitData is a verified initData or contact response.
type InitData struct {
	AuthDate time.Time
	QueryID  string
	User     *WebAppUser
	Contact  *WebAppContact
}

// Phone returns the shared phone number, preferring the contact object.
func (d InitData) Phone() string {
	if d.Contact != nil && d.Contact.PhoneNumber != "" {
		return d.Contact.PhoneNumber
	}
	if d.User != nil {
		return d.User.PhoneNumber
	}
	return ""
}

// InitDataPhone makes verified initData usable as a request-scoped
// InitDataProvider.
func (d InitData) InitDataPhone() string {
	return d.Phone()
}

func secretKey(botToken string) []byte {
	mac := hmac.New(sha256.New, []byte(webAppDataKey))
	mac.Write([]byte(botToken))
	return mac.Sum(nil)
}

func dataCheckString(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+values.Get(k))
	}
	return strings.Join(pairs, "\n")
}

func sign(values url.Values, botToken string) string {
	mac := hmac.New(sha256.New, secretKey(botToken))
	mac.Write([]byte(dataCheckString(values)))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignInitData appends the hash field to values and returns the encoded query string.
func SignInitData(values url.Values, botToken string) string {
	signed := url.Values{}
	for k, v := range values {
		if k != "hash" {
			signed[k] = v
		}
	}
	signed.Set("hash", sign(signed, botToken))
	return signed.Encode()
}

// ValidateInitData checks the HMAC signature of a raw initData query string and
// decodes it. maxAge <= 0 disables the auth_date freshness check.
func ValidateInitData(raw, botToken string, now time.Time, maxAge time.Duration) (InitData, error) {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return InitData{}, err
	}
	hash := values.Get("hash")
	if hash == "" {
		return InitData{}, ErrMissingHash
	}
	got, err := hex.DecodeString(hash)
	if err != nil {
		return InitData{}, ErrSignatureMismatch
	}
	want, _ := hex.DecodeString(sign(values, botToken))
	if !hmac.Equal(got, want) {
		return InitData{}, ErrSignatureMismatch
	}

	var data InitData
	if v := values.Get("auth_date"); v != "" {
		secs, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return InitData{}, errors.New("invalid auth_date")
		}
		data.AuthDate = time.Unix(secs, 0)
	}
	if maxAge > 0 && (data.AuthDate.IsZero() || now.Sub(data.AuthDate) > maxAge) {
		return InitData{}, ErrInitDataExpired
	}
	data.QueryID = values.Get("query_id")
	if v := values.Get("user"); v != "" {
		var u WebAppUser
		if err := json.Unmarshal([]byte(v), &u); err != nil {
			return InitData{}, errors.New("invalid user json")
		}
		data.User = &u
	}
	if v := values.Get("contact"); v != "" {
		var c WebAppContact
		if err := json.Unmarshal([]byte(v), &c); err != nil {
			return InitData{}, errors.New("invalid contact json")
		}
		data.Contact = &c
	}
	return data, nil
}
