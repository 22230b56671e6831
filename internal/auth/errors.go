package auth

import "errors"

var (
	// Host SDK failures. Each one sends the user to manual phone entry.
	ErrHostUnavailable       = errors.New("telegram host unavailable")
	ErrUserDeclined          = errors.New("user declined contact sharing")
	ErrContactTimeout        = errors.New("contact request timed out")
	ErrNoPhoneReturned       = errors.New("no phone number returned")
	ErrUnsupportedCapability = errors.New("phone sharing not supported")
	ErrContactRejected       = errors.New("contact data failed verification")
	ErrSuperseded            = errors.New("phone request superseded")

	ErrInvalidPhoneFormat     = errors.New("invalid phone number: at least 10 digits required")
	ErrVerificationMismatch   = errors.New("verification code mismatch")
	ErrNoPendingVerification  = errors.New("no verification code pending")
	ErrVerificationInProgress = errors.New("verification already in progress")
)

// NeedsManualEntry reports whether err should be answered by offering manual
// phone entry.
func NeedsManualEntry(err error) bool {
	for _, target := range []error{
		ErrHostUnavailable, ErrUserDeclined, ErrContactTimeout, ErrNoPhoneReturned,
		ErrUnsupportedCapability, ErrContactRejected,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
