package domain

import "errors"

// Sentinel errors for the booking and reconciliation paths. Handlers map
// these onto status classes: caller faults get 4xx, infrastructure failures
// get 5xx so the payment processor redelivers.
var (
	// ErrDecryption means stored ciphertext does not match the current vault
	// key: a needed key rotation or a corrupted record, never silently
	// returned plaintext.
	ErrDecryption = errors.New("credential decryption failed")

	// ErrProviderCredentialsMissing means the vault has no usable secret for
	// the provider.
	ErrProviderCredentialsMissing = errors.New("provider credentials missing")

	// ErrProviderAuthFailed means the provider rejected the credential
	// exchange.
	ErrProviderAuthFailed = errors.New("provider auth failed")

	// ErrNoProvidersAvailable is returned only when zero providers succeed in
	// a search fan-out.
	ErrNoProvidersAvailable = errors.New("no providers available")

	// ErrInvalidBookingType rejects an unrecognized booking type before any
	// processor call is made.
	ErrInvalidBookingType = errors.New("invalid booking type")

	// ErrMissingBookingType means the webhook metadata carries no bookingType
	// discriminant.
	ErrMissingBookingType = errors.New("booking type missing from metadata")

	// ErrMetadataDecode means the checkout metadata could not be inverted
	// back into a structured booking.
	ErrMetadataDecode = errors.New("metadata decode failed")

	// ErrSignatureInvalid rejects a webhook whose signature does not match
	// the configured secret.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrUserNotFound means the paying account disappeared between checkout
	// and webhook delivery. Terminal: retrying cannot fix it.
	ErrUserNotFound = errors.New("user not found")

	// ErrDuplicateSession means a booking already exists for the payment
	// session. The reconciler treats it as a successful no-op.
	ErrDuplicateSession = errors.New("booking already recorded for payment session")

	ErrBookingNotFound = errors.New("booking not found")
)
