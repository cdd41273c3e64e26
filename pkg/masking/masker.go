// Package masking redacts credentials from text before it reaches logs or
// user-visible error messages. Dial errors carry the endpoint URL, which holds
// the bearer token when it travels as a query parameter, and backend error
// bodies sometimes echo the request.
package masking

// Masker is a code-based masker that needs structural awareness beyond regex
// matching (parsing URLs or JSON).
type Masker interface {
	// Name returns the unique identifier for this masker.
	Name() string

	// AppliesTo is a cheap check (string contains, not parsing) on whether
	// this masker should process the data.
	AppliesTo(data string) bool

	// Mask returns the masked data, or data unchanged when it cannot be parsed.
	Mask(data string) string
}

// MaskedValue replaces every redacted credential.
const MaskedValue = "[MASKED]"

// DefaultSensitiveKeys are query parameter and JSON field names whose values
// are always masked. Matching is case-insensitive.
var DefaultSensitiveKeys = []string{
	"token",
	"access_token",
	"refresh_token",
	"auth",
	"api_key",
	"apikey",
	"password",
	"secret",
}
