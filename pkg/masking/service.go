package masking

import (
	"log/slog"
	"net/url"
	"slices"
	"strings"
)

// minSecretLen keeps very short values from being masked everywhere they
// happen to appear as a substring.
const minSecretLen = 4

// Service applies code-based maskers and then regex patterns. It is
// immutable after creation and safe for concurrent use.
type Service struct {
	maskers  []Masker
	patterns []*CompiledPattern
}

// NewService creates a masking service. extraKeys extend DefaultSensitiveKeys,
// typically with a configured token query parameter name.
func NewService(extraKeys ...string) *Service {
	keys := slices.Concat(DefaultSensitiveKeys, extraKeys)
	s := &Service{
		maskers: []Masker{
			NewURLQueryMasker(keys),
			NewJSONFieldMasker(keys),
		},
		patterns: compileBuiltinPatterns(),
	}
	slog.Debug("Masking service initialized",
		"code_maskers", len(s.maskers),
		"compiled_patterns", len(s.patterns))
	return s
}

// Mask returns data with credentials redacted. Known secret values (the
// current token) are replaced verbatim and in their URL-escaped form first.
func (s *Service) Mask(data string, secrets ...string) string {
	if data == "" {
		return data
	}
	masked := data

	for _, secret := range secrets {
		if len(secret) < minSecretLen {
			continue
		}
		masked = strings.ReplaceAll(masked, secret, MaskedValue)
		if escaped := url.QueryEscape(secret); escaped != secret {
			masked = strings.ReplaceAll(masked, escaped, MaskedValue)
		}
	}

	for _, m := range s.maskers {
		if m.AppliesTo(masked) {
			masked = m.Mask(masked)
		}
	}
	for _, p := range s.patterns {
		masked = p.Regex.ReplaceAllString(masked, p.Replacement)
	}
	return masked
}

// MaskError returns err with a masked message. The original error stays
// reachable through errors.Is and errors.As. err is returned as is when
// nothing needed masking.
func (s *Service) MaskError(err error, secrets ...string) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	masked := s.Mask(msg, secrets...)
	if masked == msg {
		return err
	}
	return &maskedError{err: err, msg: masked}
}

type maskedError struct {
	err error
	msg string
}

func (e *maskedError) Error() string { return e.msg }
func (e *maskedError) Unwrap() error { return e.err }
