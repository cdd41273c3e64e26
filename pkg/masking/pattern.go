package masking

import (
	"log/slog"
	"regexp"
)

// CompiledPattern holds a pre-compiled regex pattern with its replacement.
type CompiledPattern struct {
	Name        string
	Regex       *regexp.Regexp
	Replacement string
	Description string
}

// builtinPattern is the uncompiled form of a CompiledPattern.
type builtinPattern struct {
	pattern     string
	replacement string
	description string
}

// builtinPatterns run after the code maskers, in builtinOrder.
var builtinPatterns = map[string]builtinPattern{
	"authorization_header": {
		pattern:     `(?i)\b(authorization\s*[:=]\s*)(?:bearer|basic|token)\s+[^\s",;]+`,
		replacement: "${1}" + MaskedValue,
		description: "Authorization header values",
	},
	"bearer_token": {
		pattern:     `(?i)\b(bearer\s+)[A-Za-z0-9\-._~+/]{8,}=*`,
		replacement: "${1}" + MaskedValue,
		description: "Bearer tokens outside a header",
	},
	"json_credential_field": {
		pattern:     `(?i)("(?:token|access_token|refresh_token|password|secret|api_key)"\s*:\s*")[^"]*("|$)`,
		replacement: "${1}" + MaskedValue + "${2}",
		description: "Credential fields of JSON too truncated to parse",
	},
	"jwt": {
		pattern:     `\beyJ[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{4,}\.[A-Za-z0-9_-]{4,}`,
		replacement: MaskedValue,
		description: "JSON web tokens",
	},
}

// builtinOrder fixes the application order so header masking wins over the
// looser bearer pattern.
var builtinOrder = []string{"authorization_header", "bearer_token", "json_credential_field", "jwt"}

// compileBuiltinPatterns compiles the built-in patterns. Invalid patterns are
// logged and skipped.
func compileBuiltinPatterns() []*CompiledPattern {
	out := make([]*CompiledPattern, 0, len(builtinOrder))
	for _, name := range builtinOrder {
		p := builtinPatterns[name]
		compiled, err := regexp.Compile(p.pattern)
		if err != nil {
			slog.Error("Failed to compile built-in masking pattern, skipping",
				"pattern", name, "error", err)
			continue
		}
		out = append(out, &CompiledPattern{
			Name:        name,
			Regex:       compiled,
			Replacement: p.replacement,
			Description: p.description,
		})
	}
	return out
}
