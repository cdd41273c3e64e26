package config

import (
	"bytes"
	"os"
	"strings"
	"text/template"
)

// ExpandEnv substitutes {{.NAME}} references in config content with the
// value of the NAME environment variable. Unset variables become empty
// strings. Shell-style $NAME and ${NAME} are left alone so socket URLs and
// selectors containing '$' survive untouched.
//
// Content that does not parse as a template is returned as-is and left for
// the YAML parser to report.
func ExpandEnv(data []byte) []byte {
	tmpl, err := template.New("drafter").Option("missingkey=zero").Parse(string(data))
	if err != nil {
		return data
	}

	env := make(map[string]string)
	for _, kv := range os.Environ() {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			env[key] = value
		}
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, env); err != nil {
		return data
	}
	return buf.Bytes()
}
