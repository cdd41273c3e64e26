package version

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCommit(t *testing.T) {
	tests := []struct {
		name     string
		override string
		settings map[string]string
		want     string
	}{
		{name: "no build info", want: "dev"},
		{name: "no revision", settings: map[string]string{"vcs": "git"}, want: "dev"},
		{name: "revision shortened", settings: map[string]string{"vcs.revision": "a3f8c2d1e5b7"}, want: "a3f8c2d1"},
		{name: "short revision kept", settings: map[string]string{"vcs.revision": "abc"}, want: "abc"},
		{
			name:     "modified tree",
			settings: map[string]string{"vcs.revision": "a3f8c2d1e5b7", "vcs.modified": "true"},
			want:     "a3f8c2d1-dirty",
		},
		{
			name:     "ldflags override wins",
			override: "0123456789abcdef",
			settings: map[string]string{"vcs.revision": "a3f8c2d1e5b7", "vcs.modified": "true"},
			want:     "01234567",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveCommit(tt.override, tt.settings))
		})
	}
}

func TestUserAgent(t *testing.T) {
	ua := UserAgent()
	assert.True(t, strings.HasPrefix(ua, Full()+" ("))
	assert.Contains(t, ua, runtime.Version())
	assert.Contains(t, ua, runtime.GOOS+"/"+runtime.GOARCH)
}
