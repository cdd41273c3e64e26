package patch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "text runs inside inline markup",
			in:   `<p>Hello <b>World</b></p>`,
			want: `<p><span class="selectable-text">Hello </span><b><span class="selectable-text">World</span></b></p>`,
		},
		{
			name: "blank text nodes are left alone",
			in:   "<ul>\n<li>a</li>\n</ul>",
			want: "<ul>\n<li><span class=\"selectable-text\">a</span></li>\n</ul>",
		},
		{
			name: "already wrapped",
			in:   `<p><span class="selectable-text">done</span></p>`,
			want: `<p><span class="selectable-text">done</span></p>`,
		},
		{
			name: "scripts are not wrapped",
			in:   `<div>x<script>var a = 1;</script></div>`,
			want: `<div><span class="selectable-text">x</span><script>var a = 1;</script></div>`,
		},
		{
			name: "top level text",
			in:   `plain`,
			want: `<span class="selectable-text">plain</span>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Wrap(tt.in, DefaultSelectableClass))
		})
	}
}

func TestWrap_Idempotent(t *testing.T) {
	in := `<section><h2>Title</h2><p>Body <em>text</em> here.</p></section>`
	once := Wrap(in, DefaultSelectableClass)
	assert.Equal(t, once, Wrap(once, DefaultSelectableClass))
}

func TestUnwrap(t *testing.T) {
	in := `<p><span class="selectable-text">Hello </span><b><span class='selectable-text'>World</span></b> <span class="other">x</span></p>`
	assert.Equal(t, `<p>Hello <b>World</b> <span class="other">x</span></p>`, Unwrap(in, DefaultSelectableClass))
}

func TestUnwrapWrapRoundTrip(t *testing.T) {
	in := `<p>Hello <b>World</b></p>`
	assert.Equal(t, in, Unwrap(Wrap(in, DefaultSelectableClass), DefaultSelectableClass))
}

func TestPlainText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "<p>Hello&nbsp;<b>big</b>\n   world</p>", want: "Hello big world"},
		{in: "  leading and trailing  ", want: "leading and trailing"},
		{in: "<p>a</p><p>b</p>", want: "ab"},
		{in: "Tom &amp; Jerry &unknown; &lt;3", want: "Tom & Jerry &unknown; <3"},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PlainText(tt.in), tt.in)
	}
}
