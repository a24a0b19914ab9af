package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_Text(t *testing.T) {
	p := New()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "A fine book.", "A fine book."},
		{"tags stripped", "<b>Bold</b> and <i>italic</i>", "Bold and italic"},
		{"script removed", `hi<script>alert("x")</script>`, "hi"},
		{"entities unescaped", "Tom &amp; Jerry", "Tom & Jerry"},
		{"paragraphs become lines", "<p>One</p><p>Two</p>", "One\nTwo"},
		{"line breaks kept", "a<br>b", "a\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Text(tt.in))
		})
	}
}
