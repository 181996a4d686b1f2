package app

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanContent(t *testing.T) {
	data := []struct {
		name, in, title, want string
	}{
		{
			name: "code fence",
			in:   "```html\n<h2>Intro</h2><p>Hi</p>\n```",
			want: "<h2>Intro</h2><p>Hi</p>",
		},
		{
			name: "scripts removed",
			in:   `<p>Hi</p><script>alert(1)</script><style>p{}</style><iframe src="x"></iframe>`,
			want: "<p>Hi</p>",
		},
		{
			name:  "duplicate title heading",
			in:    "<h1>Go  Channels</h1><p>Body</p>",
			title: "go channels",
			want:  "<p>Body</p>",
		},
		{
			name:  "different heading kept",
			in:    "<h1>Other</h1><p>Body</p>",
			title: "Go Channels",
			want:  "<h1>Other</h1><p>Body</p>",
		},
		{
			name: "empty",
			in:   "  ",
			want: "",
		},
	}
	for _, d := range data {
		t.Run(d.name, func(t *testing.T) {
			assert.Equal(t, d.want, CleanContent(d.in, d.title))
		})
	}
}

func TestCleanTitleAndExcerpt(t *testing.T) {
	assert.Equal(t, "Mastering Go", CleanTitle(`  "Mastering   Go" `))
	assert.Equal(t, "Mastering Go", CleanTitle("'Mastering Go'"))

	long := strings.Repeat("é", 200)
	assert.Len(t, []rune(CleanExcerpt(`"`+long+`"`)), MaxExcerptLength)
	assert.Equal(t, "Short", CleanExcerpt(" 'Short' "))
}

func TestSlugify(t *testing.T) {
	assert.Equal(t, "creme-brulee-in-10-minutes", Slugify("Crème Brûlée in 10 Minutes!"))
	assert.Equal(t, "go-1-22-what-s-new", Slugify("  Go 1.22: What's New?  "))
	assert.Equal(t, "", Slugify("!!!"))
}
