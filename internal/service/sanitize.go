package service

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// RichTextTags is the allow-list of elements kept in rich-text fields. Every
// create and update of entry content and todo notes goes through it.
const RichTextTags = "p br strong b em i u s strike h1 h2 h3 h4 blockquote pre code ul ol li a span"

// editorClasses matches one or more rich-text editor classes (ql-*).
var editorClasses = regexp.MustCompile(`^ql-[a-z0-9-]+( ql-[a-z0-9-]+)*$`)

// Sanitizer cleans user-supplied HTML. It is safe for concurrent use.
type Sanitizer struct {
	rich  *bluemonday.Policy
	plain *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	p := bluemonday.NewPolicy()
	p.AllowElements(strings.Fields(RichTextTags)...)
	p.AllowStandardURLs()
	p.AllowAttrs("href").OnElements("a")
	p.RequireNoFollowOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").Matching(editorClasses).OnElements("p", "span", "pre", "li")
	return &Sanitizer{rich: p, plain: bluemonday.StrictPolicy()}
}

// RichText keeps the allow-listed formatting and drops everything else,
// including script and style bodies and event-handler attributes.
func (s *Sanitizer) RichText(in string) string {
	return strings.TrimSpace(s.rich.Sanitize(in))
}

// PlainText strips all markup and returns the visible text.
func (s *Sanitizer) PlainText(in string) string {
	// Block ends become spaces so adjacent paragraphs do not run together.
	in = strings.NewReplacer("</p>", "</p> ", "<br>", " ", "<br/>", " ", "</li>", "</li> ").Replace(in)
	text := html.UnescapeString(s.plain.Sanitize(in))
	return strings.Join(strings.Fields(text), " ")
}
