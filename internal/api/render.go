package api

import (
	"bytes"
	stdhtml "html"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// markdown renders replies for web clients. Raw HTML in a reply is
// escaped, not passed through.
var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// renderHTML converts a markdown reply to HTML. On a render failure the
// escaped text is returned in a paragraph.
func renderHTML(reply string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(reply), &buf); err != nil {
		return "<p>" + stdhtml.EscapeString(reply) + "</p>\n"
	}
	return buf.String()
}
