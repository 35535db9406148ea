// internal/ingest/snippet.go
package ingest

import (
	"strings"

	"golang.org/x/net/html"
)

// snippetFrom extracts the plain text of an HTML fragment with
// whitespace collapsed, for use as a short message description.
func snippetFrom(fragment string) string {
	if fragment == "" {
		return ""
	}

	tok := html.NewTokenizer(strings.NewReader(fragment))
	var b strings.Builder
	for {
		switch tok.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(b.String()), " ")
		case html.TextToken:
			b.Write(tok.Text())
			b.WriteByte(' ')
		}
	}
}
