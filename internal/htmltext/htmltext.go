// Package htmltext reduces designer-authored HTML to the subset the
// Telegram Bot API accepts.
package htmltext

import (
	"strings"

	"golang.org/x/net/html"
)

// allowedTags are emitted as-is. Everything else is dropped while its
// text content is kept.
var allowedTags = map[string]bool{
	"b": true, "strong": true,
	"i": true, "em": true,
	"u": true, "ins": true,
	"s": true, "strike": true, "del": true,
	"tg-spoiler": true,
	"a":          true,
	"code":       true,
	"pre":        true,
	"blockquote": true,
}

// newlineAfter tags contribute a line break when they close, whether or
// not their markup survives.
var newlineAfter = map[string]bool{
	"p": true, "blockquote": true, "pre": true,
}

type openTag struct {
	name  string
	start int
	end   int
}

// Clean rewrites raw HTML into Telegram-safe HTML. Unknown tags are
// stripped, anchors without href lose their markup, and openers left
// unclosed at the end of input are rolled back.
func Clean(raw string) string {
	var buf strings.Builder
	var stack []openTag

	tokenizer := html.NewTokenizer(strings.NewReader(raw))
	for {
		tokenType := tokenizer.Next()
		if tokenType == html.ErrorToken {
			break
		}

		switch tokenType {
		case html.TextToken:
			text := strings.ReplaceAll(tokenizer.Token().Data, "\u00a0", " ")
			buf.WriteString(html.EscapeString(text))

		case html.StartTagToken:
			token := tokenizer.Token()
			openTagToken(&buf, &stack, token)

		case html.SelfClosingTagToken:
			token := tokenizer.Token()
			openTagToken(&buf, &stack, token)
			closeTagToken(&buf, &stack, token.Data)

		case html.EndTagToken:
			closeTagToken(&buf, &stack, tokenizer.Token().Data)
		}
	}

	result := buf.String()

	// Whatever is still open never got its closing tag; remove the
	// markup it emitted, innermost first.
	for i := len(stack) - 1; i >= 0; i-- {
		entry := stack[i]
		result = result[:entry.start] + result[entry.end:]
	}

	return strings.TrimSuffix(result, "\n")
}

func openTagToken(buf *strings.Builder, stack *[]openTag, token html.Token) {
	name := token.Data
	if name == "br" {
		return
	}

	start := buf.Len()
	if allowedTags[name] {
		if name == "a" {
			href, ok := attr(token, "href")
			if !ok {
				// An anchor without a destination keeps only its text.
				return
			}
			buf.WriteString(`<a href="` + html.EscapeString(href) + `">`)
		} else {
			buf.WriteString("<" + name + ">")
		}
	}
	*stack = append(*stack, openTag{name: name, start: start, end: buf.Len()})
}

func closeTagToken(buf *strings.Builder, stack *[]openTag, name string) {
	if name == "br" {
		return
	}
	if len(*stack) == 0 || (*stack)[len(*stack)-1].name != name {
		return
	}
	*stack = (*stack)[:len(*stack)-1]

	if allowedTags[name] {
		buf.WriteString("</" + name + ">")
	}
	if newlineAfter[name] {
		buf.WriteString("\n")
	}
}

func attr(token html.Token, key string) (string, bool) {
	for _, a := range token.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}
