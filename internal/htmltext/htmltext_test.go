package htmltext

import "testing"

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain text", "hello", "hello"},
		{"escapes entities", "a < b & c", "a &lt; b &amp; c"},
		{"keeps bold", "<b>hi</b>", "<b>hi</b>"},
		{"keeps nested allowed tags", "<b><i>hi</i></b>", "<b><i>hi</i></b>"},
		{"keeps spoiler", "<tg-spoiler>secret</tg-spoiler>", "<tg-spoiler>secret</tg-spoiler>"},
		{"drops unknown tag keeps text", "<span>hi</span>", "hi"},
		{"drops script markup keeps text", "<b>a</b><script>x</script>", "<b>a</b>x"},
		{"non-breaking space becomes space", "a\u00a0b", "a b"},
		{"br contributes nothing", "a<br>b", "ab"},
		{"paragraph adds newline", "<p>one</p><p>two</p>", "one\ntwo"},
		{"trailing newline trimmed", "<p>only</p>", "only"},
		{"blockquote keeps markup and breaks line", "<blockquote>q</blockquote>after", "<blockquote>q</blockquote>\nafter"},
		{"anchor with href", `<a href="https://example.org">link</a>`, `<a href="https://example.org">link</a>`},
		{"anchor without href loses markup", "<a>link</a>", "link"},
		{"unclosed opener rolled back", "<b>bold", "bold"},
		{"bad nesting loses both markups", "<b>a<i>b</b>", "ab"},
		{"mismatched closer ignored", "hi</b>", "hi"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clean(tt.raw)
			if got != tt.want {
				t.Errorf("Clean(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
