package render

import (
	"strings"
	"testing"

	"github.com/mattn/go-runewidth"
)

func TestPlainText_HTML(t *testing.T) {
	in := `<html><head><style>p{}</style></head><body><p>Hello <b>team</b>,</p><ul><li>one</li><li>two</li></ul><div>Bye<br>Ana</div></body></html>`
	out := PlainText(in)
	if strings.Contains(out, "p{}") {
		t.Fatalf("style content should be skipped, got: %q", out)
	}
	for _, want := range []string{"Hello team,", "- one", "- two", "Bye\nAna"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got: %q", want, out)
		}
	}
}

func TestPlainText_PlainInputIsNormalized(t *testing.T) {
	in := "Line one   with  spaces\r\n\r\n\r\n\r\nLine two\t\t"
	out := PlainText(in)
	if out != "Line one with spaces\n\nLine two" {
		t.Fatalf("unexpected normalization: %q", out)
	}
}

func TestPreview(t *testing.T) {
	body := "Hi,\n\nPlease review the budget before Friday. Thanks!"
	if got := Preview(body, 100); got != "Hi, Please review the budget before Friday. Thanks!" {
		t.Fatalf("unexpected preview: %q", got)
	}
	got := Preview(body, 12)
	if runewidth.StringWidth(got) > 12 || !strings.HasSuffix(got, "...") {
		t.Fatalf("preview should be truncated with ellipsis, got: %q", got)
	}
	if Preview(body, 0) != "" {
		t.Fatalf("zero width preview should be empty")
	}
}

func TestFitWidth(t *testing.T) {
	if got := FitWidth("abc", 6); got != "abc   " {
		t.Fatalf("expected right padding, got %q", got)
	}
	if got := FitWidth("abcdefghij", 6); runewidth.StringWidth(got) != 6 {
		t.Fatalf("expected width 6, got %q", got)
	}
}
