package format

import (
	"strings"
	"testing"
)

func TestASCIITable(t *testing.T) {
	tb := New(ASCII)
	tb.Header("Name", "Count")
	tb.Row("alpha", 1)
	tb.Row("beta", 22)
	tb.Footer("total", 23)
	out := tb.String()

	for _, want := range []string{"Name", "alpha", "22", "total"} {
		if !strings.Contains(out, want) {
			t.Errorf("ASCII table missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownTable(t *testing.T) {
	tb := New(Markdown)
	tb.Header("Name", "Count")
	tb.Row("alpha", 1)
	out := tb.String()

	if !strings.Contains(out, "|") {
		t.Errorf("Markdown table has no pipes:\n%s", out)
	}
	if !strings.Contains(out, "alpha") {
		t.Errorf("Markdown table missing row:\n%s", out)
	}
}

func TestColumnMaxWidth(t *testing.T) {
	tb := New(ASCII)
	tb.Header("Path", "Message")
	tb.Columns(Column{Number: 2, MaxWidth: 10})
	tb.Row("g/p", strings.Repeat("x", 40))
	out := tb.String()

	if strings.Contains(out, strings.Repeat("x", 40)) {
		t.Errorf("MaxWidth not applied:\n%s", out)
	}
}
