package document

import (
	"errors"
	"reflect"
	"testing"
)

func TestParse_Normalizes(t *testing.T) {
	doc, err := Parse(`
editors:
  - 123
  - "name#1234"
gatekeeper:
  enabled: true
  broadcast_channel: 348277022100455424
ratio: 1.5
1: numeric key
`)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}

	root, ok := doc.(map[string]any)
	if !ok {
		t.Fatalf("root = %T, want map[string]any", doc)
	}

	editors := root["editors"].([]any)
	if got := KindOf(editors[0]); got != Integer {
		t.Fatalf("editors[0] kind = %v, want integer", got)
	}
	if editors[0].(int64) != 123 {
		t.Fatalf("editors[0] = %v, want 123", editors[0])
	}
	if got := KindOf(editors[1]); got != String {
		t.Fatalf("editors[1] kind = %v, want string", got)
	}

	gk := root["gatekeeper"].(map[string]any)
	if gk["broadcast_channel"].(int64) != 348277022100455424 {
		t.Fatalf("snowflake lost precision: %v", gk["broadcast_channel"])
	}
	if got := KindOf(root["ratio"]); got != Float {
		t.Fatalf("ratio kind = %v, want number", got)
	}
	if _, ok := root["1"]; !ok {
		t.Fatalf("numeric key not stringified: %#v", root)
	}
}

func TestParse_Blank(t *testing.T) {
	for _, text := range []string{"", "   \n\t", "null", "~"} {
		doc, err := Parse(text)
		if err != nil {
			t.Fatalf("Parse(%q) error: %v", text, err)
		}
		if doc != nil {
			t.Fatalf("Parse(%q) = %#v, want nil", text, doc)
		}
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse("gatekeeper: [unterminated")
	if err == nil {
		t.Fatal("expected parse error")
	}
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("error %T is not *ParseError", err)
	}
}

func TestParse_TimestampStaysString(t *testing.T) {
	doc, err := Parse("when: 2020-01-02")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if got := KindOf(doc.(map[string]any)["when"]); got != String {
		t.Fatalf("timestamp kind = %v, want string", got)
	}
}

func TestParse_TimestampKeepsSourceText(t *testing.T) {
	doc, err := Parse("dates:\n  - 2020-01-02\n  - 2001-12-14t21:59:43.10-05:00\nnested:\n  at: 2020-01-02\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	m := doc.(map[string]any)
	want := []any{"2020-01-02", "2001-12-14t21:59:43.10-05:00"}
	if got := m["dates"]; !reflect.DeepEqual(got, want) {
		t.Fatalf("dates = %#v, want %#v", got, want)
	}
	if got := m["nested"].(map[string]any)["at"]; got != "2020-01-02" {
		t.Fatalf("nested.at = %#v, want source text", got)
	}
}

func TestParse_CommentOnly(t *testing.T) {
	doc, err := Parse("# nothing here\n")
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if doc != nil {
		t.Fatalf("doc = %#v, want nil", doc)
	}
}
