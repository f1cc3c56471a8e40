package jsoncodec

import (
	"bytes"
	"strings"
	"testing"
)

type orderSnapshot struct {
	ID    int               `json:"id"`
	Lines map[string]int    `json:"lines"`
	Tags  map[string]string `json:"tags,omitempty"`
}

func TestMarshalSortsMapKeys(t *testing.T) {
	in := orderSnapshot{ID: 42, Lines: map[string]int{"zeta": 1, "alpha": 2, "mid": 3}}

	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	want := `{"id":42,"lines":{"alpha":2,"mid":3,"zeta":1}}`
	if string(data) != want {
		t.Fatalf("expected %s, got %s", want, data)
	}

	var out orderSnapshot
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out.ID != 42 || out.Lines["mid"] != 3 {
		t.Fatalf("unexpected decoded value %#v", out)
	}
}

func TestEncodeEscapesHTML(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := Encode(buf, map[string]string{"note": "<b>"}); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	if strings.Contains(buf.String(), "<b>") {
		t.Fatalf("expected HTML to be escaped, got %s", buf.String())
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Fatalf("expected trailing newline, got %q", buf.String())
	}
}
