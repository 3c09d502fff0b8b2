package export

import (
	"bytes"
	"strings"
	"testing"

	"pagesnap/internal/geom"
	"pagesnap/internal/layout"
)

func TestWriteDocumentSVG(t *testing.T) {
	d := layout.New("page-1", 200, 100, nil)
	if err := d.Add(layout.Element{ID: "a", Label: "A & B", Bounds: geom.B(10, 10, 50, 20)}); err != nil {
		t.Fatalf("add: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteDocumentSVG(&buf, d, Options{Labels: true}); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`viewBox="0 0 200 100"`, `<rect id="a" x="10" y="10"`, "A &amp; B", "<title>page-1</title>"} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "guide") || strings.Contains(out, "proposed") {
		t.Fatalf("committed page should carry no gesture overlay:\n%s", out)
	}
}
