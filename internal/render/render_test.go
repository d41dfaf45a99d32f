package render

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"JSON", FormatJSON, false},
		{" yaml ", FormatYAML, false},
		{"csv", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseFormat(%q) error = %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf, Options{Format: FormatTable})
	err := r.RenderTable([]string{"KIND", "MIGRATED"}, [][]string{{"school", "2"}, {"student", "10"}})
	if err != nil {
		t.Fatal(err)
	}
	want := "KIND     MIGRATED\n-------  --------\nschool   2       \nstudent  10      \n"
	if buf.String() != want {
		t.Errorf("table mismatch:\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestRenderPicksFormat(t *testing.T) {
	data := map[string]int{"schools": 2}

	var buf bytes.Buffer
	called := false
	table := func(*Renderer) error { called = true; return nil }

	if err := NewRenderer(&buf, Options{Format: FormatJSON}).Render(data, table); err != nil {
		t.Fatal(err)
	}
	if called || !strings.Contains(buf.String(), `"schools": 2`) {
		t.Errorf("json output = %q, table called = %v", buf.String(), called)
	}

	buf.Reset()
	if err := NewRenderer(&buf, Options{Format: FormatYAML}).Render(data, table); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "schools: 2\n" {
		t.Errorf("yaml output = %q", buf.String())
	}

	buf.Reset()
	if err := NewRenderer(&buf, Options{}).Render(data, table); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Error("table renderer not called for default format")
	}
}

func TestDiff(t *testing.T) {
	same, err := Diff("v1", "a\nb\n", "v2", "a\nb\n")
	if err != nil {
		t.Fatal(err)
	}
	if same != "" {
		t.Errorf("expected no diff, got %q", same)
	}

	d, err := Diff("v1", "name: A\nemail: x\n", "v2", "name: A\nemail: y\n")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"--- v1", "+++ v2", "-email: x", "+email: y"} {
		if !strings.Contains(d, want) {
			t.Errorf("diff missing %q:\n%s", want, d)
		}
	}
}
