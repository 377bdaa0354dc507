package formatter

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
		{"table", FormatTable, false},
		{"JSON", FormatJSON, false},
		{"csv", FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestPrintTableAlignsColumns(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, FormatTable).PrintTable([]string{"PATH", "SIZE"}, [][]string{
		{"a.mp4", "10"},
		{"longer_name.mp4", "2"},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected 4 lines, got %d: %q", len(lines), buf.String())
	}
	if lines[0] != "PATH            | SIZE" {
		t.Errorf("Unexpected header %q", lines[0])
	}
	if lines[1] != "----------------+-----" {
		t.Errorf("Unexpected separator %q", lines[1])
	}
}

func TestPrintCSVAndJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := New(&buf, FormatCSV).Print([]string{"a", "b"}, [][]string{{"1", "x,y"}}, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "a,b\n1,\"x,y\"\n" {
		t.Errorf("Unexpected CSV %q", buf.String())
	}

	buf.Reset()
	if err := New(&buf, FormatJSON).Print(nil, nil, map[string]int{"n": 1}); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"n\": 1\n}\n" {
		t.Errorf("Unexpected JSON %q", buf.String())
	}
}

func TestMessageAndFields(t *testing.T) {
	var buf bytes.Buffer
	out := New(&buf, FormatTable)
	if err := out.Message("done"); err != nil {
		t.Fatal(err)
	}
	if err := out.PrintFields(nil, "state", "idle"); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "done\n") || !strings.Contains(buf.String(), "state | idle") {
		t.Errorf("Unexpected output %q", buf.String())
	}

	buf.Reset()
	if err := New(&buf, FormatJSON).Message("done"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"message": "done"`) {
		t.Errorf("Unexpected JSON message %q", buf.String())
	}
}
