package bot

import (
	"reflect"
	"testing"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"task list", []string{"task", "list"}},
		{`task add "Buy milk" --priority high`, []string{"task", "add", "Buy milk", "--priority", "high"}},
		{"  spaced   out  ", []string{"spaced", "out"}},
		{`"all one token"`, []string{"all one token"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := tokenize(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("tokenize(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSplitArgs(t *testing.T) {
	positional, flags := splitArgs([]string{"Buy milk", "--priority", "high", "--due", "2030-05-01", "--confirm"})
	if !reflect.DeepEqual(positional, []string{"Buy milk"}) {
		t.Errorf("positional = %v", positional)
	}
	if flags["priority"] != "high" || flags["due"] != "2030-05-01" {
		t.Errorf("flags = %v", flags)
	}
	if _, ok := flags["confirm"]; !ok {
		t.Error("expected bare --confirm flag to be present")
	}
}

func TestSplitArgsConsecutiveFlags(t *testing.T) {
	positional, flags := splitArgs([]string{"--status", "--priority", "high"})
	if len(positional) != 0 {
		t.Errorf("positional = %v", positional)
	}
	if flags["status"] != "" {
		t.Errorf("expected empty status value, got %q", flags["status"])
	}
	if flags["priority"] != "high" {
		t.Errorf("priority = %q", flags["priority"])
	}
}
