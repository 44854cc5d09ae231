package buildinfo

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	s := String()
	for _, want := range []string{"version: ", "commit: ", "built: "} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
	if Short() == "" {
		t.Error("Short() is empty")
	}
}

func TestTemplate(t *testing.T) {
	if tpl := Template(); !strings.HasPrefix(tpl, "{{.Name}} version ") {
		t.Errorf("Template() = %q", tpl)
	}
}
