package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

const smallGraph = "../../pkg/pdg/testdata/small.json"

func testCLI() *CLI {
	return New(&bytes.Buffer{}, log.InfoLevel)
}

func TestRunLanes(t *testing.T) {
	var out bytes.Buffer
	if err := testCLI().runLanes(context.Background(), backendFlags{graph: smallGraph}, 300, &out); err != nil {
		t.Fatalf("runLanes: %v", err)
	}

	got := out.String()
	for _, want := range []string{"Lane", "Timestamp", "t=5", "t=0", "1500", "total width", "1800"} {
		if !strings.Contains(got, want) {
			t.Errorf("lane table missing %q:\n%s", want, got)
		}
	}
}

func TestRunLanesNoGraph(t *testing.T) {
	err := testCLI().runLanes(context.Background(), backendFlags{}, 300, &bytes.Buffer{})
	if !errors.Is(err, errNoGraph) {
		t.Errorf("runLanes without graph = %v, want errNoGraph", err)
	}
}
