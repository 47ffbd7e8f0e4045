package script

import (
	"context"
	"strings"
	"testing"
)

func TestLoadRejectsOversizedScript(t *testing.T) {
	big := strings.Repeat("a", MaxScriptSize+1)
	_, err := Load("huge.sh", "echo "+big)
	if err == nil {
		t.Fatal("expected oversized script to be rejected")
	}
}

func TestLoadParsesValidScript(t *testing.T) {
	mod, err := Load("fmt.sh", "echo hello")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if mod.name != "fmt.sh" {
		t.Fatalf("name = %q", mod.name)
	}
}

func TestLoadRejectsSyntaxError(t *testing.T) {
	if _, err := Load("bad.sh", "if [[ ; then"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCommandsBlocker(t *testing.T) {
	blocker := CommandsBlocker([]string{"curl", "wget", "sudo"})
	tests := []struct {
		args    []string
		blocked bool
	}{
		{[]string{"curl", "http://example.com"}, true},
		{[]string{"ls", "-la"}, false},
		{[]string{}, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := blocker(tt.args); got != tt.blocked {
			t.Errorf("CommandsBlocker(%v) = %v, want %v", tt.args, got, tt.blocked)
		}
	}
}

func TestRuntimeRunInjectsContext(t *testing.T) {
	rt := NewRuntime(t.TempDir(), nil)
	mod, err := Load("event.sh", "echo $TOME_EVENT:$TOME_LANGUAGE")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	stdout, _, err := rt.Run(context.Background(), mod, Context{Event: "buffer.save", Language: "go"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(stdout) != "buffer.save:go" {
		t.Fatalf("stdout = %q", stdout)
	}
}

func TestRuntimeBlocksBannedCommand(t *testing.T) {
	rt := NewRuntime(t.TempDir(), nil)
	mod, err := Load("net.sh", "curl http://example.com")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	_, stderr, err := rt.Run(context.Background(), mod, Context{})
	if err == nil {
		t.Fatal("expected blocked command to error")
	}
	if !strings.Contains(stderr+err.Error(), "blocked") {
		t.Fatalf("expected blocked-command message, got err=%v stderr=%q", err, stderr)
	}
}

func TestRuntimeCdIsAnchored(t *testing.T) {
	root := t.TempDir()
	rt := NewRuntime(root, nil)
	mod, err := Load("escape.sh", "cd /")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if _, _, err := rt.Run(context.Background(), mod, Context{}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rt.Dir() != root {
		t.Fatalf("expected cd outside root to be clamped back to %q, got %q", root, rt.Dir())
	}
}
