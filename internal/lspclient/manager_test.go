package lspclient

import (
	"testing"

	"github.com/charmbracelet/x/powernap/pkg/lsp/protocol"
)

func TestDiagLineSeveritiesErrorWinsOverWarning(t *testing.T) {
	diags := []protocol.Diagnostic{
		{Severity: SeverityWarning, Range: protocol.Range{Start: protocol.Position{Line: 3}}},
		{Severity: SeverityError, Range: protocol.Range{Start: protocol.Position{Line: 3}}},
	}
	lines := DiagLineSeverities(diags)
	if lines[3] != SeverityError {
		t.Fatalf("expected error severity to win, got %d", lines[3])
	}
}

func TestMarkBrokenInvalidatesIssuedId(t *testing.T) {
	m := NewManager()
	m.installClientLocked("gopls", &Client{ServerID: "gopls"})
	id, ok := m.IdFor("gopls")
	if !ok {
		t.Fatal("expected id for installed server")
	}
	m.markBrokenLocked("gopls")
	if _, ok := m.Resolve(id); ok {
		t.Fatal("expected stale id to fail to resolve once server marked broken and cleared")
	}
}
