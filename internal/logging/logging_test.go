package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog/log"
)

func TestSetupWritesToProcessLogFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	closer, err := Setup("tome-test", "debug")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer closer.Close()

	log.Info().Msg("hello")

	data, err := os.ReadFile(filepath.Join(home, ".config", "tome", "logs", "tome-test.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty log file")
	}
}
