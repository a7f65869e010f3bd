package cmd

import (
	"testing"

	"github.com/harrisonrobin/gradesync/pkg/config"
)

func TestConfigOptions(t *testing.T) {
	dir := t.TempDir()
	c, err := config.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	opts := configOptions(c)
	if !opts.Dedupe || opts.CleanupOrphans || opts.Force {
		t.Errorf("Expected dedupe on by default and nothing else, got %+v", opts)
	}

	if err := config.Set(dir, "sync.dedupe", "false"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := config.Set(dir, "sync.cleanup_orphans", "true"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	c, err = config.Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	opts = configOptions(c)
	if opts.Dedupe || !opts.CleanupOrphans {
		t.Errorf("Expected config values to flow into options, got %+v", opts)
	}
}
