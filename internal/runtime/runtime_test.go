package runtime

import (
	"context"
	"testing"

	"github.com/rzbill/eventd/internal/config"
	"github.com/rzbill/eventd/pkg/log"
)

func TestOpenEmbeddedRuntime(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = ""
	cfg.DataDir = t.TempDir()

	rt, err := Open(context.Background(), &cfg, log.NewTestLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	if rt.Store() == nil || rt.Queue() == nil {
		t.Fatal("store and queue must be wired")
	}
	if err := rt.CheckHealth(context.Background()); err != nil {
		t.Fatalf("health: %v", err)
	}
}

// The embedded queue's storage is locked by whichever process opens it
// first; a second runtime over the same data directory must fail instead of
// silently working with a queue nobody else can reach.
func TestEmbeddedQueueDataDirIsExclusive(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = ""
	cfg.DataDir = t.TempDir()

	rt, err := Open(context.Background(), &cfg, log.NewTestLogger())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer rt.Close()

	cfg2 := cfg
	if _, err := Open(context.Background(), &cfg2, log.NewTestLogger()); err == nil {
		t.Fatal("second open of a held data dir must fail")
	}
}

func TestOpenRejectsUnknownQueueDriver(t *testing.T) {
	cfg := config.Default()
	cfg.DatabaseURL = ""
	cfg.DataDir = t.TempDir()
	cfg.Queue.Driver = "carrier-pigeon"

	if _, err := Open(context.Background(), &cfg, log.NewTestLogger()); err == nil {
		t.Fatal("want error for unknown driver")
	}
}
