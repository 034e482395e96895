package workerrun

import (
	"context"
	"testing"

	cfgpkg "github.com/rzbill/eventd/internal/config"
)

func TestRunRejectsEmbeddedQueueDriver(t *testing.T) {
	err := Run(context.Background(), Options{
		DataDir:     t.TempDir(),
		QueueDriver: cfgpkg.QueueDriverEmbedded,
	})
	if err == nil {
		t.Fatal("want startup error for embedded driver")
	}
}
