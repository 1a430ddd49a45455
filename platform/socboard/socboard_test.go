package socboard

import (
	"testing"

	"github.com/ko6/ko6/platform"
)

func TestDefaultBringsUp(t *testing.T) {
	sys, err := platform.Bring(Default())
	if err != nil {
		t.Fatalf("Bring: %v", err)
	}
	if sys.Config.Board != "socboard" {
		t.Fatalf("board = %q", sys.Config.Board)
	}
	if sys.Block.Capacity() != 128 {
		t.Fatalf("block capacity = %d", sys.Block.Capacity())
	}
}
