package shutdown

import (
	"testing"

	"github.com/faqwang/Ngork.cc-third-party-GUI/internal/logger"
)

type recorded struct {
	name  string
	order *[]string
}

func (r recorded) Shutdown() {
	*r.order = append(*r.order, r.name)
}

func TestShutdownReverseOrder(t *testing.T) {
	m := NewManager(logger.NewDiscard())

	var order []string
	m.Register("first", recorded{"first", &order})
	m.Register("second", recorded{"second", &order})
	m.Register("third", recorded{"third", &order})

	m.Shutdown()

	want := []string{"third", "second", "first"}
	if len(order) != len(want) {
		t.Fatalf("expected %d shutdowns, got %v", len(want), order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("wrong order: %v", order)
		}
	}
}

func TestShutdownRunsOnce(t *testing.T) {
	m := NewManager(logger.NewDiscard())

	var order []string
	m.Register("only", recorded{"only", &order})

	m.Shutdown()
	m.Shutdown()

	if len(order) != 1 {
		t.Fatalf("shutdown ran %d times", len(order))
	}

	select {
	case <-m.Done():
	default:
		t.Fatalf("Done should be closed after Shutdown")
	}
}
