//go:build rtdebug

package rtring

import (
	"strings"
	"testing"
)

func TestCellAssertsOnNewerWriter(t *testing.T) {
	var c cell[uint64]
	// epoch 12 already landed: a writer for epoch 8 has lost a whole lap
	c.state.Store(12)

	defer func() {
		r := recover()
		msg, _ := r.(string)
		if !strings.HasPrefix(msg, "rtring: cell claimed by a newer writer") {
			t.Fatalf("expected lap assertion, got %v", r)
		}
	}()
	c.write(1, 8, 4)
}
