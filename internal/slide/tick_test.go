package slide

import "testing"

func TestTickNextWraps(t *testing.T) {
	if got := Tick(TickModulus - 1).Next(); got != 0 {
		t.Errorf("expected wrap to 0, got %d", got)
	}
	if got := Tick(41).Next(); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
}

func TestTickSubForwardDistance(t *testing.T) {
	tests := []struct {
		a, b Tick
		want Tick
	}{
		{10, 3, 7},
		{3, 3, 0},
		{5, 65530, 10},
		{0, TickModulus - 1, 1},
		{3, 10, TickModulus - 7},
	}
	for _, tt := range tests {
		if got := TickSub(tt.a, tt.b); got != tt.want {
			t.Errorf("TickSub(%d, %d): expected %d, got %d", tt.a, tt.b, tt.want, got)
		}
	}
}

func TestTickDiffAcrossWrap(t *testing.T) {
	// push at 65530, release at 5 with modulus 65535
	if got := TickDiff(5, 65530); got != 10 {
		t.Errorf("expected 10, got %d", got)
	}
	if got := TickDiff(65530, 5); got != 10 {
		t.Errorf("expected 10 in reverse order, got %d", got)
	}
	if TickDiff(5, 65530) != TickDiff(1005, 995) {
		t.Error("difference should not depend on whether the counter wrapped")
	}
}

func TestTickAdd(t *testing.T) {
	if got := TickAdd(TickModulus-2, 5); got != 3 {
		t.Errorf("expected 3, got %d", got)
	}
}
