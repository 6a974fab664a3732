package governor

import (
	"context"
	"testing"

	"github.com/numadecomp/numadecomp/internal/health"
)

func TestHealthCheckerUpWhenIdle(t *testing.T) {
	gov := newTestGovernor(8, []int{8})
	checker := NewHealthChecker(gov)

	result, err := checker.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if result.Status != health.StatusUp {
		t.Errorf("Status = %v, want %v", result.Status, health.StatusUp)
	}
}

func TestHealthCheckerDownWhenDisabled(t *testing.T) {
	gov := newTestGovernor(1, []int{1})
	checker := NewHealthChecker(gov)

	result, err := checker.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if result.Status != health.StatusDown {
		t.Errorf("Status = %v, want %v", result.Status, health.StatusDown)
	}
}

func TestHealthCheckerDegradedWhenSaturated(t *testing.T) {
	gov := newTestGovernor(8, []int{8})
	checker := NewHealthChecker(gov)

	cap := gov.CapTotal()
	for i := 0; i < cap; i++ {
		if wr := gov.TryReserve(AnyNode); wr == nil {
			t.Fatalf("TryReserve() returned nil before reaching cap at i=%d", i)
		}
	}

	result, err := checker.CheckHealth(context.Background())
	if err != nil {
		t.Fatalf("CheckHealth() error = %v", err)
	}
	if result.Status != health.StatusDegraded {
		t.Errorf("Status = %v, want %v", result.Status, health.StatusDegraded)
	}
}
