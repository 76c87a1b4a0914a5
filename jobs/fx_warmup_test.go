package jobs_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/modulus-erp/modulus-erp/internal/fx"
	"github.com/modulus-erp/modulus-erp/jobs"
	_ "github.com/modulus-erp/modulus-erp/testing"
)

type stubResolver struct {
	table fx.Table
}

func (s stubResolver) RatesForDate(ctx context.Context, date time.Time) fx.Table {
	return s.table
}

func TestFXWarmupSucceedsWithRates(t *testing.T) {
	handler := jobs.NewFXWarmupHandler(stubResolver{table: fx.Table{"USD": {}}}, nil)
	if err := handler(context.Background(), jobs.NewFXWarmupTask()); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
}

func TestFXWarmupRetriesOnEmptyTable(t *testing.T) {
	handler := jobs.NewFXWarmupHandler(stubResolver{table: fx.Table{}}, nil)
	err := handler(context.Background(), jobs.NewFXWarmupTask())
	if !errors.Is(err, jobs.ErrEmptyRateTable) {
		t.Fatalf("expected ErrEmptyRateTable so the task is retried, got %v", err)
	}
}
