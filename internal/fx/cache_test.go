package fx_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/modulus-erp/modulus-erp/internal/fx"
	_ "github.com/modulus-erp/modulus-erp/testing"
)

type countingResolver struct {
	calls int
	table fx.Table
}

func (r *countingResolver) RatesForDate(ctx context.Context, date time.Time) fx.Table {
	r.calls++
	return r.table
}

func TestCachedResolverServesFromCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	source := &countingResolver{table: fx.Table{
		"USD": {ForexBuying: ptr(43.69), Unit: 1},
	}}
	resolver := fx.NewCachedResolver(source, client, time.Hour, nil)

	date := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	first := resolver.RatesForDate(context.Background(), date)
	if len(first) != 1 {
		t.Fatalf("expected 1 currency, got %d", len(first))
	}
	second := resolver.RatesForDate(context.Background(), date)
	if len(second) != 1 {
		t.Fatalf("expected cached table, got %d currencies", len(second))
	}
	if source.calls != 1 {
		t.Fatalf("expected one source fetch, got %d", source.calls)
	}

	rate, ok := second.RateFor("USD", fx.ForexBuying)
	if !ok || rate != 43.69 {
		t.Fatalf("cached rate = %v %v", rate, ok)
	}
}

func TestCachedResolverSkipsEmptyTables(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	source := &countingResolver{table: fx.Table{}}
	resolver := fx.NewCachedResolver(source, client, time.Hour, nil)

	date := time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC)
	resolver.RatesForDate(context.Background(), date)
	resolver.RatesForDate(context.Background(), date)

	if source.calls != 2 {
		t.Fatalf("empty table must not be cached, source calls = %d", source.calls)
	}
}

func TestCachedResolverDistinctDates(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	source := &countingResolver{table: fx.Table{
		"USD": {ForexBuying: ptr(43.69), Unit: 1},
	}}
	resolver := fx.NewCachedResolver(source, client, time.Hour, nil)

	resolver.RatesForDate(context.Background(), time.Date(2026, time.August, 25, 0, 0, 0, 0, time.UTC))
	resolver.RatesForDate(context.Background(), time.Date(2026, time.August, 26, 0, 0, 0, 0, time.UTC))

	if source.calls != 2 {
		t.Fatalf("expected per-date cache entries, source calls = %d", source.calls)
	}
}
