package pricing

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store/memory"
)

func testResolver(t *testing.T) (*Resolver, *memory.Memory) {
	t.Helper()
	mem := memory.New()
	return NewResolver(mem), mem
}

func window(id string, price int64, from time.Time, to *time.Time) domain.ProductPrice {
	return domain.ProductPrice{
		ID:        id,
		ProductID: "prod-diesel",
		RegionID:  "region-1",
		Price:     decimal.NewFromInt(price),
		ValidFrom: from,
		ValidTo:   to,
	}
}

func TestResolveSingleWindow(t *testing.T) {
	r, mem := testResolver(t)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.AddPrice(window("p1", 6800, from, nil))

	price, err := r.Resolve(context.Background(), "prod-diesel", "region-1", from.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "p1", price.ID)
	assert.True(t, price.Price.Equal(decimal.NewFromInt(6800)))
}

func TestResolveWindowBoundaries(t *testing.T) {
	r, mem := testResolver(t)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mem.AddPrice(window("p1", 6800, from, &to))
	mem.AddPrice(window("p2", 7000, to, nil))

	// validFrom is inclusive.
	price, err := r.Resolve(context.Background(), "prod-diesel", "region-1", from)
	require.NoError(t, err)
	assert.Equal(t, "p1", price.ID)

	// validTo is exclusive: at the boundary the next window owns the instant.
	price, err = r.Resolve(context.Background(), "prod-diesel", "region-1", to)
	require.NoError(t, err)
	assert.Equal(t, "p2", price.ID)
}

func TestResolveMissingPrice(t *testing.T) {
	r, mem := testResolver(t)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.AddPrice(window("p1", 6800, from, nil))

	_, err := r.Resolve(context.Background(), "prod-diesel", "region-1", from.Add(-time.Second))
	var missing *domain.MissingPriceError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"prod-diesel"}, missing.ProductIDs)

	_, err = r.Resolve(context.Background(), "prod-other", "region-1", from)
	require.ErrorAs(t, err, &missing)
}

func TestResolveOverlappingWindowsFailLoudly(t *testing.T) {
	r, mem := testResolver(t)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mem.AddPrice(window("p1", 6800, from, nil))
	mem.AddPrice(window("p2", 7000, from.Add(time.Hour), nil))

	_, err := r.Resolve(context.Background(), "prod-diesel", "region-1", from.Add(2*time.Hour))
	var ambiguous *domain.AmbiguousPriceError
	require.ErrorAs(t, err, &ambiguous)
	assert.Len(t, ambiguous.PriceIDs, 2)
}
