package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/stationops/fuelledger/internal/domain"
	"github.com/stationops/fuelledger/internal/store"
)

// Resolver answers "what did product P cost in region R at instant T".
// The instant is always supplied by the caller; the resolver never reads
// the wall clock, so a close replayed with the same inputs resolves the
// same prices.
type Resolver struct {
	repo store.Repository
}

func NewResolver(repo store.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the price window covering asOf. A window covers asOf when
// validFrom <= asOf and (validTo is unset or asOf < validTo). No covering
// window yields a MissingPriceError; more than one yields an
// AmbiguousPriceError, since overlapping windows mean the price table is
// corrupt and silently picking one would misprice fuel.
func (r *Resolver) Resolve(ctx context.Context, productID, regionID string, asOf time.Time) (domain.ProductPrice, error) {
	windows, err := r.repo.PriceWindows(ctx, productID, regionID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return domain.ProductPrice{}, err
	}

	var matches []domain.ProductPrice
	for _, w := range windows {
		if asOf.Before(w.ValidFrom) {
			continue
		}
		if w.ValidTo != nil && !asOf.Before(*w.ValidTo) {
			continue
		}
		matches = append(matches, w)
	}

	switch len(matches) {
	case 0:
		return domain.ProductPrice{}, &domain.MissingPriceError{
			ProductIDs: []string{productID},
			RegionID:   regionID,
			AsOf:       asOf,
		}
	case 1:
		return matches[0], nil
	default:
		ids := make([]string, 0, len(matches))
		for _, m := range matches {
			ids = append(ids, m.ID)
		}
		return domain.ProductPrice{}, &domain.AmbiguousPriceError{
			ProductID: productID,
			RegionID:  regionID,
			AsOf:      asOf,
			PriceIDs:  ids,
		}
	}
}
