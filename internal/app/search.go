package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/nayzeok/tourist-tour-back/internal/domain"
)

// SearchAggregator runs batched pricing queries and reduces the answers to
// the single cheapest offer per property.
type SearchAggregator struct {
	api   domain.InventoryClient
	chunk int
}

func NewSearchAggregator(api domain.InventoryClient, chunkSize int) *SearchAggregator {
	if chunkSize <= 0 {
		chunkSize = 200
	}
	return &SearchAggregator{api: api, chunk: chunkSize}
}

// CheapestByPropertyIDs returns, per property, the offer with the minimal
// comparable total. Equal-priced offers keep the first one encountered in
// upstream response order. A failed chunk drops only its own properties;
// the other chunks still contribute.
func (a *SearchAggregator) CheapestByPropertyIDs(ctx context.Context, ids []int64, stay domain.StayQuery) (map[int64]domain.RoomStayOffer, error) {
	best := make(map[int64]domain.RoomStayOffer)
	for start := 0; start < len(ids); start += a.chunk {
		if err := ctx.Err(); err != nil {
			return best, err
		}
		end := start + a.chunk
		if end > len(ids) {
			end = len(ids)
		}
		offers, err := a.api.SearchRoomStays(ctx, ids[start:end], stay)
		if err != nil {
			log.Warn().Err(err).Int("chunk_start", start).Int("chunk_len", end-start).
				Msg("pricing chunk failed, continuing with remaining chunks")
			continue
		}
		for _, o := range offers {
			cur, ok := best[o.PropertyID]
			if !ok || o.Total() < cur.Total() {
				best[o.PropertyID] = o
			}
		}
	}
	return best, nil
}
