package ledger

import "github.com/quantlog/trade-ledger-backend/internal/model"

// RemainingByLot computes the FIFO remaining quantity per buy lot.
//
// Details must be the trade's non-deleted fills in chronological order
// (transaction_date, then created_at, then id). Sells consume buy lots from
// the front of the queue. Over-sells floor the affected lots at zero rather
// than going negative, so corrupted data cannot poison callers.
func RemainingByLot(details []model.TradeDetail) map[int64]int64 {
	type lot struct {
		id        int64
		remaining int64
	}

	remaining := make(map[int64]int64)
	var queue []lot

	for _, d := range details {
		switch {
		case d.IsBuy():
			queue = append(queue, lot{id: d.ID, remaining: d.Quantity})
			remaining[d.ID] = d.Quantity
		case d.IsSell():
			toConsume := d.Quantity
			for toConsume > 0 && len(queue) > 0 {
				head := &queue[0]
				if head.remaining > toConsume {
					head.remaining -= toConsume
					remaining[head.id] = head.remaining
					toConsume = 0
				} else {
					toConsume -= head.remaining
					remaining[head.id] = 0
					queue = queue[1:]
				}
			}
			// Anything left over here is an over-sell anomaly; ignored.
		}
	}

	return remaining
}
