package ledger_test

import (
	"testing"

	"github.com/quantlog/trade-ledger-backend/internal/ledger"
	"github.com/quantlog/trade-ledger-backend/internal/model"
)

func buy(id, qty int64) model.TradeDetail {
	return model.TradeDetail{ID: id, TransactionType: model.TypeBuy, Quantity: qty}
}

func sell(id, qty int64) model.TradeDetail {
	return model.TradeDetail{ID: id, TransactionType: model.TypeSell, Quantity: qty}
}

// TestRemainingByLot tests FIFO consumption of buy lots.
//
// WHY: The per-lot remaining map drives the sell UI and must stay consistent
// with the position's aggregate remaining quantity.
func TestRemainingByLot(t *testing.T) {
	tests := []struct {
		name    string
		details []model.TradeDetail
		want    map[int64]int64
	}{
		{
			name:    "no details",
			details: nil,
			want:    map[int64]int64{},
		},
		{
			name:    "buys only",
			details: []model.TradeDetail{buy(1, 10), buy(2, 5)},
			want:    map[int64]int64{1: 10, 2: 5},
		},
		{
			name:    "sell consumes oldest lot first",
			details: []model.TradeDetail{buy(1, 10), buy(2, 5), sell(3, 8)},
			want:    map[int64]int64{1: 2, 2: 5},
		},
		{
			name:    "sell spans lots",
			details: []model.TradeDetail{buy(1, 10), buy(2, 5), sell(3, 12)},
			want:    map[int64]int64{1: 0, 2: 3},
		},
		{
			name:    "full close",
			details: []model.TradeDetail{buy(1, 10), sell(2, 4), sell(3, 6)},
			want:    map[int64]int64{1: 0},
		},
		{
			name:    "over-sell floors at zero",
			details: []model.TradeDetail{buy(1, 10), sell(2, 25)},
			want:    map[int64]int64{1: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ledger.RemainingByLot(tt.details)

			if len(got) != len(tt.want) {
				t.Fatalf("got %d lots, want %d: %v", len(got), len(tt.want), got)
			}
			for id, want := range tt.want {
				if got[id] != want {
					t.Errorf("lot %d remaining = %d, want %d", id, got[id], want)
				}
				if got[id] < 0 {
					t.Errorf("lot %d remaining is negative", id)
				}
			}
		})
	}
}

// TestRemainingByLot_SumInvariant checks that the lot map sums to the
// aggregate remaining quantity.
func TestRemainingByLot_SumInvariant(t *testing.T) {
	details := []model.TradeDetail{
		buy(1, 100), buy(2, 100), sell(3, 150), buy(4, 30), sell(5, 20),
	}

	got := ledger.RemainingByLot(details)

	var sum int64
	for _, r := range got {
		sum += r
	}
	if sum != 60 { // 230 bought - 170 sold
		t.Errorf("sum of lot remainders = %d, want 60", sum)
	}
}
