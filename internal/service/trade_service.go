package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/confirm"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/ledger"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
	"github.com/quantlog/trade-ledger-backend/internal/validation"
)

// PurgeConfirmationText must be typed verbatim to permanently delete a trade.
const PurgeConfirmationText = "永久删除"

// Storage precisions: amounts DECIMAL(15,3), percentages DECIMAL(8,4).
const (
	amountScale = 3
	pctScale    = 4
)

// TradeService owns every write operation on trades and their execution
// details. Details are the source of truth: after any mutation the service
// recomputes all position aggregates from the surviving detail set inside the
// same transaction.
type TradeService struct {
	db           *database.SafeDB
	ledgerRepo   *repository.LedgerRepository
	strategyRepo *repository.StrategyRepository
	modRepo      *repository.ModificationRepository
	signer       *confirm.Signer
}

// NewTradeService creates a new TradeService with the provided dependencies.
func NewTradeService(
	db *database.SafeDB,
	ledgerRepo *repository.LedgerRepository,
	strategyRepo *repository.StrategyRepository,
	modRepo *repository.ModificationRepository,
	signer *confirm.Signer,
) *TradeService {
	return &TradeService{
		db:           db,
		ledgerRepo:   ledgerRepo,
		strategyRepo: strategyRepo,
		modRepo:      modRepo,
		signer:       signer,
	}
}

// BuyInput carries the parameters for opening or augmenting a position.
// Exactly one of StrategyID and StrategyName selects the strategy.
type BuyInput struct {
	StrategyID   int64
	StrategyName string
	SymbolCode   string
	SymbolName   string
	Price        decimal.Decimal
	Quantity     int64
	Date         string // YYYY-MM-DD
	Fee          decimal.Decimal
	Reason       string
}

// SellInput carries the parameters for a sell execution on an open position.
type SellInput struct {
	Price    decimal.Decimal
	Quantity int64
	Date     string // YYYY-MM-DD
	Fee      decimal.Decimal
	Reason   string
	TradeLog string
}

// DetailUpdate describes an edit of one execution detail. Nil fields are left
// unchanged.
type DetailUpdate struct {
	DetailID       int64
	Price          *decimal.Decimal
	Quantity       *int64
	TransactionFee *decimal.Decimal
	BuyReason      *string
	SellReason     *string
}

// OpenOrAugmentBuy records a buy fill. If an open, non-deleted position
// exists for the (strategy, symbol) pair the fill augments it; otherwise a
// new position opens with the fill's date. Returns the position's trade ID.
func (s *TradeService) OpenOrAugmentBuy(ctx context.Context, in BuyInput) (int64, error) {
	if err := validation.ValidateBuy(in.SymbolCode, in.SymbolName, in.Price, in.Quantity, in.Date, in.Fee); err != nil {
		return 0, err
	}

	strategy, err := s.resolveStrategy(in.StrategyID, in.StrategyName)
	if err != nil {
		return 0, err
	}

	var tradeID int64
	err = s.db.ExecTx(ctx, func(tx *database.Tx) error {
		existing, found, err := s.ledgerRepo.FindOpenTrade(tx, strategy.ID, in.SymbolCode)
		if err != nil {
			return err
		}

		if found {
			tradeID = existing.ID
		} else {
			trade := &model.Trade{
				StrategyID: strategy.ID,
				SymbolCode: strings.ToUpper(strings.TrimSpace(in.SymbolCode)),
				SymbolName: strings.TrimSpace(in.SymbolName),
				OpenDate:   in.Date,
			}
			tradeID, err = s.ledgerRepo.InsertTrade(tx, trade)
			if err != nil {
				return err
			}
		}

		// amount = price*quantity + fee on the buy side
		detail := &model.TradeDetail{
			TradeID:         tradeID,
			TransactionType: model.TypeBuy,
			Price:           in.Price,
			Quantity:        in.Quantity,
			Amount:          in.Price.Mul(decimal.NewFromInt(in.Quantity)).Add(in.Fee).Round(amountScale),
			TransactionDate: in.Date,
			TransactionFee:  in.Fee,
			BuyReason:       in.Reason,
		}
		if _, err := s.ledgerRepo.InsertDetail(tx, detail); err != nil {
			return err
		}

		return s.recompute(tx, tradeID)
	})
	if err != nil {
		return 0, err
	}

	return tradeID, nil
}

// AddSell records a sell fill on an open position. Fails when the position is
// missing, deleted, closed, or holds fewer shares than the sell quantity.
// When the sale empties the position it closes, with close_date set to the
// latest sell date and holding_days updated.
func (s *TradeService) AddSell(ctx context.Context, tradeID int64, in SellInput) error {
	if err := validation.ValidateSell(in.Price, in.Quantity, in.Date, in.Fee); err != nil {
		return err
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		trade, err := s.ledgerRepo.GetTradeTx(tx, tradeID, true)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: trade %d", apperrors.ErrTradeNotFound, tradeID)
		}
		if err != nil {
			return err
		}
		if trade.IsDeleted {
			return fmt.Errorf("%w: trade %d", apperrors.ErrTradeDeleted, tradeID)
		}
		if trade.Status == model.StatusClosed {
			return fmt.Errorf("%w: trade %d", apperrors.ErrTradeClosed, tradeID)
		}
		if in.Quantity > trade.RemainingQuantity {
			return fmt.Errorf("%w: %d > %d", apperrors.ErrQuantityExceedsRemaining, in.Quantity, trade.RemainingQuantity)
		}

		// amount = price*quantity - fee on the sell side
		detail := &model.TradeDetail{
			TradeID:         tradeID,
			TransactionType: model.TypeSell,
			Price:           in.Price,
			Quantity:        in.Quantity,
			Amount:          in.Price.Mul(decimal.NewFromInt(in.Quantity)).Sub(in.Fee).Round(amountScale),
			TransactionDate: in.Date,
			TransactionFee:  in.Fee,
			SellReason:      in.Reason,
		}
		if _, err := s.ledgerRepo.InsertDetail(tx, detail); err != nil {
			return err
		}

		if in.TradeLog != "" {
			if err := s.ledgerRepo.SetTradeLog(tx, tradeID, in.TradeLog); err != nil {
				return err
			}
		}

		return s.recompute(tx, tradeID)
	})
}

// UpdateTradeRecord applies a batch of detail edits and recomputes the whole
// position from the mutated detail set, atomically. An empty batch is legal
// and simply forces a recomputation; reconciliation auto-fix relies on that.
func (s *TradeService) UpdateTradeRecord(ctx context.Context, tradeID int64, updates []DetailUpdate, reason string) error {
	batchID := uuid.New().String()

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		trade, err := s.ledgerRepo.GetTradeTx(tx, tradeID, true)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: trade %d", apperrors.ErrTradeNotFound, tradeID)
		}
		if err != nil {
			return err
		}
		if trade.IsDeleted {
			return fmt.Errorf("%w: trade %d", apperrors.ErrTradeDeleted, tradeID)
		}

		for _, u := range updates {
			if u.DetailID <= 0 {
				return apperrors.ErrDetailIDMissing
			}
			if err := s.applyDetailUpdate(tx, tradeID, batchID, u, reason); err != nil {
				return err
			}
		}

		return s.recompute(tx, tradeID)
	})
}

func (s *TradeService) applyDetailUpdate(tx *database.Tx, tradeID int64, batchID string, u DetailUpdate, reason string) error {
	detail, err := s.ledgerRepo.GetDetail(tx, u.DetailID)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: detail %d", apperrors.ErrDetailNotFound, u.DetailID)
	}
	if err != nil {
		return err
	}
	if detail.TradeID != tradeID {
		return fmt.Errorf("%w: detail %d belongs to trade %d", apperrors.ErrDetailNotFound, u.DetailID, detail.TradeID)
	}

	record := func(field, oldValue, newValue string) error {
		return s.modRepo.Insert(tx, &model.Modification{
			BatchID:          batchID,
			TradeID:          tradeID,
			DetailID:         detail.ID,
			ModificationType: model.ModTypeDetailUpdate,
			FieldName:        field,
			OldValue:         oldValue,
			NewValue:         newValue,
			Reason:           reason,
		})
	}

	if u.Price != nil && !u.Price.Equal(detail.Price) {
		if !u.Price.IsPositive() {
			return &validation.Error{Fields: map[string]string{"price": "价格必须大于0"}}
		}
		if err := record("price", detail.Price.String(), u.Price.String()); err != nil {
			return err
		}
		detail.Price = *u.Price
	}
	if u.Quantity != nil && *u.Quantity != detail.Quantity {
		if *u.Quantity <= 0 {
			return &validation.Error{Fields: map[string]string{"quantity": "数量必须大于0"}}
		}
		if err := record("quantity", fmt.Sprint(detail.Quantity), fmt.Sprint(*u.Quantity)); err != nil {
			return err
		}
		detail.Quantity = *u.Quantity
	}
	if u.TransactionFee != nil && !u.TransactionFee.Equal(detail.TransactionFee) {
		if u.TransactionFee.IsNegative() {
			return &validation.Error{Fields: map[string]string{"fee": "手续费不能为负"}}
		}
		if err := record("transaction_fee", detail.TransactionFee.String(), u.TransactionFee.String()); err != nil {
			return err
		}
		detail.TransactionFee = *u.TransactionFee
	}
	if u.BuyReason != nil && *u.BuyReason != detail.BuyReason {
		if err := record("buy_reason", detail.BuyReason, *u.BuyReason); err != nil {
			return err
		}
		detail.BuyReason = *u.BuyReason
	}
	if u.SellReason != nil && *u.SellReason != detail.SellReason {
		if err := record("sell_reason", detail.SellReason, *u.SellReason); err != nil {
			return err
		}
		detail.SellReason = *u.SellReason
	}

	// Derived amount follows the edited price/quantity/fee.
	gross := detail.Price.Mul(decimal.NewFromInt(detail.Quantity))
	if detail.IsBuy() {
		detail.Amount = gross.Add(detail.TransactionFee).Round(amountScale)
	} else {
		detail.Amount = gross.Sub(detail.TransactionFee).Round(amountScale)
	}

	return s.ledgerRepo.UpdateDetailRow(tx, &detail)
}

// SoftDelete hides a trade and its details from all default queries and
// computations. Requires a confirmation code issued for this trade. Deleting
// an already-deleted trade is a no-op.
func (s *TradeService) SoftDelete(ctx context.Context, tradeID int64, confirmationCode, reason, note string) error {
	if err := s.signer.Verify(confirmationCode, tradeID, confirm.IntentSoftDelete); err != nil {
		return err
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		trade, err := s.ledgerRepo.GetTradeTx(tx, tradeID, true)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: trade %d", apperrors.ErrTradeNotFound, tradeID)
		}
		if err != nil {
			return err
		}
		if trade.IsDeleted {
			return nil
		}

		now := time.Now().UTC().Format("2006-01-02 15:04:05")
		if err := s.ledgerRepo.SetTradeDeleted(tx, tradeID, true, now, reason, note); err != nil {
			return err
		}
		if err := s.ledgerRepo.SetDetailsDeleted(tx, tradeID, true, now, reason); err != nil {
			return err
		}

		return s.modRepo.Insert(tx, &model.Modification{
			BatchID:          uuid.New().String(),
			TradeID:          tradeID,
			ModificationType: model.ModTypeSoftDelete,
			FieldName:        "is_deleted",
			OldValue:         "0",
			NewValue:         "1",
			Reason:           reason,
		})
	})
}

// Restore reverses a soft delete, returning the trade and its details to
// their prior visible state. Restoring a live trade is a no-op.
func (s *TradeService) Restore(ctx context.Context, tradeID int64, confirmationCode, note string) error {
	if err := s.signer.Verify(confirmationCode, tradeID, confirm.IntentRestore); err != nil {
		return err
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		trade, err := s.ledgerRepo.GetTradeTx(tx, tradeID, true)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: trade %d", apperrors.ErrTradeNotFound, tradeID)
		}
		if err != nil {
			return err
		}
		if !trade.IsDeleted {
			return nil
		}

		if err := s.ledgerRepo.SetTradeDeleted(tx, tradeID, false, "", "", note); err != nil {
			return err
		}
		if err := s.ledgerRepo.SetDetailsDeleted(tx, tradeID, false, "", ""); err != nil {
			return err
		}

		return s.modRepo.Insert(tx, &model.Modification{
			BatchID:          uuid.New().String(),
			TradeID:          tradeID,
			ModificationType: model.ModTypeRestore,
			FieldName:        "is_deleted",
			OldValue:         "1",
			NewValue:         "0",
			Reason:           note,
		})
	})
}

// PermanentlyDelete hard-deletes a trade: modification history first, then
// details, then the position row. Requires both a confirmation code and the
// exact confirmation phrase. Deleting an unknown ID succeeds with no effect.
func (s *TradeService) PermanentlyDelete(ctx context.Context, tradeID int64, confirmationCode, confirmationText, reason, note string) error {
	if confirmationText != PurgeConfirmationText {
		return fmt.Errorf("%w: confirmation text mismatch", apperrors.ErrInvalidConfirmation)
	}
	if err := s.signer.Verify(confirmationCode, tradeID, confirm.IntentPurge); err != nil {
		return err
	}

	return s.db.ExecTx(ctx, func(tx *database.Tx) error {
		_, err := s.ledgerRepo.GetTradeTx(tx, tradeID, true)
		if err == sql.ErrNoRows {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.ledgerRepo.DeleteModifications(tx, tradeID); err != nil {
			return err
		}
		if err := s.ledgerRepo.DeleteDetails(tx, tradeID); err != nil {
			return err
		}
		if err := s.ledgerRepo.DeleteTrade(tx, tradeID); err != nil {
			return err
		}

		// The audit trail dies with the trade; leave a trace in the log.
		log.Printf("trade %d permanently deleted (reason: %s, note: %s)", tradeID, reason, note)
		return nil
	})
}

// IssueConfirmation returns a confirmation code for a destructive operation
// on the given trade.
func (s *TradeService) IssueConfirmation(tradeID int64, intent string) (string, error) {
	switch intent {
	case confirm.IntentSoftDelete, confirm.IntentRestore, confirm.IntentPurge:
		return s.signer.Issue(tradeID, intent)
	default:
		return "", fmt.Errorf("%w: unknown intent %q", apperrors.ErrInvalidConfirmation, intent)
	}
}

// GetTrade retrieves a single trade. Soft-deleted trades require
// includeDeleted.
func (s *TradeService) GetTrade(tradeID int64, includeDeleted bool) (model.Trade, error) {
	trade, err := s.ledgerRepo.GetTrade(tradeID, includeDeleted)
	if err == sql.ErrNoRows {
		return model.Trade{}, fmt.Errorf("%w: trade %d", apperrors.ErrTradeNotFound, tradeID)
	}
	return trade, err
}

// ListTrades retrieves the trades matching the filter along with the total
// match count for pagination.
func (s *TradeService) ListTrades(f repository.TradeFilter) ([]model.Trade, int, error) {
	trades, err := s.ledgerRepo.FetchTrades(f)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.ledgerRepo.CountTrades(f)
	if err != nil {
		return nil, 0, err
	}
	return trades, total, nil
}

// ListDeletedTrades retrieves soft-deleted trades, most recently deleted
// first.
func (s *TradeService) ListDeletedTrades() ([]model.Trade, error) {
	return s.ledgerRepo.FetchTrades(repository.TradeFilter{
		OnlyDeleted: true,
		OrderBy:     "t.delete_date DESC",
	})
}

// GetTradeDetails retrieves a trade's execution details in chronological
// order.
func (s *TradeService) GetTradeDetails(tradeID int64, includeDeleted bool) ([]model.TradeDetail, error) {
	if _, err := s.GetTrade(tradeID, includeDeleted); err != nil {
		return nil, err
	}
	return s.ledgerRepo.GetDetails(tradeID, includeDeleted)
}

// BuyLotRemainingMap computes the FIFO remaining quantity per buy lot of a
// trade.
func (s *TradeService) BuyLotRemainingMap(tradeID int64) (map[int64]int64, error) {
	details, err := s.GetTradeDetails(tradeID, false)
	if err != nil {
		return nil, err
	}
	return ledger.RemainingByLot(details), nil
}

// GetTradeOverviewMetrics returns the position summary used by detail pages.
// For open positions the holding days are computed at read time from today,
// not taken from the stored column (which only updates on close).
func (s *TradeService) GetTradeOverviewMetrics(tradeID int64) (model.TradeOverview, error) {
	trade, err := s.GetTrade(tradeID, false)
	if err != nil {
		return model.TradeOverview{}, err
	}

	details, err := s.ledgerRepo.GetDetails(tradeID, false)
	if err != nil {
		return model.TradeOverview{}, err
	}

	agg := repository.Aggregate(details)
	metrics := ledger.ComputeCost(agg)

	holdingDays := trade.HoldingDays
	if trade.Status == model.StatusOpen {
		if open, err := repository.ParseTime(trade.OpenDate); err == nil {
			holdingDays = int(time.Now().UTC().Sub(open).Hours() / 24)
		}
	}

	return model.TradeOverview{
		Trade:        trade,
		HoldingDays:  holdingDays,
		AvgBuyPrice:  metrics.AvgBuyPriceExFee.Round(amountScale),
		DetailCount:  len(details),
		LotRemaining: ledger.RemainingByLot(details),
	}, nil
}

// GetModificationHistory retrieves a trade's audit rows, newest first.
func (s *TradeService) GetModificationHistory(tradeID int64) ([]model.Modification, error) {
	return s.modRepo.ListByTrade(tradeID)
}

// Recompute forces a full aggregate recomputation from the trade's current
// details. Used by the reconciliation service after raw detail edits.
func (s *TradeService) Recompute(ctx context.Context, tradeID int64) error {
	return s.UpdateTradeRecord(ctx, tradeID, nil, "")
}

// resolveStrategy maps a strategy reference (ID or exact name) to an active
// strategy.
func (s *TradeService) resolveStrategy(id int64, name string) (model.Strategy, error) {
	var strategy model.Strategy
	var err error

	switch {
	case id > 0:
		strategy, err = s.strategyRepo.GetByID(id)
	case strings.TrimSpace(name) != "":
		strategy, err = s.strategyRepo.GetByName(strings.TrimSpace(name))
	default:
		return model.Strategy{}, fmt.Errorf("%w: strategy reference is required", apperrors.ErrStrategyNotFound)
	}

	if err == sql.ErrNoRows {
		return model.Strategy{}, apperrors.ErrStrategyNotFound
	}
	if err != nil {
		return model.Strategy{}, err
	}
	if !strategy.IsActive {
		return model.Strategy{}, fmt.Errorf("%w: %s", apperrors.ErrStrategyInactive, strategy.Name)
	}
	return strategy, nil
}

// recompute rebuilds every derived field of a trade from its non-deleted
// details: per-sell profit columns, position aggregates, status, close date
// and holding days. Must run inside the mutation's transaction.
func (s *TradeService) recompute(tx *database.Tx, tradeID int64) error {
	trade, err := s.ledgerRepo.GetTradeTx(tx, tradeID, true)
	if err != nil {
		return err
	}

	details, err := s.ledgerRepo.GetDetailsTx(tx, tradeID, false)
	if err != nil {
		return err
	}

	agg := repository.Aggregate(details)
	metrics := ledger.ComputeCost(agg)

	if err := s.updateSellProfits(tx, details, agg, metrics); err != nil {
		return err
	}

	trade.TotalBuyAmount = agg.GrossBuy.Round(amountScale)
	trade.TotalBuyQuantity = agg.BuyQty
	trade.TotalSellAmount = agg.GrossSell.Round(amountScale)
	trade.TotalSellQuantity = agg.SoldQty
	trade.RemainingQuantity = agg.BuyQty - agg.SoldQty
	trade.TotalProfitLoss = metrics.GrossProfitForSold.Round(amountScale)
	trade.TotalProfitLossPct = metrics.GrossProfitPct().Round(pctScale)
	trade.TotalNetProfit = metrics.NetProfit.Round(amountScale)
	trade.TotalNetProfitPct = metrics.NetProfitPct.Round(pctScale)
	trade.TotalFees = metrics.TotalFees.Round(amountScale)

	if trade.RemainingQuantity == 0 && agg.SoldQty > 0 {
		trade.Status = model.StatusClosed
		trade.CloseDate = maxSellDate(details)
		if days, err := holdingDays(trade.OpenDate, trade.CloseDate); err == nil {
			trade.HoldingDays = days
		}
	} else {
		trade.Status = model.StatusOpen
		trade.CloseDate = ""
		// holding_days keeps its last-close value while open
	}

	return s.ledgerRepo.UpdateTradeAggregates(tx, &trade)
}

// updateSellProfits rewrites the per-sell profit columns from the position's
// weighted-average buy cost.
func (s *TradeService) updateSellProfits(tx *database.Tx, details []model.TradeDetail, agg model.DetailAggregate, metrics ledger.CostMetrics) error {
	buyQty := decimal.NewFromInt(agg.BuyQty)

	for _, d := range details {
		if !d.IsSell() {
			continue
		}

		qty := decimal.NewFromInt(d.Quantity)
		gross := d.Price.Sub(metrics.AvgBuyPriceExFee).Mul(qty)

		var grossPct decimal.Decimal
		if metrics.AvgBuyPriceExFee.IsPositive() {
			grossPct = d.Price.Sub(metrics.AvgBuyPriceExFee).Div(metrics.AvgBuyPriceExFee).Mul(decimal.NewFromInt(100))
		}

		// Buy fees are allocated to each sell by its quantity share.
		var allocatedBuyFees decimal.Decimal
		if agg.BuyQty > 0 {
			allocatedBuyFees = agg.BuyFees.Mul(qty).Div(buyQty)
		}
		net := gross.Sub(d.TransactionFee).Sub(allocatedBuyFees)

		var netPct decimal.Decimal
		if cost := metrics.AvgBuyPriceExFee.Mul(qty); cost.IsPositive() {
			netPct = net.Div(cost).Mul(decimal.NewFromInt(100))
		}

		err := s.ledgerRepo.UpdateDetailProfits(tx, d.ID,
			decimal.NewNullDecimal(gross.Round(amountScale)),
			decimal.NewNullDecimal(grossPct.Round(pctScale)),
			decimal.NewNullDecimal(net.Round(amountScale)),
			decimal.NewNullDecimal(netPct.Round(pctScale)),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// maxSellDate returns the latest sell transaction date in the detail set.
func maxSellDate(details []model.TradeDetail) string {
	latest := ""
	for _, d := range details {
		if d.IsSell() && d.TransactionDate > latest {
			latest = d.TransactionDate
		}
	}
	return latest
}

// holdingDays returns the calendar-day span between two ISO dates.
func holdingDays(openDate, closeDate string) (int, error) {
	open, err := repository.ParseTime(openDate)
	if err != nil {
		return 0, err
	}
	closed, err := repository.ParseTime(closeDate)
	if err != nil {
		return 0, err
	}
	return int(closed.Sub(open).Hours() / 24), nil
}
