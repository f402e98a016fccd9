package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quantlog/trade-ledger-backend/internal/apperrors"
	"github.com/quantlog/trade-ledger-backend/internal/database"
	"github.com/quantlog/trade-ledger-backend/internal/ledger"
	"github.com/quantlog/trade-ledger-backend/internal/model"
	"github.com/quantlog/trade-ledger-backend/internal/repository"
)

// comparePctScale is the rounding used when comparing stored percentage
// columns against recomputed values. Looser than the storage scale so that
// historical rows written with coarser rounding do not flag as drift.
const comparePctScale = 2

// Raw-row editing is restricted to these columns per table. Aggregate columns
// on trades are deliberately absent: they are repaired through recomputation,
// never edited directly.
var (
	tradeEditableColumns = map[string]bool{
		"strategy_id":   true,
		"symbol_code":   true,
		"symbol_name":   true,
		"open_date":     true,
		"close_date":    true,
		"status":        true,
		"trade_log":     true,
		"operator_note": true,
	}
	detailEditableColumns = map[string]bool{
		"price":            true,
		"quantity":         true,
		"transaction_fee":  true,
		"transaction_date": true,
		"buy_reason":       true,
		"sell_reason":      true,
		"operator_note":    true,
		"amount":           true,
	}
)

// TradeIssue reports one aggregate field on a trade row that diverges from
// the value recomputed from its details.
type TradeIssue struct {
	TradeID  int64  `json:"tradeId"`
	Field    string `json:"field"`
	Current  string `json:"current"`
	Expected string `json:"expected"`
}

// DetailIssue reports a detail row whose stored amount does not match
// price*quantity adjusted by its fee.
type DetailIssue struct {
	DetailID int64  `json:"detailId"`
	TradeID  int64  `json:"tradeId"`
	Issue    string `json:"issue"`
	Current  string `json:"current"`
	Expected string `json:"expected"`
}

// ValidationSummary counts the scope and findings of one validation run.
type ValidationSummary struct {
	TradesChecked    int `json:"tradesChecked"`
	DetailsChecked   int `json:"detailsChecked"`
	TradesWithIssues int `json:"tradesWithIssues"`
	TotalIssues      int `json:"totalIssues"`
}

// ValidationReport is the full result of a validation run. A clean dataset
// yields empty issue slices.
type ValidationReport struct {
	Summary      ValidationSummary `json:"summary"`
	TradeIssues  []TradeIssue      `json:"tradeIssues"`
	DetailIssues []DetailIssue     `json:"detailIssues"`
}

// FixFailure records one trade the auto-fix pass could not repair.
type FixFailure struct {
	TradeID int64  `json:"tradeId"`
	Error   string `json:"error"`
}

// FixReport lists the outcome of an auto-fix pass per trade. Failures are
// reported here, never raised.
type FixReport struct {
	Fixed  []int64      `json:"fixed"`
	Failed []FixFailure `json:"failed"`
}

// ReconcileService detects and repairs drift between trade aggregates and
// their execution details. Details are the source of truth; trade rows are
// treated as a derived view that may have decayed through raw edits.
type ReconcileService struct {
	db           *database.SafeDB
	ledgerRepo   *repository.LedgerRepository
	modRepo      *repository.ModificationRepository
	tradeService *TradeService
}

// NewReconcileService creates a new ReconcileService with the provided
// dependencies.
func NewReconcileService(
	db *database.SafeDB,
	ledgerRepo *repository.LedgerRepository,
	modRepo *repository.ModificationRepository,
	tradeService *TradeService,
) *ReconcileService {
	return &ReconcileService{
		db:           db,
		ledgerRepo:   ledgerRepo,
		modRepo:      modRepo,
		tradeService: tradeService,
	}
}

// Validate recomputes every aggregate field of the in-scope trades from their
// details and reports each divergence. A tradeID of 0 validates all
// non-deleted trades. Validation never mutates anything.
func (s *ReconcileService) Validate(tradeID int64) (ValidationReport, error) {
	trades, err := s.scopedTrades(tradeID)
	if err != nil {
		return ValidationReport{}, err
	}

	report := ValidationReport{
		TradeIssues:  []TradeIssue{},
		DetailIssues: []DetailIssue{},
	}
	flagged := map[int64]bool{}

	for i := range trades {
		t := &trades[i]
		details, err := s.ledgerRepo.GetDetails(t.ID, false)
		if err != nil {
			return ValidationReport{}, err
		}

		issues := validateTrade(t, details)
		if len(issues) > 0 {
			flagged[t.ID] = true
		}
		report.TradeIssues = append(report.TradeIssues, issues...)

		for j := range details {
			if issue, ok := validateDetailAmount(&details[j]); ok {
				flagged[t.ID] = true
				report.DetailIssues = append(report.DetailIssues, issue)
			}
			report.Summary.DetailsChecked++
		}
	}

	report.Summary.TradesChecked = len(trades)
	report.Summary.TradesWithIssues = len(flagged)
	report.Summary.TotalIssues = len(report.TradeIssues) + len(report.DetailIssues)
	return report, nil
}

// AutoFix recomputes the given trades from their details. An empty id list
// repairs every non-deleted trade. Per-trade failures are collected, not
// raised, and fixing an already-consistent trade is a no-op.
func (s *ReconcileService) AutoFix(ctx context.Context, tradeIDs []int64) (FixReport, error) {
	if len(tradeIDs) == 0 {
		trades, err := s.scopedTrades(0)
		if err != nil {
			return FixReport{}, err
		}
		for i := range trades {
			tradeIDs = append(tradeIDs, trades[i].ID)
		}
	}

	report := FixReport{Fixed: []int64{}, Failed: []FixFailure{}}
	for _, id := range tradeIDs {
		if err := s.tradeService.Recompute(ctx, id); err != nil {
			report.Failed = append(report.Failed, FixFailure{TradeID: id, Error: err.Error()})
			continue
		}
		report.Fixed = append(report.Fixed, id)
	}
	return report, nil
}

// UpdateRawRow applies direct column edits to one trade or detail row,
// restricted to the per-table allow-list. Every changed field leaves an audit
// record; detail edits trigger recomputation of the parent trade afterwards.
func (s *ReconcileService) UpdateRawRow(ctx context.Context, table string, id int64, updates map[string]any) error {
	switch table {
	case "trades":
		return s.updateRawTrade(ctx, id, updates)
	case "trade_details":
		return s.updateRawDetail(ctx, id, updates)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrUnknownTable, table)
	}
}

func (s *ReconcileService) updateRawTrade(ctx context.Context, tradeID int64, updates map[string]any) error {
	fields, err := orderedFields(updates, tradeEditableColumns)
	if err != nil {
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

		batchID := uuid.New().String()
		for _, f := range fields {
			err := s.modRepo.Insert(tx, &model.Modification{
				BatchID:          batchID,
				TradeID:          tradeID,
				ModificationType: model.ModTypeRawEdit,
				FieldName:        f.Column,
				OldValue:         currentTradeValue(&trade, f.Column),
				NewValue:         fmt.Sprint(f.Value),
			})
			if err != nil {
				return err
			}
		}

		return s.ledgerRepo.UpdateTradeFields(tx, tradeID, fields)
	})
}

func (s *ReconcileService) updateRawDetail(ctx context.Context, detailID int64, updates map[string]any) error {
	fields, err := orderedFields(updates, detailEditableColumns)
	if err != nil {
		return err
	}

	var parentTradeID int64
	err = s.db.ExecTx(ctx, func(tx *database.Tx) error {
		detail, err := s.ledgerRepo.GetDetail(tx, detailID)
		if err == sql.ErrNoRows {
			return fmt.Errorf("%w: detail %d", apperrors.ErrDetailNotFound, detailID)
		}
		if err != nil {
			return err
		}
		parentTradeID = detail.TradeID

		batchID := uuid.New().String()
		for _, f := range fields {
			err := s.modRepo.Insert(tx, &model.Modification{
				BatchID:          batchID,
				TradeID:          detail.TradeID,
				DetailID:         detailID,
				ModificationType: model.ModTypeRawEdit,
				FieldName:        f.Column,
				OldValue:         currentDetailValue(&detail, f.Column),
				NewValue:         fmt.Sprint(f.Value),
			})
			if err != nil {
				return err
			}
		}

		return s.ledgerRepo.UpdateDetailFields(tx, detailID, fields)
	})
	if err != nil {
		return err
	}

	// The edit may have invalidated the parent's aggregates.
	return s.tradeService.Recompute(ctx, parentTradeID)
}

func (s *ReconcileService) scopedTrades(tradeID int64) ([]model.Trade, error) {
	if tradeID > 0 {
		trade, err := s.ledgerRepo.GetTrade(tradeID, false)
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: trade %d", apperrors.ErrTradeNotFound, tradeID)
		}
		if err != nil {
			return nil, err
		}
		return []model.Trade{trade}, nil
	}
	return s.ledgerRepo.FetchTrades(repository.TradeFilter{OrderBy: "t.id"})
}

// validateTrade compares every derived column of a trade row against the
// values recomputed from its details. Amounts compare at storage scale,
// percentages at comparePctScale, quantities exactly.
func validateTrade(t *model.Trade, details []model.TradeDetail) []TradeIssue {
	agg := repository.Aggregate(details)
	metrics := ledger.ComputeCost(agg)

	issues := []TradeIssue{}
	flag := func(field, current, expected string) {
		if current != expected {
			issues = append(issues, TradeIssue{TradeID: t.ID, Field: field, Current: current, Expected: expected})
		}
	}

	flag("total_buy_quantity", fmt.Sprint(t.TotalBuyQuantity), fmt.Sprint(agg.BuyQty))
	flag("total_sell_quantity", fmt.Sprint(t.TotalSellQuantity), fmt.Sprint(agg.SoldQty))
	flag("remaining_quantity", fmt.Sprint(t.RemainingQuantity), fmt.Sprint(agg.BuyQty-agg.SoldQty))

	flag("total_buy_amount", amountString(t.TotalBuyAmount), amountString(agg.GrossBuy))
	flag("total_sell_amount", amountString(t.TotalSellAmount), amountString(agg.GrossSell))
	flag("total_profit_loss", amountString(t.TotalProfitLoss), amountString(metrics.GrossProfitForSold))
	flag("total_net_profit", amountString(t.TotalNetProfit), amountString(metrics.NetProfit))
	flag("total_fees", amountString(t.TotalFees), amountString(metrics.TotalFees))

	flag("total_profit_loss_pct", pctString(t.TotalProfitLossPct), pctString(metrics.GrossProfitPct()))
	flag("total_net_profit_pct", pctString(t.TotalNetProfitPct), pctString(metrics.NetProfitPct))

	expectedStatus := model.StatusOpen
	expectedCloseDate := ""
	if agg.BuyQty-agg.SoldQty == 0 && agg.SoldQty > 0 {
		expectedStatus = model.StatusClosed
		expectedCloseDate = maxSellDate(details)
	}
	flag("status", t.Status, expectedStatus)
	flag("close_date", t.CloseDate, expectedCloseDate)

	if expectedStatus == model.StatusClosed && expectedCloseDate != "" {
		if days, err := holdingDays(t.OpenDate, expectedCloseDate); err == nil {
			flag("holding_days", fmt.Sprint(t.HoldingDays), fmt.Sprint(days))
		}
	}

	return issues
}

// validateDetailAmount checks a detail's stored amount against
// price*quantity plus fee for buys and minus fee for sells.
func validateDetailAmount(d *model.TradeDetail) (DetailIssue, bool) {
	expected := d.Gross()
	if d.IsBuy() {
		expected = expected.Add(d.TransactionFee)
	} else {
		expected = expected.Sub(d.TransactionFee)
	}

	if amountString(d.Amount) == amountString(expected) {
		return DetailIssue{}, false
	}
	return DetailIssue{
		DetailID: d.ID,
		TradeID:  d.TradeID,
		Issue:    "amount_mismatch",
		Current:  amountString(d.Amount),
		Expected: amountString(expected),
	}, true
}

// orderedFields checks an update map against the allow-list and returns the
// assignments in deterministic column order.
func orderedFields(updates map[string]any, allowed map[string]bool) ([]repository.FieldUpdate, error) {
	if len(updates) == 0 {
		return nil, apperrors.ErrMissingRequiredField
	}

	columns := make([]string, 0, len(updates))
	for col := range updates {
		if !allowed[col] {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrFieldNotAllowed, col)
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	fields := make([]repository.FieldUpdate, 0, len(columns))
	for _, col := range columns {
		fields = append(fields, repository.FieldUpdate{Column: col, Value: updates[col]})
	}
	return fields, nil
}

func currentTradeValue(t *model.Trade, column string) string {
	switch column {
	case "strategy_id":
		return fmt.Sprint(t.StrategyID)
	case "symbol_code":
		return t.SymbolCode
	case "symbol_name":
		return t.SymbolName
	case "open_date":
		return t.OpenDate
	case "close_date":
		return t.CloseDate
	case "status":
		return t.Status
	case "trade_log":
		return t.TradeLog
	case "operator_note":
		return t.OperatorNote
	default:
		return ""
	}
}

func currentDetailValue(d *model.TradeDetail, column string) string {
	switch column {
	case "price":
		return d.Price.String()
	case "quantity":
		return fmt.Sprint(d.Quantity)
	case "transaction_fee":
		return d.TransactionFee.String()
	case "transaction_date":
		return d.TransactionDate
	case "buy_reason":
		return d.BuyReason
	case "sell_reason":
		return d.SellReason
	case "operator_note":
		return d.OperatorNote
	case "amount":
		return d.Amount.String()
	default:
		return ""
	}
}

func amountString(v decimal.Decimal) string {
	return v.Round(amountScale).String()
}

func pctString(v decimal.Decimal) string {
	return v.Round(comparePctScale).String()
}
