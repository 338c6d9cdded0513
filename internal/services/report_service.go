package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"

	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/repositories"
	"fleetops/internal/utils"
)

type ReportService struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s ReportService) reports() repositories.ReportRepository {
	return repositories.ReportRepository{DB: handle(sharedDB(s.DB))}
}

// reportRange turns inclusive from/to dates into [from, to+1day). Missing
// bounds default to the current month.
func (s ReportService) reportRange(from, to time.Time) (time.Time, time.Time, error) {
	now := clock(s.Now)
	if from.IsZero() {
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	if to.IsZero() {
		to = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}
	from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	to = time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	if to.Before(from) {
		return time.Time{}, time.Time{}, domain.Invalid("to", "tidak boleh sebelum from")
	}
	return from, to.AddDate(0, 0, 1), nil
}

func (s ReportService) BookingStatusSummary(ctx context.Context, from, to time.Time) ([]models.StatusSummary, error) {
	start, end, err := s.reportRange(from, to)
	if err != nil {
		return nil, err
	}
	rows, err := s.reports().StatusSummary(ctx, start, end)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	for i := range rows {
		rows[i].TotalAmount = utils.RoundMoney(rows[i].TotalAmount)
		rows[i].AdvanceReceived = utils.RoundMoney(rows[i].AdvanceReceived)
		rows[i].Balance = utils.RoundMoney(rows[i].Balance)
	}
	return rows, nil
}

// FinanceSummary nets booking revenue against expenses and driver payouts.
func (s ReportService) FinanceSummary(ctx context.Context, from, to time.Time) (models.FinanceSummary, error) {
	start, end, err := s.reportRange(from, to)
	if err != nil {
		return models.FinanceSummary{}, err
	}
	reports := s.reports()
	payments := repositories.PaymentRepository{DB: handle(sharedDB(s.DB))}

	out := models.FinanceSummary{
		From: utils.FormatDate(start),
		To:   utils.FormatDate(end.AddDate(0, 0, -1)),
	}

	if out.BookingCount, out.Revenue, out.AdvanceReceived, out.OutstandingBalance, err = reports.BookingTotals(ctx, start, end); err != nil {
		return models.FinanceSummary{}, domain.InternalError{Err: err}
	}
	if out.Expenses, err = reports.ExpensesByType(ctx, start, end); err != nil {
		return models.FinanceSummary{}, domain.InternalError{Err: err}
	}
	if out.FieldCollections, err = reports.FieldCollections(ctx, start, end); err != nil {
		return models.FinanceSummary{}, domain.InternalError{Err: err}
	}
	if out.DriverPayments, out.DriverPaymentsSettled, err = payments.SumDriverPayouts(ctx, start, end); err != nil {
		return models.FinanceSummary{}, domain.InternalError{Err: err}
	}
	if out.CustomerReceipts, err = payments.SumCustomerReceipts(ctx, start, end); err != nil {
		return models.FinanceSummary{}, domain.InternalError{Err: err}
	}

	expenses := decimal.Zero
	for i := range out.Expenses {
		out.Expenses[i].Amount = utils.RoundMoney(out.Expenses[i].Amount)
		expenses = expenses.Add(decimal.NewFromFloat(out.Expenses[i].Amount))
	}
	out.ExpenseTotal = expenses.Round(2).InexactFloat64()
	out.NetIncome = decimal.NewFromFloat(out.Revenue).
		Sub(expenses).
		Sub(decimal.NewFromFloat(out.DriverPayments)).
		Round(2).InexactFloat64()

	out.Revenue = utils.RoundMoney(out.Revenue)
	out.AdvanceReceived = utils.RoundMoney(out.AdvanceReceived)
	out.OutstandingBalance = utils.RoundMoney(out.OutstandingBalance)
	out.FieldCollections = utils.RoundMoney(out.FieldCollections)
	out.DriverPayments = utils.RoundMoney(out.DriverPayments)
	out.DriverPaymentsSettled = utils.RoundMoney(out.DriverPaymentsSettled)
	out.CustomerReceipts = utils.RoundMoney(out.CustomerReceipts)
	return out, nil
}
