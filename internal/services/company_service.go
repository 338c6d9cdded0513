package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/repositories"
	"fleetops/internal/utils"
)

// CompanyService tracks what company customers still owe.
//
// RecordPayment is independent of the payment ledger. A customer receipt
// posted through PaymentService already decrements the same figure, so
// calling both for one receipt counts it twice.
type CompanyService struct {
	DB        *sql.DB
	RequestID string
}

func (s CompanyService) companies() repositories.CompanyRepository {
	return repositories.CompanyRepository{DB: handle(sharedDB(s.DB))}
}

func (s CompanyService) GetCompany(ctx context.Context, companyID int64) (models.Company, error) {
	if companyID <= 0 {
		return models.Company{}, domain.Invalid("id", "id tidak valid")
	}
	c, err := s.companies().FindByID(ctx, companyID)
	if err != nil {
		return models.Company{}, lookupErr(err, "company")
	}
	return c, nil
}

func (s CompanyService) RecordPayment(ctx context.Context, companyID int64, amount float64, description string) (models.Company, error) {
	if companyID <= 0 {
		return models.Company{}, domain.Invalid("id", "id tidak valid")
	}
	if err := nonNegative("amount", amount); err != nil {
		return models.Company{}, err
	}
	ok, err := s.companies().DecrementOutstanding(ctx, companyID, amount)
	if err != nil {
		return models.Company{}, domain.InternalError{Err: err}
	}
	if !ok {
		return models.Company{}, domain.NotFound("company")
	}
	utils.LogEvent(s.RequestID, "companies", "record_payment",
		fmt.Sprintf("company_id=%d amount=%s desc=%q", companyID, utils.FormatMoney(amount), strings.TrimSpace(description)))
	return s.GetCompany(ctx, companyID)
}
