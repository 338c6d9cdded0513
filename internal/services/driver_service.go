package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/repositories"
	"fleetops/internal/utils"
)

type DriverService struct {
	DB        *sql.DB
	RequestID string
	Now       func() time.Time
}

func (s DriverService) drivers() repositories.DriverRepository {
	return repositories.DriverRepository{DB: handle(sharedDB(s.DB))}
}

func (s DriverService) GetDriver(ctx context.Context, driverID int64) (models.Driver, error) {
	if driverID <= 0 {
		return models.Driver{}, domain.Invalid("id", "id tidak valid")
	}
	d, err := s.drivers().FindByID(ctx, driverID)
	if err != nil {
		return models.Driver{}, lookupErr(err, "driver")
	}
	return d, nil
}

// AddAdvance appends an unsettled advance dated now.
func (s DriverService) AddAdvance(ctx context.Context, driverID int64, amount float64, description string) (models.Driver, error) {
	if driverID <= 0 {
		return models.Driver{}, domain.Invalid("id", "id tidak valid")
	}
	if err := nonNegative("amount", amount); err != nil {
		return models.Driver{}, err
	}
	repo := s.drivers()
	exists, err := repo.Exists(ctx, driverID)
	if err != nil {
		return models.Driver{}, domain.InternalError{Err: err}
	}
	if !exists {
		return models.Driver{}, domain.NotFound("driver")
	}

	id, err := repo.InsertAdvance(ctx, models.Advance{
		DriverID:    driverID,
		Amount:      amount,
		Date:        clock(s.Now),
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return models.Driver{}, domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "drivers", "add_advance", fmt.Sprintf("driver_id=%d advance_id=%d amount=%s", driverID, id, utils.FormatMoney(amount)))
	return s.GetDriver(ctx, driverID)
}

// SettleAdvance is a silent no-op when nothing matches.
func (s DriverService) SettleAdvance(ctx context.Context, driverID, advanceID int64) error {
	if driverID <= 0 || advanceID <= 0 {
		return domain.Invalid("id", "id tidak valid")
	}
	n, err := s.drivers().SettleAdvance(ctx, driverID, advanceID)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "drivers", "settle_advance", fmt.Sprintf("driver_id=%d advance_id=%d matched=%d", driverID, advanceID, n))
	return nil
}
