package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	intconfig "fleetops/internal/config"
	intdb "fleetops/internal/db"
	"fleetops/internal/domain"
	"fleetops/internal/events"
	"fleetops/internal/utils"
)

func sharedDB(db *sql.DB) *sql.DB {
	if db != nil {
		return db
	}
	return intconfig.DB
}

// handle avoids wrapping a nil *sql.DB in a non-nil interface.
func handle(db *sql.DB) intdb.DBTX {
	if db == nil {
		return nil
	}
	return db
}

func clock(now func() time.Time) time.Time {
	if now != nil {
		return now().UTC()
	}
	return utils.NowUTC()
}

// lookupErr maps repository read errors onto the domain taxonomy.
func lookupErr(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NotFoundError{Resource: resource, Err: err}
	}
	return domain.InternalError{Err: err}
}

// wrapInternal keeps domain errors raised inside a transaction intact.
func wrapInternal(err error) error {
	if err == nil {
		return nil
	}
	if domain.IsValidation(err) || domain.IsNotFound(err) || domain.IsConflict(err) || domain.IsInternal(err) {
		return err
	}
	return domain.InternalError{Err: err}
}

// publish sends a post-commit notification. Failures are logged, never returned.
func publish(ctx context.Context, pub events.Publisher, requestID, key string, data any) {
	if pub == nil {
		return
	}
	err := pub.Publish(ctx, key, events.Envelope{Type: key, RequestID: requestID, Data: data})
	if err != nil {
		utils.LogEvent(requestID, "events", "publish_failed", key+": "+err.Error())
	}
}
