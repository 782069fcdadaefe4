// Package circulation holds the loan workflows that act on catalog copies
// on behalf of a viewer.
package circulation

import (
	"context"
	"log/slog"
	"time"

	"library_catalog/pkg/access"
	"library_catalog/pkg/catalog"
	"library_catalog/pkg/models"
	"library_catalog/pkg/validator"
)

// RenewalDays is how far ahead the proposed renewal date lies.
const RenewalDays = 21

// LoanStore is the part of the catalog repository renewal needs.
type LoanStore interface {
	GetInstance(ctx context.Context, id string) (*models.BookInstance, error)
	SetDueBack(ctx context.Context, id string, due time.Time) (*models.BookInstance, error)
}

// RenewLoan sets the due date of a copy. The permission check runs before
// the lookup, so a viewer without ManageLoans learns nothing about which ids
// exist. The proposed date is not checked against any window.
func RenewLoan(ctx context.Context, store LoanStore, instanceID string, proposed time.Time, viewer access.Viewer) (*models.BookInstance, error) {
	if !viewer.Can(access.ManageLoans) {
		return nil, catalog.ErrPermissionDenied
	}
	if _, err := store.GetInstance(ctx, instanceID); err != nil {
		return nil, err
	}
	instance, err := store.SetDueBack(ctx, instanceID, proposed)
	if err != nil {
		return nil, err
	}
	slog.Info("loan renewed",
		"instance_id", instanceID,
		"due_back", models.Day(proposed).Format(models.DateLayout),
		"by", viewer.Username,
	)
	return instance, nil
}

// ParseRenewalDate reads a YYYY-MM-DD renewal date.
func ParseRenewalDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, validator.Field("renewal_date", "this field is required")
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return time.Time{}, validator.Field("renewal_date", "enter a date in YYYY-MM-DD format")
	}
	return d, nil
}

func DefaultRenewalDate(today time.Time) time.Time {
	return models.Day(today).AddDate(0, 0, RenewalDays)
}
