package catalog

import (
	"context"
	"fmt"
	"time"

	"library_catalog/pkg/models"
	"library_catalog/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InstanceInput struct {
	BookID     *uint
	Imprint    string
	DueBack    *time.Time
	Status     models.LoanStatus
	BorrowerID *string
}

func (in InstanceInput) validate() error {
	v := validator.New()
	required(v, "imprint", in.Imprint)
	maxLen(v, "imprint", in.Imprint, 200)
	v.Check(in.Status.Valid(), "status", "must be one of: maintenance, on-loan, available, reserved")
	if in.Status == models.StatusOnLoan {
		v.Check(in.BorrowerID != nil && *in.BorrowerID != "", "borrower", "a copy on loan needs a borrower")
	}
	if in.BorrowerID != nil {
		_, err := uuid.Parse(*in.BorrowerID)
		v.Check(err == nil, "borrower", "must be a UUID")
	}
	return v.Err()
}

func (in InstanceInput) checkReferences(tx *gorm.DB) error {
	v := validator.New()
	if in.BookID != nil {
		var n int64
		if err := tx.Model(&models.Book{}).Where("id = ?", *in.BookID).Count(&n).Error; err != nil {
			return err
		}
		v.Check(n == 1, "book", fmt.Sprintf("invalid book id %d", *in.BookID))
	}
	if in.BorrowerID != nil {
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", *in.BorrowerID).Count(&n).Error; err != nil {
			return err
		}
		v.Check(n == 1, "borrower", "unknown user")
	}
	return v.Err()
}

// CreateInstance stores a new copy; an empty status means maintenance.
func (r *Repository) CreateInstance(ctx context.Context, in InstanceInput) (*models.BookInstance, error) {
	if in.Status == "" {
		in.Status = models.StatusMaintenance
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	var id string
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := in.checkReferences(tx); err != nil {
			return err
		}
		instance := models.BookInstance{
			BookID:     in.BookID,
			Imprint:    in.Imprint,
			DueBack:    dayPtr(in.DueBack),
			Status:     in.Status,
			BorrowerID: in.BorrowerID,
		}
		if err := tx.Omit("Book", "Borrower").Create(&instance).Error; err != nil {
			return fmt.Errorf("create copy: %w", err)
		}
		id = instance.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetInstance(ctx, id)
}

// GetInstance loads a copy with its book and borrower. Ids that are not
// UUIDs cannot exist and report ErrNotFound.
func (r *Repository) GetInstance(ctx context.Context, id string) (*models.BookInstance, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var instance models.BookInstance
	err := r.db.WithContext(ctx).
		Preload("Book").
		Preload("Borrower").
		First(&instance, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &instance, nil
}

func (r *Repository) ListInstances(ctx context.Context, page Page) ([]models.BookInstance, int64, error) {
	total, err := r.CountBookInstances(ctx)
	if err != nil {
		return nil, 0, err
	}
	var instances []models.BookInstance
	q := instanceOrder(r.db.WithContext(ctx).Preload("Book").Preload("Borrower"))
	if err := page.scope(q).Find(&instances).Error; err != nil {
		return nil, 0, fmt.Errorf("list copies: %w", err)
	}
	return instances, total, nil
}

// UpdateInstance replaces every column of a copy except its status, which
// is kept when the input leaves it empty. A missing copy is reported before
// any validation error.
func (r *Repository) UpdateInstance(ctx context.Context, id string, in InstanceInput) (*models.BookInstance, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var instance models.BookInstance
		if err := tx.First(&instance, "id = ?", id).Error; err != nil {
			return notFound(err)
		}
		if in.Status == "" {
			in.Status = instance.Status
		}
		if err := in.validate(); err != nil {
			return err
		}
		if err := in.checkReferences(tx); err != nil {
			return err
		}
		err := tx.Model(&instance).Updates(map[string]interface{}{
			"book_id":     in.BookID,
			"imprint":     in.Imprint,
			"due_back":    dayPtr(in.DueBack),
			"status":      in.Status,
			"borrower_id": in.BorrowerID,
		}).Error
		if err != nil {
			return fmt.Errorf("update copy: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetInstance(ctx, id)
}

func (r *Repository) DeleteInstance(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.BookInstance{})
	if res.Error != nil {
		return fmt.Errorf("delete copy: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetDueBack writes only the due_back column.
func (r *Repository) SetDueBack(ctx context.Context, id string, due time.Time) (*models.BookInstance, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	res := r.db.WithContext(ctx).Model(&models.BookInstance{}).
		Where("id = ?", id).
		Update("due_back", models.Day(due))
	if res.Error != nil {
		return nil, fmt.Errorf("set due date: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.GetInstance(ctx, id)
}
