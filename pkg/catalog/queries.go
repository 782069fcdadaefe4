package catalog

import (
	"context"
	"fmt"

	"library_catalog/pkg/models"

	"gorm.io/gorm"
)

// Page selects a slice of a list. Size 0 returns everything.
type Page struct {
	Number int
	Size   int
}

func (p Page) scope(q *gorm.DB) *gorm.DB {
	if p.Size <= 0 {
		return q
	}
	number := p.Number
	if number < 1 {
		number = 1
	}
	return q.Offset((number - 1) * p.Size).Limit(p.Size)
}

// instanceOrder sorts copies by due date ascending with undated copies last.
func instanceOrder(q *gorm.DB) *gorm.DB {
	return q.Order("due_back IS NULL").Order("due_back ASC").Order("id ASC")
}

func (r *Repository) count(ctx context.Context, model interface{}, where ...interface{}) (int64, error) {
	var n int64
	q := r.db.WithContext(ctx).Model(model)
	if len(where) > 0 {
		q = q.Where(where[0], where[1:]...)
	}
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}
	return n, nil
}

func (r *Repository) CountBooks(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.Book{})
}

func (r *Repository) CountBookInstances(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.BookInstance{})
}

func (r *Repository) CountAvailableInstances(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.BookInstance{}, "status = ?", models.StatusAvailable)
}

func (r *Repository) CountAuthors(ctx context.Context) (int64, error) {
	return r.count(ctx, &models.Author{})
}

type Counts struct {
	Books              int64 `json:"num_books"`
	Instances          int64 `json:"num_instances"`
	AvailableInstances int64 `json:"num_instances_available"`
	Authors            int64 `json:"num_authors"`
}

func (r *Repository) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Books, err = r.CountBooks(ctx); err != nil {
		return c, err
	}
	if c.Instances, err = r.CountBookInstances(ctx); err != nil {
		return c, err
	}
	if c.AvailableInstances, err = r.CountAvailableInstances(ctx); err != nil {
		return c, err
	}
	if c.Authors, err = r.CountAuthors(ctx); err != nil {
		return c, err
	}
	return c, nil
}

func (r *Repository) ListBooksOrderedByTitle(ctx context.Context, page Page) ([]models.Book, int64, error) {
	total, err := r.CountBooks(ctx)
	if err != nil {
		return nil, 0, err
	}
	var books []models.Book
	q := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Language").
		Preload("Genres").
		Order("title ASC").
		Order("id ASC")
	if err := page.scope(q).Find(&books).Error; err != nil {
		return nil, 0, fmt.Errorf("list books: %w", err)
	}
	return books, total, nil
}

func (r *Repository) ListAuthors(ctx context.Context, page Page) ([]models.Author, int64, error) {
	total, err := r.CountAuthors(ctx)
	if err != nil {
		return nil, 0, err
	}
	var authors []models.Author
	q := r.db.WithContext(ctx).Order("id ASC")
	if err := page.scope(q).Find(&authors).Error; err != nil {
		return nil, 0, fmt.Errorf("list authors: %w", err)
	}
	return authors, total, nil
}

// ListBorrowedByUser returns the copies currently on loan to userID.
func (r *Repository) ListBorrowedByUser(ctx context.Context, userID string, page Page) ([]models.BookInstance, int64, error) {
	where := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.BookInstance{}).
			Where("borrower_id = ? AND status = ?", userID, models.StatusOnLoan)
	}
	var total int64
	if err := where().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count borrowed: %w", err)
	}
	var instances []models.BookInstance
	q := instanceOrder(where().Preload("Book"))
	if err := page.scope(q).Find(&instances).Error; err != nil {
		return nil, 0, fmt.Errorf("list borrowed: %w", err)
	}
	return instances, total, nil
}

// ListAllBorrowed returns every copy that carries a due date, whatever its
// status. Returned or reserved copies with a stale due date are included.
func (r *Repository) ListAllBorrowed(ctx context.Context, page Page) ([]models.BookInstance, int64, error) {
	where := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&models.BookInstance{}).Where("due_back IS NOT NULL")
	}
	var total int64
	if err := where().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count borrowed: %w", err)
	}
	var instances []models.BookInstance
	q := instanceOrder(where().Preload("Book").Preload("Borrower"))
	if err := page.scope(q).Find(&instances).Error; err != nil {
		return nil, 0, fmt.Errorf("list borrowed: %w", err)
	}
	return instances, total, nil
}
