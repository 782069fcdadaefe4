// Package catalog persists genres, languages, authors, books, copies and
// users, and answers the read-only catalog queries.
//
// References are never cascaded: deleting an author, language, book or user
// nulls the columns that point at it inside the same transaction, and
// deleting a genre or book only removes book_genres rows.
package catalog

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"library_catalog/pkg/models"
	"library_catalog/pkg/validator"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func maxLen(v *validator.Validator, key, value string, n int) {
	v.Check(utf8.RuneCountInString(value) <= n, key, fmt.Sprintf("must be at most %d characters", n))
}

func required(v *validator.Validator, key, value string) {
	v.Check(value != "", key, "this field is required")
}

// genres and languages

func validateName(name string) error {
	v := validator.New()
	required(v, "name", name)
	maxLen(v, "name", name, 200)
	return v.Err()
}

func (r *Repository) CreateGenre(ctx context.Context, name string) (*models.Genre, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	genre := models.Genre{Name: name}
	if err := r.db.WithContext(ctx).Create(&genre).Error; err != nil {
		return nil, fmt.Errorf("create genre: %w", err)
	}
	return &genre, nil
}

func (r *Repository) GetGenre(ctx context.Context, id uint) (*models.Genre, error) {
	var genre models.Genre
	if err := r.db.WithContext(ctx).First(&genre, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &genre, nil
}

func (r *Repository) ListGenres(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	if err := r.db.WithContext(ctx).Order("name").Find(&genres).Error; err != nil {
		return nil, fmt.Errorf("list genres: %w", err)
	}
	return genres, nil
}

func (r *Repository) UpdateGenre(ctx context.Context, id uint, name string) (*models.Genre, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	genre, err := r.GetGenre(ctx, id)
	if err != nil {
		return nil, err
	}
	genre.Name = name
	if err := r.db.WithContext(ctx).Save(genre).Error; err != nil {
		return nil, fmt.Errorf("update genre: %w", err)
	}
	return genre, nil
}

// DeleteGenre removes the genre and its book links; books stay.
func (r *Repository) DeleteGenre(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM book_genres WHERE genre_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink genre: %w", err)
		}
		return deleteByID(tx, &models.Genre{}, id)
	})
}

func (r *Repository) CreateLanguage(ctx context.Context, name string) (*models.Language, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	language := models.Language{Name: name}
	if err := r.db.WithContext(ctx).Create(&language).Error; err != nil {
		return nil, fmt.Errorf("create language: %w", err)
	}
	return &language, nil
}

func (r *Repository) GetLanguage(ctx context.Context, id uint) (*models.Language, error) {
	var language models.Language
	if err := r.db.WithContext(ctx).First(&language, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &language, nil
}

func (r *Repository) ListLanguages(ctx context.Context) ([]models.Language, error) {
	var languages []models.Language
	if err := r.db.WithContext(ctx).Order("name").Find(&languages).Error; err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	return languages, nil
}

func (r *Repository) UpdateLanguage(ctx context.Context, id uint, name string) (*models.Language, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	language, err := r.GetLanguage(ctx, id)
	if err != nil {
		return nil, err
	}
	language.Name = name
	if err := r.db.WithContext(ctx).Save(language).Error; err != nil {
		return nil, fmt.Errorf("update language: %w", err)
	}
	return language, nil
}

func (r *Repository) DeleteLanguage(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Book{}).Where("language_id = ?", id).Update("language_id", nil).Error; err != nil {
			return fmt.Errorf("detach language: %w", err)
		}
		return deleteByID(tx, &models.Language{}, id)
	})
}

// authors

type AuthorInput struct {
	FirstName   string
	LastName    string
	DateOfBirth *time.Time
	DateOfDeath *time.Time
}

func (in AuthorInput) validate() error {
	v := validator.New()
	required(v, "first_name", in.FirstName)
	maxLen(v, "first_name", in.FirstName, 100)
	required(v, "last_name", in.LastName)
	maxLen(v, "last_name", in.LastName, 100)
	return v.Err()
}

func (in AuthorInput) columns() map[string]interface{} {
	return map[string]interface{}{
		"first_name":    in.FirstName,
		"last_name":     in.LastName,
		"date_of_birth": dayPtr(in.DateOfBirth),
		"date_of_death": dayPtr(in.DateOfDeath),
	}
}

func (r *Repository) CreateAuthor(ctx context.Context, in AuthorInput) (*models.Author, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	author := models.Author{
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		DateOfBirth: dayPtr(in.DateOfBirth),
		DateOfDeath: dayPtr(in.DateOfDeath),
	}
	if err := r.db.WithContext(ctx).Create(&author).Error; err != nil {
		return nil, fmt.Errorf("create author: %w", err)
	}
	return &author, nil
}

func (r *Repository) GetAuthor(ctx context.Context, id uint) (*models.Author, error) {
	var author models.Author
	if err := r.db.WithContext(ctx).First(&author, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &author, nil
}

func (r *Repository) UpdateAuthor(ctx context.Context, id uint, in AuthorInput) (*models.Author, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	author, err := r.GetAuthor(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).Model(author).Updates(in.columns()).Error; err != nil {
		return nil, fmt.Errorf("update author: %w", err)
	}
	return r.GetAuthor(ctx, id)
}

// DeleteAuthor removes the author; its books remain with no author.
func (r *Repository) DeleteAuthor(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Book{}).Where("author_id = ?", id).Update("author_id", nil).Error; err != nil {
			return fmt.Errorf("detach author: %w", err)
		}
		return deleteByID(tx, &models.Author{}, id)
	})
}

func (r *Repository) BooksByAuthor(ctx context.Context, authorID uint) ([]models.Book, error) {
	var books []models.Book
	err := r.db.WithContext(ctx).
		Preload("Genres").
		Where("author_id = ?", authorID).
		Order("title").
		Find(&books).Error
	if err != nil {
		return nil, fmt.Errorf("list author books: %w", err)
	}
	return books, nil
}

// books

type BookInput struct {
	Title      string
	Summary    string
	ISBN       string
	AuthorID   *uint
	LanguageID *uint
	GenreIDs   []uint
}

func (in BookInput) validate() error {
	v := validator.New()
	required(v, "title", in.Title)
	maxLen(v, "title", in.Title, 200)
	required(v, "summary", in.Summary)
	maxLen(v, "summary", in.Summary, 1000)
	v.Check(utf8.RuneCountInString(in.ISBN) == 13, "isbn", "must be exactly 13 characters")
	v.Check(len(in.GenreIDs) > 0, "genre", "select at least one genre")
	return v.Err()
}

// resolveReferences loads the genres and checks author and language exist.
func resolveReferences(tx *gorm.DB, in BookInput) ([]models.Genre, error) {
	v := validator.New()
	if in.AuthorID != nil {
		var n int64
		if err := tx.Model(&models.Author{}).Where("id = ?", *in.AuthorID).Count(&n).Error; err != nil {
			return nil, err
		}
		v.Check(n == 1, "author", fmt.Sprintf("invalid author id %d", *in.AuthorID))
	}
	if in.LanguageID != nil {
		var n int64
		if err := tx.Model(&models.Language{}).Where("id = ?", *in.LanguageID).Count(&n).Error; err != nil {
			return nil, err
		}
		v.Check(n == 1, "language", fmt.Sprintf("invalid language id %d", *in.LanguageID))
	}

	var genres []models.Genre
	if err := tx.Where("id IN ?", in.GenreIDs).Find(&genres).Error; err != nil {
		return nil, err
	}
	found := make(map[uint]bool, len(genres))
	for _, g := range genres {
		found[g.ID] = true
	}
	for _, id := range in.GenreIDs {
		if !found[id] {
			v.AddError("genre", fmt.Sprintf("invalid genre id %d", id))
		}
	}
	if err := v.Err(); err != nil {
		return nil, err
	}
	return genres, nil
}

func (r *Repository) CreateBook(ctx context.Context, in BookInput) (*models.Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	var id uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		genres, err := resolveReferences(tx, in)
		if err != nil {
			return err
		}
		book := models.Book{
			Title:      in.Title,
			Summary:    in.Summary,
			ISBN:       in.ISBN,
			AuthorID:   in.AuthorID,
			LanguageID: in.LanguageID,
			Genres:     genres,
		}
		if err := tx.Omit("Author", "Language", "Genres.*").Create(&book).Error; err != nil {
			return fmt.Errorf("create book: %w", err)
		}
		id = book.ID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetBook(ctx, id)
}

// GetBook returns the book with author, language and genres loaded.
func (r *Repository) GetBook(ctx context.Context, id uint) (*models.Book, error) {
	var book models.Book
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Language").
		Preload("Genres").
		First(&book, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &book, nil
}

func (r *Repository) UpdateBook(ctx context.Context, id uint, in BookInput) (*models.Book, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var book models.Book
		if err := tx.First(&book, id).Error; err != nil {
			return notFound(err)
		}
		genres, err := resolveReferences(tx, in)
		if err != nil {
			return err
		}
		err = tx.Model(&book).Updates(map[string]interface{}{
			"title":       in.Title,
			"summary":     in.Summary,
			"isbn":        in.ISBN,
			"author_id":   in.AuthorID,
			"language_id": in.LanguageID,
		}).Error
		if err != nil {
			return fmt.Errorf("update book: %w", err)
		}
		if err := tx.Model(&book).Association("Genres").Replace(genres); err != nil {
			return fmt.Errorf("replace book genres: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetBook(ctx, id)
}

// DeleteBook hard-deletes the book. Its copies stay with no book.
func (r *Repository) DeleteBook(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BookInstance{}).Where("book_id = ?", id).Update("book_id", nil).Error; err != nil {
			return fmt.Errorf("detach copies: %w", err)
		}
		if err := tx.Exec("DELETE FROM book_genres WHERE book_id = ?", id).Error; err != nil {
			return fmt.Errorf("unlink book genres: %w", err)
		}
		return deleteByID(tx, &models.Book{}, id)
	})
}

func (r *Repository) InstancesOfBook(ctx context.Context, bookID uint) ([]models.BookInstance, error) {
	var instances []models.BookInstance
	err := instanceOrder(r.db.WithContext(ctx).Where("book_id = ?", bookID)).Find(&instances).Error
	if err != nil {
		return nil, fmt.Errorf("list book copies: %w", err)
	}
	return instances, nil
}

// users

// EnsureUser registers a user id the first time it is seen. A username
// already held by a different id is a ValidationError; the id is never
// stored under another name.
func (r *Repository) EnsureUser(ctx context.Context, id, username string) error {
	if _, err := uuid.Parse(id); err != nil {
		return validator.Field("user", "must be a UUID")
	}
	if username == "" {
		username = id
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var holders []models.User
		if err := tx.Where("username = ? AND id <> ?", username, id).Limit(1).Find(&holders).Error; err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if len(holders) > 0 {
			return validator.Field("username", fmt.Sprintf("username %q is taken by another user", username))
		}
		user := models.User{ID: id, Username: username}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&user).Error
		if err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		var n int64
		if err := tx.Model(&models.User{}).Where("id = ?", id).Count(&n).Error; err != nil {
			return fmt.Errorf("ensure user: %w", err)
		}
		if n != 1 {
			return fmt.Errorf("ensure user: %s was not stored", id)
		}
		return nil
	})
}

func (r *Repository) GetUser(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// DeleteUser removes the user; copies they held keep their status but lose
// the borrower.
func (r *Repository) DeleteUser(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.BookInstance{}).Where("borrower_id = ?", id).Update("borrower_id", nil).Error; err != nil {
			return fmt.Errorf("detach borrower: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&models.User{})
		if res.Error != nil {
			return fmt.Errorf("delete user: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func deleteByID(tx *gorm.DB, model interface{}, id uint) error {
	res := tx.Delete(model, id)
	if res.Error != nil {
		return fmt.Errorf("delete: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := models.Day(*t)
	return &d
}
