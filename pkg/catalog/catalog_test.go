package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"library_catalog/pkg/database"
	"library_catalog/pkg/models"
	"library_catalog/pkg/validator"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.Open(database.Options{Driver: database.DriverSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	return NewRepository(db)
}

func date(s string) *time.Time {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func uintPtr(v uint) *uint     { return &v }
func strPtr(v string) *string { return &v }

type fixture struct {
	author   *models.Author
	genre    *models.Genre
	language *models.Language
	book     *models.Book
}

func seedBook(t *testing.T, repo *Repository, title string) fixture {
	t.Helper()
	ctx := context.Background()
	author, err := repo.CreateAuthor(ctx, AuthorInput{FirstName: "Big", LastName: "Bob"})
	require.NoError(t, err)
	genre, err := repo.CreateGenre(ctx, "fantastic")
	require.NoError(t, err)
	language, err := repo.CreateLanguage(ctx, "English")
	require.NoError(t, err)
	book, err := repo.CreateBook(ctx, BookInput{
		Title:      title,
		Summary:    "summary",
		ISBN:       "1234567890123",
		AuthorID:   &author.ID,
		LanguageID: &language.ID,
		GenreIDs:   []uint{genre.ID},
	})
	require.NoError(t, err)
	return fixture{author: author, genre: genre, language: language, book: book}
}

func newUser(t *testing.T, repo *Repository, name string) string {
	t.Helper()
	id := uuid.NewString()
	require.NoError(t, repo.EnsureUser(context.Background(), id, name))
	return id
}

func TestCreateBookEndToEnd(t *testing.T) {
	repo := setupTestRepo(t)
	f := seedBook(t, repo, "t")

	books, total, err := repo.ListBooksOrderedByTitle(context.Background(), Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, books, 1)

	book := books[0]
	assert.Equal(t, f.book.ID, book.ID)
	assert.Equal(t, "t", book.Title)
	assert.Equal(t, "1234567890123", book.ISBN)
	require.NotNil(t, book.Author)
	assert.Equal(t, "Bob Big", book.Author.String())
	require.NotNil(t, book.Language)
	assert.Equal(t, "English", book.Language.Name)
	assert.Equal(t, "fantastic", book.DisplayGenre())
}

func TestCreateBookValidation(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	genre, err := repo.CreateGenre(ctx, "poetry")
	require.NoError(t, err)

	tests := []struct {
		name  string
		input BookInput
		field string
	}{
		{"short isbn", BookInput{Title: "a", Summary: "s", ISBN: "123", GenreIDs: []uint{genre.ID}}, "isbn"},
		{"no genres", BookInput{Title: "a", Summary: "s", ISBN: "1234567890123"}, "genre"},
		{"missing title", BookInput{Summary: "s", ISBN: "1234567890123", GenreIDs: []uint{genre.ID}}, "title"},
		{"unknown author", BookInput{Title: "a", Summary: "s", ISBN: "1234567890123", GenreIDs: []uint{genre.ID}, AuthorID: uintPtr(99)}, "author"},
		{"unknown language", BookInput{Title: "a", Summary: "s", ISBN: "1234567890123", GenreIDs: []uint{genre.ID}, LanguageID: uintPtr(99)}, "language"},
		{"unknown genre", BookInput{Title: "a", Summary: "s", ISBN: "1234567890123", GenreIDs: []uint{genre.ID, 42}}, "genre"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateBook(ctx, tt.input)
			var verr *validator.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}

	n, err := repo.CountBooks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestUpdateBookReplacesGenres(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "Old title")
	scifi, err := repo.CreateGenre(ctx, "sci-fi")
	require.NoError(t, err)

	book, err := repo.UpdateBook(ctx, f.book.ID, BookInput{
		Title:    "New title",
		Summary:  "changed",
		ISBN:     "9999999999999",
		GenreIDs: []uint{scifi.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "New title", book.Title)
	assert.Nil(t, book.AuthorID)
	assert.Nil(t, book.LanguageID)
	assert.Equal(t, "sci-fi", book.DisplayGenre())

	_, err = repo.UpdateBook(ctx, 404, BookInput{Title: "x", Summary: "s", ISBN: "9999999999999", GenreIDs: []uint{scifi.ID}})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAuthorKeepsBooks(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")

	require.NoError(t, repo.DeleteAuthor(ctx, f.author.ID))

	book, err := repo.GetBook(ctx, f.book.ID)
	require.NoError(t, err)
	assert.Nil(t, book.AuthorID)
	assert.Nil(t, book.Author)

	_, err = repo.GetAuthor(ctx, f.author.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.DeleteAuthor(ctx, f.author.ID), ErrNotFound)
}

func TestDeleteLanguageKeepsBooks(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")

	require.NoError(t, repo.DeleteLanguage(ctx, f.language.ID))

	book, err := repo.GetBook(ctx, f.book.ID)
	require.NoError(t, err)
	assert.Nil(t, book.LanguageID)
	require.NotNil(t, book.AuthorID)
}

func TestDeleteGenreKeepsBooks(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")

	require.NoError(t, repo.DeleteGenre(ctx, f.genre.ID))

	book, err := repo.GetBook(ctx, f.book.ID)
	require.NoError(t, err)
	assert.Empty(t, book.Genres)
	assert.Equal(t, "", book.DisplayGenre())
}

func TestDeleteBookKeepsCopies(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")
	instance, err := repo.CreateInstance(ctx, InstanceInput{BookID: &f.book.ID, Imprint: "Penguin 1999"})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteBook(ctx, f.book.ID))

	got, err := repo.GetInstance(ctx, instance.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BookID)
	assert.Nil(t, got.Book)

	_, err = repo.GetGenre(ctx, f.genre.ID)
	assert.NoError(t, err)
}

func TestDeleteUserClearsBorrower(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")
	alice := newUser(t, repo, "alice")
	instance, err := repo.CreateInstance(ctx, InstanceInput{
		BookID: &f.book.ID, Imprint: "i", Status: models.StatusOnLoan,
		BorrowerID: &alice, DueBack: date("2026-10-01"),
	})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteUser(ctx, alice))

	got, err := repo.GetInstance(ctx, instance.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BorrowerID)
	assert.Equal(t, models.StatusOnLoan, got.Status)
	assert.ErrorIs(t, repo.DeleteUser(ctx, alice), ErrNotFound)
}

func TestCreateInstanceDefaultsAndValidation(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	a, err := repo.CreateInstance(ctx, InstanceInput{Imprint: "one"})
	require.NoError(t, err)
	b, err := repo.CreateInstance(ctx, InstanceInput{Imprint: "two"})
	require.NoError(t, err)
	assert.Equal(t, models.StatusMaintenance, a.Status)
	assert.NotEqual(t, a.ID, b.ID)
	_, err = uuid.Parse(a.ID)
	assert.NoError(t, err)

	tests := []struct {
		name  string
		input InstanceInput
		field string
	}{
		{"on loan without borrower", InstanceInput{Imprint: "x", Status: models.StatusOnLoan}, "borrower"},
		{"unknown status", InstanceInput{Imprint: "x", Status: "lost"}, "status"},
		{"missing imprint", InstanceInput{}, "imprint"},
		{"unknown borrower", InstanceInput{Imprint: "x", BorrowerID: strPtr(uuid.NewString())}, "borrower"},
		{"unknown book", InstanceInput{Imprint: "x", BookID: uintPtr(7)}, "book"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := repo.CreateInstance(ctx, tt.input)
			var verr *validator.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
		})
	}
}

func TestUpdateInstance(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")
	alice := newUser(t, repo, "alice")
	loaned, err := repo.CreateInstance(ctx, InstanceInput{
		BookID: &f.book.ID, Imprint: "Ace 1990", Status: models.StatusOnLoan,
		BorrowerID: &alice, DueBack: date("2026-10-01"),
	})
	require.NoError(t, err)

	tests := []struct {
		name       string
		id         string
		input      InstanceInput
		wantErr    error
		wantField  string
		wantStatus models.LoanStatus
	}{
		{"malformed id with empty input", "12", InstanceInput{}, ErrNotFound, "", ""},
		{"unknown id with empty input", uuid.NewString(), InstanceInput{}, ErrNotFound, "", ""},
		{"omitted status keeps stored status", loaned.ID, InstanceInput{BookID: &f.book.ID, Imprint: "Ace 1991", BorrowerID: &alice, DueBack: date("2026-10-02")}, nil, "", models.StatusOnLoan},
		{"missing imprint on known copy", loaned.ID, InstanceInput{BorrowerID: &alice}, nil, "imprint", ""},
		{"explicit status is applied", loaned.ID, InstanceInput{Imprint: "Ace 1991", Status: models.StatusAvailable}, nil, "", models.StatusAvailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.UpdateInstance(ctx, tt.id, tt.input)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantField != "":
				var verr *validator.ValidationError
				require.True(t, errors.As(err, &verr), "got %v", err)
				assert.Contains(t, verr.Fields, tt.wantField)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.wantStatus, got.Status)
				assert.Equal(t, "Ace 1991", got.Imprint)
			}
		})
	}
}

func TestGetInstanceUnknownID(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	_, err := repo.GetInstance(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetInstance(ctx, "12")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.SetDueBack(ctx, uuid.NewString(), time.Now())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListBorrowedByUser(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")
	alice := newUser(t, repo, "alice")
	bob := newUser(t, repo, "bob")

	late, err := repo.CreateInstance(ctx, InstanceInput{BookID: &f.book.ID, Imprint: "late", Status: models.StatusOnLoan, BorrowerID: &alice, DueBack: date("2026-12-01")})
	require.NoError(t, err)
	early, err := repo.CreateInstance(ctx, InstanceInput{BookID: &f.book.ID, Imprint: "early", Status: models.StatusOnLoan, BorrowerID: &alice, DueBack: date("2026-11-01")})
	require.NoError(t, err)
	_, err = repo.CreateInstance(ctx, InstanceInput{BookID: &f.book.ID, Imprint: "reserved", Status: models.StatusReserved, BorrowerID: &alice, DueBack: date("2026-10-01")})
	require.NoError(t, err)
	_, err = repo.CreateInstance(ctx, InstanceInput{BookID: &f.book.ID, Imprint: "bob's", Status: models.StatusOnLoan, BorrowerID: &bob, DueBack: date("2026-10-05")})
	require.NoError(t, err)

	instances, total, err := repo.ListBorrowedByUser(ctx, alice, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, instances, 2)
	assert.Equal(t, early.ID, instances[0].ID)
	assert.Equal(t, late.ID, instances[1].ID)
	require.NotNil(t, instances[0].Book)
	assert.Equal(t, "t", instances[0].Book.Title)

	paged, total, err := repo.ListBorrowedByUser(ctx, alice, Page{Number: 2, Size: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, paged, 1)
	assert.Equal(t, late.ID, paged[0].ID)
}

func TestListAllBorrowedKeepsStaleDueDates(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	alice := newUser(t, repo, "alice")

	onLoan, err := repo.CreateInstance(ctx, InstanceInput{Imprint: "a", Status: models.StatusOnLoan, BorrowerID: &alice, DueBack: date("2026-11-01")})
	require.NoError(t, err)
	reserved, err := repo.CreateInstance(ctx, InstanceInput{Imprint: "b", Status: models.StatusReserved, DueBack: date("2026-09-01")})
	require.NoError(t, err)
	_, err = repo.CreateInstance(ctx, InstanceInput{Imprint: "c", Status: models.StatusAvailable})
	require.NoError(t, err)

	instances, total, err := repo.ListAllBorrowed(ctx, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	require.Len(t, instances, 2)
	assert.Equal(t, reserved.ID, instances[0].ID)
	assert.Equal(t, onLoan.ID, instances[1].ID)
	require.NotNil(t, instances[1].Borrower)
	assert.Equal(t, "alice", instances[1].Borrower.Username)
}

func TestListInstancesPutsUndatedLast(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	undated, err := repo.CreateInstance(ctx, InstanceInput{Imprint: "undated"})
	require.NoError(t, err)
	dated, err := repo.CreateInstance(ctx, InstanceInput{Imprint: "dated", Status: models.StatusReserved, DueBack: date("2026-01-01")})
	require.NoError(t, err)

	instances, _, err := repo.ListInstances(ctx, Page{})
	require.NoError(t, err)
	require.Len(t, instances, 2)
	assert.Equal(t, dated.ID, instances[0].ID)
	assert.Equal(t, undated.ID, instances[1].ID)
}

func TestCounts(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	f := seedBook(t, repo, "t")
	_, err := repo.CreateInstance(ctx, InstanceInput{BookID: &f.book.ID, Imprint: "a", Status: models.StatusAvailable})
	require.NoError(t, err)
	_, err = repo.CreateInstance(ctx, InstanceInput{BookID: &f.book.ID, Imprint: "b"})
	require.NoError(t, err)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Books: 1, Instances: 2, AvailableInstances: 1, Authors: 1}, counts)
}

func TestSetDueBackOnlyTouchesDueDate(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	alice := newUser(t, repo, "alice")
	instance, err := repo.CreateInstance(ctx, InstanceInput{Imprint: "a", Status: models.StatusOnLoan, BorrowerID: &alice, DueBack: date("2026-10-20")})
	require.NoError(t, err)

	got, err := repo.SetDueBack(ctx, instance.ID, *date("2026-11-10"))
	require.NoError(t, err)
	require.NotNil(t, got.DueBack)
	assert.Equal(t, "2026-11-10", got.DueBack.Format(models.DateLayout))
	assert.Equal(t, models.StatusOnLoan, got.Status)
	require.NotNil(t, got.BorrowerID)
	assert.Equal(t, alice, *got.BorrowerID)
}

func TestAuthorCRUD(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	author, err := repo.CreateAuthor(ctx, AuthorInput{FirstName: "Ursula", LastName: "Le Guin", DateOfBirth: date("1929-10-21")})
	require.NoError(t, err)

	updated, err := repo.UpdateAuthor(ctx, author.ID, AuthorInput{
		FirstName: "Ursula", LastName: "Le Guin",
		DateOfBirth: date("1929-10-21"), DateOfDeath: date("2018-01-22"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.DateOfDeath)
	assert.Equal(t, "2018-01-22", updated.DateOfDeath.Format(models.DateLayout))

	_, err = repo.CreateAuthor(ctx, AuthorInput{FirstName: string(make([]byte, 101)), LastName: "x"})
	var verr *validator.ValidationError
	assert.True(t, errors.As(err, &verr))

	authors, total, err := repo.ListAuthors(ctx, Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, authors, 1)
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	id := uuid.NewString()

	require.NoError(t, repo.EnsureUser(ctx, id, "carol"))
	require.NoError(t, repo.EnsureUser(ctx, id, "carol"))

	user, err := repo.GetUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "carol", user.Username)

	var verr *validator.ValidationError
	assert.True(t, errors.As(repo.EnsureUser(ctx, "not-a-uuid", "x"), &verr))
}

func TestEnsureUserRejectsTakenUsername(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	first := uuid.NewString()
	second := uuid.NewString()
	require.NoError(t, repo.EnsureUser(ctx, first, "alice"))

	err := repo.EnsureUser(ctx, second, "alice")
	var verr *validator.ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Contains(t, verr.Fields, "username")

	_, err = repo.GetUser(ctx, second)
	assert.ErrorIs(t, err, ErrNotFound)

	// a known id keeps working whatever name it arrives with
	require.NoError(t, repo.EnsureUser(ctx, first, "alice"))
	require.NoError(t, repo.EnsureUser(ctx, first, "alice-renamed"))
	user, err := repo.GetUser(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
}
