package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"library_catalog/pkg/catalog"
	"library_catalog/pkg/models"
	"library_catalog/pkg/validator"

	"github.com/gin-gonic/gin"
)

func isValidation(err error) bool {
	var verr *validator.ValidationError
	return errors.As(err, &verr)
}

// respondError maps catalog errors onto HTTP statuses. Validation failures
// echo input back next to the field errors.
func respondError(c *gin.Context, err error, input any) {
	var verr *validator.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"errors": verr.Fields, "input": input})
	case errors.Is(err, catalog.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, catalog.ErrPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": "permission denied"})
	default:
		slog.Error("request failed",
			"err", err,
			"path", c.Request.URL.Path,
			"request_id", c.GetString(requestIDKey),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func pageParams(c *gin.Context) catalog.Page {
	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil || page < 1 {
		page = 1
	}
	size, err := strconv.Atoi(c.DefaultQuery("size", "10"))
	if err != nil || size < 1 || size > 100 {
		size = 10
	}
	return catalog.Page{Number: page, Size: size}
}

func pageResponse(p catalog.Page, total int64, items []gin.H) gin.H {
	return gin.H{
		"page":          p.Number,
		"pageSize":      p.Size,
		"totalElements": total,
		"items":         items,
	}
}

func uintParam(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, catalog.ErrNotFound
	}
	return uint(id), nil
}

func formatDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(models.DateLayout)
}

// parseOptionalDate reads an optional YYYY-MM-DD value reported under field.
func parseOptionalDate(field, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := models.ParseDate(raw)
	if err != nil {
		return nil, validator.Field(field, "must be a date in YYYY-MM-DD format")
	}
	return &d, nil
}

func authorJSON(a models.Author) gin.H {
	return gin.H{
		"id":            a.ID,
		"first_name":    a.FirstName,
		"last_name":     a.LastName,
		"name":          a.String(),
		"date_of_birth": formatDate(a.DateOfBirth),
		"date_of_death": formatDate(a.DateOfDeath),
	}
}

func bookJSON(b models.Book) gin.H {
	var author, language any
	if b.Author != nil {
		author = gin.H{"id": b.Author.ID, "name": b.Author.String()}
	}
	if b.Language != nil {
		language = gin.H{"id": b.Language.ID, "name": b.Language.Name}
	}
	genres := make([]gin.H, len(b.Genres))
	for i, g := range b.Genres {
		genres[i] = gin.H{"id": g.ID, "name": g.Name}
	}
	return gin.H{
		"id":            b.ID,
		"title":         b.Title,
		"summary":       b.Summary,
		"isbn":          b.ISBN,
		"author":        author,
		"language":      language,
		"genres":        genres,
		"display_genre": b.DisplayGenre(),
	}
}

// bookRecord is the REST representation: every Book column with references
// as ids.
func bookRecord(b models.Book) gin.H {
	return gin.H{
		"id":       b.ID,
		"title":    b.Title,
		"author":   b.AuthorID,
		"summary":  b.Summary,
		"isbn":     b.ISBN,
		"genre":    b.GenreIDs(),
		"language": b.LanguageID,
	}
}

func instanceJSON(bi models.BookInstance, today time.Time) gin.H {
	var book, borrower any
	if bi.Book != nil {
		book = gin.H{"id": bi.Book.ID, "title": bi.Book.Title}
	}
	if bi.Borrower != nil {
		borrower = gin.H{"id": bi.Borrower.ID, "username": bi.Borrower.Username}
	}
	return gin.H{
		"id":         bi.ID,
		"imprint":    bi.Imprint,
		"status":     bi.Status,
		"due_back":   formatDate(bi.DueBack),
		"is_overdue": bi.IsOverdue(today),
		"book":       book,
		"borrower":   borrower,
	}
}

func instanceItems(instances []models.BookInstance, today time.Time) []gin.H {
	items := make([]gin.H, len(instances))
	for i, bi := range instances {
		items[i] = instanceJSON(bi, today)
	}
	return items
}
