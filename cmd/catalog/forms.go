package main

import (
	"fmt"
	"net/http"

	"library_catalog/pkg/catalog"
	"library_catalog/pkg/validator"

	"github.com/gin-gonic/gin"
)

type authorRequest struct {
	FirstName   string `json:"first_name" form:"first_name" binding:"required,max=100"`
	LastName    string `json:"last_name" form:"last_name" binding:"required,max=100"`
	DateOfBirth string `json:"date_of_birth" form:"date_of_birth" binding:"omitempty,datestr"`
	DateOfDeath string `json:"date_of_death" form:"date_of_death" binding:"omitempty,datestr"`
}

func (r authorRequest) input() (catalog.AuthorInput, error) {
	born, err := parseOptionalDate("date_of_birth", r.DateOfBirth)
	if err != nil {
		return catalog.AuthorInput{}, err
	}
	died, err := parseOptionalDate("date_of_death", r.DateOfDeath)
	if err != nil {
		return catalog.AuthorInput{}, err
	}
	return catalog.AuthorInput{
		FirstName:   r.FirstName,
		LastName:    r.LastName,
		DateOfBirth: born,
		DateOfDeath: died,
	}, nil
}

type bookRequest struct {
	Title    string `json:"title" form:"title" binding:"required,max=200"`
	Summary  string `json:"summary" form:"summary" binding:"required,max=1000"`
	ISBN     string `json:"isbn" form:"isbn" binding:"required,len=13"`
	Author   *uint  `json:"author" form:"author"`
	Language *uint  `json:"language" form:"language"`
	Genre    []uint `json:"genre" form:"genre" binding:"required,min=1"`
}

func (r bookRequest) input() catalog.BookInput {
	return catalog.BookInput{
		Title:      r.Title,
		Summary:    r.Summary,
		ISBN:       r.ISBN,
		AuthorID:   optionalID(r.Author),
		LanguageID: optionalID(r.Language),
		GenreIDs:   r.Genre,
	}
}

// optionalID treats an empty select (bound as 0) as no reference.
func optionalID(id *uint) *uint {
	if id == nil || *id == 0 {
		return nil
	}
	return id
}

func optionalString(s *string) *string {
	if s == nil || *s == "" {
		return nil
	}
	return s
}

// bindAuthor binds and converts the request, writing the 400 itself on
// failure.
func bindAuthor(c *gin.Context) (authorRequest, catalog.AuthorInput, bool) {
	var req authorRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, validator.FromBinding(err), req)
		return req, catalog.AuthorInput{}, false
	}
	in, err := req.input()
	if err != nil {
		respondError(c, err, req)
		return req, catalog.AuthorInput{}, false
	}
	return req, in, true
}

func bindBook(c *gin.Context) (bookRequest, bool) {
	var req bookRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, validator.FromBinding(err), req)
		return req, false
	}
	return req, true
}

func createAuthorForm(c *gin.Context) {
	req, in, ok := bindAuthor(c)
	if !ok {
		return
	}
	author, err := repo.CreateAuthor(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/catalog/author/%d/", author.ID))
}

func updateAuthorForm(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	req, in, ok := bindAuthor(c)
	if !ok {
		return
	}
	if _, err := repo.UpdateAuthor(c.Request.Context(), id, in); err != nil {
		respondError(c, err, req)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/catalog/author/%d/", id))
}

func deleteAuthorForm(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if err := repo.DeleteAuthor(c.Request.Context(), id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Redirect(http.StatusSeeOther, "/catalog/authors/")
}

func createBookForm(c *gin.Context) {
	req, ok := bindBook(c)
	if !ok {
		return
	}
	book, err := repo.CreateBook(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/catalog/book/%d/", book.ID))
}

func updateBookForm(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	req, ok := bindBook(c)
	if !ok {
		return
	}
	if _, err := repo.UpdateBook(c.Request.Context(), id, req.input()); err != nil {
		respondError(c, err, req)
		return
	}
	c.Redirect(http.StatusSeeOther, fmt.Sprintf("/catalog/book/%d/", id))
}

func deleteBookForm(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if err := repo.DeleteBook(c.Request.Context(), id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Redirect(http.StatusSeeOther, "/catalog/books/")
}
