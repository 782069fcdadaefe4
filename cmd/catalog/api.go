package main

import (
	"net/http"

	"library_catalog/pkg/catalog"
	"library_catalog/pkg/models"
	"library_catalog/pkg/validator"

	"github.com/gin-gonic/gin"
)

func apiListBooks(c *gin.Context) {
	page := pageParams(c)
	books, total, err := repo.ListBooksOrderedByTitle(c.Request.Context(), page)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	items := make([]gin.H, len(books))
	for i, b := range books {
		items[i] = bookRecord(b)
	}
	c.JSON(http.StatusOK, pageResponse(page, total, items))
}

func apiGetBook(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	book, err := repo.GetBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, bookRecord(*book))
}

func apiCreateBook(c *gin.Context) {
	req, ok := bindBook(c)
	if !ok {
		return
	}
	book, err := repo.CreateBook(c.Request.Context(), req.input())
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusCreated, bookRecord(*book))
}

func apiUpdateBook(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	req, ok := bindBook(c)
	if !ok {
		return
	}
	book, err := repo.UpdateBook(c.Request.Context(), id, req.input())
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusOK, bookRecord(*book))
}

func apiDeleteBook(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if err := repo.DeleteBook(c.Request.Context(), id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

// genres and languages share a request shape and record shape

type nameRequest struct {
	Name string `json:"name" form:"name" binding:"required,max=200"`
}

func bindName(c *gin.Context) (nameRequest, bool) {
	var req nameRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, validator.FromBinding(err), req)
		return req, false
	}
	return req, true
}

func apiListGenres(c *gin.Context) {
	genres, err := repo.ListGenres(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	items := make([]gin.H, len(genres))
	for i, g := range genres {
		items[i] = gin.H{"id": g.ID, "name": g.Name}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func apiCreateGenre(c *gin.Context) {
	req, ok := bindName(c)
	if !ok {
		return
	}
	genre, err := repo.CreateGenre(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": genre.ID, "name": genre.Name})
}

func apiUpdateGenre(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	req, ok := bindName(c)
	if !ok {
		return
	}
	genre, err := repo.UpdateGenre(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": genre.ID, "name": genre.Name})
}

func apiDeleteGenre(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if err := repo.DeleteGenre(c.Request.Context(), id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func apiListLanguages(c *gin.Context) {
	languages, err := repo.ListLanguages(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	items := make([]gin.H, len(languages))
	for i, l := range languages {
		items[i] = gin.H{"id": l.ID, "name": l.Name}
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func apiCreateLanguage(c *gin.Context) {
	req, ok := bindName(c)
	if !ok {
		return
	}
	language, err := repo.CreateLanguage(c.Request.Context(), req.Name)
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": language.ID, "name": language.Name})
}

func apiUpdateLanguage(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	req, ok := bindName(c)
	if !ok {
		return
	}
	language, err := repo.UpdateLanguage(c.Request.Context(), id, req.Name)
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": language.ID, "name": language.Name})
}

func apiDeleteLanguage(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	if err := repo.DeleteLanguage(c.Request.Context(), id); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

type instanceRequest struct {
	Book     *uint   `json:"book" form:"book"`
	Imprint  string  `json:"imprint" form:"imprint" binding:"required,max=200"`
	DueBack  string  `json:"due_back" form:"due_back" binding:"omitempty,datestr"`
	Status   string  `json:"status" form:"status" binding:"omitempty,oneof=maintenance on-loan available reserved"`
	Borrower *string `json:"borrower" form:"borrower"`
}

func bindInstance(c *gin.Context) (instanceRequest, catalog.InstanceInput, bool) {
	var req instanceRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, validator.FromBinding(err), req)
		return req, catalog.InstanceInput{}, false
	}
	due, err := parseOptionalDate("due_back", req.DueBack)
	if err != nil {
		respondError(c, err, req)
		return req, catalog.InstanceInput{}, false
	}
	return req, catalog.InstanceInput{
		BookID:     optionalID(req.Book),
		Imprint:    req.Imprint,
		DueBack:    due,
		Status:     models.LoanStatus(req.Status),
		BorrowerID: optionalString(req.Borrower),
	}, true
}

func apiListInstances(c *gin.Context) {
	page := pageParams(c)
	instances, total, err := repo.ListInstances(c.Request.Context(), page)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, pageResponse(page, total, instanceItems(instances, now())))
}

func apiGetInstance(c *gin.Context) {
	instance, err := repo.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, instanceJSON(*instance, now()))
}

func apiCreateInstance(c *gin.Context) {
	req, in, ok := bindInstance(c)
	if !ok {
		return
	}
	instance, err := repo.CreateInstance(c.Request.Context(), in)
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusCreated, instanceJSON(*instance, now()))
}

func apiUpdateInstance(c *gin.Context) {
	req, in, ok := bindInstance(c)
	if !ok {
		return
	}
	instance, err := repo.UpdateInstance(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		respondError(c, err, req)
		return
	}
	c.JSON(http.StatusOK, instanceJSON(*instance, now()))
}

func apiDeleteInstance(c *gin.Context) {
	if err := repo.DeleteInstance(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}

func apiDeleteUser(c *gin.Context) {
	if err := repo.DeleteUser(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err, nil)
		return
	}
	c.Status(http.StatusNoContent)
}
