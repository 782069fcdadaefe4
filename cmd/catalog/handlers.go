package main

import (
	"log/slog"
	"net/http"

	"library_catalog/pkg/access"
	"library_catalog/pkg/catalog"
	"library_catalog/pkg/circulation"
	"library_catalog/pkg/models"
	"library_catalog/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	sessionCookie = "catalog_session"
	sessionMaxAge = 30 * 24 * 60 * 60
)

func index(c *gin.Context) {
	counts, err := repo.Counts(c.Request.Context())
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"num_books":               counts.Books,
		"num_instances":           counts.Instances,
		"num_instances_available": counts.AvailableInstances,
		"num_authors":             counts.Authors,
		"num_visits":              previousVisits(c),
	})
}

// previousVisits records this visit and reports how many came before it in
// the same session. Counter failures report 0.
func previousVisits(c *gin.Context) int64 {
	session, err := c.Cookie(sessionCookie)
	if err != nil || session == "" {
		session = uuid.NewString()
	}
	c.SetCookie(sessionCookie, session, sessionMaxAge, "/", "", false, true)

	n, err := visitCounter.Hit(c.Request.Context(), session)
	if err != nil {
		slog.Warn("visit counter unavailable", "err", err)
		return 0
	}
	return n - 1
}

func listBooks(c *gin.Context) {
	page := pageParams(c)
	books, total, err := repo.ListBooksOrderedByTitle(c.Request.Context(), page)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	items := make([]gin.H, len(books))
	for i, b := range books {
		items[i] = bookJSON(b)
	}
	c.JSON(http.StatusOK, pageResponse(page, total, items))
}

func bookDetail(c *gin.Context) {
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
	instances, err := repo.InstancesOfBook(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	resp := bookJSON(*book)
	resp["instances"] = instanceItems(instances, now())
	c.JSON(http.StatusOK, resp)
}

func listAuthors(c *gin.Context) {
	page := pageParams(c)
	authors, total, err := repo.ListAuthors(c.Request.Context(), page)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	items := make([]gin.H, len(authors))
	for i, a := range authors {
		items[i] = authorJSON(a)
	}
	c.JSON(http.StatusOK, pageResponse(page, total, items))
}

func authorDetail(c *gin.Context) {
	id, err := uintParam(c, "id")
	if err != nil {
		respondError(c, err, nil)
		return
	}
	author, err := repo.GetAuthor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	books, err := repo.BooksByAuthor(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	items := make([]gin.H, len(books))
	for i, b := range books {
		items[i] = gin.H{"id": b.ID, "title": b.Title, "display_genre": b.DisplayGenre()}
	}
	resp := authorJSON(*author)
	resp["books"] = items
	c.JSON(http.StatusOK, resp)
}

func myBooks(c *gin.Context) {
	viewer := viewerFrom(c)
	if !viewer.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	page := pageParams(c)
	instances, total, err := repo.ListBorrowedByUser(c.Request.Context(), viewer.UserID, page)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, pageResponse(page, total, instanceItems(instances, now())))
}

func allBorrowed(c *gin.Context) {
	if !viewerFrom(c).Can(access.ManageLoans) {
		respondError(c, catalog.ErrPermissionDenied, nil)
		return
	}
	page := pageParams(c)
	instances, total, err := repo.ListAllBorrowed(c.Request.Context(), page)
	if err != nil {
		respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, pageResponse(page, total, instanceItems(instances, now())))
}

type renewRequest struct {
	RenewalDate string `json:"renewal_date" form:"renewal_date"`
}

func renewForm(c *gin.Context) {
	if !viewerFrom(c).Can(access.ManageLoans) {
		respondError(c, catalog.ErrPermissionDenied, nil)
		return
	}
	instance, err := repo.GetInstance(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, nil)
		return
	}
	today := now()
	c.JSON(http.StatusOK, gin.H{
		"renewal_date": circulation.DefaultRenewalDate(today).Format(models.DateLayout),
		"instance":     instanceJSON(*instance, today),
	})
}

func renewSubmit(c *gin.Context) {
	viewer := viewerFrom(c)
	if !viewer.Can(access.ManageLoans) {
		respondError(c, catalog.ErrPermissionDenied, nil)
		return
	}
	var req renewRequest
	if err := c.ShouldBind(&req); err != nil {
		respondError(c, validator.FromBinding(err), req)
		return
	}
	due, err := circulation.ParseRenewalDate(req.RenewalDate)
	if err != nil {
		respondError(c, err, req)
		return
	}
	if _, err := circulation.RenewLoan(c.Request.Context(), repo, c.Param("id"), due, viewer); err != nil {
		respondError(c, err, req)
		return
	}
	c.Redirect(http.StatusSeeOther, "/catalog/borrowed/")
}
