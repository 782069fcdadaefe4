package main

import (
	"errors"
	"sync"

	"library_catalog/pkg/access"
	"library_catalog/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

func registerValidation() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*playground.Validate)
		if !ok {
			err = errors.New("gin binding engine is not go-playground/validator")
			return
		}
		err = validator.RegisterTagNames(v)
	})
	return err
}

func newRouter(rps float64, burst int) (*gin.Engine, error) {
	if err := registerValidation(); err != nil {
		return nil, err
	}

	server := gin.New()
	server.Use(requestID(), requestLogger(), gin.CustomRecovery(recoverPanic))
	if rps > 0 {
		server.Use(rateLimit(rps, burst))
	}

	server.GET("/manage/health", healthCheck)

	site := server.Group("/catalog", resolveViewer())
	site.GET("/", index)
	site.GET("/books/", listBooks)
	site.POST("/books/", requireCapability(access.EditCatalog), createBookForm)
	site.GET("/book/:id/", bookDetail)
	site.POST("/book/:id/update/", requireCapability(access.EditCatalog), updateBookForm)
	site.POST("/book/:id/delete/", requireCapability(access.EditCatalog), deleteBookForm)
	site.GET("/book/:id/renew/", renewForm)
	site.POST("/book/:id/renew/", renewSubmit)
	site.GET("/authors/", listAuthors)
	site.POST("/authors/", requireCapability(access.EditCatalog), createAuthorForm)
	site.GET("/author/:id/", authorDetail)
	site.POST("/author/:id/update/", requireCapability(access.EditCatalog), updateAuthorForm)
	site.POST("/author/:id/delete/", requireCapability(access.EditCatalog), deleteAuthorForm)
	site.GET("/mybooks/", myBooks)
	site.GET("/borrowed/", allBorrowed)

	api := server.Group("/api/v1", resolveViewer())
	api.GET("/books", apiListBooks)
	api.GET("/books/:id", apiGetBook)
	api.GET("/genres", apiListGenres)
	api.GET("/languages", apiListLanguages)

	staff := api.Group("", requireCapability(access.EditCatalog))
	staff.POST("/books", apiCreateBook)
	staff.PUT("/books/:id", apiUpdateBook)
	staff.DELETE("/books/:id", apiDeleteBook)
	staff.POST("/genres", apiCreateGenre)
	staff.PUT("/genres/:id", apiUpdateGenre)
	staff.DELETE("/genres/:id", apiDeleteGenre)
	staff.POST("/languages", apiCreateLanguage)
	staff.PUT("/languages/:id", apiUpdateLanguage)
	staff.DELETE("/languages/:id", apiDeleteLanguage)
	staff.GET("/instances", apiListInstances)
	staff.POST("/instances", apiCreateInstance)
	staff.GET("/instances/:id", apiGetInstance)
	staff.PUT("/instances/:id", apiUpdateInstance)
	staff.DELETE("/instances/:id", apiDeleteInstance)
	staff.DELETE("/users/:id", apiDeleteUser)

	return server, nil
}
