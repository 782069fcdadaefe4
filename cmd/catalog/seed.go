package main

import (
	"context"
	"log/slog"

	"library_catalog/pkg/catalog"
	"library_catalog/pkg/models"
)

// seedTestData adds a small demo catalog when the database has no books.
func seedTestData(ctx context.Context) {
	n, err := repo.CountBooks(ctx)
	if err != nil {
		slog.Error("seed: count books", "err", err)
		return
	}
	if n > 0 {
		slog.Info("seed: catalog already has books, skipping", "books", n)
		return
	}

	genre, err := repo.CreateGenre(ctx, "Fantasy")
	if err != nil {
		slog.Error("seed: create genre", "err", err)
		return
	}
	language, err := repo.CreateLanguage(ctx, "English")
	if err != nil {
		slog.Error("seed: create language", "err", err)
		return
	}
	author, err := repo.CreateAuthor(ctx, catalog.AuthorInput{FirstName: "Ursula", LastName: "Le Guin"})
	if err != nil {
		slog.Error("seed: create author", "err", err)
		return
	}
	book, err := repo.CreateBook(ctx, catalog.BookInput{
		Title:      "A Wizard of Earthsea",
		Summary:    "A young mage unleashes a shadow and must hunt it across the archipelago.",
		ISBN:       "9780547773742",
		AuthorID:   &author.ID,
		LanguageID: &language.ID,
		GenreIDs:   []uint{genre.ID},
	})
	if err != nil {
		slog.Error("seed: create book", "err", err)
		return
	}
	instance, err := repo.CreateInstance(ctx, catalog.InstanceInput{
		BookID:  &book.ID,
		Imprint: "Houghton Mifflin, 2012",
		Status:  models.StatusAvailable,
	})
	if err != nil {
		slog.Error("seed: create copy", "err", err)
		return
	}
	slog.Info("catalog demo data seeded", "book", book.Title, "copy", instance.ID)
}
