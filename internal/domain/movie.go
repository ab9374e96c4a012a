package domain

import (
	"strings"
	"time"
)

// GenreSeparator joins the genre list in storage and in the CSV files.
const GenreSeparator = "|"

// Movie represents the canonical movie entity in the database/service.
type Movie struct {
	ID        int
	Title     string
	Genres    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GenreList splits the stored genre string into its ordered entries.
func (m Movie) GenreList() []string {
	if m.Genres == "" {
		return []string{}
	}
	return strings.Split(m.Genres, GenreSeparator)
}

// JoinGenres builds the stored representation of a genre list.
func JoinGenres(genres []string) string {
	return strings.Join(genres, GenreSeparator)
}
