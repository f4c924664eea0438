package models

import "unicode/utf8"

// Category codes used by the hitokoto sentence bundle.
const (
	CategoryAnime      = "a"
	CategoryComic      = "b"
	CategoryGame       = "c"
	CategoryLiterature = "d"
	CategoryOriginal   = "e"
	CategoryInternet   = "f"
	CategoryOther      = "g"
	CategoryVideo      = "h"
	CategoryPoem       = "i"
	CategoryNetEase    = "j"
	CategoryPhilosophy = "k"
	CategoryJoke       = "l"
)

// Quote is one record of the corpus. Rows are immutable once stored.
type Quote struct {
	ID         int64   `json:"id"`
	UUID       string  `json:"uuid"`
	Text       string  `json:"text"`
	Type       string  `json:"type"`
	FromSource string  `json:"from"`
	FromWho    *string `json:"from_who"`
	Length     int     `json:"length"`
}

// TextLength returns the length stored alongside a quote's text, counted in characters.
func TextLength(text string) int {
	return utf8.RuneCountInString(text)
}

// HasConsistentLength reports whether Length matches the text it was derived from.
func (q *Quote) HasConsistentLength() bool {
	return q.Length == TextLength(q.Text)
}
