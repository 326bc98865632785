package movie

import (
	"strings"
	"unicode/utf8"

	"cinelog/errs"
)

// MaxTitleLength mirrors the width of the movies.title column.
const MaxTitleLength = 100

var (
	ErrInvalidID     = errs.Errorf(errs.EINVALID, "invalid movie id")
	ErrTitleRequired = errs.Errorf(errs.EINVALID, "title is required")
	ErrTitleTooLong  = errs.Errorf(errs.EINVALID, "title must be at most 100 characters")
	ErrMovieNotFound = errs.Errorf(errs.ENOTFOUND, "movie not found")
)

// Movie is a single row of the movie catalogue. A nil Rating means the movie
// has not been rated yet, which is not the same as a rating of zero.
type Movie struct {
	ID     int64    `json:"id"`
	Title  string   `json:"title"`
	Rating *float64 `json:"rating"`
}

func (m Movie) Validate() error {
	return validateTitle(m.Title)
}

// Update describes a partial update. Nil Title keeps the stored title.
// Rating is only touched when SetRating is true, in which case a nil Rating
// clears it back to unset.
type Update struct {
	Title     *string
	Rating    *float64
	SetRating bool
}

func (u Update) Validate() error {
	if u.Title == nil {
		return nil
	}
	return validateTitle(*u.Title)
}

// Apply returns m with the supplied fields overwritten. The id never changes.
func (u Update) Apply(m Movie) Movie {
	if u.Title != nil {
		m.Title = *u.Title
	}
	if u.SetRating {
		m.Rating = copyRating(u.Rating)
	}
	return m
}

// Empty reports whether the update carries no field at all.
func (u Update) Empty() bool {
	return u.Title == nil && !u.SetRating
}

func validateTitle(title string) error {
	if strings.TrimSpace(title) == "" {
		return ErrTitleRequired
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func copyRating(r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := *r
	return &v
}
