package httpserver

import (
	"bytes"
	"encoding/json"

	"cinelog/errs"
	"cinelog/movie"
)

var errNullTitle = errs.Errorf(errs.EINVALID, "title cannot be null")

// Optional records whether a JSON key was present at all, which a plain
// pointer cannot: an explicit null gives Set=true and Value=nil.
type Optional[T any] struct {
	Set   bool
	Value *T
}

func (o *Optional[T]) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

type AddMovieRequest struct {
	Title  string   `json:"title" validate:"required,notblank,max=100"`
	Rating *float64 `json:"rating"`
}

func (r AddMovieRequest) ToMovie() movie.Movie {
	return movie.Movie{
		Title:  r.Title,
		Rating: r.Rating,
	}
}

// UpdateMovieRequest only touches the keys present in the body.
// "rating": null clears the rating; "title": null is rejected.
type UpdateMovieRequest struct {
	Title  Optional[string]  `json:"title"`
	Rating Optional[float64] `json:"rating"`
}

func (r UpdateMovieRequest) ToUpdate() (movie.Update, error) {
	if r.Title.Set && r.Title.Value == nil {
		return movie.Update{}, errNullTitle
	}

	return movie.Update{
		Title:     r.Title.Value,
		Rating:    r.Rating.Value,
		SetRating: r.Rating.Set,
	}, nil
}
