package postgres

import (
	"context"
	"errors"

	"cinelog/errs"
	"cinelog/movie"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const seedBatchSize = 500

// MovieModel represents the database model for movies.
// A NULL rating means the movie is unrated.
type MovieModel struct {
	ID     int64    `gorm:"primaryKey"`
	Title  string   `gorm:"size:100;not null"`
	Rating *float64 `gorm:"column:rating"`
}

// TableName specifies the table name for GORM
func (MovieModel) TableName() string {
	return "movies"
}

func (m MovieModel) toMovie() movie.Movie {
	return movie.Movie{
		ID:     m.ID,
		Title:  m.Title,
		Rating: m.Rating,
	}
}

func toMovieModel(m movie.Movie) MovieModel {
	return MovieModel{
		ID:     m.ID,
		Title:  m.Title,
		Rating: m.Rating,
	}
}

// MovieRepository implements movie.Repository on top of gorm.
type MovieRepository struct {
	db *gorm.DB
}

// NewMovieRepository creates a new movie repository
func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

func (r *MovieRepository) AllMovies(ctx context.Context) ([]movie.Movie, error) {
	var models []MovieModel
	if err := r.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, errs.Internal(err, "cannot list movies")
	}
	return toMovies(models), nil
}

func (r *MovieRepository) UnratedMovies(ctx context.Context) ([]movie.Movie, error) {
	var models []MovieModel
	err := r.db.WithContext(ctx).
		Where("rating IS NULL").
		Order("id").
		Find(&models).Error
	if err != nil {
		return nil, errs.Internal(err, "cannot list unrated movies")
	}
	return toMovies(models), nil
}

func (r *MovieRepository) GetByID(ctx context.Context, id int64) (movie.Movie, error) {
	model, err := findMovie(r.db.WithContext(ctx), id)
	if err != nil {
		return movie.Movie{}, err
	}
	return model.toMovie(), nil
}

func (r *MovieRepository) CreateMovie(ctx context.Context, m movie.Movie) (movie.Movie, error) {
	model := toMovieModel(m)
	model.ID = 0
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return movie.Movie{}, errs.Internal(err, "cannot create movie")
	}
	return model.toMovie(), nil
}

// CreateMovies inserts all movies in one transaction; either every row is
// stored or none is.
func (r *MovieRepository) CreateMovies(ctx context.Context, movies []movie.Movie) (int, error) {
	if len(movies) == 0 {
		return 0, nil
	}

	models := make([]MovieModel, len(movies))
	for i, m := range movies {
		models[i] = toMovieModel(m)
		models[i].ID = 0
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&models, seedBatchSize).Error
	})
	if err != nil {
		return 0, errs.Internal(err, "cannot create movies")
	}
	return len(models), nil
}

func (r *MovieRepository) UpdateMovie(ctx context.Context, id int64, u movie.Update) (movie.Movie, error) {
	var updated movie.Movie
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findMovie(lockForUpdate(tx), id)
		if err != nil {
			return err
		}

		updated = u.Apply(model.toMovie())
		res := tx.Model(&MovieModel{ID: id}).
			Select("title", "rating").
			Updates(toMovieModel(updated))
		if res.Error != nil {
			return errs.Internal(res.Error, "cannot update movie")
		}
		// Never fall back to an insert: a row gone by now stays gone.
		if res.RowsAffected == 0 {
			return movie.ErrMovieNotFound
		}
		return nil
	})
	if err != nil {
		return movie.Movie{}, asAppError(err, "cannot update movie")
	}
	return updated, nil
}

func (r *MovieRepository) DeleteMovie(ctx context.Context, id int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		model, err := findMovie(lockForUpdate(tx), id)
		if err != nil {
			return err
		}

		if err := tx.Delete(&model).Error; err != nil {
			return errs.Internal(err, "cannot delete movie")
		}
		return nil
	})
	return asAppError(err, "cannot delete movie")
}

func findMovie(db *gorm.DB, id int64) (MovieModel, error) {
	var model MovieModel
	err := db.First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return MovieModel{}, movie.ErrMovieNotFound
	}
	if err != nil {
		return MovieModel{}, errs.Internal(err, "cannot get movie")
	}
	return model, nil
}

// lockForUpdate makes the read hold the row until the transaction ends, so
// concurrent updates and deletes of one movie are serialized.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// asAppError keeps application errors raised inside a transaction and wraps
// anything else (begin/commit failures) as internal.
func asAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *errs.Error
	if errors.As(err, &appErr) {
		return err
	}
	return errs.Internal(err, "%s", message)
}

func toMovies(models []MovieModel) []movie.Movie {
	movies := make([]movie.Movie, len(models))
	for i, model := range models {
		movies[i] = model.toMovie()
	}
	return movies
}
