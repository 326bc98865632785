package movie

import "context"

type Service interface {
	ListMovies(ctx context.Context) ([]Movie, error)
	ListUnratedMovies(ctx context.Context) ([]Movie, error)
	GetMovie(ctx context.Context, id int64) (Movie, error)
	AddMovie(ctx context.Context, m Movie) (Movie, error)
	UpdateMovie(ctx context.Context, id int64, u Update) (Movie, error)
	DeleteMovie(ctx context.Context, id int64) error
}

// Repository is the persistence port. Implementations return ErrMovieNotFound
// for a missing id and wrap any other store failure as errs.EINTERNAL.
type Repository interface {
	AllMovies(ctx context.Context) ([]Movie, error)
	UnratedMovies(ctx context.Context) ([]Movie, error)
	GetByID(ctx context.Context, id int64) (Movie, error)
	CreateMovie(ctx context.Context, m Movie) (Movie, error)
	UpdateMovie(ctx context.Context, id int64, u Update) (Movie, error)
	DeleteMovie(ctx context.Context, id int64) error
}

type Usecase struct {
	r Repository
}

func NewUsecase(r Repository) *Usecase {
	return &Usecase{r: r}
}

func (uc *Usecase) ListMovies(ctx context.Context) ([]Movie, error) {
	return uc.r.AllMovies(ctx)
}

func (uc *Usecase) ListUnratedMovies(ctx context.Context) ([]Movie, error) {
	return uc.r.UnratedMovies(ctx)
}

func (uc *Usecase) GetMovie(ctx context.Context, id int64) (Movie, error) {
	if id <= 0 {
		return Movie{}, ErrInvalidID
	}
	return uc.r.GetByID(ctx, id)
}

func (uc *Usecase) AddMovie(ctx context.Context, m Movie) (Movie, error) {
	if err := m.Validate(); err != nil {
		return Movie{}, err
	}
	// the store assigns the id
	m.ID = 0
	return uc.r.CreateMovie(ctx, m)
}

func (uc *Usecase) UpdateMovie(ctx context.Context, id int64, u Update) (Movie, error) {
	if id <= 0 {
		return Movie{}, ErrInvalidID
	}
	if err := u.Validate(); err != nil {
		return Movie{}, err
	}
	// Nothing to write; answer with the stored movie.
	if u.Empty() {
		return uc.r.GetByID(ctx, id)
	}
	return uc.r.UpdateMovie(ctx, id, u)
}

func (uc *Usecase) DeleteMovie(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrInvalidID
	}
	return uc.r.DeleteMovie(ctx, id)
}
