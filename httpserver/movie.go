package httpserver

import (
	"net/http"
	"strconv"

	"cinelog/errs"
	"cinelog/movie"

	"github.com/labstack/echo/v4"
)

const (
	noUnratedMoviesMessage = "no unrated movies found"
	movieAddedMessage      = "movie added successfully"
	movieUpdatedMessage    = "movie updated successfully"
	movieDeletedMessage    = "movie deleted successfully"
)

var errInvalidBody = errs.Errorf(errs.EINVALID, "invalid request body")

func (s *Server) RegisterMovieRoutes(g *echo.Group) {
	g.GET("/unrated", s.handleListUnratedMovies)
	g.GET("/all", s.handleListMovies)
	g.GET("/:id", s.handleGetMovie)
	g.POST("/add", s.handleAddMovie)
	g.PUT("/update/:id", s.handleUpdateMovie)
	g.DELETE("/delete/:id", s.handleDeleteMovie)
}

// handleListUnratedMovies godoc
// @Summary List Unrated Movies
// @Description Movies without a rating. An empty catalogue answers with a message instead of a list.
// @Tags movies
// @Produce json
// @Success 200 {object} APIResponse
// @Router /movies/unrated [get]
func (s *Server) handleListUnratedMovies(c echo.Context) error {
	svc, err := s.movieService()
	if err != nil {
		return err
	}

	movies, err := svc.ListUnratedMovies(c.Request().Context())
	if err != nil {
		return err
	}
	if len(movies) == 0 {
		return writeMessage(c, http.StatusOK, noUnratedMoviesMessage, nil)
	}

	return writeList(c, http.StatusOK, movies)
}

// handleListMovies godoc
// @Summary List Movies
// @Tags movies
// @Produce json
// @Success 200 {object} APIResponse
// @Router /movies/all [get]
func (s *Server) handleListMovies(c echo.Context) error {
	svc, err := s.movieService()
	if err != nil {
		return err
	}

	movies, err := svc.ListMovies(c.Request().Context())
	if err != nil {
		return err
	}

	return writeList(c, http.StatusOK, movies)
}

// handleGetMovie godoc
// @Summary Get Movie
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /movies/{id} [get]
func (s *Server) handleGetMovie(c echo.Context) error {
	svc, err := s.movieService()
	if err != nil {
		return err
	}

	id, err := parseMovieID(c)
	if err != nil {
		return err
	}

	m, err := svc.GetMovie(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return writeSuccess(c, http.StatusOK, m)
}

// handleAddMovie godoc
// @Summary Add Movie
// @Tags movies
// @Accept json
// @Produce json
// @Param movie body AddMovieRequest true "Movie"
// @Success 201 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Router /movies/add [post]
func (s *Server) handleAddMovie(c echo.Context) error {
	svc, err := s.movieService()
	if err != nil {
		return err
	}

	var req AddMovieRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	created, err := svc.AddMovie(c.Request().Context(), req.ToMovie())
	if err != nil {
		return err
	}

	return writeMessage(c, http.StatusCreated, movieAddedMessage, created)
}

// handleUpdateMovie godoc
// @Summary Update Movie
// @Description Overwrites only the supplied fields; "rating": null clears the rating.
// @Tags movies
// @Accept json
// @Produce json
// @Param id path int true "Movie ID"
// @Param movie body UpdateMovieRequest true "Fields to change"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /movies/update/{id} [put]
func (s *Server) handleUpdateMovie(c echo.Context) error {
	svc, err := s.movieService()
	if err != nil {
		return err
	}

	id, err := parseMovieID(c)
	if err != nil {
		return err
	}

	var req UpdateMovieRequest
	if err := c.Bind(&req); err != nil {
		return errInvalidBody
	}
	u, err := req.ToUpdate()
	if err != nil {
		return err
	}

	updated, err := svc.UpdateMovie(c.Request().Context(), id, u)
	if err != nil {
		return err
	}

	return writeMessage(c, http.StatusOK, movieUpdatedMessage, updated)
}

// handleDeleteMovie godoc
// @Summary Delete Movie
// @Tags movies
// @Produce json
// @Param id path int true "Movie ID"
// @Success 200 {object} APIResponse
// @Failure 404 {object} APIResponse
// @Router /movies/delete/{id} [delete]
func (s *Server) handleDeleteMovie(c echo.Context) error {
	svc, err := s.movieService()
	if err != nil {
		return err
	}

	id, err := parseMovieID(c)
	if err != nil {
		return err
	}

	if err := svc.DeleteMovie(c.Request().Context(), id); err != nil {
		return err
	}

	return writeMessage(c, http.StatusOK, movieDeletedMessage, nil)
}

func (s *Server) movieService() (movie.Service, error) {
	if s.MovieService == nil {
		return nil, errs.Errorf(errs.ENOTIMPLEMENTED, "movie service not configured")
	}
	return s.MovieService, nil
}

func parseMovieID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, movie.ErrInvalidID
	}
	return id, nil
}
