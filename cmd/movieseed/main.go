package main

import (
	"archive/zip"
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"cinelog/movie"
	"cinelog/pkg/config"
	"cinelog/pkg/logger"
	"cinelog/postgres"

	"go.uber.org/zap"
)

const defaultMovieLensURL = "https://files.grouplens.org/datasets/movielens/ml-latest-small.zip"

type options struct {
	moviesCSV  string
	ratingsCSV string
	zipURL     string
	limit      int
	unrated    bool
}

func main() {
	var opts options
	flag.StringVar(&opts.moviesCSV, "csv", "", "Path to movies.csv (skip download)")
	flag.StringVar(&opts.ratingsCSV, "ratings", "", "Path to ratings.csv (used with -csv)")
	flag.StringVar(&opts.zipURL, "url", defaultMovieLensURL, "MovieLens zip URL")
	flag.IntVar(&opts.limit, "limit", 0, "Limit number of movies to import (0 = all)")
	flag.BoolVar(&opts.unrated, "unrated", false, "Import titles only, leaving every rating unset")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot load config:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "cannot build logger:", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(context.Background(), cfg, opts, log); err != nil {
		log.Errorw("import failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, log *zap.SugaredLogger) error {
	db, err := postgres.NewConnection(postgres.Options{
		Driver:   cfg.DB.Driver,
		DBName:   cfg.DB.Name,
		DBUser:   cfg.DB.User,
		Password: cfg.DB.Pass,
		Host:     cfg.DB.Host,
		Port:     strconv.Itoa(cfg.DB.Port),
		SSLMode:  cfg.DB.EnableSSL,
	})
	if err != nil {
		return fmt.Errorf("open postgres connection: %w", err)
	}
	if _, err := postgres.EnsureSchema(db); err != nil {
		return err
	}

	if opts.moviesCSV == "" {
		dir, cleanup, err := downloadAndExtract(opts.zipURL)
		if err != nil {
			return fmt.Errorf("download dataset: %w", err)
		}
		defer cleanup()
		opts.moviesCSV = filepath.Join(dir, "movies.csv")
		opts.ratingsCSV = filepath.Join(dir, "ratings.csv")
	}

	movies, err := readMoviesFile(opts.moviesCSV, opts.limit)
	if err != nil {
		return err
	}

	if !opts.unrated && opts.ratingsCSV != "" {
		means, err := readRatingsFile(opts.ratingsCSV)
		if err != nil {
			return err
		}
		applyRatings(movies, means)
	}

	count, err := postgres.NewMovieRepository(db).CreateMovies(ctx, toMovies(movies))
	if err != nil {
		return err
	}

	log.Infow("import completed", "rows", count, "unrated", opts.unrated)
	return nil
}

// seedMovie is a movies.csv row keyed by the dataset's own movieId, which is
// only used to join ratings and is never stored.
type seedMovie struct {
	sourceID int
	title    string
	rating   *float64
}

func toMovies(seeds []seedMovie) []movie.Movie {
	out := make([]movie.Movie, 0, len(seeds))
	for _, s := range seeds {
		out = append(out, movie.Movie{Title: s.title, Rating: s.rating})
	}
	return out
}

func downloadAndExtract(zipURL string) (string, func(), error) {
	if zipURL == "" {
		return "", func() {}, errors.New("dataset url is empty")
	}

	tmpDir, err := os.MkdirTemp("", "movielens-")
	if err != nil {
		return "", func() {}, err
	}

	cleanup := func() {
		_ = os.RemoveAll(tmpDir)
	}

	zipPath := filepath.Join(tmpDir, "dataset.zip")
	if err := downloadFile(zipURL, zipPath); err != nil {
		cleanup()
		return "", func() {}, err
	}

	for _, name := range []string{"movies.csv", "ratings.csv"} {
		if err := extractFile(zipPath, name, tmpDir); err != nil {
			cleanup()
			return "", func() {}, err
		}
	}

	return tmpDir, cleanup, nil
}

func downloadFile(url, dest string) error {
	client := &http.Client{Timeout: 60 * time.Second}
	resp, err := client.Get(url) // nolint: noctx
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, resp.Body)
	return err
}

func extractFile(zipPath, name, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, file := range r.File {
		if filepath.Base(file.Name) != name {
			continue
		}

		src, err := file.Open()
		if err != nil {
			return err
		}
		defer src.Close()

		out, err := os.Create(filepath.Join(destDir, name))
		if err != nil {
			return err
		}
		if _, err := io.Copy(out, src); err != nil {
			_ = out.Close()
			return err
		}
		return out.Close()
	}

	return fmt.Errorf("%s not found in zip", name)
}

func readMoviesFile(path string, limit int) ([]seedMovie, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readMovies(file, limit)
}

func readMovies(r io.Reader, limit int) ([]seedMovie, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	cols, err := readHeader(reader, "movieId", "title")
	if err != nil {
		return nil, err
	}

	var movies []seedMovie
	for limit <= 0 || len(movies) < limit {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		m, ok := parseMovieRecord(record, cols[0], cols[1])
		if !ok {
			continue
		}
		movies = append(movies, m)
	}

	return movies, nil
}

func parseMovieRecord(record []string, idxMovieID, idxTitle int) (seedMovie, bool) {
	if idxMovieID >= len(record) || idxTitle >= len(record) {
		return seedMovie{}, false
	}

	id, err := strconv.Atoi(strings.TrimSpace(record[idxMovieID]))
	if err != nil {
		return seedMovie{}, false
	}
	title := truncateTitle(strings.TrimSpace(record[idxTitle]))
	if title == "" {
		return seedMovie{}, false
	}
	return seedMovie{sourceID: id, title: title}, true
}

func truncateTitle(title string) string {
	if utf8.RuneCountInString(title) <= movie.MaxTitleLength {
		return title
	}
	return strings.TrimSpace(string([]rune(title)[:movie.MaxTitleLength]))
}

func readRatingsFile(path string) (map[int]float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return readRatings(file)
}

// readRatings returns the mean rating per movieId, rounded to one decimal.
func readRatings(r io.Reader) (map[int]float64, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	cols, err := readHeader(reader, "movieId", "rating")
	if err != nil {
		return nil, err
	}

	sums := make(map[int]float64)
	counts := make(map[int]int)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if cols[0] >= len(record) || cols[1] >= len(record) {
			continue
		}

		id, err := strconv.Atoi(strings.TrimSpace(record[cols[0]]))
		if err != nil {
			continue
		}
		rating, err := strconv.ParseFloat(strings.TrimSpace(record[cols[1]]), 64)
		if err != nil {
			continue
		}
		sums[id] += rating
		counts[id]++
	}

	means := make(map[int]float64, len(sums))
	for id, sum := range sums {
		means[id] = math.Round(sum/float64(counts[id])*10) / 10
	}
	return means, nil
}

func applyRatings(movies []seedMovie, means map[int]float64) {
	for i := range movies {
		if mean, ok := means[movies[i].sourceID]; ok {
			rating := mean
			movies[i].rating = &rating
		}
	}
}

func readHeader(reader *csv.Reader, names ...string) ([]int, error) {
	header, err := reader.Read()
	if err != nil {
		return nil, err
	}

	idx := make([]int, len(names))
	for i, name := range names {
		idx[i] = -1
		for j, col := range header {
			if strings.TrimSpace(col) == name {
				idx[i] = j
				break
			}
		}
		if idx[i] == -1 {
			return nil, fmt.Errorf("missing %q column in csv header", name)
		}
	}
	return idx, nil
}
