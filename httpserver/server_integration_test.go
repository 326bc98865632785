package httpserver_test

import (
	"context"
	"testing"
	"time"

	"cinelog/httpserver"
	"cinelog/movie"
	"cinelog/postgres"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	pgcontainer "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"
)

func MustCreateServer(t testing.TB, db *gorm.DB) *httpserver.Server {
	t.Helper()

	server := httpserver.Default(testConfig())
	server.MovieService = movie.NewUsecase(postgres.NewMovieRepository(db))
	server.HealthCheck = func(ctx context.Context) error {
		return postgres.Ping(ctx, db)
	}

	return server
}

// MustCreateTestDatabase starts a throwaway PostgreSQL container with the
// movies schema applied.
func MustCreateTestDatabase(t testing.TB) *gorm.DB {
	t.Helper()
	ctx := context.Background()
	dbName, dbUser, dbPass := "test_movies", "test", "testpass"
	container, err := pgcontainer.RunContainer(ctx,
		testcontainers.WithImage("docker.io/postgres:15.2-alpine"),
		pgcontainer.WithDatabase(dbName),
		pgcontainer.WithUsername(dbUser),
		pgcontainer.WithPassword(dbPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(ctx), "failed to terminate postgres container")
	})

	host, port := extractHostAndPort(t, ctx, container)
	db, err := postgres.NewConnection(postgres.Options{
		DBName:   dbName,
		DBUser:   dbUser,
		Password: dbPass,
		Host:     host,
		Port:     port.Port(),
	})
	require.NoError(t, err, "failed to connect to postgres database")

	_, err = postgres.EnsureSchema(db)
	require.NoError(t, err, "failed to create schema")

	return db
}

func extractHostAndPort(t testing.TB, ctx context.Context, container *pgcontainer.PostgresContainer) (string, nat.Port) {
	t.Helper()
	host, err := container.Host(ctx)
	require.NoError(t, err, "failed to get container host")

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err, "failed to get mapped port")
	return host, port
}
