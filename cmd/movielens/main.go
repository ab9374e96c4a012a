// Command movielens runs batch jobs against the catalog database: bulk CSV
// loads, the movie export, single-movie deletion and token issuing.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Clark-Hu/movielens-api/internal/auth"
	"github.com/Clark-Hu/movielens-api/internal/config"
	"github.com/Clark-Hu/movielens-api/internal/ingest"
	"github.com/Clark-Hu/movielens-api/internal/logging"
	"github.com/Clark-Hu/movielens-api/internal/metrics"
	"github.com/Clark-Hu/movielens-api/internal/objectstore"
	"github.com/Clark-Hu/movielens-api/internal/repository"
	"github.com/Clark-Hu/movielens-api/internal/store"
)

const usage = `usage: movielens <command> [flags] [args]

commands:
  load-movies   [-latin1=true] <movies.csv>
  load-ratings  <ratings.csv>
  load-tags     <tags.csv>
  export-movies [-o movie_list.csv] [-upload]
  delete-movie  <movieId>
  token         <userId>
`

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"load-movies":   loadMovies,
	"load-ratings":  loadRatings,
	"load-tags":     loadTags,
	"export-movies": exportMovies,
	"delete-movie":  deleteMovie,
	"token":         issueToken,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	cmd, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err := config.LoadDotEnv(os.Getenv("ENV_FILE")); err != nil {
		logging.Fatal().Err(err).Msg("env file error")
	}
	logging.Init(logging.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "console",
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, os.Args[2:]); err != nil {
		logging.Error().Err(err).Str("command", os.Args[1]).Msg("command failed")
		stop()
		os.Exit(1)
	}
}

func openRepository(ctx context.Context) (*repository.Repository, config.Config, func(), error) {
	cfg, err := config.LoadJob()
	if err != nil {
		return nil, config.Config{}, nil, fmt.Errorf("config: %w", err)
	}
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	st, err := store.New(dbCtx, cfg.DBURL, store.OptionsFromConfig(cfg, logging.Logger()))
	if err != nil {
		return nil, config.Config{}, nil, err
	}
	return repository.New(st), cfg, st.Close, nil
}

func singleArg(fs *flag.FlagSet, name string) (string, error) {
	if fs.NArg() != 1 {
		return "", fmt.Errorf("%s: expected exactly one argument, got %d", fs.Name(), fs.NArg())
	}
	if fs.Arg(0) == "" {
		return "", fmt.Errorf("%s: %s must not be empty", fs.Name(), name)
	}
	return fs.Arg(0), nil
}

func loadMovies(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("load-movies", flag.ContinueOnError)
	latin1 := fs.Bool("latin1", true, "decode the file as ISO-8859-1")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleArg(fs, "file")
	if err != nil {
		return err
	}

	return runLoad(ctx, "movies", path, func(repo *repository.Repository, f io.Reader) (repository.LoadResult, error) {
		src, err := ingest.NewMovieReader(f, *latin1)
		if err != nil {
			return repository.LoadResult{}, err
		}
		return repo.Bulk.MergeMovies(ctx, src)
	})
}

func loadRatings(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("load-ratings", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleArg(fs, "file")
	if err != nil {
		return err
	}

	return runLoad(ctx, "ratings", path, func(repo *repository.Repository, f io.Reader) (repository.LoadResult, error) {
		src, err := ingest.NewRatingReader(f)
		if err != nil {
			return repository.LoadResult{}, err
		}
		return repo.Bulk.ReplaceRatings(ctx, src)
	})
}

func loadTags(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("load-tags", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	path, err := singleArg(fs, "file")
	if err != nil {
		return err
	}

	return runLoad(ctx, "tags", path, func(repo *repository.Repository, f io.Reader) (repository.LoadResult, error) {
		src, err := ingest.NewTagReader(f)
		if err != nil {
			return repository.LoadResult{}, err
		}
		return repo.Bulk.ReplaceTags(ctx, src)
	})
}

func runLoad(ctx context.Context, collection, path string, load func(*repository.Repository, io.Reader) (repository.LoadResult, error)) error {
	repo, _, closeStore, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	log := logging.With().
		Str("job_id", uuid.New().String()).
		Str("collection", collection).
		Str("file", path).
		Logger()
	log.Info().Msg("bulk load started")

	start := time.Now()
	res, err := load(repo, f)
	if err != nil {
		return fmt.Errorf("load %s: %w", collection, err)
	}
	metrics.RecordBulkLoad(collection, res.Loaded)

	log.Info().
		Int64("staged", res.Staged).
		Int64("loaded", res.Loaded).
		Int64("skipped", res.Skipped()).
		Dur("duration", time.Since(start)).
		Msg("bulk load finished")
	return nil
}

func exportMovies(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export-movies", flag.ContinueOnError)
	out := fs.String("o", "movie_list.csv", `output file, or "-" for stdout`)
	upload := fs.Bool("upload", false, "upload the export to the configured bucket")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *upload && *out == "-" {
		return errors.New("export-movies: -upload needs a file output")
	}

	repo, cfg, closeStore, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if *out == "-" {
		n, err := ingest.ExportMovies(ctx, repo.Movies, os.Stdout)
		if err != nil {
			return err
		}
		logging.Info().Int("movies", n).Msg("export written to stdout")
		return nil
	}

	if err := writeExport(ctx, repo, *out); err != nil {
		return err
	}
	if !*upload {
		return nil
	}
	if !cfg.Export.Enabled() {
		return errors.New("export-movies: EXPORT_S3_ENDPOINT is not set")
	}
	return uploadExport(ctx, cfg.Export, *out)
}

func writeExport(ctx context.Context, repo *repository.Repository, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	n, err := ingest.ExportMovies(ctx, repo.Movies, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("export movies: %w", err)
	}
	logging.Info().Int("movies", n).Str("file", path).Msg("export written")
	return nil
}

func uploadExport(ctx context.Context, cfg config.ExportConfig, path string) error {
	uploader, err := objectstore.New(ctx, cfg)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	_, err = uploader.Upload(ctx, objectstore.ObjectName(filepath.Base(path), time.Now()), f, info.Size())
	return err
}

func deleteMovie(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete-movie", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := singleArg(fs, "movieId")
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return fmt.Errorf("delete-movie: invalid movie id %q", raw)
	}

	repo, _, closeStore, err := openRepository(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := repo.Movies.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("movie %d does not exist", id)
		}
		return err
	}
	logging.Info().Int("movie_id", id).Msg("movie deleted")
	return nil
}

func issueToken(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	raw, err := singleArg(fs, "userId")
	if err != nil {
		return err
	}
	userID, err := strconv.Atoi(raw)
	if err != nil || userID <= 0 {
		return fmt.Errorf("token: invalid user id %q", raw)
	}

	cfg, err := config.LoadSigning()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	mgr, err := auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTTTLSecs)*time.Second)
	if err != nil {
		return err
	}
	token, err := mgr.GenerateToken(userID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}
