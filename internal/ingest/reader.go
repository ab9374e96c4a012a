// Package ingest reads and writes the MovieLens CSV files.
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/Clark-Hu/movielens-api/internal/repository"
)

// Column sets of the MovieLens files.
var (
	MovieColumns  = []string{"movieId", "title", "genres"}
	RatingColumns = []string{"userId", "movieId", "rating", "timestamp"}
	TagColumns    = []string{"userId", "movieId", "tag", "timestamp"}
)

// table reads a headed CSV file and resolves columns by name.
type table struct {
	r    *csv.Reader
	cols map[string]int
	line int
	row  []string
}

func newTable(r io.Reader, required []string) (*table, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("header is missing column %q", name)
		}
	}
	return &table{r: cr, cols: cols, line: 1}, nil
}

// next advances to the following record. It returns io.EOF at the end.
func (t *table) next() error {
	row, err := t.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return io.EOF
		}
		return fmt.Errorf("line %d: %w", t.line+1, err)
	}
	t.line++
	t.row = row
	return nil
}

func (t *table) field(name string) (string, error) {
	i := t.cols[name]
	if i >= len(t.row) {
		return "", t.errorf("missing %s", name)
	}
	return t.row[i], nil
}

func (t *table) intField(name string) (int, error) {
	raw, err := t.field(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, t.errorf("%s %q is not an integer", name, raw)
	}
	return v, nil
}

func (t *table) unixField(name string) (time.Time, error) {
	raw, err := t.field(name)
	if err != nil {
		return time.Time{}, err
	}
	secs, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, t.errorf("%s %q is not a unix timestamp", name, raw)
	}
	return time.Unix(secs, 0).UTC(), nil
}

func (t *table) errorf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", t.line, fmt.Sprintf(format, args...))
}

// MovieReader yields movies.csv rows.
type MovieReader struct {
	t *table
}

// NewMovieReader reads a movies file. The ml-20m movies.csv is Latin-1; set
// latin1 to decode it to UTF-8.
func NewMovieReader(r io.Reader, latin1 bool) (*MovieReader, error) {
	if latin1 {
		r = charmap.ISO8859_1.NewDecoder().Reader(r)
	}
	t, err := newTable(r, MovieColumns)
	if err != nil {
		return nil, err
	}
	return &MovieReader{t: t}, nil
}

// Next returns the next movie or io.EOF.
func (m *MovieReader) Next() (repository.MovieRecord, error) {
	if err := m.t.next(); err != nil {
		return repository.MovieRecord{}, err
	}
	id, err := m.t.intField("movieId")
	if err != nil {
		return repository.MovieRecord{}, err
	}
	title, err := m.t.field("title")
	if err != nil {
		return repository.MovieRecord{}, err
	}
	genres, err := m.t.field("genres")
	if err != nil {
		return repository.MovieRecord{}, err
	}
	return repository.MovieRecord{ID: id, Title: title, Genres: genres}, nil
}

// RatingReader yields ratings.csv rows.
type RatingReader struct {
	t *table
}

// NewRatingReader reads a ratings file.
func NewRatingReader(r io.Reader) (*RatingReader, error) {
	t, err := newTable(r, RatingColumns)
	if err != nil {
		return nil, err
	}
	return &RatingReader{t: t}, nil
}

// Next returns the next rating or io.EOF. Values are checked by the store.
func (rr *RatingReader) Next() (repository.RatingRecord, error) {
	if err := rr.t.next(); err != nil {
		return repository.RatingRecord{}, err
	}
	userID, err := rr.t.intField("userId")
	if err != nil {
		return repository.RatingRecord{}, err
	}
	movieID, err := rr.t.intField("movieId")
	if err != nil {
		return repository.RatingRecord{}, err
	}
	raw, err := rr.t.field("rating")
	if err != nil {
		return repository.RatingRecord{}, err
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 32)
	if err != nil {
		return repository.RatingRecord{}, rr.t.errorf("rating %q is not a number", raw)
	}
	ratedAt, err := rr.t.unixField("timestamp")
	if err != nil {
		return repository.RatingRecord{}, err
	}
	return repository.RatingRecord{UserID: userID, MovieID: movieID, Value: float32(value), RatedAt: ratedAt}, nil
}

// TagReader yields tags.csv rows.
type TagReader struct {
	t *table
}

// NewTagReader reads a tags file.
func NewTagReader(r io.Reader) (*TagReader, error) {
	t, err := newTable(r, TagColumns)
	if err != nil {
		return nil, err
	}
	return &TagReader{t: t}, nil
}

// Next returns the next tag or io.EOF.
func (tr *TagReader) Next() (repository.TagRecord, error) {
	if err := tr.t.next(); err != nil {
		return repository.TagRecord{}, err
	}
	userID, err := tr.t.intField("userId")
	if err != nil {
		return repository.TagRecord{}, err
	}
	movieID, err := tr.t.intField("movieId")
	if err != nil {
		return repository.TagRecord{}, err
	}
	text, err := tr.t.field("tag")
	if err != nil {
		return repository.TagRecord{}, err
	}
	taggedAt, err := tr.t.unixField("timestamp")
	if err != nil {
		return repository.TagRecord{}, err
	}
	return repository.TagRecord{UserID: userID, MovieID: movieID, Text: text, TaggedAt: taggedAt}, nil
}
