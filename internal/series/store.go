package series

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mxclima/climaserie/internal/metrics"
	"github.com/mxclima/climaserie/internal/models"
)

// ErrNotFound is returned when no source file exists for a station key.
var ErrNotFound = errors.New("station not found")

// Store loads station series from CSV files under <dataDir>/csv and memoizes
// them by (estado, estacion). A key is parsed at most once even under
// concurrent first access: singleflight collapses in-flight loads and the
// result only becomes visible once fully built. Failed loads are not cached,
// so a missing file does not poison the key for later retries.
type Store struct {
	dataDir string

	mu    sync.RWMutex
	cache map[string]*models.Series

	group singleflight.Group
}

func NewStore(dataDir string) *Store {
	return &Store{
		dataDir: dataDir,
		cache:   make(map[string]*models.Series),
	}
}

// Get returns the memoized series for a station, loading it on first use.
func (st *Store) Get(ctx context.Context, estado, estacion string) (*models.Series, error) {
	key := estado + "/" + estacion

	st.mu.RLock()
	s, ok := st.cache[key]
	st.mu.RUnlock()
	if ok {
		metrics.SeriesCacheHitsTotal.Inc()
		return s, nil
	}

	v, err, _ := st.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a previous caller may have finished
		// between our cache miss and joining the group.
		st.mu.RLock()
		s, ok := st.cache[key]
		st.mu.RUnlock()
		if ok {
			return s, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		s, err := st.load(estado, estacion)
		if err != nil {
			metrics.SeriesLoadsTotal.WithLabelValues(estado, "error").Inc()
			return nil, err
		}
		metrics.SeriesLoadsTotal.WithLabelValues(estado, "ok").Inc()

		st.mu.Lock()
		st.cache[key] = s
		st.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.Series), nil
}

// Reset drops every cached series. Intended for tests and explicit cache
// invalidation; in-flight loads are unaffected.
func (st *Store) Reset() {
	st.mu.Lock()
	st.cache = make(map[string]*models.Series)
	st.mu.Unlock()
}

func (st *Store) load(estado, estacion string) (*models.Series, error) {
	start := time.Now()

	path, err := st.findSource(estacion)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	s, err := ParseCSV(f, estado, estacion)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	metrics.SeriesLoadDuration.Observe(time.Since(start).Seconds())
	log.Printf("series: loaded %s/%s: %d records, %d variables", estado, estacion, len(s.Records), len(s.Variables))
	return s, nil
}

// findSource walks <dataDir>/csv for the station's file. Numeric station IDs
// are stored with a leading zero (dia012345.csv), others verbatim
// (diaCHIS01.csv); both spellings are accepted.
func (st *Store) findSource(estacion string) (string, error) {
	wanted := map[string]bool{
		"dia" + estacion + ".csv":  true,
		"dia0" + estacion + ".csv": true,
	}

	var found string
	root := filepath.Join(st.dataDir, "csv")
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && wanted[d.Name()] {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("scan %s: %w", root, err)
	}
	if found == "" {
		return "", fmt.Errorf("station %s: %w", estacion, ErrNotFound)
	}
	return found, nil
}
