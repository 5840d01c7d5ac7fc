// Package catalog loads and memoizes the state and station catalogs. Both
// follow a compute-once, read-many discipline: the first caller pays the
// parse (and, for stations, the enrichment) cost, later callers get the
// cached slice. A failed load is not cached, so the next caller retries.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/mxclima/climaserie/internal/metrics"
	"github.com/mxclima/climaserie/internal/models"
	"github.com/mxclima/climaserie/internal/series"
)

const (
	statesFile         = "estados_mexico_catalogo.json"
	stationCatalogGlob = "*_catalogo_estaciones_climatologicas.json"
)

type Catalog struct {
	dataDir string
	store   *series.Store

	mu             sync.Mutex
	states         []models.State
	statesLoaded   bool
	stations       []models.Station
	stationsLoaded bool
}

func New(dataDir string, store *series.Store) *Catalog {
	return &Catalog{dataDir: dataDir, store: store}
}

// States returns the Mexican states catalog, loading it on first use.
func (c *Catalog) States() ([]models.State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.statesLoaded {
		states, err := c.loadStates()
		if err != nil {
			return nil, err
		}
		c.states = states
		c.statesLoaded = true
		log.Printf("catalog: loaded %d states", len(states))
	}
	return c.states, nil
}

// Stations returns the enriched station catalog, building it on first use.
// Enrichment loads each station's series through the series store, so the
// parse is shared with later per-station queries.
func (c *Catalog) Stations(ctx context.Context) ([]models.Station, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stationsLoaded {
		stations, err := c.loadStations(ctx)
		if err != nil {
			return nil, err
		}
		c.stations = stations
		c.stationsLoaded = true
		log.Printf("catalog: loaded %d stations", len(stations))
	}
	return c.stations, nil
}

// Reset drops both catalogs so tests can rebuild state without a restart.
func (c *Catalog) Reset() {
	c.mu.Lock()
	c.states = nil
	c.statesLoaded = false
	c.stations = nil
	c.stationsLoaded = false
	c.mu.Unlock()
}

func (c *Catalog) loadStates() ([]models.State, error) {
	path := filepath.Join(c.dataDir, "json", statesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read states catalog: %w", err)
	}
	var states []models.State
	if err := json.Unmarshal(data, &states); err != nil {
		return nil, fmt.Errorf("parse states catalog %s: %w", path, err)
	}
	return states, nil
}

func (c *Catalog) loadStations(ctx context.Context) ([]models.Station, error) {
	files, err := filepath.Glob(filepath.Join(c.dataDir, "json", stationCatalogGlob))
	if err != nil {
		return nil, fmt.Errorf("glob station catalogs: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no station catalog files under %s", filepath.Join(c.dataDir, "json"))
	}

	// Dedupe by (estado, estación); a later catalog entry replaces an
	// earlier one, keeping the first-seen position.
	byKey := make(map[string]int)
	var stations []models.Station
	for _, path := range files {
		entries, err := readCatalogFile(path)
		if err != nil {
			log.Printf("catalog: skipping %s: %v", filepath.Base(path), err)
			continue
		}
		for _, st := range entries {
			key := st.Estado + "-" + st.Estacion
			if i, ok := byKey[key]; ok {
				stations[i] = st
				continue
			}
			byKey[key] = len(stations)
			stations = append(stations, st)
		}
	}

	for i := range stations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.enrich(ctx, &stations[i])
	}
	return stations, nil
}

// readCatalogFile parses one per-state catalog, skipping malformed entries
// instead of failing the file.
func readCatalogFile(path string) ([]models.Station, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("not a station array: %w", err)
	}

	stations := make([]models.Station, 0, len(raw))
	for i, msg := range raw {
		var st models.Station
		if err := json.Unmarshal(msg, &st); err != nil {
			metrics.CatalogEntriesSkippedTotal.Inc()
			log.Printf("catalog: %s: skipping entry %d: %v", filepath.Base(path), i, err)
			continue
		}
		if st.Estacion == "" || st.Estado == "" {
			metrics.CatalogEntriesSkippedTotal.Inc()
			log.Printf("catalog: %s: skipping entry %d: missing ESTADO/ESTACION", filepath.Base(path), i)
			continue
		}
		stations = append(stations, st)
	}
	return stations, nil
}

// enrich fills the period-of-record fields from the station's series. A
// station without a source file keeps null dates and zero years.
func (c *Catalog) enrich(ctx context.Context, st *models.Station) {
	st.FechaInicialDatos = nil
	st.FechaFinalDatos = nil
	st.Variables = []string{}
	st.AniosDeDatos = 0

	ser, err := c.store.Get(ctx, st.Estado, st.Estacion)
	if err != nil {
		if !errors.Is(err, series.ErrNotFound) {
			log.Printf("catalog: enrich %s/%s: %v", st.Estado, st.Estacion, err)
		}
		return
	}

	st.Variables = ser.Variables
	first, ok := ser.FirstDate()
	if !ok {
		return
	}
	last, _ := ser.LastDate()

	inicio := first.Format(series.DateLayout)
	fin := last.Format(series.DateLayout)
	st.FechaInicialDatos = &inicio
	st.FechaFinalDatos = &fin
	st.AniosDeDatos = round1(last.Sub(first).Hours() / 24 / 365.25)
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
