package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mxclima/climaserie/internal/models"
)

// WriteEnriched rewrites every per-state station catalog in place with the
// enrichment fields (period of record, variables, years of data) computed
// from the station CSVs. Stations without a source file get nulls and zero
// years so the frontend can grey them out. Entries that do not parse as
// stations, or lack ESTADO/ESTACION, are carried through verbatim rather
// than dropped from the file.
func (c *Catalog) WriteEnriched(ctx context.Context) error {
	files, err := filepath.Glob(filepath.Join(c.dataDir, "json", stationCatalogGlob))
	if err != nil {
		return fmt.Errorf("glob station catalogs: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no station catalog files under %s", filepath.Join(c.dataDir, "json"))
	}

	var updated int
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Printf("enrich: skipping %s: %v", filepath.Base(path), err)
			continue
		}
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			log.Printf("enrich: skipping %s: not a station array: %v", filepath.Base(path), err)
			continue
		}

		out := make([]any, len(raw))
		for i, msg := range raw {
			var st models.Station
			if err := json.Unmarshal(msg, &st); err != nil || st.Estado == "" || st.Estacion == "" {
				out[i] = msg
				continue
			}
			c.enrich(ctx, &st)
			if st.FechaInicialDatos != nil {
				updated++
			}
			out[i] = st
		}

		data, err = json.MarshalIndent(out, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("enrich: wrote %s (%d entries)", filepath.Base(path), len(out))
	}

	log.Printf("enrich: %d stations updated with period data", updated)
	return nil
}
