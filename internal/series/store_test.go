package series

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mxclima/climaserie/internal/models"
)

func writeStationCSV(t *testing.T, dataDir, name, content string) {
	t.Helper()
	dir := filepath.Join(dataDir, "csv", "ags")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const smallCSV = "Fecha,TMAX,TMIN\n01/01/2000,30,10\n15/06/2000,35,15\n"

func TestStore_Get(t *testing.T) {
	dataDir := t.TempDir()
	writeStationCSV(t, dataDir, "dia01001.csv", smallCSV)

	st := NewStore(dataDir)
	s, err := st.Get(context.Background(), "ags", "1001")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(s.Records) != 2 {
		t.Errorf("got %d records, want 2", len(s.Records))
	}
	if s.Estado != "ags" || s.Estacion != "1001" {
		t.Errorf("series identity = %s/%s", s.Estado, s.Estacion)
	}
}

func TestStore_GetAlphanumericID(t *testing.T) {
	dataDir := t.TempDir()
	writeStationCSV(t, dataDir, "diaAGS99X.csv", smallCSV)

	st := NewStore(dataDir)
	if _, err := st.Get(context.Background(), "ags", "AGS99X"); err != nil {
		t.Fatalf("Get: %v", err)
	}
}

func TestStore_NotFound(t *testing.T) {
	st := NewStore(t.TempDir())
	_, err := st.Get(context.Background(), "ags", "9999")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get = %v, want ErrNotFound", err)
	}
}

func TestStore_FailedLoadDoesNotPoisonKey(t *testing.T) {
	dataDir := t.TempDir()
	st := NewStore(dataDir)

	if _, err := st.Get(context.Background(), "ags", "1001"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("first Get = %v, want ErrNotFound", err)
	}

	// The file appears later; the same key must now succeed.
	writeStationCSV(t, dataDir, "dia01001.csv", smallCSV)
	if _, err := st.Get(context.Background(), "ags", "1001"); err != nil {
		t.Fatalf("second Get after file created: %v", err)
	}
}

func TestStore_ConcurrentFirstAccess(t *testing.T) {
	dataDir := t.TempDir()
	writeStationCSV(t, dataDir, "dia01001.csv", smallCSV)
	st := NewStore(dataDir)

	const n = 32
	results := make([]*models.Series, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := st.Get(context.Background(), "ags", "1001")
			results[i], errs[i] = s, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		if errs[i] != nil {
			t.Fatalf("goroutine %d: %v", i, errs[i])
		}
		// All callers must observe the same fully-built series; pointer
		// identity proves the parse ran at most once.
		if results[i] != results[0] {
			t.Fatalf("goroutine %d observed a different series instance", i)
		}
	}
}

func TestStore_MemoizedAcrossCalls(t *testing.T) {
	dataDir := t.TempDir()
	writeStationCSV(t, dataDir, "dia01001.csv", smallCSV)
	st := NewStore(dataDir)

	first, err := st.Get(context.Background(), "ags", "1001")
	if err != nil {
		t.Fatal(err)
	}

	// Deleting the backing file must not matter once cached.
	if err := os.RemoveAll(filepath.Join(dataDir, "csv")); err != nil {
		t.Fatal(err)
	}
	second, err := st.Get(context.Background(), "ags", "1001")
	if err != nil {
		t.Fatalf("cached Get: %v", err)
	}
	if first != second {
		t.Error("second Get returned a different instance")
	}

	// Reset forgets the entry; with the file gone the load now fails.
	st.Reset()
	if _, err := st.Get(context.Background(), "ags", "1001"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after Reset = %v, want ErrNotFound", err)
	}
}
