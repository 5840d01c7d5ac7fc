package api

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mxclima/climaserie/internal/aggregate"
	"github.com/mxclima/climaserie/internal/catalog"
	"github.com/mxclima/climaserie/internal/extremes"
	"github.com/mxclima/climaserie/internal/metrics"
	"github.com/mxclima/climaserie/internal/series"
)

type Server struct {
	catalog  *catalog.Catalog
	store    *series.Store
	addr     string
	analyzer extremes.Analyzer
	seasons  aggregate.Seasons
}

func NewServer(cat *catalog.Catalog, store *series.Store, addr string) *Server {
	return &Server{
		catalog:  cat,
		store:    store,
		addr:     addr,
		analyzer: extremes.Analyzer{MinSamples: extremes.DefaultMinSamples},
		seasons:  aggregate.DefaultSeasons,
	}
}

// SetMinSamples overrides the extremes analyzer's day-of-year sample floor.
func (s *Server) SetMinSamples(n int) {
	s.analyzer.MinSamples = n
}

func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/estados", s.instrument("estados", s.handleEstados)).Methods(http.MethodGet)
	r.HandleFunc("/estaciones", s.instrument("estaciones", s.handleEstaciones)).Methods(http.MethodGet)

	st := r.PathPrefix("/estaciones/{estado}/{id}").Subrouter()
	st.HandleFunc("/datos", s.instrument("datos", s.handleDatos)).Methods(http.MethodGet)
	st.HandleFunc("/promedio-mensual", s.instrument("promedio_mensual", s.handlePromedioMensual)).Methods(http.MethodGet)
	st.HandleFunc("/promedio-anual", s.instrument("promedio_anual", s.handlePromedioAnual)).Methods(http.MethodGet)
	st.HandleFunc("/ciclo-anual", s.instrument("ciclo_anual", s.handleCicloAnual)).Methods(http.MethodGet)
	st.HandleFunc("/ciclo-anual-mensual", s.instrument("ciclo_anual_mensual", s.handleCicloAnualMensual)).Methods(http.MethodGet)
	st.HandleFunc("/estacional", s.instrument("estacional", s.handleEstacional)).Methods(http.MethodGet)
	st.HandleFunc("/ciclo-anual-estacional", s.instrument("ciclo_anual_estacional", s.handleCicloAnualEstacional)).Methods(http.MethodGet)
	st.HandleFunc("/extremos-frecuencia", s.instrument("extremos_frecuencia", s.handleExtremosFrecuencia)).Methods(http.MethodGet)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	// The map frontend is served from another origin.
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return cors(handlers.CombinedLoggingHandler(os.Stderr, r))
}

func (s *Server) instrument(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		h(w, r)
		metrics.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func (s *Server) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    s.addr,
		Handler: s.Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
