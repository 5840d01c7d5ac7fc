package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mxclima/climaserie/internal/aggregate"
	"github.com/mxclima/climaserie/internal/extremes"
	"github.com/mxclima/climaserie/internal/models"
	"github.com/mxclima/climaserie/internal/series"
)

func (s *Server) handleEstados(w http.ResponseWriter, r *http.Request) {
	states, err := s.catalog.States()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, states)
}

func (s *Server) handleEstaciones(w http.ResponseWriter, r *http.Request) {
	stations, err := s.catalog.Stations(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stations)
}

// filteredSeries resolves the station from the route and applies the
// fecha_inicio/fecha_fin window.
func (s *Server) filteredSeries(r *http.Request) (*models.Series, error) {
	vars := mux.Vars(r)
	rng, err := series.ParseRange(r.URL.Query().Get("fecha_inicio"), r.URL.Query().Get("fecha_fin"))
	if err != nil {
		return nil, err
	}
	ser, err := s.store.Get(r.Context(), vars["estado"], vars["id"])
	if err != nil {
		return nil, err
	}
	return series.Filter(ser, rng), nil
}

// requestedVariables parses the optional comma-separated variables parameter.
func requestedVariables(r *http.Request) []string {
	raw := r.URL.Query().Get("variables")
	if raw == "" {
		return nil
	}
	var vars []string
	for _, v := range strings.Split(raw, ",") {
		if v = strings.TrimSpace(v); v != "" {
			vars = append(vars, v)
		}
	}
	return vars
}

func (s *Server) aggregated(w http.ResponseWriter, r *http.Request, agg func(*models.Series, []string) *aggregate.Result) {
	ser, err := s.filteredSeries(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeAggregate(w, agg(ser, requestedVariables(r)))
}

func (s *Server) handleDatos(w http.ResponseWriter, r *http.Request) {
	s.aggregated(w, r, aggregate.Daily)
}

func (s *Server) handlePromedioMensual(w http.ResponseWriter, r *http.Request) {
	s.aggregated(w, r, aggregate.MonthlyMean)
}

func (s *Server) handlePromedioAnual(w http.ResponseWriter, r *http.Request) {
	s.aggregated(w, r, aggregate.AnnualMean)
}

func (s *Server) handleCicloAnual(w http.ResponseWriter, r *http.Request) {
	s.aggregated(w, r, aggregate.AnnualCycleDaily)
}

func (s *Server) handleCicloAnualMensual(w http.ResponseWriter, r *http.Request) {
	s.aggregated(w, r, aggregate.AnnualCycleMonthly)
}

func (s *Server) handleEstacional(w http.ResponseWriter, r *http.Request) {
	s.aggregated(w, r, func(ser *models.Series, vars []string) *aggregate.Result {
		return aggregate.Seasonal(ser, vars, s.seasons)
	})
}

func (s *Server) handleCicloAnualEstacional(w http.ResponseWriter, r *http.Request) {
	s.aggregated(w, r, func(ser *models.Series, vars []string) *aggregate.Result {
		return aggregate.AnnualCycleSeasonal(ser, vars, s.seasons)
	})
}

func (s *Server) handleExtremosFrecuencia(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	op, err := extremes.ParseOperator(q.Get("operador"))
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	percentile, err := strconv.ParseFloat(q.Get("percentil"), 64)
	if err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "percentil must be a number in [0, 100]")
		return
	}

	ser, err := s.filteredSeries(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.analyzer.Analyze(ser, q.Get("variable"), op, percentile)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	datos := make([]map[string]any, 0, len(res.Years))
	for i, year := range res.Years {
		row := map[string]any{"anio": year, "frecuencia": nil}
		if res.Counts[i].Valid {
			row["frecuencia"] = res.Counts[i].Int64
		}
		datos = append(datos, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"variables": []string{"frecuencia"},
		"datos":     datos,
		"trend":     res.Trend,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeAggregate renders the common {variables, datos} shape. Bucket keys for
// ciclo-anual-mensual are numeric months; everything else is a string label.
func writeAggregate(w http.ResponseWriter, res *aggregate.Result) {
	datos := make([]map[string]any, 0, len(res.Rows))
	for _, row := range res.Rows {
		out := make(map[string]any, len(res.Variables)+1)
		out[res.KeyField] = bucketKey(res.KeyField, row.Key)
		for i, name := range res.Variables {
			out[name] = nullable(row.Values[i])
		}
		datos = append(datos, out)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"variables": res.Variables,
		"datos":     datos,
	})
}

func bucketKey(field, key string) any {
	if field == "mes" {
		if m, err := strconv.Atoi(key); err == nil {
			return m
		}
	}
	return key
}

func nullable(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, series.ErrNotFound):
		writeErrorMessage(w, http.StatusNotFound, err.Error())
	case errors.Is(err, series.ErrInvalidRange),
		errors.Is(err, extremes.ErrUnknownVariable),
		errors.Is(err, extremes.ErrInvalidPercentile):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, extremes.ErrInsufficientData):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Printf("api: %s %s: %v", r.Method, r.URL.Path, err)
		writeErrorMessage(w, http.StatusInternalServerError, "internal error")
	}
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("api: write response: %v", err)
	}
}
