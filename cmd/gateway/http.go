// cmd/gateway/http.go
package main

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/tamzrod/modbus-gateway/internal/variable"
	"github.com/tamzrod/modbus-gateway/internal/writer"
)

func newMux(reg *prometheus.Registry, writers map[string]writer.ValueWriter, log zerolog.Logger) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	r.Handle("/devices/{device}/write", writeHandler(writers, log)).Methods(http.MethodPost)
	return r
}

// writeHandler accepts a JSON object of variable name to value.
func writeHandler(writers map[string]writer.ValueWriter, log zerolog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["device"]
		vw, ok := writers[id]
		if !ok {
			http.Error(w, "unknown device", http.StatusNotFound)
			return
		}

		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.UseNumber()

		var body map[string]any
		if err := dec.Decode(&body); err != nil {
			http.Error(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
			return
		}

		if err := vw.Write(r.Context(), jsonValues(body)); err != nil {
			code := http.StatusBadGateway
			switch {
			case errors.Is(err, writer.ErrUnknownVariable),
				errors.Is(err, writer.ErrNotWritable),
				errors.Is(err, variable.ErrInvalidValue):
				code = http.StatusBadRequest
			}
			log.Warn().Err(err).Str("device", id).Int("status", code).Msg("write rejected")
			http.Error(w, err.Error(), code)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	})
}

// jsonValues turns json.Number into int64 when integral, float64 otherwise.
func jsonValues(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		n, ok := v.(json.Number)
		if !ok {
			out[k] = v
			continue
		}
		if i, err := n.Int64(); err == nil {
			out[k] = i
		} else if f, err := n.Float64(); err == nil {
			out[k] = f
		} else {
			out[k] = v
		}
	}
	return out
}
