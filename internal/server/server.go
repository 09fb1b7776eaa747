// Package server exposes a Registry over a read-only HTTP API.
//
//	GET /healthz                    liveness
//	GET /datasets                   registered datasets and their schemas
//	GET /datasets/{name}/schema     one dataset's schema
//	GET /datasets/{name}?limit=N    load a dataset; missing cells are null
//
// Every request loads afresh; nothing is cached between requests.
package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/koustreak/datri-datasets/internal/dataset"
	"github.com/koustreak/datri-datasets/internal/errs"
	"github.com/koustreak/datri-datasets/internal/logger"
	"github.com/koustreak/datri-datasets/internal/record"
	"github.com/koustreak/datri-datasets/internal/schema"
	"github.com/koustreak/datri-datasets/internal/table"
)

// Catalog is the part of dataset.Registry the server uses.
type Catalog interface {
	Names() []string
	Provider(name string) (dataset.Provider, bool)
	Load(ctx context.Context, name string) (*table.Table, error)
}

// Server handles dataset requests.
type Server struct {
	catalog     Catalog
	log         *logger.Logger
	loadTimeout time.Duration
}

// New returns a Server. loadTimeout bounds each load; zero means the request
// context alone bounds it.
func New(catalog Catalog, log *logger.Logger, loadTimeout time.Duration) *Server {
	return &Server{catalog: catalog, log: logger.OrNop(log), loadTimeout: loadTimeout}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)

	r.Get("/healthz", s.health)
	r.Route("/datasets", func(r chi.Router) {
		r.Get("/", s.list)
		r.Get("/{name}", s.load)
		r.Get("/{name}/schema", s.schema)
	})
	return r
}

type fieldJSON struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
}

type datasetJSON struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Locator     string      `json:"locator,omitempty"`
	Synthetic   bool        `json:"synthetic"`
	Fields      []fieldJSON `json:"fields"`
}

type tableJSON struct {
	Name    string   `json:"name"`
	Rows    int      `json:"rows"`
	Columns []string `json:"columns"`
	Data    [][]any  `json:"data"`
}

type errorJSON struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) list(w http.ResponseWriter, _ *http.Request) {
	out := make([]datasetJSON, 0)
	for _, name := range s.catalog.Names() {
		p, _ := s.catalog.Provider(name)
		out = append(out, describe(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) schema(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	p, ok := s.catalog.Provider(name)
	if !ok {
		s.fail(w, r, errs.UnknownDataset(name))
		return
	}
	writeJSON(w, http.StatusOK, describe(p))
}

func (s *Server) load(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	limit := -1
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, errs.New(errs.ErrKindInvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	ctx := r.Context()
	if s.loadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.loadTimeout)
		defer cancel()
	}

	tbl, err := s.catalog.Load(ctx, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer tbl.Release()

	n := tbl.NumRows()
	if limit >= 0 && limit < n {
		n = limit
	}
	out := tableJSON{
		Name:    name,
		Rows:    tbl.NumRows(),
		Columns: tbl.ColumnNames(),
		Data:    make([][]any, 0, n),
	}
	fields := tbl.Schema().Fields()
	for i, row := range tbl.Rows() {
		if i >= n {
			break
		}
		out.Data = append(out.Data, cells(row, fields))
	}
	writeJSON(w, http.StatusOK, out)
}

func describe(p dataset.Provider) datasetJSON {
	d := datasetJSON{
		Name:        p.Name,
		Description: p.Description,
		Locator:     p.Locator.String(),
		Synthetic:   p.Synthetic(),
		Fields:      make([]fieldJSON, 0),
	}
	if p.Schema != nil {
		for _, f := range p.Schema.Fields() {
			d.Fields = append(d.Fields, fieldJSON{Name: f.Name, Type: f.Type.String(), Nullable: f.Nullable})
		}
	}
	return d
}

// cells converts a row to JSON values. Missing and non-finite cells are null.
func cells(row record.Record, fields []schema.Field) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if !v.Valid {
			continue
		}
		switch fields[i].Type {
		case schema.Integer:
			out[i] = v.Int
		case schema.Float:
			if !math.IsNaN(v.Float) && !math.IsInf(v.Float, 0) {
				out[i] = v.Float
			}
		default:
			out[i] = v.Text
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.ErrorWith("request failed", err, map[string]any{
			"path":       r.URL.Path,
			"request_id": middleware.GetReqID(r.Context()),
		})
	}
	writeJSON(w, status, errorJSON{Error: err.Error(), Kind: errs.KindOf(err).String()})
}

// statusFor maps the outermost error kind to an HTTP status.
func statusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrKindUnknownDataset:
		return http.StatusNotFound
	case errs.ErrKindInvalidInput:
		return http.StatusBadRequest
	case errs.ErrKindFetchFailed:
		if errs.IsTimeout(err) {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errs.ErrKindDecodeFailed:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.HTTPEvent().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}
