package stats

import (
	"encoding/json"
	"html/template"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server exposes the crawl counters over HTTP while a run is active.
type Server struct {
	router   chi.Router
	reporter *Reporter
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(reporter *Reporter, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		reporter: reporter,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)

	r.Get("/stats", s.getStats)
	r.Get("/live", s.getLive)
	r.Get("/health", s.getHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	s.router = r
	return s
}

// Handler returns the HTTP handler for the stats surface.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) getStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.reporter.Snapshot()); err != nil {
		s.logger.Warn("failed to encode stats snapshot", zap.Error(err))
	}
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("OK"))
}

var liveTemplate = template.Must(template.New("live").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="5">
<title>Harvester run {{.Snapshot.RunID}}</title>
<style>
body { font-family: sans-serif; margin: 2em; }
table { border-collapse: collapse; }
th, td { border: 1px solid #999; padding: 0.3em 0.8em; text-align: right; }
th:first-child, td:first-child { text-align: left; }
tfoot td { font-weight: bold; }
</style>
</head>
<body>
<h1>Harvester run {{.Snapshot.RunID}}</h1>
<p>Started {{.Snapshot.StartedAt.Format "2006-01-02 15:04:05 MST"}}, running for {{printf "%.0f" .Snapshot.ElapsedSeconds}}s.</p>
<table>
<thead>
<tr><th>domain</th>{{range .Counters}}<th>{{.}}</th>{{end}}</tr>
</thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
<tfoot>
<tr>{{range .Totals}}<td>{{.}}</td>{{end}}</tr>
</tfoot>
</table>
</body>
</html>
`))

type liveView struct {
	Snapshot Snapshot
	Counters []string
	Rows     [][]string
	Totals   []string
}

func (s *Server) getLive(w http.ResponseWriter, r *http.Request) {
	snap := s.reporter.Snapshot()

	view := liveView{
		Snapshot: snap,
		Counters: counterOrder,
		Totals:   counterRow("TOTAL", snap.Totals),
	}
	view.Rows = domainRows(snap)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := liveTemplate.Execute(w, view); err != nil {
		s.logger.Warn("failed to render live view", zap.Error(err))
	}
}

func domainRows(snap Snapshot) [][]string {
	domains := make([]string, 0, len(snap.Domains))
	for domain := range snap.Domains {
		domains = append(domains, domain)
	}
	sort.Strings(domains)

	rows := make([][]string, 0, len(domains))
	for _, domain := range domains {
		rows = append(rows, counterRow(domain, snap.Domains[domain]))
	}
	return rows
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Debug("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
