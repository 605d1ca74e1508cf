// Package server hosts the demo page: sliders, the rendered figure and a
// PNG download. Every request recomputes the pipeline from scratch.
package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"github.com/YuminosukeSato/mtgp/metrics"
	"github.com/YuminosukeSato/mtgp/pipeline"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
	"github.com/YuminosukeSato/mtgp/render"
)

//go:embed templates/index.html
var templateFS embed.FS

// Config configures a Server.
type Config struct {
	Pipeline   pipeline.Config
	DisplayDPI int
	Logger     log.Logger
}

// Server serves the demo. It holds no per-request state.
type Server struct {
	cfg    Config
	logger log.Logger
	index  *template.Template
}

// New parses the page template and returns a Server.
func New(cfg Config) (*Server, error) {
	if cfg.DisplayDPI <= 0 {
		cfg.DisplayDPI = render.DisplayDPI
	}
	if cfg.Logger == nil {
		cfg.Logger = log.GetLoggerWithName("server")
	}
	if cfg.Pipeline.Logger == nil {
		cfg.Pipeline.Logger = cfg.Logger.With(log.ComponentKey, "pipeline")
	}

	index, err := template.New("index.html").
		Funcs(template.FuncMap{"score": newScoreRow}).
		ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, errors.Wrap(err, "parse index template")
	}
	return &Server{cfg: cfg, logger: cfg.Logger, index: index}, nil
}

// Handler returns the routed handler wrapped in recovery and request
// logging middleware.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/", s.HandleIndex).Methods(http.MethodGet)
	r.HandleFunc("/download", s.HandleDownload).Methods(http.MethodGet)
	r.HandleFunc("/figure.{format:png|svg|pdf}", s.HandleFigure).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.HandleHealth).Methods(http.MethodGet)

	return negroni.New(
		NewRecovery(s.logger),
		NewRequestLogger(s.logger),
		negroni.Wrap(r),
	)
}

func (s *Server) run(ctx context.Context, p pipeline.Params) (*pipeline.Result, error) {
	return pipeline.Run(ctx, p, s.cfg.Pipeline)
}

// statusFor maps an error to an HTTP status: invalid input is the
// client's fault, everything else is a failed computation.
func statusFor(err error) int {
	var valErr *errors.ValidationError
	switch {
	case errors.As(err, &valErr):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", err, log.PathKey, r.URL.Path)
	}
	http.Error(w, err.Error(), status)
}

// scoreRow is one line of the diagnostics table.
type scoreRow struct {
	Name string
	metrics.Score
}

func newScoreRow(name string, s metrics.Score) scoreRow {
	return scoreRow{Name: name, Score: s}
}

type ranges struct {
	PeriodMin, PeriodMax, PeriodStep float64
	ObservationsMin, ObservationsMax int
	NoiseMin, NoiseMax, NoiseStep    float64
}

type indexPage struct {
	Params      pipeline.Params
	Ranges      ranges
	Error       string
	Skipped     string
	Image       template.URL
	Diagnostics pipeline.Diagnostics
	DownloadURL template.URL
	Filename    string
	Elapsed     time.Duration
}

// HandleIndex renders the page for the slider values in the query string.
func (s *Server) HandleIndex(w http.ResponseWriter, r *http.Request) {
	page := indexPage{
		Ranges: ranges{
			PeriodMin: pipeline.PeriodMin, PeriodMax: pipeline.PeriodMax, PeriodStep: pipeline.PeriodStep,
			ObservationsMin: pipeline.ObservationsMin, ObservationsMax: pipeline.ObservationsMax,
			NoiseMin: pipeline.NoiseMin, NoiseMax: pipeline.NoiseMax, NoiseStep: pipeline.NoiseStep,
		},
		Filename: render.DownloadFilename,
	}

	status := http.StatusOK
	params, err := ParseParams(r.URL.Query())
	if err != nil {
		page.Params = pipeline.DefaultParams()
		page.Error = err.Error()
		status = statusFor(err)
	} else {
		page.Params = params
		page.DownloadURL = template.URL("/download?" + EncodeParams(params).Encode())
		if err := s.fillFigure(r.Context(), &page); err != nil {
			page.Error = err.Error()
			status = statusFor(err)
			s.logger.Error("pipeline failed", err, log.PathKey, r.URL.Path)
		}
	}

	var buf bytes.Buffer
	if err := s.index.Execute(&buf, page); err != nil {
		s.fail(w, r, errors.Wrap(err, "execute index template"))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) fillFigure(ctx context.Context, page *indexPage) error {
	res, err := s.run(ctx, page.Params)
	if err != nil {
		return err
	}
	img, err := render.PNGBytes(res, s.cfg.DisplayDPI)
	if err != nil {
		return errors.Wrap(err, "render figure")
	}
	page.Image = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(img))
	page.Skipped = res.SingleTaskSkipped
	page.Diagnostics = res.Diagnostics
	page.Elapsed = res.Duration.Round(time.Millisecond)
	return nil
}

// HandleDownload serves the figure as a 300 DPI PNG attachment.
func (s *Server) HandleDownload(w http.ResponseWriter, r *http.Request) {
	s.serveFigure(w, r, render.Options{Format: render.PNG, DPI: render.DownloadDPI}, true)
}

// HandleFigure serves the raw figure in the format named by the path. PNG
// resolution can be set with ?dpi=.
func (s *Server) HandleFigure(w http.ResponseWriter, r *http.Request) {
	format, err := render.ParseFormat(mux.Vars(r)["format"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	dpi, err := intParam(r.URL.Query(), "dpi", s.cfg.DisplayDPI)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if dpi < 10 || dpi > 600 {
		s.fail(w, r, errors.NewValidationError("dpi", "must be in [10, 600]", dpi))
		return
	}
	s.serveFigure(w, r, render.Options{Format: format, DPI: dpi}, false)
}

func (s *Server) serveFigure(w http.ResponseWriter, r *http.Request, opts render.Options, attachment bool) {
	params, err := ParseParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.run(r.Context(), params)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := render.Write(&buf, res, opts); err != nil {
		s.fail(w, r, errors.Wrap(err, "render figure"))
		return
	}

	w.Header().Set("Content-Type", opts.Format.ContentType())
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", render.DownloadFilename))
	}
	_, _ = buf.WriteTo(w)
}

// HandleHealth reports liveness.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}
