package server

import (
	"bytes"
	"image/png"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/negroni"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/mtgp/core/model"
	"github.com/YuminosukeSato/mtgp/pipeline"
	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

// flatGP fits nothing and returns a zero posterior with one column per task.
type flatGP struct{ tasks int }

func (f *flatGP) Fit(X, y mat.Matrix) error { return nil }

func (f *flatGP) Posterior(X mat.Matrix) (model.Posterior, error) {
	m, _ := X.Dims()
	return flatPosterior{m: m, t: f.tasks}, nil
}

type flatPosterior struct{ m, t int }

func (p flatPosterior) Mean() *mat.Dense { return mat.NewDense(p.m, p.t, nil) }

func (p flatPosterior) Sample(count int) ([]*mat.Dense, error) {
	out := make([]*mat.Dense, count)
	for i := range out {
		out[i] = p.Mean()
	}
	return out, nil
}

func newTestServer(t *testing.T, mtTasks int) (*Server, *log.TestLogger) {
	t.Helper()
	logger, _ := log.NewTestLogger(log.LevelInfo)

	pcfg := pipeline.DefaultConfig()
	pcfg.SampleCount = 3
	pcfg.GridSize = 20
	pcfg.NewSingleTask = func(rand.Source, log.Logger) model.GaussianProcess { return &flatGP{tasks: 1} }
	pcfg.NewMultiTask = func(rand.Source, log.Logger) model.GaussianProcess { return &flatGP{tasks: mtTasks} }

	s, err := New(Config{Pipeline: pcfg, DisplayDPI: 50, Logger: logger})
	require.NoError(t, err)
	return s, logger
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestParseParams(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  pipeline.Params
		param string
	}{
		{"empty uses defaults", "", pipeline.DefaultParams(), ""},
		{"all set", "period=7.5&n_main=3&n_aux=0&noise=0.4", pipeline.Params{Period: 7.5, NMain: 3, NAux: 0, Noise: 0.4}, ""},
		{"blank value uses default", "period=&n_main=5", pipeline.Params{Period: 5, NMain: 5, NAux: 20, Noise: 0.1}, ""},
		{"period not a number", "period=abc", pipeline.Params{}, "period"},
		{"n_main not an integer", "n_main=2.5", pipeline.Params{}, "n_main"},
		{"n_aux out of range", "n_aux=51", pipeline.Params{}, "n_aux"},
		{"noise off step", "noise=0.15", pipeline.Params{}, "noise"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			got, err := ParseParams(q)
			if tt.param != "" {
				var valErr *errors.ValidationError
				require.True(t, errors.As(err, &valErr), "got %v", err)
				assert.Equal(t, tt.param, valErr.ParamName)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeParams_RoundTrip(t *testing.T) {
	p := pipeline.Params{Period: 2.5, NMain: 0, NAux: 50, Noise: 1}
	got, err := ParseParams(EncodeParams(p))
	require.NoError(t, err)
	assert.Equal(t, p, got)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.NewValidationError("noise", "bad", 2)))
	assert.Equal(t, http.StatusBadRequest, statusFor(errors.Wrap(errors.NewValidationError("noise", "bad", 2), "parse")))
	assert.Equal(t, http.StatusInternalServerError, statusFor(errors.NewDimensionError("op", 2, 1, 1)))
}

func TestHandleIndex(t *testing.T) {
	s, _ := newTestServer(t, 2)
	rec := get(t, s.Handler(), "/?period=6&n_main=10&n_aux=30&noise=0.2")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	body := rec.Body.String()
	assert.Contains(t, body, "Multitask GP Model")
	assert.Contains(t, body, "data:image/png;base64,")
	assert.Contains(t, body, "Red is for Auxiliary Task")
	assert.Contains(t, body, "Download image")
	assert.Contains(t, body, "/download?")
	assert.Contains(t, body, "period=6")
	assert.Contains(t, body, `value="30"`)
	assert.NotContains(t, body, "Single-task model skipped")
	assert.Contains(t, body, "<th>MAE</th>")
	assert.Contains(t, body, "<td>Single-task, Main</td>")
	assert.Contains(t, body, "<td>Multitask, Auxiliary</td>")
}

func TestHandleIndex_SkippedSingleTask(t *testing.T) {
	s, _ := newTestServer(t, 2)
	rec := get(t, s.Handler(), "/?n_main=1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Single-task model skipped")
	assert.NotContains(t, rec.Body.String(), "Single-task, Main")
}

func TestHandleIndex_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t, 2)
	rec := get(t, s.Handler(), "/?noise=3")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "noise")
	assert.NotContains(t, body, "data:image/png")
	// The form still renders so the user can correct the value.
	assert.Contains(t, body, `name="noise"`)
}

func TestHandleIndex_PipelineFailure(t *testing.T) {
	s, logger := newTestServer(t, 1)
	rec := get(t, s.Handler(), "/")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "dimension mismatch")
	assert.True(t, logger.ContainsMessage("pipeline failed"))
}

func TestHandleDownload(t *testing.T) {
	s, _ := newTestServer(t, 2)
	rec := get(t, s.Handler(), "/download?period=5&n_main=20&n_aux=20&noise=0.1")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="st_vs_mt.png"`, rec.Header().Get("Content-Disposition"))

	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.Width)
	assert.Equal(t, 1500, cfg.Height)
}

func TestHandleDownload_InvalidParams(t *testing.T) {
	s, _ := newTestServer(t, 2)
	rec := get(t, s.Handler(), "/download?period=11")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Disposition"))
}

func TestHandleFigure(t *testing.T) {
	s, _ := newTestServer(t, 2)
	h := s.Handler()

	tests := []struct {
		path        string
		contentType string
		prefix      string
	}{
		{"/figure.png?dpi=40", "image/png", "\x89PNG"},
		{"/figure.svg", "image/svg+xml", "<?xml"},
		{"/figure.pdf", "application/pdf", "%PDF"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := get(t, h, tt.path)
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.contentType, rec.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(rec.Body.String(), tt.prefix))
			assert.Empty(t, rec.Header().Get("Content-Disposition"))
		})
	}

	rec := get(t, h, "/figure.png?dpi=40")
	cfg, err := png.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 400, cfg.Width)

	assert.Equal(t, http.StatusBadRequest, get(t, h, "/figure.png?dpi=5000").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/figure.png?dpi=high").Code)
	assert.Equal(t, http.StatusNotFound, get(t, h, "/figure.gif").Code)
}

func TestHandleHealth(t *testing.T) {
	s, logger := newTestServer(t, 2)
	rec := get(t, s.Handler(), "/healthz")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok\n", rec.Body.String())
	assert.True(t, logger.ContainsField(log.PathKey, "/healthz"))
	assert.True(t, logger.ContainsField(log.StatusCodeKey, 200.0))
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t, 2)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestRecovery(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)

	n := negroni.New(NewRecovery(logger), negroni.WrapFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("render exploded")
	}))
	rec := httptest.NewRecorder()
	n.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/figure.png", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Internal Server Error\n", rec.Body.String())
	assert.True(t, logger.ContainsMessage("[recovery!]"))
	assert.True(t, logger.ContainsMessage("render exploded"))

	entries, err := logger.GetLogEntries()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0][log.StacktraceKey])
	assert.Equal(t, "/figure.png", entries[0][log.PathKey])
}

func TestRecovery_AfterWrite(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)

	n := negroni.New(NewRecovery(logger), negroni.WrapFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
		panic("late")
	}))
	rec := httptest.NewRecorder()
	n.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, logger.ContainsMessage("late"))
}
