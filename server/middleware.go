package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/urfave/negroni"

	"github.com/YuminosukeSato/mtgp/pkg/errors"
	"github.com/YuminosukeSato/mtgp/pkg/log"
)

// RequestLogger is negroni middleware that logs every request through
// pkg/log.
type RequestLogger struct {
	logger log.Logger
}

// NewRequestLogger returns a RequestLogger writing to logger.
func NewRequestLogger(logger log.Logger) *RequestLogger {
	return &RequestLogger{logger: logger}
}

// ServeHTTP implements negroni.Handler
func (l *RequestLogger) ServeHTTP(w http.ResponseWriter, r *http.Request, next http.HandlerFunc) {
	start := time.Now()
	next(w, r)

	url := r.URL.Path
	if r.URL.RawQuery != "" {
		url += "?" + r.URL.Query().Encode()
	}
	fields := []any{
		log.MethodKey, r.Method,
		log.PathKey, url,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	}
	if rw, ok := w.(negroni.ResponseWriter); ok {
		fields = append(fields, log.StatusCodeKey, rw.Status(), log.SizeKey, rw.Size())
	}
	l.logger.Info("request", fields...)
}

// NewRecovery returns negroni's recovery middleware reporting through
// logger. The panic and its stack go to the log at error level; the client
// only sees a plain 500.
func NewRecovery(logger log.Logger) *negroni.Recovery {
	rec := negroni.NewRecovery()
	rec.Logger = printfLogger{logger}
	rec.PrintStack = false
	rec.Formatter = statusFormatter{}
	rec.PanicHandlerFunc = func(info *negroni.PanicInformation) {
		op := info.RequestDescription()
		perr := errors.NewPanicError(op, info.RecoveredPanic)
		fields := []any{log.StacktraceKey, perr.StackTrace}
		if r := info.Request; r != nil {
			fields = append(fields, log.MethodKey, r.Method, log.PathKey, r.URL.Path)
		}
		logger.Error("[recovery!]", perr, fields...)
	}
	return rec
}

// printfLogger adapts log.Logger to negroni.ALogger. negroni prints the raw
// panic text there as well, so it only goes to debug.
type printfLogger struct {
	logger log.Logger
}

func (l printfLogger) Println(v ...interface{}) {
	l.logger.Debug(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l printfLogger) Printf(format string, v ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, v...))
}

// statusFormatter writes the bare status text instead of the panic.
type statusFormatter struct{}

func (statusFormatter) FormatPanicError(w http.ResponseWriter, _ *http.Request, _ *negroni.PanicInformation) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	}
	fmt.Fprintln(w, http.StatusText(http.StatusInternalServerError))
}
