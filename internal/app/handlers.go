package app

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dailyreport/internal/aggregate"
	"github.com/dailyreport/internal/fetch"
	"github.com/dailyreport/internal/pipeline"
)

type envelope map[string]any

func (app *App) logError(r *http.Request, err error) {
	app.logger.Error(err.Error(), "method", r.Method, "uri", r.URL.RequestURI())
}

func (app *App) writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

func (app *App) errorResponse(w http.ResponseWriter, r *http.Request, status int, message any) {
	if err := app.writeJSON(w, status, envelope{"error": message}); err != nil {
		app.logError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// pipelineErrorResponse reports a failed build with a status matching its
// error class.
func (app *App) pipelineErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)

	var (
		fetchErr *fetch.Error
		shapeErr *aggregate.InputShapeError
	)
	switch {
	case errors.As(err, &fetchErr):
		app.errorResponse(w, r, http.StatusBadGateway, "the report query could not be run")
	case errors.As(err, &shapeErr):
		app.errorResponse(w, r, http.StatusUnprocessableEntity, shapeErr.Error())
	default:
		app.errorResponse(w, r, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
	}
}

func (app *App) logoSrc() string {
	if app.logo == nil {
		return ""
	}
	return "/logo"
}

func (app *App) previewHTMLHandler(w http.ResponseWriter, r *http.Request) {
	res, err := app.pipeline.Build(r.Context(), app.logoSrc())
	if err != nil {
		app.pipelineErrorResponse(w, r, err)
		return
	}
	if res.NoData {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(pipeline.NoDataMessage + "\n"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(res.Rendered.HTML))
}

func (app *App) previewTextHandler(w http.ResponseWriter, r *http.Request) {
	res, err := app.pipeline.Build(r.Context(), "")
	if err != nil {
		app.pipelineErrorResponse(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if res.NoData {
		_, _ = w.Write([]byte(pipeline.NoDataMessage + "\n"))
		return
	}
	_, _ = w.Write([]byte(res.Rendered.Text))
}

func (app *App) summaryHandler(w http.ResponseWriter, r *http.Request) {
	res, err := app.pipeline.Build(r.Context(), "")
	if err != nil {
		app.pipelineErrorResponse(w, r, err)
		return
	}

	body := envelope{
		"report":  app.pipeline.Report().Name,
		"no_data": res.NoData,
		"rows":    res.Raw.NumRows(),
	}
	if !res.NoData {
		body["subject"] = res.Rendered.Subject
		body["columns"] = res.Summary.Headers()
		body["summary"] = res.Summary.StringRows()
	}

	if err := app.writeJSON(w, http.StatusOK, body); err != nil {
		app.logError(r, err)
	}
}

func (app *App) logoHandler(w http.ResponseWriter, r *http.Request) {
	if app.logo == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", app.logo.ContentType)
	_, _ = w.Write(app.logo.Data)
}

// healthHandler verifies database connectivity.
func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	code := http.StatusOK

	if err := app.db.Ping(r.Context()); err != nil {
		app.logger.Warn("database ping failed", "err", err)
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	if err := app.writeJSON(w, code, envelope{"status": status}); err != nil {
		app.logError(r, err)
	}
}
