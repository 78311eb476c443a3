package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/phrazzld/scry-planner/internal/api"
	apiMiddleware "github.com/phrazzld/scry-planner/internal/api/middleware"
	"github.com/phrazzld/scry-planner/internal/api/shared"
	"github.com/phrazzld/scry-planner/internal/platform/metrics"
)

// routerDeps are the handlers and middleware the router mounts.
type routerDeps struct {
	logger    *slog.Logger
	auth      *apiMiddleware.AuthMiddleware
	metrics   *metrics.Metrics
	schedules *api.ScheduleHandler
	quizzes   *api.QuizHandler
	subtopics *api.SubtopicHandler
	ready     func(ctx context.Context) error
}

// setupRouter builds the HTTP handler from the application's services.
func (app *application) setupRouter() http.Handler {
	return newRouter(routerDeps{
		logger:    app.logger,
		auth:      app.auth,
		metrics:   app.metrics,
		schedules: api.NewScheduleHandler(app.queue, app.status, app.scheduleService, app.logger),
		quizzes:   api.NewQuizHandler(app.queue, app.status, app.logger),
		subtopics: api.NewSubtopicHandler(app.subtopicService, app.metrics.ObserveSubtopicOutcome, app.logger),
		ready:     app.ready,
	})
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.NewTraceMiddleware(d.logger))
	r.Use(d.metrics.Middleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := d.ready(ctx); err != nil {
			shared.RespondWithErrorAndLog(w, r, http.StatusServiceUnavailable, "Service unavailable", err)
			return
		}
		shared.RespondWithJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", d.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(d.auth.Authenticate)

		r.Post("/schedules/generate", d.schedules.GenerateSchedule)
		r.Get("/schedules/generation/status/{jobId}", d.schedules.GenerationStatus)
		r.Post("/schedules", d.schedules.CreateSchedule)
		r.Patch("/schedules/{scheduleId}/reminders", d.schedules.ToggleReminders)

		r.Post("/quiz/generate", d.quizzes.GenerateQuiz)
		r.Get("/quiz/status/{jobId}", d.quizzes.QuizStatus)

		r.Patch("/subtopic/update", d.subtopics.UpdateSubtopic)
	})

	return r
}
