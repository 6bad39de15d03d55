package wire

import (
	"context"
	"net/http"
	"time"

	"tour-booking/internal/adaptor"
	"tour-booking/internal/data/repository"
	"tour-booking/internal/usecase"
	"tour-booking/pkg/middleware"
	"tour-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Pinger reports database reachability for the health check
type Pinger interface {
	Ping(ctx context.Context) error
}

// App holds the router and the services the background workers need
type App struct {
	Router  *chi.Mux
	Service *usecase.Service
}

// Wiring builds services, handlers and routes
func Wiring(db Pinger, repo *repository.Repository, deps usecase.Dependencies, config *utils.Config, logger *zap.Logger) *App {
	service := usecase.NewService(repo, deps, config, logger)
	handler := adaptor.NewHandler(service, logger)

	return &App{
		Router:  setupRouter(db, handler, config, logger),
		Service: service,
	}
}

func setupRouter(db Pinger, handler *adaptor.Handler, config *utils.Config, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.AllowedOrigins))

	// Apply routes
	wirePayment(r, handler.Payment, logger)
	wireAdmin(r, handler.Admin, config, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			logger.Warn("Health check failed", zap.Error(err))
			utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "database unreachable", nil, nil)
			return
		}
		utils.ResponseSuccess(w, "OK", nil)
	})

	return r
}
