// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"time"

	auditfeature "github.com/dalemusser/groupshare/internal/app/features/auditlog"
	"github.com/dalemusser/groupshare/internal/app/features/authapi"
	errorsfeature "github.com/dalemusser/groupshare/internal/app/features/errors"
	groupsfeature "github.com/dalemusser/groupshare/internal/app/features/groups"
	healthfeature "github.com/dalemusser/groupshare/internal/app/features/health"
	photosfeature "github.com/dalemusser/groupshare/internal/app/features/photos"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so deps.Services is populated.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if deps.Services == nil || deps.Services.Sessions == nil {
		return nil, errors.New("services not initialized; Startup must run before BuildHandler")
	}
	return newRouter(appCfg, deps.MongoClient, deps.MongoDatabase, deps.Services, logger), nil
}

// newRouter mounts every feature:
//
//	/health   liveness with Mongo ping
//	/metrics  Prometheus
//	/auth     magic links, refresh, group selection, /me
//	/groups   group creation, members, preferences, audit, deletion
//	/photos   photo metadata in the active group
func newRouter(appCfg AppConfig, client *mongo.Client, db *mongo.Database, s *Services, logger *zap.Logger) chi.Router {
	errs := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()
	r.Use(errs.Recover)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   appCfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	r.Mount("/health", healthfeature.Routes(healthfeature.NewHandler(client, logger)))
	r.Method("GET", "/metrics", s.Metrics.Handler())

	authHandler := authapi.NewHandler(db, s.Issuer, s.Verifier, s.Sessions, s.Directory, s.Cookies, s.Audit, logger)
	r.Mount("/auth", authapi.Routes(authHandler, s.Guard))

	groupsHandler := groupsfeature.NewHandler(s.Admin, s.Sessions, s.Cookies, s.Audit, logger)
	auditRoutes := auditfeature.Routes(auditfeature.NewHandler(db, logger))
	r.Mount("/groups", groupsfeature.Routes(groupsHandler, s.Guard, auditRoutes))

	r.Mount("/photos", photosfeature.Routes(photosfeature.NewHandler(db, logger), s.Guard))

	return r
}
