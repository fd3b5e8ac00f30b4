package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/faxsign/faxsign/internal/auth"
	"github.com/faxsign/faxsign/internal/department"
	"github.com/faxsign/faxsign/internal/fax"
	"github.com/faxsign/faxsign/internal/transport/middleware"
	"github.com/faxsign/faxsign/internal/transport/swagger"
	"github.com/faxsign/faxsign/internal/user"
	"github.com/faxsign/faxsign/internal/workflow"
)

func RegisterAllRoutes(
	router *chi.Mux,
	db *sql.DB,
	authHandler *auth.Handler,
	userHandler *user.Handler,
	departmentHandler *department.Handler,
	faxHandler *fax.Handler,
	workflowHandler *workflow.Handler,
	allowedOrigins string,
	logger *slog.Logger,
) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", authHandler.Login)
			sr.Post("/register", authHandler.Register)
		})

		r.Group(func(pr chi.Router) {
			pr.Use(authHandler.AuthMiddleware)

			pr.Route("/users", func(ur chi.Router) {
				ur.Get("/", userHandler.ListUsers)
				ur.Patch("/{id}/role", userHandler.UpdateRole)
				ur.Patch("/{id}/department", userHandler.AssignDepartment)
				ur.Delete("/{id}", userHandler.DeleteUser)
			})

			pr.Route("/departments", func(dr chi.Router) {
				dr.Get("/", departmentHandler.ListDepartments)
				dr.Post("/", departmentHandler.CreateDepartment)
				dr.Put("/{id}", departmentHandler.RenameDepartment)
				dr.Delete("/{id}", departmentHandler.DeleteDepartment)
			})

			pr.Route("/faxes", func(fr chi.Router) {
				fr.Post("/upload", faxHandler.Upload)
				fr.Get("/", faxHandler.ListFaxes)
				fr.Get("/{id}", faxHandler.GetFax)
				fr.Get("/{id}/file", faxHandler.ServeFile)
				fr.Post("/{id}/status", faxHandler.UpdateStatus)
				fr.Get("/{id}/permissions", faxHandler.GetPermissions)
				fr.Post("/{id}/permissions", faxHandler.SetPermissions)
				fr.Post("/{id}/assign-department", faxHandler.AssignDepartment)
				fr.Get("/{id}/comments", faxHandler.ListComments)
				fr.Post("/{id}/comments", faxHandler.AddComment)
			})

			pr.Route("/workflows", func(wr chi.Router) {
				wr.Post("/", workflowHandler.CreateWorkflow)
				wr.Get("/", workflowHandler.ListWorkflows)
				wr.Get("/{id}", workflowHandler.GetWorkflow)
			})

			pr.Post("/sign/{workflowId}", workflowHandler.Sign)
		})
	})
}
