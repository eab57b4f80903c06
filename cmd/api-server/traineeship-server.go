package main

import (
	"log"
	"net/http"
	"os"

	"traineeship/config"
	"traineeship/db"
	"traineeship/db/migrations"
	"traineeship/internal/auth"
	"traineeship/internal/filestore"
	"traineeship/internal/handlers"
	"traineeship/internal/ministry"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Cannot create logger: %v", err)
	}
	defer logger.Sync()

	dbConn, err := sqlx.Connect("postgres", cfg.PostgresConn)
	if err != nil {
		logger.Fatal("cannot connect to DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := migrations.Run(dbConn.DB); err != nil {
		logger.Fatal("cannot run migrations", zap.Error(err))
	}

	files, err := filestore.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal("cannot init file storage", zap.Error(err))
	}

	// Без адреса реестра работаем с заглушкой
	var verifier ministry.Verifier = ministry.MockVerifier{}
	if cfg.MinistryURL != "" {
		verifier = ministry.NewClient(cfg.MinistryURL)
	}

	store := db.NewStorage(dbConn)
	h := handlers.NewHandler(store, files, verifier, logger, cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)

		// регистрация и вход
		r.Post("/auth/register/company", h.RegisterCompanyHandler)
		r.Post("/auth/register/student", h.RegisterStudentHandler)
		r.Post("/auth/register/department-head", h.RegisterDepartmentHeadHandler)
		r.Post("/auth/login", h.LoginHandler)

		// объявления читаются без токена
		r.Get("/training-posts", h.GetPostsHandler)
		r.Get("/training-posts/{postId}", h.GetPostHandler)

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.JWTSecret))

			r.Get("/auth/me", h.MeHandler)
			r.Put("/auth/updatepassword", h.UpdatePasswordHandler)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(db.RoleCompany))
				r.Post("/training-posts", h.CreatePostHandler)
				r.Put("/training-posts/{postId}", h.UpdatePostHandler)
				r.Delete("/training-posts/{postId}", h.DeletePostHandler)
			})

			// компании
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(db.RoleCompany))
				r.Put("/companies/profile", h.UpdateCompanyProfileHandler)
				r.Get("/companies/posts", h.GetCompanyPostsHandler)
				r.Get("/companies/applications", h.GetCompanyApplicationsHandler)
				r.Put("/companies/applications/{applicationId}", h.DecideApplicationHandler)
				r.Post("/companies/applications/{applicationId}/approval", h.SubmitApprovalFileHandler)
				r.Post("/companies/applications/{applicationId}/activity", h.SubmitActivityReportHandler)
			})

			// студенты
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(db.RoleStudent))
				r.Get("/students/posts", h.GetAvailablePostsHandler)
				r.Post("/students/posts/{postId}/apply", h.ApplyHandler)
				r.Get("/students/applications", h.GetStudentApplicationsHandler)
				r.Put("/students/applications/{applicationId}/select", h.SelectApplicationHandler)
				r.Post("/students/training/report", h.SubmitFinalReportHandler)
			})

			// руководители отделений
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireRole(db.RoleDepartmentHead))
				r.Get("/department-heads/students", h.GetDepartmentStudentsHandler)
				r.Get("/department-heads/posts/pending", h.GetPendingPostsHandler)
				r.Put("/department-heads/posts/{postId}/review", h.ReviewPostHandler)
				r.Get("/department-heads/applications/pending", h.GetPendingApplicationsHandler)
				r.Post("/department-heads/applications/{applicationId}/document", h.SubmitOfficialDocumentHandler)
			})
		})
	})

	logger.Info("starting server", zap.String("address", cfg.ServerAddress))
	if err := http.ListenAndServe(cfg.ServerAddress, r); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
