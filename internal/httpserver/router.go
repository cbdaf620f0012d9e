package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"keycrack/internal/auth"
	"keycrack/internal/cipher"
	"keycrack/internal/httpserver/handlers"
	"keycrack/internal/jobs"
)

type Deps struct {
	DB     *gorm.DB
	Logger *zap.SugaredLogger
	Signer *auth.Signer
	Cipher *cipher.Cipher
	Runner *jobs.Runner
	Store  jobs.Store
}

func NewRouter(d Deps) http.Handler {
	db, lg := d.DB, d.Logger
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, middleware.Logger)
	r.Post("/v1/auth/login", handlers.Login(db, d.Signer, lg))
	r.Get("/v1/cipher", handlers.CipherInfo(d.Cipher))
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(db, d.Signer))
		protected.Get("/v1/me", handlers.Me(db, lg))
		protected.Post("/v1/auth/logout", handlers.Logout(db, lg))
		protected.Group(func(admin chi.Router) { mountAdmin(admin, d) })
		protected.Post("/v1/cipher/transform", handlers.Transform(d.Cipher, db, lg))
		protected.Post("/v1/cipher/pairs", handlers.GeneratePairs(d.Cipher, db, lg))
		protected.Post("/v1/jobs", handlers.SubmitJob(d.Runner, db, lg))
		protected.Get("/v1/jobs", handlers.ListJobs(d.Store, lg))
		protected.Get("/v1/jobs/{id}", handlers.GetJob(d.Store, lg))
		protected.Post("/v1/jobs/{id}/cancel", handlers.CancelJob(d.Runner, d.Store, db, lg))
		protected.Get("/v1/logs", handlers.MyLogs(db, lg))
	})
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	return r
}

// mountAdmin registers the user administration routes behind the
// Administrator role. Callers must have authenticated the request.
func mountAdmin(admin chi.Router, d Deps) {
	db, lg := d.DB, d.Logger
	admin.Use(auth.RequireRole(auth.RoleAdmin))
	admin.Get("/v1/admin/users", handlers.ListUsers(db, lg))
	admin.Post("/v1/admin/users", handlers.CreateUser(db, lg))
	admin.Patch("/v1/admin/users/{id}", handlers.UpdateUser(db, d.Runner, d.Store, lg))
	admin.Delete("/v1/admin/users/{id}", handlers.DeleteUser(db, d.Runner, d.Store, lg))
}
