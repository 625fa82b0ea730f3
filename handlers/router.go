package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/satheeshds/roomrent/models"
	httpSwagger "github.com/swaggo/http-swagger"
)

var (
	adminOnly    = RequireRoles(models.RoleAdmin)
	adminManager = RequireRoles(models.RoleAdmin, models.RoleManager)
)

// NewRouter builds the HTTP routes. The package globals DB, Billing and
// Tokens must be set before requests are served. Forwarded client addresses
// are honored only with trustProxy; otherwise the login limiter keys on the
// socket peer.
func NewRouter(limiter *LoginLimiter, corsOrigins []string, trustProxy bool) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: corsOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition", "Retry-After"},
		MaxAge:         300,
	}))

	r.Get("/health", Health)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.With(limiter.Middleware).Post("/auth/login", Login)
		r.Get("/localization/languages", ListLanguages)
		r.Get("/localization/{code}", GetTranslations)

		r.Group(func(r chi.Router) {
			r.Use(Authenticate)

			r.Get("/auth/me", Me)
			r.Post("/auth/change-password", ChangePassword)

			// Rooms
			r.Get("/rooms", ListRooms)
			r.Get("/rooms/{id}", GetRoom)
			r.With(adminManager).Post("/rooms", CreateRoom)
			r.With(adminManager).Put("/rooms/{id}", UpdateRoom)
			r.With(adminManager).Delete("/rooms/{id}", DeleteRoom)

			// Tenants
			r.Get("/tenants", ListTenants)
			r.Post("/tenants", CreateTenant)
			r.Get("/tenants/{id}", GetTenant)
			r.Put("/tenants/{id}", UpdateTenant)
			r.Post("/tenants/{id}/move-out", MoveOutTenant)
			r.With(adminManager).Delete("/tenants/{id}", DeleteTenant)

			// Items
			r.Get("/items", ListItems)
			r.Get("/items/{id}", GetItem)
			r.With(adminManager).Post("/items", CreateItem)
			r.With(adminManager).Put("/items/{id}", UpdateItem)
			r.With(adminManager).Delete("/items/{id}", DeleteItem)

			// Invoices
			r.Get("/invoices", ListInvoices)
			r.Get("/invoices/{id}", GetInvoice)
			r.Get("/invoices/{id}/payments", GetInvoicePayments)
			r.Get("/invoices/{id}/export-pdf", ExportInvoicePDF)
			r.Group(func(r chi.Router) {
				r.Use(adminManager)
				r.Post("/invoices", CreateInvoice)
				r.Put("/invoices/{id}", UpdateInvoice)
				r.Delete("/invoices/{id}", DeleteInvoice)
				r.Post("/invoices/{id}/cancel", CancelInvoice)
				r.Post("/invoices/generate-monthly", GenerateMonthlyInvoices)
				r.Post("/invoices/mark-overdue", MarkOverdueInvoices)
			})

			// Payments
			r.Get("/payments", ListPayments)
			r.Post("/payments", CreatePayment)
			r.Get("/payments/{id}", GetPayment)
			r.With(adminManager).Put("/payments/{id}", UpdatePayment)
			r.With(adminManager).Delete("/payments/{id}", DeletePayment)
			r.With(adminManager).Post("/payments/{id}/verify", VerifyPayment)

			// Reports
			r.Route("/reports", func(r chi.Router) {
				r.Use(adminManager)
				r.Get("/dashboard", GetDashboard)
				r.Get("/monthly-revenue", GetMonthlyRevenue)
				r.Get("/outstanding", GetOutstanding)
				r.Get("/occupancy", GetOccupancy)
				r.Get("/payments/export", ExportPaymentsCSV)
			})

			// Localization
			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/localization/languages", CreateLanguage)
				r.Put("/localization/languages/{code}", UpdateLanguage)
				r.Delete("/localization/languages/{code}", DeleteLanguage)
				r.Put("/localization/{code}/translations", UpsertTranslations)
				r.Delete("/localization/{code}/translations/{key}", DeleteTranslation)
			})

			// System management
			r.Route("/systemmanagement", func(r chi.Router) {
				r.With(adminOnly).Get("/info", GetSystemInfo)
				r.With(adminManager).Get("/settings", ListSettings)
				r.With(adminManager).Get("/settings/{key}", GetSetting)
				r.With(adminOnly).Post("/settings", CreateSetting)
				r.With(adminOnly).Put("/settings/{key}", UpdateSetting)
				r.With(adminOnly).Delete("/settings/{key}", DeleteSetting)
			})

			// Users
			r.Route("/users", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/", ListUsers)
				r.Post("/", CreateUser)
				r.Get("/{id}", GetUser)
				r.Put("/{id}", UpdateUser)
				r.Delete("/{id}", DeleteUser)
				r.Post("/{id}/reset-password", ResetPassword)
			})

			// Database
			r.Route("/database", func(r chi.Router) {
				r.Use(adminOnly)
				r.Get("/status", GetDatabaseStatus)
				r.Post("/migrate", RunMigrations)
				r.Post("/export", ExportDatabase)
			})
		})
	})

	return r
}

// Health reports whether the database is reachable.
func Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := DB.Ping(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable", err.Error())
		return
	}
	writeMessage(w, http.StatusOK, "ok")
}
