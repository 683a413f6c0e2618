package router

import (
	"net/http"

	"github.com/boostly/backend/internal/auth"
	"github.com/boostly/backend/internal/balance"
	"github.com/boostly/backend/internal/reports"
	"github.com/boostly/backend/internal/review"
	"github.com/boostly/backend/internal/settings"
	"github.com/boostly/backend/internal/users"
)

// New returns an http.Handler serving the admin console API under /admin.
// Every route except login goes through the adminAuth middleware.
func New(
	authHandler *auth.Handler,
	reviewHandler *review.Handler,
	balanceHandler *balance.Handler,
	usersHandler *users.Handler,
	reportsHandler *reports.Handler,
	settingsHandler *settings.Handler,
	adminAuth func(http.Handler) http.Handler,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /admin/auth/login", authHandler.Login)

	authed := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, adminAuth(h))
	}

	authed("GET /admin/me", usersHandler.GetMe)

	// Review workflow: tasks and their submissions share one endpoint family.
	authed("GET /admin/tasks", reviewHandler.ListTasks)
	authed("GET /admin/tasks/{id}", reviewHandler.GetTask)
	authed("POST /admin/tasks/{id}/approve", reviewHandler.Approve)
	authed("POST /admin/tasks/{id}/reject", reviewHandler.Reject)

	authed("GET /admin/balance-requests", balanceHandler.List)
	authed("POST /admin/balance-requests/{id}/approve", balanceHandler.Approve)
	authed("POST /admin/balance-requests/{id}/reject", balanceHandler.Reject)

	authed("GET /admin/users", usersHandler.List)
	authed("GET /admin/users/{id}", usersHandler.Get)
	authed("PATCH /admin/users/{id}", usersHandler.Update)
	authed("POST /admin/users/{id}/balance", usersHandler.AdjustBalance)

	authed("GET /admin/reports/ledger", reportsHandler.ListLedger)
	authed("GET /admin/reports/summary", reportsHandler.Summary)

	authed("GET /admin/settings", settingsHandler.Get)
	authed("PUT /admin/settings", settingsHandler.Put)

	return mux
}
