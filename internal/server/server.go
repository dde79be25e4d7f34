// Package server is the thin HTTP collaborator around the ledger core: it
// marshals JSON payloads in and out, authenticates actors, and maps domain
// errors to status codes. No ledger rules live here.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/splitledger/splitledger/internal/auth"
	"github.com/splitledger/splitledger/internal/ledger"
	"github.com/splitledger/splitledger/internal/storage"
)

// Server wires the HTTP API to the ledger core and its collaborators.
type Server struct {
	ledger *ledger.Service
	store  storage.Store
	authn  auth.Authenticator
	jwt    *auth.JWTManager
}

// New creates a server around the given services.
func New(ledgerSvc *ledger.Service, store storage.Store, authn auth.Authenticator, jwt *auth.JWTManager) *Server {
	return &Server{
		ledger: ledgerSvc,
		store:  store,
		authn:  authn,
		jwt:    jwt,
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(s.jwt))

			r.Post("/groups", s.handleCreateGroup)
			r.Get("/groups", s.handleListGroups)
			r.Get("/groups/{groupID}", s.handleGetGroup)
			r.Post("/groups/{groupID}/members", s.handleAddMembers)
			r.Get("/groups/{groupID}/expenses", s.handleListExpenses)
			r.Get("/groups/{groupID}/unsettled", s.handleListUnsettled)
			r.Get("/groups/{groupID}/plan", s.handleOptimize)
			r.Post("/groups/{groupID}/plan/accept", s.handleAcceptPlan)

			r.Post("/expenses", s.handleCreateExpense)
			r.Get("/expenses/{expenseID}", s.handleGetExpense)
			r.Put("/expenses/{expenseID}", s.handleEditExpense)
			r.Delete("/expenses/{expenseID}", s.handleDeleteExpense)
			r.Post("/expenses/{expenseID}/settle", s.handleSettleShare)
		})
	})

	return r
}
