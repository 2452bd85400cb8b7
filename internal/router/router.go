package router

import (
	"log/slog"
	"net/http"

	"github.com/senyabanana/furniture-market/internal/handlers"
	"github.com/senyabanana/furniture-market/internal/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Handlers - набор обработчиков API. Uploads может быть nil.
type Handlers struct {
	Requests  *handlers.RequestHandler
	Proposals *handlers.ProposalHandler
	Uploads   *handlers.UploadHandler
}

func InitRoutes(h Handlers, tokens middleware.TokenParser, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/api/ping", handlers.PingHandler)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(tokens))

		r.Route("/api/requests", func(r chi.Router) {
			r.Post("/", h.Requests.CreateRequest)
			r.Get("/my", h.Requests.GetMyRequests)
			r.Get("/region/{region}", h.Requests.GetRegionRequests)
			r.Get("/{requestId}", h.Requests.GetRequest)
			r.Post("/{requestId}/close", h.Requests.CloseRequest)
			if h.Requests.History != nil {
				r.Get("/{requestId}/history", h.Requests.GetRequestHistory)
			}
			r.Post("/{requestId}/proposals", h.Proposals.SubmitProposal)
			r.Get("/{requestId}/proposals", h.Proposals.GetRequestProposals)
		})

		r.Route("/api/proposals", func(r chi.Router) {
			r.Get("/my", h.Proposals.GetMyProposals)
			r.Post("/{proposalId}/accept", h.Proposals.AcceptProposal)
			r.Post("/{proposalId}/reject", h.Proposals.RejectProposal)
			r.Post("/{proposalId}/withdraw", h.Proposals.WithdrawProposal)
		})

		if h.Uploads != nil {
			r.Post("/api/uploads/photos", h.Uploads.UploadPhoto)
		}
	})

	return r
}
