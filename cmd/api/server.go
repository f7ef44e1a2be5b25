package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"creatorflow/auth"
	"creatorflow/campaign"
	"creatorflow/escrow"
	"creatorflow/meeting"
)

type authService interface {
	Register(ctx context.Context, req auth.RegisterRequest) (auth.Session, error)
	Login(ctx context.Context, req auth.LoginRequest) (auth.Session, error)
	GoogleLogin(ctx context.Context, req auth.GoogleLoginRequest) (auth.Session, error)
	GetUserByID(ctx context.Context, userID string) (*auth.User, error)
	VerifyToken(token string) (string, auth.Role, error)
	TokenTTL() time.Duration
}

type meetingService interface {
	Schedule(ctx context.Context, req meeting.CreateRequest) (meeting.Meeting, error)
	List(ctx context.Context) ([]meeting.Meeting, error)
}

type campaignService interface {
	List(ctx context.Context, ownerID string) ([]campaign.Funding, error)
	Get(ctx context.Context, ownerID, id string) (campaign.Funding, error)
	Create(ctx context.Context, ownerID string, req campaign.CreateRequest) (campaign.Funding, error)
	Fund(ctx context.Context, ownerID, id string, amount decimal.Decimal) (campaign.Funding, escrow.Transaction, error)
	ReleaseMilestone(ctx context.Context, ownerID, id string, position int) (campaign.Funding, escrow.Transaction, error)
}

type escrowService interface {
	Dashboard(ctx context.Context, ownerID string) (escrow.Dashboard, error)
	Feed(ctx context.Context, ownerID string, limit int) ([]escrow.FeedItem, error)
	Adjust(ctx context.Context, ownerID string, req escrow.AdjustmentRequest) (escrow.Transaction, error)
}

// Server holds the HTTP handlers and their dependencies. A zero Server is
// usable in tests; unset services are never reached by those tests.
type Server struct {
	logger          *slog.Logger
	authService     authService
	meetingService  meetingService
	campaignService campaignService
	escrowService   escrowService
	authLimiter     *ipLimiter
	ping            func(ctx context.Context) error
	corsOrigin      string
	secureCookies   bool
	exposeErrors    bool
	// trustProxy honours X-Forwarded-For and X-Real-IP. Enable it only when
	// a reverse proxy in front of the API overwrites those headers.
	trustProxy      bool
}

func (s *Server) log() *slog.Logger {
	if s.logger == nil {
		return slog.Default()
	}
	return s.logger
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	if s.trustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(requestIDMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.corsMiddleware)

	r.Get("/healthz", s.handleHealthz)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(s.rateLimitMiddleware)
				r.Post("/register", s.handleRegister)
				r.Post("/login", s.handleLogin)
				r.Post("/google", s.handleGoogleLogin)
			})
			r.Post("/logout", s.handleLogout)
			r.With(s.authMiddleware).Get("/me", s.handleMe)
		})

		r.Post("/meetings", s.handleCreateMeeting)
		r.Get("/meetings", s.handleListMeetings)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/campaigns", s.handleListCampaigns)
			r.Post("/campaigns", s.handleCreateCampaign)
			r.Get("/campaigns/{campaignID}", s.handleGetCampaign)
			r.Post("/campaigns/{campaignID}/fund", s.handleFundCampaign)
			r.Post("/campaigns/{campaignID}/milestones/{position}/release", s.handleReleaseMilestone)

			r.Get("/escrow/dashboard", s.handleEscrowDashboard)
			r.Get("/escrow/transactions", s.handleEscrowTransactions)
			r.Post("/escrow/adjustments", s.handleCreateAdjustment)
		})
	})

	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			s.log().WarnContext(r.Context(), "health check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
	}
	writeSuccess(w, http.StatusOK, map[string]string{"state": "ok"})
}
