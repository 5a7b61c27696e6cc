// Package httpapi exposes the trophycase JSON API over HTTP.
package httpapi

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/and161185/trophycase/internal/service"
)

const maxBodyBytes = 1 << 20

// Options tunes cookie and CORS behaviour.
type Options struct {
	CookieSecure bool
	CORSOrigins  []string // CORS is disabled when empty
}

// Server wires services into HTTP handlers.
type Server struct {
	auth         service.AuthService
	achievements service.AchievementService
	sessions     service.SessionService
	log          *zap.Logger

	cookieSecure bool
	corsOrigins  []string
}

// New constructs the API server with injected services.
func New(
	auth service.AuthService,
	achievements service.AchievementService,
	sessions service.SessionService,
	log *zap.Logger,
	opts Options,
) *Server {
	return &Server{
		auth:         auth,
		achievements: achievements,
		sessions:     sessions,
		log:          log,
		cookieSecure: opts.CookieSecure,
		corsOrigins:  opts.CORSOrigins,
	}
}

// Routes returns the router with the full middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID, Logging(s.log), Recover(s.log))
	if len(s.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.corsOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Content-Type", HeaderRequestID},
			ExposedHeaders:   []string{HeaderRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: msgNotFound})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, okResponse{OK: true})
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(Sessions(s.sessions, s.log))

		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Get("/user", s.currentUser)
		r.Get("/achievements", s.listAchievements)
		r.Post("/achievements/unlock", s.unlock)
		r.Get("/db-status", s.dbStatus)
	})

	return r
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email,omitempty"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// meResponse reports a missing email as null.
type meResponse struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	Email    *string `json:"email"`
}

type achievementResponse struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IconPath    string `json:"iconPath"`
	Category    string `json:"category"`
	Unlocked    bool   `json:"unlocked"`
}

type unlockRequest struct {
	AchievementName string `json:"achievementName"`
}

type unlockResponse struct {
	Unlocked bool `json:"unlocked"`
}

type statusResponse struct {
	Users            int64 `json:"users"`
	Achievements     int64 `json:"achievements"`
	UserAchievements int64 `json:"userAchievements"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

// decode reads a JSON body; on failure it has already responded.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: msgInvalidJSON})
		return false
	}
	return true
}

// register creates the account and logs the user in. Once the account exists
// the reply is 201; without a session the client logs in separately.
func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := s.auth.Register(r.Context(), req.Username, req.Password, req.Email)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	if token, exp, err := s.sessions.Issue(r.Context(), id); err != nil {
		s.log.Warn("session after register",
			zap.Int64("user_id", id),
			zap.String("request_id", RequestIDFromCtx(r.Context())),
			zap.Error(err),
		)
	} else {
		s.setSessionCookie(w, token, exp)
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: id, Username: req.Username})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decode(w, r, &req) {
		return
	}
	u, err := s.auth.Login(r.Context(), req.Username, req.Password, clientIP(r))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	token, exp, err := s.sessions.Issue(r.Context(), u.ID)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	s.setSessionCookie(w, token, exp)
	writeJSON(w, http.StatusOK, userResponse{ID: u.ID, Username: u.Username})
}

// logout is idempotent: without a cookie there is nothing to revoke.
func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		if err := s.auth.Logout(r.Context(), c.Value); err != nil {
			writeError(w, r, s.log, err)
			return
		}
	}
	s.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.CurrentUser(r.Context(), ViewerFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: u.ID, Username: u.Username, Email: u.Email})
}

func (s *Server) listAchievements(w http.ResponseWriter, r *http.Request) {
	list, err := s.achievements.ListForViewer(r.Context(), ViewerFromCtx(r.Context()))
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	out := make([]achievementResponse, len(list))
	for i, a := range list {
		out[i] = achievementResponse{
			Name:        a.Name,
			Description: a.Description,
			IconPath:    a.IconPath,
			Category:    a.Category,
			Unlocked:    a.Unlocked,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) unlock(w http.ResponseWriter, r *http.Request) {
	viewer := ViewerFromCtx(r.Context())
	if !viewer.Authenticated() {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: msgNotAuthenticated})
		return
	}
	var req unlockRequest
	if !decode(w, r, &req) {
		return
	}
	ok, err := s.achievements.Unlock(r.Context(), viewer, req.AchievementName)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, unlockResponse{Unlocked: ok})
}

func (s *Server) dbStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.achievements.Status(r.Context())
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Users:            st.Users,
		Achievements:     st.Achievements,
		UserAchievements: st.UserAchievements,
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
