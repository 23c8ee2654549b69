// Package stubserver is a self-contained, in-memory stand-in for the game
// backend, mirroring its REST contract: resource bodies on success, an
// HTTP status plus {"detail": ...} on failure, and a 403 on login for
// accounts that predate password support. The client uses it for local
// development and integration tests; the production backend is a separate
// system.
package stubserver

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"github.com/starfallrpg/starfall-client/internal/client/models"
	"github.com/starfallrpg/starfall-client/internal/common"
	"github.com/starfallrpg/starfall-client/internal/logging"
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,24}$`)

// Server holds all stub state behind one mutex; handler bodies are short
// and never block on I/O, so a single lock is plenty.
type Server struct {
	log      logging.Logger
	jwtKey   []byte
	tokenTTL time.Duration
	now      func() time.Time
	rng      *rand.Rand

	mu       sync.Mutex
	accounts map[string]*account
	catalog  []*models.HeroCatalogEntry

	router *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithSeed fixes the gacha RNG seed, for tests.
func WithSeed(seed int64) Option {
	return func(s *Server) { s.rng = rand.New(rand.NewSource(seed)) }
}

func New(log logging.Logger, opts ...Option) *Server {
	s := &Server{
		log:      log,
		jwtKey:   common.GenerateRandByteArray(32),
		tokenTTL: defaultTokenTTL,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		accounts: make(map[string]*account),
		catalog:  seedCatalog(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := mux.NewRouter()
	r.HandleFunc("/api/register", s.handleRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/login", s.handleLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/password", s.handleSetPassword).Methods(http.MethodPost)
	r.HandleFunc("/api/catalog", s.handleCatalog).Methods(http.MethodGet)

	auth := r.NewRoute().Subrouter()
	auth.Use(s.authMiddleware)
	auth.HandleFunc("/api/user", s.handleGetUser).Methods(http.MethodGet)
	auth.HandleFunc("/api/heroes", s.handleListHeroes).Methods(http.MethodGet)
	auth.HandleFunc("/api/heroes/{id}", s.handleGetHero).Methods(http.MethodGet)
	auth.HandleFunc("/api/heroes/{id}/upgrade", s.handleUpgradeHero).Methods(http.MethodPost)
	auth.HandleFunc("/api/gacha/pull", s.handlePull).Methods(http.MethodPost)
	auth.HandleFunc("/api/idle/claim", s.handleClaimIdle).Methods(http.MethodPost)
	auth.HandleFunc("/api/rating", s.handleRating).Methods(http.MethodGet)

	s.router = r
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// AddLegacyAccount registers an account without a password hash, as left
// behind by clients that predate password support. Login yields a 403
// until a password is set. Intended for development and tests.
func (s *Server) AddLegacyAccount(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.newAccount(username, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

type ctxKey int

const ctxKeyUsername ctxKey = 0

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get(common.AuthorizationHeaderName))
		if !ok {
			writeDetail(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		username, err := s.verifyToken(token)
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}
		s.mu.Lock()
		_, exists := s.findAccount(username)
		s.mu.Unlock()
		if !exists {
			writeDetail(w, http.StatusUnauthorized, "unknown account")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyUsername, username)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) accountFromContext(r *http.Request) *account {
	username, _ := r.Context().Value(ctxKeyUsername).(string)
	a, _ := s.findAccount(username)
	return a
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if !usernamePattern.MatchString(req.Username) {
		writeDetail(w, http.StatusBadRequest, common.ErrorInvalidUsernameFormat.Error())
		return
	}
	if len(req.Password) < 4 {
		writeDetail(w, http.StatusBadRequest, common.ErrorInvalidPasswordFormat.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.findAccount(req.Username); exists {
		writeDetail(w, http.StatusConflict, common.ErrorUsernameAlreadyExists.Error())
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not hash password")
		return
	}
	a := s.newAccount(req.Username, hash)

	token, err := s.issueToken(a.user.Username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.log.Info(r.Context(), "account registered", "username", a.user.Username)
	u := a.user
	writeJSON(w, http.StatusCreated, authResponse{User: &u, Token: token})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.findAccount(req.Username)
	if !exists {
		writeDetail(w, http.StatusUnauthorized, "invalid username or password")
		return
	}
	if a.passwordHash == nil {
		// account predates password support
		writeDetail(w, http.StatusForbidden, "password not set for this account")
		return
	}
	if !checkPassword(a.passwordHash, req.Password) {
		writeDetail(w, http.StatusUnauthorized, "invalid username or password")
		return
	}

	a.user.LoginStreak++
	token, err := s.issueToken(a.user.Username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	u := a.user
	writeJSON(w, http.StatusOK, authResponse{User: &u, Token: token})
}

func (s *Server) handleSetPassword(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if len(req.Password) < 4 {
		writeDetail(w, http.StatusBadRequest, common.ErrorInvalidPasswordFormat.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	a, exists := s.findAccount(req.Username)
	if !exists {
		writeDetail(w, http.StatusNotFound, common.ErrorNotFound.Error())
		return
	}
	if a.passwordHash != nil {
		writeDetail(w, http.StatusConflict, "password already set")
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not hash password")
		return
	}
	a.passwordHash = hash

	token, err := s.issueToken(a.user.Username)
	if err != nil {
		writeDetail(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.log.Info(r.Context(), "legacy account upgraded", "username", a.user.Username)
	// no user body here; clients follow up with GET /api/user
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.catalog)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountFromContext(r)
	a.user.CombatRating = combatRating(a)
	u := a.user
	writeJSON(w, http.StatusOK, &u)
}

func (s *Server) handleListHeroes(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountFromContext(r)
	if a.heroes == nil {
		writeJSON(w, http.StatusOK, []*models.OwnedHero{})
		return
	}
	writeJSON(w, http.StatusOK, a.heroes)
}

func (s *Server) handleGetHero(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountFromContext(r)
	h := findOwnedByInstanceID(a.heroes, mux.Vars(r)["id"])
	if h == nil {
		writeDetail(w, http.StatusNotFound, common.ErrorNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handleUpgradeHero(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountFromContext(r)
	h := findOwnedByInstanceID(a.heroes, mux.Vars(r)["id"])
	if h == nil {
		writeDetail(w, http.StatusNotFound, common.ErrorNotFound.Error())
		return
	}

	cost := int64(h.Level * upgradeCostPerLevel)
	if a.user.Gold < cost {
		writeDetail(w, http.StatusBadRequest, common.ErrorInsufficientBalance.Error())
		return
	}
	a.user.Gold -= cost
	h.Level++
	recomputeStats(h, s.catalogEntry(h.HeroID))
	writeJSON(w, http.StatusOK, h)
}

type pullRequest struct {
	Count int `json:"count"`
}

func (s *Server) handlePull(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.Count != 1 && req.Count != 10 {
		writeDetail(w, http.StatusBadRequest, "pull count must be 1 or 10")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountFromContext(r)

	cost := int64(req.Count) * gemsPerPull
	if a.user.Gems < cost {
		writeDetail(w, http.StatusBadRequest, common.ErrorInsufficientBalance.Error())
		return
	}
	a.user.Gems -= cost

	res := s.pull(a, req.Count)
	s.log.Info(r.Context(), "gacha pull", "username", a.user.Username, "count", req.Count)
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleClaimIdle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountFromContext(r)
	writeJSON(w, http.StatusOK, s.claimIdle(a))
}

func (s *Server) handleRating(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := s.accountFromContext(r)
	writeJSON(w, http.StatusOK, map[string]int{"combatRating": combatRating(a)})
}
