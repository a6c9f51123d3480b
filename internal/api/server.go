package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/kjannette/trahn-planner/internal/logger"
	"github.com/kjannette/trahn-planner/internal/models"
	"github.com/kjannette/trahn-planner/internal/recommend"
	"github.com/kjannette/trahn-planner/internal/risk"
)

const maxQueryLimit = 500

var dateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// --- dependencies ---

type Pinger interface {
	Ping(ctx context.Context) error
}

type PlanStore interface {
	Record(ctx context.Context, run *models.PlanRun) (*models.PlanRun, error)
	Get(ctx context.Context, id uuid.UUID) (*models.PlanRun, error)
	GetByDay(ctx context.Context, planDay string) ([]models.PlanRun, error)
	GetRecent(ctx context.Context, limit int) ([]models.PlanRun, error)
}

type RecommendationStore interface {
	Record(ctx context.Context, run *models.RecommendationRun) (*models.RecommendationRun, error)
	Get(ctx context.Context, id uuid.UUID) (*models.RecommendationRun, error)
	GetRecent(ctx context.Context, limit int) ([]models.RecommendationRun, error)
}

type Recommender interface {
	Recommend(ctx context.Context, coinData, prompt string) recommend.Result
}

type SnapshotFeed interface {
	Snapshot(ctx context.Context, symbol string) (models.MarketSnapshot, error)
}

type PriceSource interface {
	GetPrice(ctx context.Context, symbol string) (models.Quote, error)
}

type ETHQuoter interface {
	ETHPrice(ctx context.Context) (models.Quote, error)
}

type Notifier interface {
	SendPlan(m models.MarketSnapshot, table string, warnings []string)
	SendDemoNotice(reason string)
}

// Deps wires the server. Optional dependencies are left nil: history routes
// answer 503 without stores, market routes answer 503 without feeds.
type Deps struct {
	DB              Pinger
	Plans           PlanStore
	Recommendations RecommendationStore
	Guardian        *risk.Guardian
	Recommender     Recommender
	Feed            SnapshotFeed
	Prices          PriceSource
	OnChain         ETHQuoter
	Notifier        Notifier

	DefaultMarket  models.MarketSnapshot
	DefaultAccount models.AccountSettings
	DefaultPrompt  string
}

type Options struct {
	Port                   int
	APIKey                 string
	CORSOrigin             string
	RecommendRatePerMinute int // per client; 0 disables
	// TrustProxy keys clients by X-Forwarded-For. Only set it behind a proxy
	// that overwrites the header.
	TrustProxy bool
}

type Server struct {
	deps       Deps
	router     *mux.Router
	handler    http.Handler
	httpServer *http.Server
	apiKey     string
	limiter    *clientLimiter
	trustProxy bool
	log        *logrus.Entry
}

func NewServer(deps Deps, opts Options) *Server {
	if deps.Guardian == nil {
		deps.Guardian = risk.NewGuardian(risk.Limits{})
	}
	s := &Server{
		deps:       deps,
		router:     mux.NewRouter(),
		apiKey:     opts.APIKey,
		trustProxy: opts.TrustProxy,
		log:        logger.Component("api"),
	}
	if opts.RecommendRatePerMinute > 0 {
		s.limiter = newClientLimiter(opts.RecommendRatePerMinute)
	}

	r := s.router

	// Grid routes
	r.HandleFunc("/v1/grids/defaults", s.handleGridDefaults).Methods(http.MethodGet)
	r.HandleFunc("/v1/grids/calculate", s.handleGridCalculate).Methods(http.MethodPost)
	r.HandleFunc("/v1/grids/export", s.handleGridExport).Methods(http.MethodPost)
	r.HandleFunc("/v1/grids/history", s.handleGridHistory).Methods(http.MethodGet)
	r.HandleFunc("/v1/grids/day/{date}", s.handleGridsByDay).Methods(http.MethodGet)
	r.HandleFunc("/v1/grids/{id}", s.handleGridGet).Methods(http.MethodGet)

	// Market routes
	r.HandleFunc("/v1/market/{symbol}/snapshot", s.handleMarketSnapshot).Methods(http.MethodGet)
	r.HandleFunc("/v1/market/{symbol}/price", s.handleMarketPrice).Methods(http.MethodGet)

	// Recommendation routes
	r.Handle("/v1/recommendations", s.rateLimit(http.HandlerFunc(s.handleRecommend))).Methods(http.MethodPost)
	r.HandleFunc("/v1/recommendations/sort", s.handleRecommendationSort).Methods(http.MethodPost)
	r.HandleFunc("/v1/recommendations/export", s.handleRecommendationExport).Methods(http.MethodPost)
	r.HandleFunc("/v1/recommendations/history", s.handleRecommendationHistory).Methods(http.MethodGet)
	r.HandleFunc("/v1/recommendations/{id}", s.handleRecommendationGet).Methods(http.MethodGet)
	r.HandleFunc("/v1/recommendations/{id}/export", s.handleRecommendationGetExport).Methods(http.MethodGet)

	// Health check (no auth required)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.handler = corsMiddleware(s.authMiddleware(r), opts.CORSOrigin)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", opts.Port),
		Handler:      s.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	return s
}

// Handler returns the full middleware chain.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Start() error {
	s.log.Infof("REST API server started on http://localhost%s", s.httpServer.Addr)
	s.log.Infof("Health check: http://localhost%s/health", s.httpServer.Addr)
	if s.apiKey != "" {
		s.log.Info("Authentication: enabled (Bearer token)")
	} else {
		s.log.Info("Authentication: disabled (no API_KEY configured)")
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// --- middleware ---

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		auth := r.Header.Get("Authorization")
		if auth == "" {
			writeError(w, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			writeError(w, http.StatusUnauthorized, "invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.get(clientKey(r, s.trustProxy)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded, try again shortly")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientLimiter hands out one token bucket per client address.
type clientLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perMin   int
}

func newClientLimiter(perMinute int) *clientLimiter {
	return &clientLimiter{limiters: make(map[string]*rate.Limiter), perMin: perMinute}
}

func (c *clientLimiter) get(key string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.limiters[key]
	if !ok {
		l = rate.NewLimiter(rate.Every(time.Minute/time.Duration(c.perMin)), c.perMin)
		c.limiters[key] = l
	}
	return l
}

func clientKey(r *http.Request, trustProxy bool) string {
	if fwd := r.Header.Get("X-Forwarded-For"); trustProxy && fwd != "" {
		return strings.TrimSpace(strings.Split(fwd, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- validation helpers ---

func validateDate(date string) bool {
	if !dateRegexp.MatchString(date) {
		return false
	}
	_, err := time.Parse("2006-01-02", date)
	return err == nil
}

func parseLimit(r *http.Request, defaultLimit int) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultLimit
	}
	if n > maxQueryLimit {
		return maxQueryLimit
	}
	return n
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id, expected UUID")
		return uuid.Nil, false
	}
	return id, true
}

// decodeBody reads a JSON request body, keeping numbers as json.Number.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.UseNumber()
	return dec.Decode(v)
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		logger.Component("api").WithError(err).Error("Failed to encode response")
		status = http.StatusInternalServerError
		body = []byte(`{"error":"failed to encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func writeAttachment(w http.ResponseWriter, filename string, body []byte) {
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
