package chi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tastefeed/internal/domain"
	domart "github.com/kailas-cloud/tastefeed/internal/domain/article"
	"github.com/kailas-cloud/tastefeed/internal/domain/recommendation"
	logpkg "github.com/kailas-cloud/tastefeed/internal/logger"
	healthuc "github.com/kailas-cloud/tastefeed/internal/usecase/health"
)

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._@:-]{1,128}$`)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Limits bounds the list sizes clients may request.
type Limits struct {
	DefaultLimit    int
	MaxLimit        int
	DefaultClusters int
	MaxClusters     int
}

// Deps groups the services behind the HTTP API.
type Deps struct {
	Generator    FingerprintGenerator
	Fingerprints FingerprintStore
	Articles     Articles
	Taste        TasteProfiler
	Recommender  Recommender
	Health       HealthChecker
}

// Server serves the tastefeed HTTP API.
type Server struct {
	deps          Deps
	limits        Limits
	validate      *validator.Validate
	logger        *zap.Logger
	errorHandlers []errorHandler
	metrics       http.Handler
	now           func() time.Time
}

// NewServer creates an HTTP API server.
func NewServer(deps Deps, limits Limits, logger *zap.Logger) *Server {
	if limits.DefaultLimit <= 0 {
		limits.DefaultLimit = 50
	}
	if limits.MaxLimit < limits.DefaultLimit {
		limits.MaxLimit = max(500, limits.DefaultLimit)
	}
	if limits.DefaultClusters <= 0 {
		limits.DefaultClusters = 5
	}
	if limits.MaxClusters < limits.DefaultClusters {
		limits.MaxClusters = max(50, limits.DefaultClusters)
	}
	v := validator.New()
	_ = v.RegisterValidation("user_id", func(fl validator.FieldLevel) bool {
		return userIDPattern.MatchString(fl.Field().String())
	})
	s := &Server{
		deps:     deps,
		limits:   limits,
		validate: v,
		logger:   logger,
		metrics:  promhttp.Handler(),
		now:      time.Now,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrDimensionMismatch, http.StatusUnprocessableEntity, CodeDimensionMismatch),
		sentinelHandler(domain.ErrEmptyInput, http.StatusUnprocessableEntity, CodeEmptyInput),
		sentinelHandler(domain.ErrModelUnavailable, http.StatusServiceUnavailable, CodeModelUnavailable),
		sentinelHandler(domain.ErrEncodingFailed, http.StatusServiceUnavailable, CodeEncodingFailed),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/articles/{id}", func(r chi.Router) {
		r.Post("/fingerprint", s.GenerateFingerprint)
		r.Get("/fingerprint", s.GetFingerprint)
		r.Get("/similar", s.SimilarArticles)
	})

	r.Route("/users/{user}", func(r chi.Router) {
		r.Get("/centroids", s.Centroids)
		r.Get("/recommendations", s.Recommendations)
		r.Put("/likes/{id}", s.Like)
		r.Delete("/likes/{id}", s.Unlike)
	})
}

// GenerateFingerprint handles POST /articles/{id}/fingerprint.
func (s *Server) GenerateFingerprint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}

	f, err := s.deps.Generator.GenerateForArticle(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, FingerprintResponse{ID: id, Dimensions: len(f)})
}

// GetFingerprint handles GET /articles/{id}/fingerprint.
func (s *Server) GetFingerprint(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}

	f, found, err := s.deps.Fingerprints.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, CodeNotFound, fmt.Sprintf("no fingerprint for article %d", id))
		return
	}

	writeJSON(w, http.StatusOK, FingerprintResponse{ID: id, Dimensions: len(f), Fingerprint: f})
}

// SimilarArticles handles GET /articles/{id}/similar.
// The source article is fingerprinted on demand when it has none yet.
func (s *Server) SimilarArticles(w http.ResponseWriter, r *http.Request) {
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}
	limit, ok := s.intQuery(w, r, "limit", s.limits.DefaultLimit, s.limits.MaxLimit)
	if !ok {
		return
	}

	f, err := s.deps.Generator.Ensure(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	candidates, err := s.deps.Fingerprints.Search(r.Context(), f, limit, map[int64]struct{}{id: {}})
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	recs, err := s.resolve(r, candidates)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleList(recs))
}

// Centroids handles GET /users/{user}/centroids.
func (s *Server) Centroids(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}
	k, ok := s.intQuery(w, r, "k", s.limits.DefaultClusters, s.limits.MaxClusters)
	if !ok {
		return
	}

	centroids, found, err := s.deps.Taste.Centroids(r.Context(), user, k)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	likes, err := s.deps.Articles.LikeCount(r.Context(), user)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	resp := CentroidsResponse{User: user, Status: statusInsufficientData, Likes: likes, Centroids: [][]float32{}}
	if found {
		resp.Status = statusOK
		for _, c := range centroids {
			resp.Centroids = append(resp.Centroids, c)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// Recommendations handles GET /users/{user}/recommendations.
func (s *Server) Recommendations(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}
	limit, ok := s.intQuery(w, r, "limit", s.limits.DefaultLimit, s.limits.MaxLimit)
	if !ok {
		return
	}

	recs, err := s.deps.Recommender.Recommend(r.Context(), user, limit)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toArticleList(recs))
}

// Like handles PUT /users/{user}/likes/{id}.
func (s *Server) Like(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}

	var req LikeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	at := s.now()
	if req.LikedAt != nil {
		at = *req.LikedAt
	}

	if err := s.deps.Articles.Like(r.Context(), user, id, at); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unlike handles DELETE /users/{user}/likes/{id}.
func (s *Server) Unlike(w http.ResponseWriter, r *http.Request) {
	user, ok := s.userParam(w, r)
	if !ok {
		return
	}
	id, ok := s.articleID(w, r)
	if !ok {
		return
	}

	if err := s.deps.Articles.Unlike(r.Context(), user, id); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.deps.Health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{Status: string(report.Status), Checks: checks})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	s.metrics.ServeHTTP(w, r)
}

// resolve joins candidates with article metadata, dropping unknown ids.
func (s *Server) resolve(r *http.Request, candidates []recommendation.Candidate) ([]recommendation.Recommendation, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		ids[i] = c.ID
	}
	metas, err := s.deps.Articles.ArticlesByIDs(r.Context(), ids)
	if err != nil {
		return nil, err
	}

	out := make([]recommendation.Recommendation, 0, len(candidates))
	for _, c := range candidates {
		if m, ok := metas[c.ID]; ok {
			out = append(out, recommendation.Recommendation{Meta: m, Score: c.Score})
		}
	}
	return out, nil
}

func (s *Server) articleID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("article id must be a positive integer, got %q", raw))
		return 0, false
	}
	return id, true
}

func (s *Server) userParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	user := chi.URLParam(r, "user")
	if err := s.validate.Var(user, "required,user_id"); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			"user must be 1-128 characters of letters, digits and ._@:-")
		return "", false
	}
	return user, true
}

// intQuery reads an optional positive integer query parameter bounded by maxVal.
func (s *Server) intQuery(w http.ResponseWriter, r *http.Request, name string, def, maxVal int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err == nil {
		err = s.validate.Var(v, fmt.Sprintf("min=1,max=%d", maxVal))
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("%s must be between 1 and %d", name, maxVal))
		return 0, false
	}
	return v, true
}

func toArticleList(recs []recommendation.Recommendation) ArticleListResponse {
	items := make([]ArticleItem, len(recs))
	for i, rec := range recs {
		items[i] = toArticleItem(rec.Meta, rec.Score)
	}
	return ArticleListResponse{Items: items, Count: len(items)}
}

func toArticleItem(m domart.Meta, score float64) ArticleItem {
	item := ArticleItem{
		ID:         m.ID,
		Title:      m.Title,
		Link:       m.Link,
		Summary:    m.Summary,
		SourceName: m.SourceName,
		Score:      score,
	}
	if !m.PublishedAt.IsZero() {
		t := m.PublishedAt.UTC()
		item.PublishedAt = &t
	}
	return item
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// The client sees the sentinel's message, never the wrapped chain.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		var dme *domain.DimensionMismatchError
		if errors.As(err, &dme) {
			msg = dme.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}
