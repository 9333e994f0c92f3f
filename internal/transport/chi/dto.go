package chi

import "time"

// ErrorCode is a stable machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeValidationFailed  ErrorCode = "validation_failed"
	CodeNotFound          ErrorCode = "not_found"
	CodeDimensionMismatch ErrorCode = "dimension_mismatch"
	CodeEmptyInput        ErrorCode = "empty_input"
	CodeModelUnavailable  ErrorCode = "model_unavailable"
	CodeEncodingFailed    ErrorCode = "encoding_failed"
	CodeInternalError     ErrorCode = "internal_error"
)

// Taste profile statuses.
const (
	statusOK               = "ok"
	statusInsufficientData = "insufficient_data"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// FingerprintResponse describes a stored fingerprint.
type FingerprintResponse struct {
	ID          int64     `json:"id"`
	Dimensions  int       `json:"dimensions"`
	Fingerprint []float32 `json:"fingerprint,omitempty"`
}

// ArticleItem is an article with its similarity score.
type ArticleItem struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Link        string     `json:"link,omitempty"`
	Summary     string     `json:"summary,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	SourceName  string     `json:"source_name,omitempty"`
	Score       float64    `json:"score"`
}

// ArticleListResponse wraps ranked articles.
type ArticleListResponse struct {
	Items []ArticleItem `json:"items"`
	Count int           `json:"count"`
}

// CentroidsResponse holds a user's taste profile.
type CentroidsResponse struct {
	User      string      `json:"user"`
	Status    string      `json:"status"`
	Likes     int         `json:"likes"`
	Centroids [][]float32 `json:"centroids"`
}

// LikeRequest is the optional body of PUT /users/{user}/likes/{id}.
type LikeRequest struct {
	LikedAt *time.Time `json:"liked_at,omitempty"`
}

// HealthResponse reports aggregated component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
