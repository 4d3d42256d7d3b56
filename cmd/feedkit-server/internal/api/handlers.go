// Package api provides the HTTP routes of the feedkit callback server.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/coregx/feedkit"
	"github.com/coregx/feedkit/reader"
	"github.com/gorilla/mux"
	"golang.org/x/time/rate"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Handler holds dependencies for API handlers.
type Handler struct {
	callback   *feedkit.Callback
	subscriber *feedkit.Subscriber
	store      *feedkit.Store
	reader     *reader.Reader
	limiter    *rate.Limiter
	logger     feedkit.Logger
}

// NewHandler creates a new API handler. r is used for hub discovery when a
// subscribe request names only a topic. A nil limiter leaves /api/v1 unthrottled;
// the callback route is never throttled.
func NewHandler(
	callback *feedkit.Callback,
	subscriber *feedkit.Subscriber,
	store *feedkit.Store,
	r *reader.Reader,
	limiter *rate.Limiter,
	logger feedkit.Logger,
) *Handler {
	return &Handler{
		callback:   callback,
		subscriber: subscriber,
		store:      store,
		reader:     r,
		limiter:    limiter,
		logger:     logger,
	}
}

// Router registers every route on a new gorilla/mux router.
//
//	*        /callback/{key}            hub verification and content distribution
//	POST     /api/v1/subscriptions      subscribe to a topic
//	GET      /api/v1/subscriptions/{id} show a subscription
//	DELETE   /api/v1/subscriptions/{id} unsubscribe
//	GET      /api/v1/health             liveness
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()
	router.Handle("/callback/{key}", h.callback)

	v1 := router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/subscriptions", h.HandleSubscribe).Methods(http.MethodPost)
	v1.HandleFunc("/subscriptions/{id}", h.HandleGetSubscription).Methods(http.MethodGet)
	v1.HandleFunc("/subscriptions/{id}", h.HandleUnsubscribe).Methods(http.MethodDelete)
	v1.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	if h.limiter != nil {
		v1.Use(h.rateLimitMiddleware)
	}

	router.Use(h.loggingMiddleware)
	return router
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// SuccessResponse represents a success response.
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// HandleSubscribe handles POST /api/v1/subscriptions
func (h *Handler) HandleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req feedkit.SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid JSON", "INVALID_JSON")
		return
	}

	if req.HubURL == "" && req.TopicURL != "" {
		if err := h.discover(r, &req); err != nil {
			h.respondFeedError(w, err, "Hub discovery failed")
			return
		}
	}

	sub, err := h.subscriber.Subscribe(r.Context(), req)
	if err != nil {
		h.logger.Errorf("Failed to subscribe to %s: %v", req.TopicURL, err)
		h.respondFeedError(w, err, "Failed to subscribe")
		return
	}

	h.respondSuccess(w, http.StatusAccepted, sub, "Subscription requested, waiting for hub verification")
}

// discover fills the hub (and canonical topic) from the topic's own feed.
func (h *Handler) discover(r *http.Request, req *feedkit.SubscribeRequest) error {
	feed, err := h.reader.Fetch(r.Context(), req.TopicURL)
	if err != nil {
		return err
	}
	hubs := feed.Hubs()
	if len(hubs) == 0 {
		return feedkit.NewError(feedkit.ErrCodeInvalidArgument, "topic does not advertise a hub")
	}
	req.HubURL = hubs[0]
	if self := feed.Self(); self != "" {
		req.TopicURL = self
	}
	h.logger.Debugf("Discovered hub %s for topic %s", req.HubURL, req.TopicURL)
	return nil
}

// HandleGetSubscription handles GET /api/v1/subscriptions/{id}
func (h *Handler) HandleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := h.store.Find(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.respondFeedError(w, err, "Failed to load subscription")
		return
	}
	h.respondSuccess(w, http.StatusOK, sub, "")
}

// HandleUnsubscribe handles DELETE /api/v1/subscriptions/{id}
func (h *Handler) HandleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := h.subscriber.Unsubscribe(r.Context(), id); err != nil {
		h.logger.Errorf("Failed to unsubscribe %s: %v", id, err)
		h.respondFeedError(w, err, "Failed to unsubscribe")
		return
	}
	h.respondSuccess(w, http.StatusAccepted, nil, "Unsubscribe requested, waiting for hub verification")
}

// HandleHealth handles GET /api/v1/health
func (h *Handler) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
	}
	h.respondSuccess(w, http.StatusOK, health, "")
}

// respondFeedError maps a feedkit error code to an HTTP status.
func (h *Handler) respondFeedError(w http.ResponseWriter, err error, message string) {
	switch {
	case feedkit.IsNoData(err):
		h.respondError(w, http.StatusNotFound, "Subscription not found", feedkit.ErrCodeNotFound)
	case feedkit.IsCode(err, feedkit.ErrCodeInvalidArgument):
		h.respondError(w, http.StatusBadRequest, err.Error(), feedkit.ErrCodeInvalidArgument)
	case feedkit.IsCode(err, feedkit.ErrCodeDelivery):
		h.respondError(w, http.StatusBadGateway, err.Error(), feedkit.ErrCodeDelivery)
	default:
		h.respondError(w, http.StatusInternalServerError, message, feedkit.ErrCodeStorage)
	}
}

// respondError sends an error response.
func (h *Handler) respondError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:   message,
		Code:    code,
		Message: message,
	})
}

// respondSuccess sends a success response.
func (h *Handler) respondSuccess(w http.ResponseWriter, status int, data interface{}, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessResponse{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// rateLimitMiddleware rejects API calls above the configured rate.
func (h *Handler) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !h.limiter.Allow() {
			h.respondError(w, http.StatusTooManyRequests, "Too many requests", "RATE_LIMITED")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests.
func (h *Handler) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debugf("%s %s - %v", r.Method, r.URL.Path, time.Since(start))
	})
}
