package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/sony/gobreaker/v2"

	"github.com/vanshika/shelfwise/internal/domain"
	"github.com/vanshika/shelfwise/internal/repository"
	"github.com/vanshika/shelfwise/internal/service"
	"github.com/vanshika/shelfwise/internal/sqlstore"
)

// APIHandlers exposes HTTP handlers for the REST API.
type APIHandlers struct {
	logger          *slog.Logger
	library         *service.LibraryService
	recommendations *service.RecommendationService
}

// NewAPIHandlers constructs an APIHandlers instance.
func NewAPIHandlers(logger *slog.Logger, library *service.LibraryService, recommendations *service.RecommendationService) *APIHandlers {
	return &APIHandlers{
		logger:          logger,
		library:         library,
		recommendations: recommendations,
	}
}

func (h *APIHandlers) recommend(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	recs, err := h.recommendations.Recommend(r.Context(), userID, limit)
	if err != nil {
		h.fail(w, "recommend failed", err)
		return
	}
	respondJSON(w, http.StatusOK, recommendationsResponse{
		UserID: userID,
		Items:  toRecommendationResponses(recs),
	})
}

func (h *APIHandlers) recommendBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	if len(req.UserIDs) == 0 {
		writeError(w, http.StatusBadRequest, "userIds is required")
		return
	}
	if len(req.UserIDs) > maxBatchUsers {
		writeError(w, http.StatusBadRequest, "too many userIds, max "+strconv.Itoa(maxBatchUsers))
		return
	}

	results, err := h.recommendations.RecommendBatch(r.Context(), req.UserIDs, req.Limit)
	var taskErr *service.TaskError
	if err != nil && !errors.As(err, &taskErr) {
		h.fail(w, "batch recommend failed", err)
		return
	}

	resp := batchResponse{Results: make(map[string][]recommendationResponse, len(results))}
	for userID, recs := range results {
		resp.Results[userID] = toRecommendationResponses(recs)
	}
	if taskErr != nil {
		for _, e := range taskErr.Errors {
			resp.Errors = append(resp.Errors, e.Error())
		}
		h.logger.Warn("batch recommend partially failed", "failed", len(taskErr.Errors), "succeeded", len(results))
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *APIHandlers) upsertBook(w http.ResponseWriter, r *http.Request) {
	var req bookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	input := service.BookInput{
		ID:            req.ID,
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Genre:         req.Genre,
		PublishedYear: req.PublishedYear,
	}
	if err := h.library.UpsertBook(r.Context(), input); err != nil {
		h.fail(w, "upsert book failed", err)
		return
	}
	respondJSON(w, http.StatusAccepted, statusResponse{Status: "accepted", ID: req.ID})
}

func (h *APIHandlers) upsertReader(w http.ResponseWriter, r *http.Request) {
	var req readerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	input := service.ReaderInput{
		ID:       req.ID,
		FullName: req.FullName,
		Email:    req.Email,
	}
	if err := h.library.UpsertReader(r.Context(), input); err != nil {
		h.fail(w, "upsert reader failed", err)
		return
	}
	respondJSON(w, http.StatusAccepted, statusResponse{Status: "accepted", ID: req.ID})
}

func (h *APIHandlers) recordBorrow(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload: "+err.Error())
		return
	}
	input, err := req.toServiceInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.library.RecordBorrow(r.Context(), input); err != nil {
		h.fail(w, "record borrow failed", err)
		return
	}
	respondJSON(w, http.StatusAccepted, statusResponse{Status: "accepted", ID: req.ID})
}

// fail maps service and store errors onto HTTP statuses.
func (h *APIHandlers) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput), errors.Is(err, service.ErrInvalidUserID):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrUnknownEndpoint), errors.Is(err, sqlstore.ErrUnknownEndpoint):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		writeError(w, http.StatusServiceUnavailable, "store temporarily unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		h.logger.Error(msg, "error", err)
		writeError(w, http.StatusInternalServerError, msg)
	}
}

const maxBatchUsers = 100

type bookRequest struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	ISBN          string `json:"isbn"`
	Genre         string `json:"genre"`
	PublishedYear int    `json:"publishedYear"`
}

type readerRequest struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
}

type borrowRequest struct {
	ID         string `json:"id"`
	ReaderID   string `json:"readerId"`
	BookID     string `json:"bookId"`
	BorrowedAt string `json:"borrowedAt"`
	ReturnedAt string `json:"returnedAt"`
}

type batchRequest struct {
	UserIDs []string `json:"userIds"`
	Limit   int      `json:"limit"`
}

type pathResponse struct {
	Kind            string  `json:"kind"`
	SourceBookID    string  `json:"sourceBookId,omitempty"`
	SourceBookTitle string  `json:"sourceBookTitle,omitempty"`
	TargetBookID    string  `json:"targetBookId"`
	TargetBookTitle string  `json:"targetBookTitle"`
	Contribution    float64 `json:"contribution"`
}

type recommendationResponse struct {
	BookID  string         `json:"bookId"`
	Title   string         `json:"title"`
	Score   float64        `json:"score"`
	Summary string         `json:"summary"`
	Paths   []pathResponse `json:"paths"`
}

type recommendationsResponse struct {
	UserID string                   `json:"userId"`
	Items  []recommendationResponse `json:"items"`
}

type batchResponse struct {
	Results map[string][]recommendationResponse `json:"results"`
	Errors  []string                            `json:"errors,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
	ID     string `json:"id,omitempty"`
}

func (req borrowRequest) toServiceInput() (service.BorrowInput, error) {
	borrowedAt, err := time.Parse(time.RFC3339, strings.TrimSpace(req.BorrowedAt))
	if err != nil {
		return service.BorrowInput{}, errors.New("borrowedAt must be RFC3339")
	}
	input := service.BorrowInput{
		ID:         req.ID,
		ReaderID:   req.ReaderID,
		BookID:     req.BookID,
		BorrowedAt: borrowedAt,
	}
	if v := strings.TrimSpace(req.ReturnedAt); v != "" {
		returnedAt, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return service.BorrowInput{}, errors.New("returnedAt must be RFC3339")
		}
		input.ReturnedAt = &returnedAt
	}
	return input, nil
}

func toRecommendationResponses(recs []domain.Recommendation) []recommendationResponse {
	out := make([]recommendationResponse, 0, len(recs))
	for _, rec := range recs {
		paths := make([]pathResponse, 0, len(rec.Paths))
		for _, p := range rec.Paths {
			paths = append(paths, pathResponse{
				Kind:            string(p.Kind),
				SourceBookID:    p.SourceBookID,
				SourceBookTitle: p.SourceBookTitle,
				TargetBookID:    p.TargetBookID,
				TargetBookTitle: p.TargetBookTitle,
				Contribution:    p.Contribution,
			})
		}
		out = append(out, recommendationResponse{
			BookID:  rec.BookID,
			Title:   rec.Title,
			Score:   rec.Score,
			Summary: rec.Summary,
			Paths:   paths,
		})
	}
	return out
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("request body is required")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

// parseLimit accepts an empty value (use the default) or a positive integer.
func parseLimit(value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(value)
	if err != nil || v <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}
