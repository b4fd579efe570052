package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"eventsaga/internal/domain/product"
	"eventsaga/internal/failure"
	"eventsaga/internal/publisher"
	"eventsaga/internal/usecase"
)

type ProductCreator interface {
	Async(ctx context.Context, cmd usecase.CreateProductCommand) (string, error)
	Sync(ctx context.Context, cmd usecase.CreateProductCommand) (string, publisher.Receipt, error)
}

type PublishStatusReader interface {
	Execute(ctx context.Context, productID string) (product.PublishStatus, error)
}

type TransferExecutor interface {
	Execute(ctx context.Context, cmd usecase.TransferCommand) (bool, error)
}

type Handlers struct {
	products  ProductCreator
	status    PublishStatusReader
	transfers TransferExecutor
	logger    *slog.Logger
}

func NewHandlers(products ProductCreator, status PublishStatusReader, transfers TransferExecutor, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		products:  products,
		status:    status,
		transfers: transfers,
		logger:    logger,
	}
}

type createProductRequest struct {
	Title    string          `json:"title"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

func (r createProductRequest) command() usecase.CreateProductCommand {
	return usecase.CreateProductCommand{Title: r.Title, Price: r.Price, Quantity: r.Quantity}
}

// CreateProductAsync answers as soon as the event is queued; publish failures never reach the
// caller.
func (h *Handlers) CreateProductAsync(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.products.Async(r.Context(), req.command())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"productId": id})
}

func (h *Handlers) CreateProductSync(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	id, receipt, err := h.products.Sync(r.Context(), req.command())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"productId": id,
		"topic":     receipt.Topic,
		"partition": receipt.Partition,
		"offset":    receipt.Offset,
		"timestamp": receipt.Timestamp,
	})
}

func (h *Handlers) GetPublishStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.writeError(w, r, http.StatusBadRequest, "missing product id")
		return
	}

	status, err := h.status.Execute(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	writeJSON(w, http.StatusOK, map[string]string{"productId": id, "status": string(status)})
}

func (h *Handlers) Transfer(w http.ResponseWriter, r *http.Request) {
	var req usecase.TransferCommand
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := h.transfers.Execute(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, ok)
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
	Path      string    `json:"path"`
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "path", r.URL.Path, "error", err)
	}
	h.writeError(w, r, status, err.Error())
}

func (h *Handlers) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, ErrorResponse{
		Timestamp: time.Now().UTC(),
		Message:   message,
		Path:      r.URL.Path,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, failure.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, failure.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
