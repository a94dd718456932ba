// Package handler 订单服务 HTTP 入口
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopmesh/order/internal/repository"
	"github.com/shopmesh/order/internal/service"
	apierrors "github.com/shopmesh/order/pkg/errors"
	"github.com/shopmesh/order/pkg/logger"
	"github.com/shopmesh/order/pkg/response"
	"github.com/shopmesh/order/pkg/tracing"
)

// Handler HTTP 处理器
type Handler struct {
	svc   *service.OrderService
	log   *logger.Logger
	debug bool
}

// New 创建处理器。debug 打开时 500 响应携带原始错误信息。
func New(svc *service.OrderService, log *logger.Logger, debug bool) *Handler {
	return &Handler{svc: svc, log: log, debug: debug}
}

// Register 注册路由
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/orders", h.handleOrders)
	mux.HandleFunc("/orders/", h.handleOrderByID)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		response.WriteStatusError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	correlationID := response.CorrelationIDFromRequest(r)

	var req service.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.WriteError(w, r, apierrors.NewValidation(map[string][]string{
			"body": {"invalid JSON body"},
		}))
		return
	}

	order, err := h.svc.PlaceOrder(r.Context(), bearerToken(r), &req, correlationID)
	if err != nil {
		h.writeFailure(w, r, err, "Failed to create order")
		return
	}

	response.WriteSuccess(w, r, http.StatusCreated, "Order created successfully", order)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	correlationID := response.CorrelationIDFromRequest(r)

	orders, err := h.svc.ListOrders(r.Context(), bearerToken(r), correlationID)
	if err != nil {
		h.writeFailure(w, r, err, "Failed to retrieve orders")
		return
	}
	if orders == nil {
		orders = []*repository.Order{}
	}

	response.WriteSuccess(w, r, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *Handler) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		response.WriteStatusError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	correlationID := response.CorrelationIDFromRequest(r)

	idPart := strings.TrimPrefix(r.URL.Path, "/orders/")
	orderID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || orderID <= 0 {
		response.WriteError(w, r, apierrors.ErrOrderNotFound)
		return
	}

	order, err := h.svc.GetOrder(r.Context(), bearerToken(r), orderID, correlationID)
	if err != nil {
		h.writeFailure(w, r, err, "Failed to retrieve order")
		return
	}

	response.WriteSuccess(w, r, http.StatusOK, "Order retrieved successfully", order)
}

// writeFailure maps the failure taxonomy onto the response envelope.
// Unclassified failures are logged in full and surfaced redacted unless
// debug mode is on.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	tracing.SetError(r.Context(), err)

	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) && apiErr.Code != apierrors.CodeInternal && apiErr.Code != apierrors.CodeUnknown {
		response.WriteError(w, r, apiErr)
		return
	}

	h.log.WithCorrelation(response.CorrelationIDFromRequest(r)).WithError(err).Error(fallback)
	message := fallback
	if h.debug {
		message = err.Error()
	}
	response.WriteErrorCode(w, r, apierrors.CodeInternal, message)
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(auth) > len(prefix) && strings.EqualFold(auth[:len(prefix)], prefix) {
		return strings.TrimSpace(auth[len(prefix):])
	}
	return ""
}
