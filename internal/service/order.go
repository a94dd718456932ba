// Package service 订单编排
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopmesh/order/internal/client"
	"github.com/shopmesh/order/internal/metrics"
	"github.com/shopmesh/order/internal/repository"
	apierrors "github.com/shopmesh/order/pkg/errors"
	"github.com/shopmesh/order/pkg/logger"
	"github.com/shopmesh/order/pkg/redisx"
	"github.com/shopmesh/order/pkg/saga"
)

const orderCacheKey = "order:%d"

// UserGateway 用户服务出站端口
type UserGateway interface {
	VerifyToken(ctx context.Context, token, correlationID string) (*client.Profile, error)
	GetUser(ctx context.Context, userID int64, token, correlationID string) (*client.Profile, error)
}

// ProductGateway 商品服务出站端口
type ProductGateway interface {
	CheckStock(ctx context.Context, productID, requiredQty int64, correlationID string) (bool, error)
	UpdateStock(ctx context.Context, productID, delta int64, correlationID string) (*client.Product, error)
}

// OrderStore 订单数据接口
type OrderStore interface {
	BeginTx(ctx context.Context) (*sql.Tx, error)
	InsertOrder(ctx context.Context, tx *sql.Tx, order *repository.Order) error
	UpdateOrderStatus(ctx context.Context, tx *sql.Tx, orderID int64, status string) error
	GetOrder(ctx context.Context, orderID int64) (*repository.Order, error)
	ListOrders(ctx context.Context) ([]*repository.Order, error)
}

// OrderService 订单服务
type OrderService struct {
	repo        OrderStore
	users       UserGateway
	products    ProductGateway
	cache       *redis.Client
	stream      *redisx.StreamClient
	sagas       *saga.Executor
	metrics     *metrics.Metrics
	log         *logger.Logger
	orderStream string
	cacheTTL    time.Duration
}

// NewOrderService 创建订单服务
func NewOrderService(
	repo OrderStore,
	users UserGateway,
	products ProductGateway,
	cache *redis.Client,
	sagas *saga.Executor,
	metricsClient *metrics.Metrics,
	log *logger.Logger,
	orderStream string,
	cacheTTL time.Duration,
) *OrderService {
	svc := &OrderService{
		repo:        repo,
		users:       users,
		products:    products,
		cache:       cache,
		sagas:       sagas,
		metrics:     metricsClient,
		log:         log,
		orderStream: orderStream,
		cacheTTL:    cacheTTL,
	}
	if cache != nil {
		svc.stream = redisx.NewStreamClient(cache)
	}
	return svc
}

// ItemRequest 下单行项目
type ItemRequest struct {
	ProductID int64   `json:"product_id"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

// PlaceOrderRequest 下单请求
type PlaceOrderRequest struct {
	UserID int64         `json:"user_id"`
	Items  []ItemRequest `json:"items"`
	Total  float64       `json:"total"`
}

// OrderCreatedEvent 订单完成事件
type OrderCreatedEvent struct {
	OrderID       int64   `json:"order_id"`
	UserID        int64   `json:"user_id"`
	Total         float64 `json:"total"`
	CorrelationID string  `json:"correlation_id"`
	CreatedAtMs   int64   `json:"created_at_ms"`
}

// PlaceOrder runs one order placement end to end:
//
//  1. verify the bearer token against the user service
//  2. confirm the target account exists
//  3. check stock for every line item, in request order
//  4. persist the order as pending inside a fresh transaction
//  5. decrement stock per item, in the same order
//  6. flip the order to completed and commit
//
// Any failure before the final commit rolls the transaction back, so the
// order row is never visible outside the saga. Stock decrements already
// accepted by the product service are NOT reversed; the failure (with the
// already-applied product ids) is logged for manual reconciliation.
func (s *OrderService) PlaceOrder(ctx context.Context, token string, req *PlaceOrderRequest, correlationID string) (*repository.Order, error) {
	start := time.Now()
	if s.metrics != nil {
		defer func() { s.metrics.ObserveOrderLatency(time.Since(start)) }()
	}
	log := s.log.WithCorrelation(correlationID)

	// 1. 本地前置校验：没有凭证不会发起任何远程调用
	if token == "" {
		s.reject(apierrors.ErrTokenRequired)
		return nil, apierrors.ErrTokenRequired
	}
	if fieldErrors := ValidatePlaceOrder(req); len(fieldErrors) > 0 {
		err := apierrors.NewValidation(fieldErrors)
		s.reject(err)
		return nil, err
	}

	order := &repository.Order{
		UserID: req.UserID,
		Total:  req.Total,
		Status: repository.StatusPending,
	}
	for _, item := range req.Items {
		order.Items = append(order.Items, repository.Item{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		})
	}

	// tx is opened by the persist step and owned by the saga: the
	// complete step commits it, the persist step's compensation rolls
	// it back.
	var tx *sql.Tx

	steps := []saga.Step{
		saga.NewStep("verify-token", func(ctx context.Context) error {
			_, err := s.users.VerifyToken(ctx, token, correlationID)
			return err
		}, nil),

		saga.NewStep("verify-user", func(ctx context.Context) error {
			_, err := s.users.GetUser(ctx, req.UserID, token, correlationID)
			return err
		}, nil),

		saga.NewStep("check-stock", func(ctx context.Context) error {
			// 按请求顺序逐项检查，遇到第一个缺货即中止
			for _, item := range req.Items {
				ok, err := s.products.CheckStock(ctx, item.ProductID, item.Quantity, correlationID)
				if err != nil {
					return err
				}
				if !ok {
					return apierrors.Newf(apierrors.CodeInsufficientStock,
						"Insufficient stock for product ID: %d", item.ProductID)
				}
			}
			return nil
		}, nil),

		saga.NewStep("persist-order", func(ctx context.Context) error {
			var err error
			tx, err = s.repo.BeginTx(ctx)
			if err != nil {
				return err
			}
			return s.repo.InsertOrder(ctx, tx, order)
		}, func(context.Context) error {
			if tx == nil {
				return nil
			}
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				return err
			}
			order.Status = repository.StatusFailed
			return nil
		}),

		saga.NewStep("apply-stock", func(ctx context.Context) error {
			for i, item := range req.Items {
				if _, err := s.products.UpdateStock(ctx, item.ProductID, -item.Quantity, correlationID); err != nil {
					// Decrements accepted so far stay applied; surface
					// them so operators can reconcile remote inventory.
					log.Warnf("stock decrement failed partway", map[string]interface{}{
						"order_id":          order.ID,
						"failed_product_id": item.ProductID,
						"applied_products":  productIDs(req.Items[:i]),
					})
					return err
				}
			}
			return nil
		}, nil),

		saga.NewStep("complete-order", func(ctx context.Context) error {
			if err := s.repo.UpdateOrderStatus(ctx, tx, order.ID, repository.StatusCompleted); err != nil {
				return err
			}
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("commit order: %w", err)
			}
			order.Status = repository.StatusCompleted
			return nil
		}, nil),
	}

	if err := s.sagas.Run(ctx, "place-order", correlationID, steps); err != nil {
		s.reject(err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.IncOrderCreated()
	}
	s.cacheOrder(ctx, order)
	s.publishOrderCreated(ctx, order, correlationID)

	log.Infof("Order created successfully", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return order, nil
}

// GetOrder 获取单个订单，需要有效凭证
func (s *OrderService) GetOrder(ctx context.Context, token string, orderID int64, correlationID string) (*repository.Order, error) {
	if token == "" {
		return nil, apierrors.ErrTokenRequired
	}
	if _, err := s.users.VerifyToken(ctx, token, correlationID); err != nil {
		s.reject(err)
		return nil, err
	}

	if order, ok := s.cachedOrder(ctx, orderID); ok {
		return order, nil
	}

	order, err := s.repo.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, apierrors.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	s.cacheOrder(ctx, order)
	return order, nil
}

// ListOrders 获取全部订单，需要有效凭证
func (s *OrderService) ListOrders(ctx context.Context, token, correlationID string) ([]*repository.Order, error) {
	if token == "" {
		return nil, apierrors.ErrTokenRequired
	}
	if _, err := s.users.VerifyToken(ctx, token, correlationID); err != nil {
		s.reject(err)
		return nil, err
	}
	return s.repo.ListOrders(ctx)
}

// reject 记录拒绝与依赖失败指标
func (s *OrderService) reject(err error) {
	if s.metrics == nil || err == nil {
		return
	}
	var apiErr *apierrors.Error
	if errors.As(err, &apiErr) {
		if apiErr.Service != "" {
			s.metrics.IncDependencyFailure(apiErr.Service)
		}
		s.metrics.IncOrderRejected(string(apiErr.Code))
		return
	}
	s.metrics.IncOrderRejected(string(apierrors.CodeInternal))
}

func (s *OrderService) cachedOrder(ctx context.Context, orderID int64) (*repository.Order, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, fmt.Sprintf(orderCacheKey, orderID)).Bytes()
	if err != nil {
		return nil, false
	}
	var order repository.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, false
	}
	return &order, true
}

// cacheOrder 写入读缓存，失败只记日志
func (s *OrderService) cacheOrder(ctx context.Context, order *repository.Order) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(order)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, fmt.Sprintf(orderCacheKey, order.ID), data, s.cacheTTL).Err(); err != nil {
		s.log.WithError(err).WithField("order_id", order.ID).Warn("order cache write failed")
	}
}

// publishOrderCreated 发布订单完成事件，尽力而为
func (s *OrderService) publishOrderCreated(ctx context.Context, order *repository.Order, correlationID string) {
	if s.stream == nil || s.orderStream == "" {
		return
	}
	event := &OrderCreatedEvent{
		OrderID:       order.ID,
		UserID:        order.UserID,
		Total:         order.Total,
		CorrelationID: correlationID,
		CreatedAtMs:   order.CreatedAt.UnixMilli(),
	}
	if _, err := s.stream.Publish(ctx, s.orderStream, event); err != nil {
		s.log.WithCorrelation(correlationID).WithError(err).WithField("order_id", order.ID).Warn("order event publish failed")
	}
}

func productIDs(items []ItemRequest) []int64 {
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	return ids
}
