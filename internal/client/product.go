package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/shopmesh/order/pkg/errors"
	"github.com/shopmesh/order/pkg/logger"
	"github.com/shopmesh/order/pkg/response"
	"github.com/shopmesh/order/pkg/tracing"
)

// ProductServiceName is the label attached to product-service dependency failures.
const ProductServiceName = "Product Service"

// ProductClient 调用商品服务接口
type ProductClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewProductClient 创建商品服务客户端
func NewProductClient(baseURL string, connectTimeout, timeout time.Duration, log *logger.Logger) *ProductClient {
	return &ProductClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(connectTimeout, timeout),
		log:        log,
	}
}

// Product 商品
type Product struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int64   `json:"stock"`
}

// UpdateStockRequest body for the stock adjustment endpoint. Quantity is a
// signed delta; negative consumes stock.
type UpdateStockRequest struct {
	Quantity int64 `json:"quantity"`
}

// GetProduct fetches a product record by id.
func (c *ProductClient) GetProduct(ctx context.Context, productID int64, correlationID string) (*Product, error) {
	env, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/products/%d", productID), nil, correlationID)
	if err != nil {
		c.log.WithCorrelation(correlationID).WithField("product_id", productID).WithError(err).Error("Product Service call failed")
		return nil, apierrors.NewService(ProductServiceName, "Product service unavailable")
	}
	if !env.Success {
		return nil, apierrors.NewService(ProductServiceName, "Product not found")
	}

	var product Product
	if err := json.Unmarshal(env.Data, &product); err != nil {
		c.log.WithCorrelation(correlationID).WithField("product_id", productID).WithError(err).Error("Product Service returned malformed product")
		return nil, apierrors.NewService(ProductServiceName, "Product not found")
	}
	return &product, nil
}

// CheckStock reports whether the product's available stock covers the
// required quantity. Read-only: nothing is reserved, so two concurrent
// checks against the same product can both pass.
func (c *ProductClient) CheckStock(ctx context.Context, productID, requiredQty int64, correlationID string) (bool, error) {
	product, err := c.GetProduct(ctx, productID, correlationID)
	if err != nil {
		return false, err
	}
	return product.Stock >= requiredQty, nil
}

// UpdateStock applies a signed stock delta and returns the updated product.
func (c *ProductClient) UpdateStock(ctx context.Context, productID, delta int64, correlationID string) (*Product, error) {
	body := &UpdateStockRequest{Quantity: delta}
	env, err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/products/%d/stock", productID), body, correlationID)
	if err != nil {
		c.log.WithCorrelation(correlationID).Errorf("Product Service stock update failed", map[string]interface{}{
			"product_id": productID,
			"quantity":   delta,
			"error":      err.Error(),
		})
		return nil, apierrors.NewService(ProductServiceName, "Product service unavailable")
	}
	if !env.Success {
		return nil, apierrors.NewService(ProductServiceName, "Failed to update stock")
	}

	var product Product
	if err := json.Unmarshal(env.Data, &product); err != nil {
		return nil, apierrors.NewService(ProductServiceName, "Failed to update stock")
	}
	return &product, nil
}

func (c *ProductClient) do(ctx context.Context, method, path string, body interface{}, correlationID string) (*envelope, error) {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set(response.CorrelationHeader, correlationID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	tracing.InjectHTTP(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status code: %d", resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &env, nil
}
