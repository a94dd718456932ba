package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apierrors "github.com/shopmesh/order/pkg/errors"
	"github.com/shopmesh/order/pkg/logger"
	"github.com/shopmesh/order/pkg/response"
	"github.com/shopmesh/order/pkg/tracing"
)

// UserServiceName is the label attached to user-service dependency failures.
const UserServiceName = "User Service"

// UserClient 调用用户服务接口
type UserClient struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// NewUserClient 创建用户服务客户端
func NewUserClient(baseURL string, connectTimeout, timeout time.Duration, log *logger.Logger) *UserClient {
	return &UserClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: newHTTPClient(connectTimeout, timeout),
		log:        log,
	}
}

// Profile 用户资料
type Profile struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// VerifyToken checks the bearer token against the user service profile
// endpoint and returns the authenticated principal.
func (c *UserClient) VerifyToken(ctx context.Context, token, correlationID string) (*Profile, error) {
	env, err := c.get(ctx, "/api/user/profile", token, correlationID)
	if err != nil {
		c.log.WithCorrelation(correlationID).WithError(err).Error("User Service call failed")
		return nil, apierrors.NewService(UserServiceName, "User service unavailable")
	}
	if !env.Success {
		return nil, apierrors.NewService(UserServiceName, "Token validation failed")
	}

	var profile Profile
	if err := json.Unmarshal(env.Data, &profile); err != nil {
		c.log.WithCorrelation(correlationID).WithError(err).Error("User Service returned malformed profile")
		return nil, apierrors.NewService(UserServiceName, "Token validation failed")
	}
	return &profile, nil
}

// GetUser fetches a user record by id, confirming the acting principal may
// place orders for that account.
func (c *UserClient) GetUser(ctx context.Context, userID int64, token, correlationID string) (*Profile, error) {
	env, err := c.get(ctx, fmt.Sprintf("/api/users/%d", userID), token, correlationID)
	if err != nil {
		c.log.WithCorrelation(correlationID).WithField("user_id", userID).WithError(err).Error("User Service call failed")
		return nil, apierrors.NewService(UserServiceName, "User service unavailable")
	}
	if !env.Success {
		return nil, apierrors.NewService(UserServiceName, "User not found")
	}

	var user Profile
	if err := json.Unmarshal(env.Data, &user); err != nil {
		c.log.WithCorrelation(correlationID).WithField("user_id", userID).WithError(err).Error("User Service returned malformed user")
		return nil, apierrors.NewService(UserServiceName, "User not found")
	}
	return &user, nil
}

func (c *UserClient) get(ctx context.Context, path, token, correlationID string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(response.CorrelationHeader, correlationID)
	req.Header.Set("Accept", "application/json")
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
