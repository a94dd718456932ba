package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apierrors "github.com/shopmesh/order/pkg/errors"
	"github.com/shopmesh/order/pkg/logger"
	"github.com/shopmesh/order/pkg/response"
)

func testLogger() *logger.Logger {
	return logger.New("test", io.Discard)
}

func newTestUserClient(baseURL string) *UserClient {
	return NewUserClient(baseURL, time.Second, 2*time.Second, testLogger())
}

func TestUserClient_VerifyToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/user/profile" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer token-1" {
			t.Fatalf("unexpected authorization header: %q", got)
		}
		if got := r.Header.Get(response.CorrelationHeader); got != "corr-1" {
			t.Fatalf("unexpected correlation header: %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true,"message":"ok","data":{"id":7,"name":"Alice","email":"alice@example.com"}}`))
	}))
	defer server.Close()

	client := newTestUserClient(server.URL)
	profile, err := client.VerifyToken(context.Background(), "token-1", "corr-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.ID != 7 || profile.Name != "Alice" {
		t.Fatalf("unexpected profile: %+v", profile)
	}
}

func TestUserClient_VerifyToken_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"Unauthenticated"}`))
	}))
	defer server.Close()

	client := newTestUserClient(server.URL)
	_, err := client.VerifyToken(context.Background(), "bad-token", "corr-1")
	if err == nil {
		t.Fatal("expected error for rejected token")
	}

	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierrors.Error, got %T", err)
	}
	if apiErr.Code != apierrors.CodeServiceUnavailable {
		t.Fatalf("expected SERVICE_UNAVAILABLE, got %s", apiErr.Code)
	}
	if apiErr.Service != UserServiceName {
		t.Fatalf("expected service %q, got %q", UserServiceName, apiErr.Service)
	}
	if apiErr.Message != "Token validation failed" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
}

func TestUserClient_VerifyToken_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close()

	client := newTestUserClient(server.URL)
	_, err := client.VerifyToken(context.Background(), "token-1", "corr-1")
	if err == nil {
		t.Fatal("expected error for unreachable service")
	}

	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *apierrors.Error, got %T", err)
	}
	if apiErr.Code != apierrors.CodeServiceUnavailable || apiErr.Service != UserServiceName {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
	if apiErr.Message != "User service unavailable" {
		t.Fatalf("unexpected message: %q", apiErr.Message)
	}
	if !apiErr.Retryable {
		t.Fatal("expected dependency failure to be retryable")
	}
}

func TestUserClient_VerifyToken_HTTPStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestUserClient(server.URL)
	_, err := client.VerifyToken(context.Background(), "token-1", "corr-1")
	if err == nil {
		t.Fatal("expected error for 502 upstream")
	}

	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "User service unavailable" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestUserClient_GetUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/users/42" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"success":true,"data":{"id":42,"name":"Bob","email":"bob@example.com"}}`))
	}))
	defer server.Close()

	client := newTestUserClient(server.URL)
	user, err := client.GetUser(context.Background(), 42, "token-1", "corr-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != 42 || user.Email != "bob@example.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestUserClient_GetUser_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"message":"User not found"}`))
	}))
	defer server.Close()

	client := newTestUserClient(server.URL)
	_, err := client.GetUser(context.Background(), 99, "token-1", "corr-1")
	if err == nil {
		t.Fatal("expected error for missing user")
	}

	var apiErr *apierrors.Error
	if !errors.As(err, &apiErr) || apiErr.Message != "User not found" {
		t.Fatalf("unexpected error: %v", err)
	}
}
