package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*OrderRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("open sqlmock: %v", err)
	}
	return NewOrderRepository(db), mock, func() { _ = db.Close() }
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestInsertOrder(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	order := &Order{
		UserID: 7,
		Items:  []Item{{ProductID: 1, Quantity: 2, Price: 9.99}},
		Total:  19.98,
		Status: StatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO orders").
		WithArgs(order.UserID, mustJSON(t, order.Items), order.Total, StatusPending, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

	tx, err := repo.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := repo.InsertOrder(context.Background(), tx, order); err != nil {
		t.Fatalf("insert order: %v", err)
	}
	if order.ID != 42 {
		t.Fatalf("expected generated id 42, got %d", order.ID)
	}
	if order.CreatedAt.IsZero() || order.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be set")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(StatusCompleted, sqlmock.AnyArg(), int64(42)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	tx, err := repo.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if err := repo.UpdateOrderStatus(context.Background(), tx, 42, StatusCompleted); err != nil {
		t.Fatalf("update status: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateOrderStatus_MissingRow(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE orders SET status").
		WithArgs(StatusCompleted, sqlmock.AnyArg(), int64(99)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	tx, err := repo.BeginTx(context.Background())
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	err = repo.UpdateOrderStatus(context.Background(), tx, 99, StatusCompleted)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestGetOrder(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	now := time.Now().UTC()
	items := mustJSON(t, []Item{{ProductID: 1, Quantity: 2, Price: 9.99}})
	rows := sqlmock.NewRows([]string{"id", "user_id", "items", "total", "status", "created_at", "updated_at"}).
		AddRow(int64(42), int64(7), items, 19.98, StatusCompleted, now, now)

	mock.ExpectQuery("SELECT id, user_id, items, total, status, created_at, updated_at").
		WithArgs(int64(42)).
		WillReturnRows(rows)

	order, err := repo.GetOrder(context.Background(), 42)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if order.ID != 42 || order.UserID != 7 || order.Status != StatusCompleted {
		t.Fatalf("unexpected order: %+v", order)
	}
	if len(order.Items) != 1 || order.Items[0].ProductID != 1 {
		t.Fatalf("unexpected items: %+v", order.Items)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	mock.ExpectQuery("SELECT id, user_id, items, total, status, created_at, updated_at").
		WithArgs(int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetOrder(context.Background(), 99)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestListOrders(t *testing.T) {
	repo, mock, closeDB := newMockRepo(t)
	defer closeDB()

	now := time.Now().UTC()
	items := mustJSON(t, []Item{{ProductID: 1, Quantity: 1, Price: 5}})
	rows := sqlmock.NewRows([]string{"id", "user_id", "items", "total", "status", "created_at", "updated_at"}).
		AddRow(int64(2), int64(7), items, 5.0, StatusCompleted, now, now).
		AddRow(int64(1), int64(8), items, 5.0, StatusCompleted, now.Add(-time.Hour), now.Add(-time.Hour))

	mock.ExpectQuery("SELECT id, user_id, items, total, status, created_at, updated_at").
		WillReturnRows(rows)

	orders, err := repo.ListOrders(context.Background())
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if orders[0].ID != 2 || orders[1].ID != 1 {
		t.Fatalf("unexpected order of rows: %d, %d", orders[0].ID, orders[1].ID)
	}
}
