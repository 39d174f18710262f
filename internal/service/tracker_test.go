package service

import (
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
)

func newTestTracker(repo repository.Repository) *FinanceTracker {
	s := NewFinanceTracker(repo, zerolog.Nop())
	s.now = func() time.Time { return testNow }
	return s
}

func TestAddTransaction(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestTracker(repo)

	date := time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)
	saved, err := s.AddTransaction(context.Background(), "user1", model.CategoryIncome, "sales", decimal.NewFromInt(50000), "оплата от клиента", date)
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if saved.ID == "" {
		t.Error("transaction must get an id on save")
	}
	if !saved.Date.Equal(date) {
		t.Errorf("Date = %v, want %v", saved.Date, date)
	}
	if len(repo.transactions) != 1 {
		t.Fatalf("repo holds %d transactions, want 1", len(repo.transactions))
	}
}

func TestAddTransactionDefaultsDate(t *testing.T) {
	repo := &fakeRepo{}
	s := newTestTracker(repo)

	saved, err := s.AddTransaction(context.Background(), "user1", model.CategoryExpense, "rent", decimal.NewFromInt(30000), "аренда офиса", time.Time{})
	if err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	if !saved.Date.Equal(testNow) {
		t.Errorf("zero date must default to now, got %v", saved.Date)
	}
}

func TestAddTransactionValidation(t *testing.T) {
	s := newTestTracker(&fakeRepo{})
	ctx := context.Background()

	cases := []struct {
		name        string
		userID      string
		category    model.Category
		subcategory string
		amount      decimal.Decimal
	}{
		{"empty user", "", model.CategoryIncome, "sales", decimal.NewFromInt(100)},
		{"zero amount", "user1", model.CategoryIncome, "sales", decimal.Zero},
		{"negative amount", "user1", model.CategoryIncome, "sales", decimal.NewFromInt(-100)},
		{"unknown category", "user1", "transfer", "sales", decimal.NewFromInt(100)},
		{"foreign subcategory", "user1", model.CategoryIncome, "rent", decimal.NewFromInt(100)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.AddTransaction(ctx, tc.userID, tc.category, tc.subcategory, tc.amount, "", time.Time{})
			if !errors.Is(err, model.ErrInvalidInput) {
				t.Errorf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestDeleteLastTransaction(t *testing.T) {
	repo := &fakeRepo{transactions: []model.Transaction{
		tx("user1", model.CategoryIncome, "sales", 100, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		tx("user1", model.CategoryExpense, "rent", 200, time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)),
		tx("user2", model.CategoryIncome, "sales", 999, time.Date(2025, 7, 12, 0, 0, 0, 0, time.UTC)),
	}}
	s := newTestTracker(repo)

	deleted, err := s.DeleteLastTransaction(context.Background(), "user1")
	if err != nil {
		t.Fatalf("DeleteLastTransaction: %v", err)
	}
	if deleted == nil {
		t.Fatal("deleted = nil, want the July 10 transaction")
	}
	if got, want := deleted.Amount.String(), "200"; got != want {
		t.Errorf("deleted.Amount = %s, want %s (most recent by date)", got, want)
	}
	if len(repo.transactions) != 2 {
		t.Errorf("repo holds %d transactions, want 2", len(repo.transactions))
	}
}

func TestDeleteLastTransactionEmpty(t *testing.T) {
	s := newTestTracker(&fakeRepo{})

	deleted, err := s.DeleteLastTransaction(context.Background(), "user1")
	if err != nil {
		t.Fatalf("DeleteLastTransaction: %v", err)
	}
	if deleted != nil {
		t.Errorf("deleted = %+v, want nil for empty history", deleted)
	}
}

func TestClearUserData(t *testing.T) {
	repo := &fakeRepo{transactions: []model.Transaction{
		tx("user1", model.CategoryIncome, "sales", 100, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		tx("user1", model.CategoryExpense, "rent", 200, time.Date(2025, 7, 2, 0, 0, 0, 0, time.UTC)),
		tx("user2", model.CategoryIncome, "sales", 300, time.Date(2025, 7, 3, 0, 0, 0, 0, time.UTC)),
	}}
	s := newTestTracker(repo)

	// Без подтверждения данные остаются на месте
	_, err := s.ClearUserData(context.Background(), "user1", false)
	if !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("unconfirmed clear: got %v, want ErrInvalidInput", err)
	}
	if len(repo.transactions) != 3 {
		t.Fatalf("unconfirmed clear must not touch data, repo holds %d", len(repo.transactions))
	}

	count, err := s.ClearUserData(context.Background(), "user1", true)
	if err != nil {
		t.Fatalf("ClearUserData: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
	if len(repo.transactions) != 1 {
		t.Errorf("repo holds %d transactions, want only user2's record", len(repo.transactions))
	}
}

func TestRecentTransactionsValidation(t *testing.T) {
	s := newTestTracker(&fakeRepo{})
	ctx := context.Background()

	if _, err := s.RecentTransactions(ctx, "", repository.TransactionFilter{}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("empty user id: got %v, want ErrInvalidInput", err)
	}
	if _, err := s.RecentTransactions(ctx, "user1", repository.TransactionFilter{Category: "bogus"}); !errors.Is(err, model.ErrInvalidInput) {
		t.Errorf("unknown category: got %v, want ErrInvalidInput", err)
	}
}

func TestExportCSV(t *testing.T) {
	repo := &fakeRepo{transactions: []model.Transaction{
		tx("user1", model.CategoryIncome, "sales", 50000, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)),
		tx("user1", model.CategoryExpense, "rent", 30000, time.Date(2025, 7, 5, 0, 0, 0, 0, time.UTC)),
	}}
	s := newTestTracker(repo)

	data, count, err := s.ExportCSV(context.Background(), "user1", repository.TransactionFilter{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}

	records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv has %d rows, want header + 2", len(records))
	}
	if got := strings.Join(records[0], ","); got != "Date,Category,Subcategory,Amount,Description" {
		t.Errorf("header = %q", got)
	}
	// От новых к старым: первой идет запись за 5 июля
	if records[1][0] != "2025-07-05" || records[1][3] != "30000" {
		t.Errorf("first data row = %v", records[1])
	}
}

func TestExportCSVEmpty(t *testing.T) {
	s := newTestTracker(&fakeRepo{})

	data, count, err := s.ExportCSV(context.Background(), "user1", repository.TransactionFilter{})
	if err != nil {
		t.Fatalf("ExportCSV: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}
	if !strings.HasPrefix(string(data), "Date,") {
		t.Errorf("empty export must still carry the header, got %q", data)
	}
}
