package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/supabase-community/supabase-go"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
)

// SupabaseRepository — альтернативный бэкенд журнала поверх Supabase.
// Используется, когда бот работает без собственного Postgres.
type SupabaseRepository struct {
	client *supabase.Client
}

func NewSupabaseRepository(url, key string) (*SupabaseRepository, error) {
	client, err := supabase.NewClient(url, key, &supabase.ClientOptions{})
	if err != nil {
		return nil, err
	}

	return &SupabaseRepository{
		client: client,
	}, nil
}

func (r *SupabaseRepository) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	data, _, err := r.client.From("transactions").Insert(transaction, false, "", "", "").Execute()
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	// Парсим ответ, чтобы забрать created_at, выставленный базой
	var created []model.Transaction
	if err := json.Unmarshal(data, &created); err != nil {
		return fmt.Errorf("failed to parse created transaction: %w", err)
	}
	if len(created) > 0 {
		transaction.CreatedAt = created[0].CreatedAt
	}
	return nil
}

func (r *SupabaseRepository) GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error) {
	query := r.client.From("transactions").
		Select("*", "", false).
		Eq("user_id", userID)

	if filter.Category != "" {
		query = query.Eq("category", string(filter.Category))
	}
	if filter.Subcategory != "" {
		query = query.Eq("subcategory", filter.Subcategory)
	}
	if filter.StartDate != nil {
		query = query.Gte("date", filter.StartDate.Format(time.RFC3339))
	}
	if filter.EndDate != nil {
		query = query.Lte("date", filter.EndDate.Format(time.RFC3339))
	}

	// Сортировка: сначала новые, при равной дате — по времени создания
	query = query.Order("date.desc", nil).Order("created_at.desc", nil)

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit, "")
	}

	data, _, err := query.Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}

	var transactions []model.Transaction
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}
	return transactions, nil
}

func (r *SupabaseRepository) DeleteLastTransaction(ctx context.Context, userID string) (*model.Transaction, error) {
	// PostgREST не умеет DELETE с ORDER BY + LIMIT, поэтому сначала
	// находим последнюю транзакцию, затем удаляем её по id.
	last, err := r.GetTransactions(ctx, userID, TransactionFilter{Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(last) == 0 {
		return nil, nil
	}

	_, _, err = r.client.From("transactions").
		Delete("", "").
		Eq("id", last[0].ID).
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return nil, fmt.Errorf("failed to delete last transaction: %w", err)
	}
	return &last[0], nil
}

func (r *SupabaseRepository) DeleteAllTransactions(ctx context.Context, userID string) (int64, error) {
	_, count, err := r.client.From("transactions").
		Delete("", "exact").
		Eq("user_id", userID).
		Execute()
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return count, nil
}
