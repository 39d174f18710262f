package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
)

// FinanceTracker предоставляет операции ведения журнала транзакций
type FinanceTracker struct {
	repo repository.Repository
	log  zerolog.Logger
	now  func() time.Time
}

func NewFinanceTracker(repo repository.Repository, log zerolog.Logger) *FinanceTracker {
	return &FinanceTracker{
		repo: repo,
		log:  log,
		now:  time.Now,
	}
}

// AddTransaction валидирует и сохраняет новую транзакцию.
// Дата может отличаться от момента создания записи; если она не задана,
// используется текущее время.
func (s *FinanceTracker) AddTransaction(ctx context.Context, userID string, category model.Category, subcategory string, amount decimal.Decimal, description string, date time.Time) (*model.Transaction, error) {
	if date.IsZero() {
		date = s.now()
	}

	transaction := &model.Transaction{
		UserID:      userID,
		Amount:      amount,
		Category:    category,
		Subcategory: subcategory,
		Description: description,
		Date:        date,
	}
	if err := transaction.Validate(); err != nil {
		return nil, err
	}
	transaction.GenerateID()

	if err := s.repo.CreateTransaction(ctx, transaction); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("user_id", userID).
		Str("category", string(category)).
		Str("subcategory", subcategory).
		Str("amount", amount.String()).
		Msg("транзакция сохранена")

	return transaction, nil
}

// RecentTransactions возвращает последние транзакции пользователя
func (s *FinanceTracker) RecentTransactions(ctx context.Context, userID string, filter repository.TransactionFilter) ([]model.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if filter.Category != "" && !model.ValidCategory(filter.Category) {
		return nil, fmt.Errorf("%w: unknown category %q", model.ErrInvalidInput, filter.Category)
	}
	return s.repo.GetTransactions(ctx, userID, filter)
}

// DeleteLastTransaction удаляет самую свежую транзакцию пользователя.
// Возвращает (nil, nil), если удалять нечего.
func (s *FinanceTracker) DeleteLastTransaction(ctx context.Context, userID string) (*model.Transaction, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	deleted, err := s.repo.DeleteLastTransaction(ctx, userID)
	if err != nil {
		return nil, err
	}
	if deleted != nil {
		s.log.Info().
			Str("user_id", userID).
			Str("transaction_id", deleted.ID).
			Msg("последняя транзакция удалена")
	}
	return deleted, nil
}

// ClearUserData удаляет всю историю пользователя. Без явного подтверждения
// ничего не делает — защита от случайного вызова из LLM-инструмента.
func (s *FinanceTracker) ClearUserData(ctx context.Context, userID string, confirmed bool) (int64, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}
	if !confirmed {
		return 0, fmt.Errorf("%w: confirmation is required to clear user data", model.ErrInvalidInput)
	}

	count, err := s.repo.DeleteAllTransactions(ctx, userID)
	if err != nil {
		return 0, err
	}

	s.log.Warn().
		Str("user_id", userID).
		Int64("count", count).
		Msg("история пользователя полностью удалена")
	return count, nil
}
