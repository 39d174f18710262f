package repository

import (
	"context"
	"time"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
)

// Repository определяет интерфейс для работы с журналом транзакций.
// Журнал append/delete-only: записи создаются, читаются и удаляются,
// но никогда не изменяются.
type Repository interface {
	CreateTransaction(ctx context.Context, transaction *model.Transaction) error
	GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error)
	// DeleteLastTransaction удаляет самую свежую транзакцию пользователя
	// (date DESC, при равенстве created_at DESC) и возвращает её.
	// Если транзакций нет, возвращает (nil, nil).
	DeleteLastTransaction(ctx context.Context, userID string) (*model.Transaction, error)
	// DeleteAllTransactions удаляет все транзакции пользователя и возвращает их количество.
	DeleteAllTransactions(ctx context.Context, userID string) (int64, error)
}

// TransactionFilter описывает необязательные условия выборки.
// Нулевое значение поля означает отсутствие ограничения.
// Границы дат включительные.
type TransactionFilter struct {
	Category    model.Category
	Subcategory string
	StartDate   *time.Time
	EndDate     *time.Time
	Limit       int
}
