package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrInvalidInput помечает ошибки валидации входных данных.
// Инфраструктурные ошибки хранилища пробрасываются без этой метки,
// поэтому вызывающий код различает их через errors.Is.
var ErrInvalidInput = errors.New("invalid input")

type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Amount      decimal.Decimal `json:"amount"`
	Category    Category        `json:"category"`
	Subcategory string          `json:"subcategory"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
}

// GenerateID генерирует новый UUID для транзакции, если он еще не установлен
func (t *Transaction) GenerateID() {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
}

// Validate проверяет инварианты транзакции перед сохранением:
// владелец обязателен, сумма строго положительна, подкатегория
// принадлежит набору своей категории.
func (t *Transaction) Validate() error {
	if t.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if !t.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidInput, t.Amount)
	}
	if !ValidCategory(t.Category) {
		return fmt.Errorf("%w: unknown category %q", ErrInvalidInput, t.Category)
	}
	if !ValidSubcategory(t.Category, t.Subcategory) {
		return fmt.Errorf("%w: subcategory %q is not allowed for category %q", ErrInvalidInput, t.Subcategory, t.Category)
	}
	return nil
}
