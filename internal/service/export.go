package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
	"github.com/Eikhinson/telegram-finance-bot/internal/repository"
)

// ExportCSV выгружает транзакции пользователя в CSV (от новых к старым).
// Возвращает содержимое файла и число строк данных.
func (s *FinanceTracker) ExportCSV(ctx context.Context, userID string, filter repository.TransactionFilter) ([]byte, int, error) {
	if userID == "" {
		return nil, 0, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	transactions, err := s.repo.GetTransactions(ctx, userID, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get transactions for export: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Date", "Category", "Subcategory", "Amount", "Description"}); err != nil {
		return nil, 0, fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, t := range transactions {
		record := []string{
			t.Date.Format("2006-01-02"),
			string(t.Category),
			t.Subcategory,
			t.Amount.String(),
			t.Description,
		}
		if err := w.Write(record); err != nil {
			return nil, 0, fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, 0, fmt.Errorf("failed to flush csv: %w", err)
	}
	return buf.Bytes(), len(transactions), nil
}
