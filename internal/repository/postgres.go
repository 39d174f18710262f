package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Eikhinson/telegram-finance-bot/internal/model"
)

// PostgresRepository хранит журнал транзакций в таблице Postgres
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, dsn string) (*PostgresRepository, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

// InitSchema создает таблицу транзакций и индексы, если их еще нет
func (r *PostgresRepository) InitSchema(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS transactions (
			id UUID PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			amount DECIMAL(10, 2) NOT NULL,
			category VARCHAR(50) NOT NULL CHECK (category IN ('income', 'expense')),
			subcategory VARCHAR(100) NOT NULL,
			description TEXT,
			date TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_user_id ON transactions(user_id);
		CREATE INDEX IF NOT EXISTS idx_date ON transactions(date);
		CREATE INDEX IF NOT EXISTS idx_category ON transactions(category);
	`)
	if err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, transaction *model.Transaction) error {
	query := `
		INSERT INTO transactions (id, user_id, amount, category, subcategory, description, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	err := r.pool.QueryRow(ctx, query,
		transaction.ID,
		transaction.UserID,
		transaction.Amount,
		string(transaction.Category),
		transaction.Subcategory,
		transaction.Description,
		transaction.Date,
	).Scan(&transaction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetTransactions(ctx context.Context, userID string, filter TransactionFilter) ([]model.Transaction, error) {
	conditions := []string{"user_id = $1"}
	params := []any{userID}

	if filter.Category != "" {
		params = append(params, string(filter.Category))
		conditions = append(conditions, fmt.Sprintf("category = $%d", len(params)))
	}
	if filter.Subcategory != "" {
		params = append(params, filter.Subcategory)
		conditions = append(conditions, fmt.Sprintf("subcategory = $%d", len(params)))
	}
	if filter.StartDate != nil {
		params = append(params, *filter.StartDate)
		conditions = append(conditions, fmt.Sprintf("date >= $%d", len(params)))
	}
	if filter.EndDate != nil {
		params = append(params, *filter.EndDate)
		conditions = append(conditions, fmt.Sprintf("date <= $%d", len(params)))
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, amount, category, subcategory, description, date, created_at
		FROM transactions
		WHERE %s
		ORDER BY date DESC, created_at DESC
	`, strings.Join(conditions, " AND "))

	if filter.Limit > 0 {
		params = append(params, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(params))
	}

	rows, err := r.pool.Query(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("failed to get transactions: %w", err)
	}
	defer rows.Close()

	var transactions []model.Transaction
	for rows.Next() {
		var t model.Transaction
		err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Category, &t.Subcategory, &t.Description, &t.Date, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}
	return transactions, nil
}

func (r *PostgresRepository) DeleteLastTransaction(ctx context.Context, userID string) (*model.Transaction, error) {
	query := `
		DELETE FROM transactions
		WHERE id = (
			SELECT id FROM transactions
			WHERE user_id = $1
			ORDER BY date DESC, created_at DESC
			LIMIT 1
		)
		RETURNING id, user_id, amount, category, subcategory, description, date, created_at
	`
	var t model.Transaction
	err := r.pool.QueryRow(ctx, query, userID).
		Scan(&t.ID, &t.UserID, &t.Amount, &t.Category, &t.Subcategory, &t.Description, &t.Date, &t.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete last transaction: %w", err)
	}
	return &t, nil
}

func (r *PostgresRepository) DeleteAllTransactions(ctx context.Context, userID string) (int64, error) {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete transactions: %w", err)
	}
	return cmd.RowsAffected(), nil
}
