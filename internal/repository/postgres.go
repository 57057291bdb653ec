// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/mmeshcher/quickdeliver/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrUserExists возвращается при нарушении уникальности логина или email.
var (
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrOrderExists возвращается при повторном номере заказа.
	ErrOrderExists = errors.New("order number already exists")
)

// PostgresRepository предоставляет доступ к хранилищу пользователей, заказов и счетов.
type PostgresRepository struct {
	pool        *pgxpool.Pool
	logger      *zap.Logger
	retryDelays []time.Duration
}

// NewPostgresRepository создаёт пул соединений. Подключение к БД выполняется лениво,
// поэтому сервис стартует и при недоступном хранилище.
func NewPostgresRepository(dsn string, logger *zap.Logger) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &PostgresRepository{
		pool:        pool,
		logger:      logger,
		retryDelays: []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond},
	}, nil
}

// Migrate проверяет соединение и применяет встроенные миграции схемы.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if err := r.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.retryDelays) {
			break
		}

		timer := time.NewTimer(r.retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт пользователя с подпиской по умолчанию и возвращает его идентификатор.
func (r *PostgresRepository) CreateUser(ctx context.Context, u model.User) (string, error) {
	if u.Subscription == "" {
		u.Subscription = model.TierBasic
	}

	var id string
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, name, password_hash, subscription)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id::text`,
		u.Username, u.Email, u.Name, u.PasswordHash, string(u.Subscription),
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return "", fmt.Errorf("%w: %s", ErrUserExists, pgErr.ConstraintName)
		}
		return "", fmt.Errorf("create user: %w", err)
	}
	return id, nil
}

// GetUserByUsername возвращает пользователя по точному совпадению логина.
func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var (
		u    model.User
		tier string
	)

	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`SELECT id::text, username, email, name, password_hash, subscription, created_at, updated_at
			 FROM users
			 WHERE username = $1`,
			username,
		).Scan(&u.ID, &u.Username, &u.Email, &u.Name, &u.PasswordHash, &tier, &u.CreatedAt, &u.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	u.Subscription, err = model.ParseTier(tier)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// UsernameExists проверяет, занят ли логин.
func (r *PostgresRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE username = $1)`, username)
}

// EmailExists проверяет, занят ли email.
func (r *PostgresRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)`, email)
}

func (r *PostgresRepository) exists(ctx context.Context, query, arg string) (bool, error) {
	var found bool
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, query, arg).Scan(&found)
	})
	if err != nil {
		return false, fmt.Errorf("check exists: %w", err)
	}
	return found, nil
}

// UpdateSubscription меняет уровень подписки. Возвращает ErrUserNotFound, если строка не обновлена.
func (r *PostgresRepository) UpdateSubscription(ctx context.Context, userID string, tier model.Tier) error {
	var rows int64
	err := r.withRetry(ctx, func() error {
		tag, err := r.pool.Exec(ctx,
			`UPDATE users SET subscription = $2 WHERE id = $1`,
			userID, string(tier),
		)
		if err != nil {
			return err
		}
		rows = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return fmt.Errorf("update subscription: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

// GetOrdersByUser возвращает заказы пользователя, начиная с самых новых.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	var orders []model.Order
	err := r.withRetry(ctx, func() error {
		var err error
		orders, err = r.queryOrders(ctx, userID)
		return err
	})
	return orders, err
}

func (r *PostgresRepository) queryOrders(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, order_number, restaurant, items, total, status, created_at, updated_at
		 FROM orders
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orders []model.Order
	for rows.Next() {
		var (
			o      model.Order
			status string
		)
		if err := rows.Scan(&o.ID, &o.Number, &o.Restaurant, &o.Items, &o.Total, &status, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		o.Status, err = model.ParseOrderStatus(status)
		if err != nil {
			r.logger.Warn("skip order with invalid status", zap.String("order", o.Number), zap.Error(err))
			continue
		}
		if o.Items == nil {
			o.Items = []string{}
		}
		o.UserID = userID

		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}

// GetBillsByUser возвращает счета пользователя по убыванию срока оплаты.
func (r *PostgresRepository) GetBillsByUser(ctx context.Context, userID string) ([]model.Bill, error) {
	var bills []model.Bill
	err := r.withRetry(ctx, func() error {
		var err error
		bills, err = r.queryBills(ctx, userID)
		return err
	})
	return bills, err
}

func (r *PostgresRepository) queryBills(ctx context.Context, userID string) ([]model.Bill, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, month, amount, status, due_date, created_at, updated_at
		 FROM bills
		 WHERE user_id = $1
		 ORDER BY due_date DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select bills: %w", err)
	}
	defer rows.Close()

	var bills []model.Bill
	for rows.Next() {
		var (
			b      model.Bill
			status string
		)
		if err := rows.Scan(&b.ID, &b.Month, &b.Amount, &status, &b.DueDate, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan bill: %w", err)
		}

		b.Status, err = model.ParseBillStatus(status)
		if err != nil {
			r.logger.Warn("skip bill with invalid status", zap.String("month", b.Month), zap.Error(err))
			continue
		}
		b.UserID = userID

		bills = append(bills, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return bills, nil
}

// CountOrders возвращает общее число заказов.
func (r *PostgresRepository) CountOrders(ctx context.Context) (int, error) {
	var n int
	err := r.withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&n)
	})
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return n, nil
}

// CreateOrder сохраняет заказ пользователя.
func (r *PostgresRepository) CreateOrder(ctx context.Context, userID string, o model.NewOrder, placedAt time.Time) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshal items: %w", err)
	}
	if o.Status == "" {
		o.Status = model.OrderStatusPending
	}
	if placedAt.IsZero() {
		placedAt = time.Now()
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO orders (user_id, order_number, restaurant, items, total, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		userID, o.Number, o.Restaurant, items, o.Total, string(o.Status), placedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", ErrOrderExists, o.Number)
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// CreateBill выставляет счёт пользователю.
func (r *PostgresRepository) CreateBill(ctx context.Context, userID string, b model.NewBill) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO bills (user_id, month, amount, status, due_date)
		 VALUES ($1, $2, $3, $4, $5)`,
		userID, b.Month, b.Amount, string(b.Status), b.DueDate,
	)
	if err != nil {
		return fmt.Errorf("insert bill: %w", err)
	}
	return nil
}
