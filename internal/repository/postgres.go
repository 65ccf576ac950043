package repository

import (
	"context"
	"embed"
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

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
// Адреса и интервалы заказа хранятся снимками в JSONB.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
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

var retryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for i := 0; i <= len(retryDelays); i++ {
		err = fn()
		if err == nil || !retryable(err) || i == len(retryDelays) {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryDelays[i]):
		}
	}
	return err
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

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

// Ping проверяет доступность БД.
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateUser создаёт нового пользователя. passwordHash равен nil для входа через Google.
func (r *PostgresRepository) CreateUser(ctx context.Context, user model.User, passwordHash []byte) (model.User, error) {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, phone, photo_url, password_hash)
		 VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		 RETURNING id`,
		user.Email, user.Name, user.Phone, user.PhotoURL, passwordHash,
	).Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return model.User{}, fmt.Errorf("%w: %s", ErrUserExists, user.Email)
		}
		return model.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// GetUserByEmail возвращает пользователя и хеш его пароля.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, []byte, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, COALESCE(phone, ''), COALESCE(photo_url, ''), password_hash
		 FROM users WHERE email = $1`,
		email,
	)

	var (
		u    model.User
		hash []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PhotoURL, &hash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return &u, hash, nil
}

// GetUserByID возвращает пользователя по идентификатору.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, name, COALESCE(phone, ''), COALESCE(photo_url, '')
		 FROM users WHERE id = $1`,
		id,
	)

	var u model.User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &u.PhotoURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &u, nil
}

// InsertAddress сохраняет новый адрес пользователя.
func (r *PostgresRepository) InsertAddress(ctx context.Context, userID string, draft model.AddressDraft) (string, error) {
	var id string
	err := withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO addresses (user_id, label, street, city, state, zip_code, latitude, longitude)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING id`,
			userID, draft.Label, draft.Street, draft.City, draft.State, draft.ZipCode,
			draft.Latitude, draft.Longitude,
		).Scan(&id)
	})
	if err != nil {
		return "", fmt.Errorf("insert address: %w", err)
	}
	return id, nil
}

// GetAddressesByUser возвращает адреса пользователя в порядке добавления.
func (r *PostgresRepository) GetAddressesByUser(ctx context.Context, userID string) ([]model.Address, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, label, street, city, state, zip_code, latitude, longitude
		 FROM addresses
		 WHERE user_id = $1
		 ORDER BY created_at, id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("select addresses: %w", err)
	}
	defer rows.Close()

	var res []model.Address
	for rows.Next() {
		var a model.Address
		if err := rows.Scan(&a.ID, &a.Label, &a.Street, &a.City, &a.State, &a.ZipCode, &a.Latitude, &a.Longitude); err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		res = append(res, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// InsertOrder сохраняет заказ со снимками адресов и интервалов. Сумма хранится в центах.
func (r *PostgresRepository) InsertOrder(ctx context.Context, o model.Order) (string, error) {
	var id string
	err := withRetry(ctx, func() error {
		return r.pool.QueryRow(ctx,
			`INSERT INTO orders (user_id, pickup_address, delivery_address, services,
			                     pickup_time_slot, delivery_time_slot, status, total_price,
			                     notes, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 RETURNING id`,
			o.UserID, o.PickupAddress, o.DeliveryAddress, serviceStrings(o.Services),
			o.PickupTimeSlot, o.DeliveryTimeSlot, string(o.Status), toCents(o.TotalPrice),
			o.Notes, o.CreatedAt, o.UpdatedAt,
		).Scan(&id)
	})
	if err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}
	return id, nil
}

// GetOrdersByUser возвращает заказы пользователя, начиная с самых новых.
func (r *PostgresRepository) GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, user_id, pickup_address, delivery_address, services,
		        pickup_time_slot, delivery_time_slot, status, total_price,
		        notes, created_at, updated_at
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
			o          model.Order
			services   []string
			status     string
			totalCents int64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.PickupAddress, &o.DeliveryAddress, &services,
			&o.PickupTimeSlot, &o.DeliveryTimeSlot, &status, &totalCents,
			&o.Notes, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}

		o.Services = serviceIDs(services)
		o.Status = model.OrderStatus(status)
		o.TotalPrice = fromCents(totalCents)
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return orders, nil
}
