// Package repository содержит реализации хранилища пользователей, адресов и заказов
// на PostgreSQL и MongoDB.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/mmeshcher/joyful-laundry/internal/model"
)

var (
	// ErrUserExists возвращается при попытке создать пользователя с уже существующим email.
	ErrUserExists = errors.New("user already exists")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnknownDriver возвращается для неизвестного драйвера хранилища.
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Названия драйверов хранилища.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// Store объединяет операции, которые сервис выполняет над хранилищем.
type Store interface {
	CreateUser(ctx context.Context, user model.User, passwordHash []byte) (model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, []byte, error)
	GetUserByID(ctx context.Context, id string) (*model.User, error)

	InsertAddress(ctx context.Context, userID string, draft model.AddressDraft) (string, error)
	GetAddressesByUser(ctx context.Context, userID string) ([]model.Address, error)

	InsertOrder(ctx context.Context, order model.Order) (string, error)
	GetOrdersByUser(ctx context.Context, userID string) ([]model.Order, error)

	Ping(ctx context.Context) error
	Close() error
}

// Options описывает параметры подключения к хранилищу.
type Options struct {
	Driver        string
	DatabaseURI   string
	MongoURI      string
	MongoDatabase string
}

// Open открывает хранилище выбранного драйвера.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "", DriverPostgres:
		return NewPostgresRepository(opts.DatabaseURI)
	case DriverMongo:
		return NewMongoRepository(ctx, opts.MongoURI, opts.MongoDatabase)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, opts.Driver)
	}
}

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

func serviceStrings(ids []model.ServiceID) []string {
	res := make([]string, 0, len(ids))
	for _, id := range ids {
		res = append(res, string(id))
	}
	return res
}

func serviceIDs(values []string) []model.ServiceID {
	res := make([]model.ServiceID, 0, len(values))
	for _, v := range values {
		res = append(res, model.ServiceID(v))
	}
	return res
}
