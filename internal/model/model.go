// Package model содержит доменные сущности сервиса доставки стирки.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// User представляет пользователя, прошедшего аутентификацию у провайдера идентификации.
type User struct {
	ID       string `json:"id" bson:"_id"`
	Email    string `json:"email" bson:"email"`
	Name     string `json:"name" bson:"name"`
	Phone    string `json:"phone,omitempty" bson:"phone,omitempty"`
	PhotoURL string `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
}

// AuthState описывает изменение состояния аутентификации пользователя.
// User равен nil, если пользователь вышел из системы.
type AuthState struct {
	UserID string
	User   *User
}

// SignedIn сообщает, присутствует ли пользователь после изменения состояния.
func (s AuthState) SignedIn() bool {
	return s.User != nil
}

// Address описывает сохранённый адрес пользователя.
type Address struct {
	ID        string   `json:"id" bson:"id"`
	Label     string   `json:"label" bson:"label"`
	Street    string   `json:"street" bson:"street"`
	City      string   `json:"city" bson:"city"`
	State     string   `json:"state" bson:"state"`
	ZipCode   string   `json:"zip_code" bson:"zip_code"`
	Latitude  *float64 `json:"latitude,omitempty" bson:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty" bson:"longitude,omitempty"`
}

// AddressDraft содержит поля формы нового адреса до присвоения идентификатора.
type AddressDraft struct {
	Label     string   `json:"label" validate:"required,max=64"`
	Street    string   `json:"street" validate:"required,max=256"`
	City      string   `json:"city" validate:"required,max=128"`
	State     string   `json:"state" validate:"required,max=128"`
	ZipCode   string   `json:"zip_code" validate:"required,max=16"`
	Latitude  *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
}

// WithID превращает черновик в адрес с указанным идентификатором.
func (d AddressDraft) WithID(id string) Address {
	return Address{
		ID:        id,
		Label:     d.Label,
		Street:    d.Street,
		City:      d.City,
		State:     d.State,
		ZipCode:   d.ZipCode,
		Latitude:  d.Latitude,
		Longitude: d.Longitude,
	}
}

// ServiceID идентифицирует услугу из фиксированного каталога.
type ServiceID string

const (
	ServiceWash     ServiceID = "wash"
	ServiceDryClean ServiceID = "dry-clean"
	ServiceIron     ServiceID = "iron"
	ServiceFold     ServiceID = "fold"
)

// Service описывает услугу каталога и её цену.
type Service struct {
	ID          ServiceID       `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
}

// TimeSlot описывает выбранный интервал забора или доставки.
type TimeSlot struct {
	ID        string `json:"id" bson:"id"`
	Date      string `json:"date" bson:"date"`
	Time      string `json:"time" bson:"time"`
	Available bool   `json:"available" bson:"available"`
}

// OrderStatus описывает статус обработки заказа.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusPicked     OrderStatus = "picked"
	OrderStatusWashing    OrderStatus = "washing"
	OrderStatusDelivering OrderStatus = "delivering"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Terminal сообщает, что заказ больше не считается активным.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// Order описывает заказ пользователя со встроенными снимками адресов и интервалов.
type Order struct {
	ID               string
	UserID           string
	PickupAddress    Address
	DeliveryAddress  Address
	Services         []ServiceID
	PickupTimeSlot   TimeSlot
	DeliveryTimeSlot TimeSlot
	Status           OrderStatus
	TotalPrice       decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Notes            string
}

// OrderRequest содержит выбор пользователя, накопленный мастером оформления заказа.
// Цена и временные метки в запрос не входят.
type OrderRequest struct {
	PickupAddress    Address
	DeliveryAddress  Address
	Services         []ServiceID
	PickupTimeSlot   TimeSlot
	DeliveryTimeSlot TimeSlot
	Notes            string
}
