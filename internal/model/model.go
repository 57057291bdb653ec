// Package model содержит доменные сущности сервиса QuickDeliver.
package model

import (
	"fmt"
	"time"
)

// Tier описывает уровень подписки пользователя.
type Tier string

const (
	TierBasic    Tier = "Basic"
	TierStandard Tier = "Standard"
	TierPremium  Tier = "Premium"
)

// ParseTier проверяет, что строка является допустимым уровнем подписки.
func ParseTier(s string) (Tier, error) {
	switch t := Tier(s); t {
	case TierBasic, TierStandard, TierPremium:
		return t, nil
	}
	return "", fmt.Errorf("unknown subscription tier %q", s)
}

// User представляет зарегистрированного пользователя.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Subscription Tier      `json:"subscription"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// OrderStatus описывает статус доставки заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusPreparing OrderStatus = "Preparing"
	OrderStatusInTransit OrderStatus = "In Transit"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ParseOrderStatus проверяет статус заказа, прочитанный из хранилища.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch st := OrderStatus(s); st {
	case OrderStatusPending, OrderStatusPreparing, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q", s)
}

// Order описывает заказ пользователя.
type Order struct {
	ID         string      `json:"-"`
	UserID     string      `json:"-"`
	Number     string      `json:"id"`
	Restaurant string      `json:"restaurant"`
	Items      []string    `json:"items"`
	Total      float64     `json:"total"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"date"`
	UpdatedAt  time.Time   `json:"-"`
}

// NewOrder содержит данные для оформления заказа.
type NewOrder struct {
	Number     string
	Restaurant string
	Items      []string
	Total      float64
	Status     OrderStatus
}

// BillStatus описывает статус ежемесячного счёта.
type BillStatus string

const (
	BillStatusPending  BillStatus = "Pending"
	BillStatusPaid     BillStatus = "Paid"
	BillStatusNoCharge BillStatus = "No Charge"
)

// ParseBillStatus проверяет статус счёта, прочитанный из хранилища.
func ParseBillStatus(s string) (BillStatus, error) {
	switch st := BillStatus(s); st {
	case BillStatusPending, BillStatusPaid, BillStatusNoCharge:
		return st, nil
	}
	return "", fmt.Errorf("unknown bill status %q", s)
}

// Bill описывает счёт за период подписки.
type Bill struct {
	ID        string     `json:"-"`
	UserID    string     `json:"-"`
	Month     string     `json:"month"`
	Amount    float64    `json:"amount"`
	Status    BillStatus `json:"status"`
	DueDate   time.Time  `json:"due_date"`
	CreatedAt time.Time  `json:"-"`
	UpdatedAt time.Time  `json:"-"`
}

// NewBill содержит данные для выставления счёта.
type NewBill struct {
	Month   string
	Amount  float64
	Status  BillStatus
	DueDate time.Time
}

// ViewModel содержит снимок профиля, заказов и счетов пользователя,
// собранный при входе и живущий ровно столько, сколько сессия.
type ViewModel struct {
	Profile User    `json:"profile"`
	Orders  []Order `json:"orders"`
	Bills   []Bill  `json:"bills"`
}

// Role описывает автора сообщения в диалоге с ассистентом.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage описывает одну реплику диалога с ассистентом.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}
