package order

import (
	"context"
	"errors"
	"time"
)

var ErrOrderNotFound = errors.New("order not found")

const StatusConfirmed = "confirmed"

// Order — подтверждённый заказ, как он лежит в БД
type Order struct {
	ID          int64     `json:"id"`
	OrderNumber string    `json:"order_number"`
	SessionID   string    `json:"session_id"`
	Slots       Slots     `json:"slots"`
	Material    string    `json:"material"`
	Status      string    `json:"status"`
	ConfirmedAt time.Time `json:"confirmed_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type Product struct {
	Code        string `json:"product_code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// ProductQuery — канонические значения; пустые поля фильтром не считаются
type ProductQuery struct {
	RestorationType  string
	MaterialCategory string
	MaterialSubtype  string
	PositionType     string
	Limit            int
}

// Repo — persistence подтверждённых заказов
type Repo interface {
	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, orderNumber string) (*Order, error)
	ListRecent(ctx context.Context, limit int) ([]Order, error)
}

// Catalog — поиск продуктов лаборатории
type Catalog interface {
	SearchProducts(ctx context.Context, q ProductQuery) ([]Product, error)
}
