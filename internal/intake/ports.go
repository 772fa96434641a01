package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/Vovarama1992/dental-order-bridge/internal/material"
	"github.com/Vovarama1992/dental-order-bridge/internal/order"
)

var (
	ErrUnknownTool     = errors.New("unknown tool")
	ErrSessionNotFound = errors.New("session not found")
	ErrIncompleteOrder = errors.New("order is incomplete")
	ErrEmptySessionID  = errors.New("session id is empty")
)

// IncompleteOrderError перечисляет недостающие поля; errors.Is(err, ErrIncompleteOrder)
type IncompleteOrderError struct {
	Missing []order.Field
}

func (e *IncompleteOrderError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, f := range e.Missing {
		names = append(names, string(f))
	}
	return fmt.Sprintf("%s: missing %s", ErrIncompleteOrder, strings.Join(names, ", "))
}

func (e *IncompleteOrderError) Is(target error) bool {
	return target == ErrIncompleteOrder
}

// ToolResponse — ответ на вызов инструмента вместе с состоянием заказа после него
type ToolResponse struct {
	Tool       string           `json:"tool"`
	Result     any              `json:"result"`
	Slots      order.Slots      `json:"slots"`
	Transition order.Transition `json:"transition"`
}

// OrderState — текущий черновик заказа сессии
type OrderState struct {
	SessionID string        `json:"session_id"`
	Slots     order.Slots   `json:"slots"`
	Complete  bool          `json:"complete"`
	Missing   []order.Field `json:"missing,omitempty"`
}

// Checker — движок совместимости материалов
type Checker interface {
	Check(ctx context.Context, req material.CompatibilityRequest) material.CompatibilityResult
}

// Normalizer — нормализатор названий материалов с общим кэшем
type Normalizer interface {
	Normalize(ctx context.Context, input string, category material.Category, allowFallback bool) string
	ClearCache()
	CacheStats() material.CacheStats
}

// Service — граница вызова инструментов
type Service interface {
	Tools() []openai.Tool
	NewSession() string
	Execute(ctx context.Context, sessionID, tool string, args json.RawMessage) (ToolResponse, error)
	State(sessionID string) (OrderState, error)
	Confirm(ctx context.Context, sessionID string) (*order.Order, error)
	Discard(sessionID string)
	EvictIdle(maxIdle time.Duration) int

	GetOrder(ctx context.Context, orderNumber string) (*order.Order, error)
	RecentOrders(ctx context.Context, limit int) ([]order.Order, error)

	CacheStats() material.CacheStats
	ClearCache()
}
