package order

import (
	"fmt"
	"time"
)

// NewOrder собирает заказ из слотов сессии. Оттенок по умолчанию — A2.
func NewOrder(sessionID string, s Slots, now time.Time) *Order {
	if s.Shade == "" {
		s.Shade = DefaultShade
	}
	return &Order{
		OrderNumber: OrderNumber(sessionID, now),
		SessionID:   sessionID,
		Slots:       s,
		Material:    MaterialDisplay(s.MaterialCategory, s.MaterialSubtype),
		Status:      StatusConfirmed,
		ConfirmedAt: now,
	}
}

// OrderNumber: ORD-YYYYMMDD-HHMMSS-<последние 3 символа сессии или 001>
func OrderNumber(sessionID string, now time.Time) string {
	suffix := "001"
	if r := []rune(sessionID); len(r) >= 3 {
		suffix = string(r[len(r)-3:])
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102-150405"), suffix)
}

// MaterialDisplay — "metal-free (emax)"
func MaterialDisplay(category, subtype string) string {
	if category == "" {
		return ""
	}
	if subtype == "" {
		return category
	}
	return category + " (" + subtype + ")"
}
