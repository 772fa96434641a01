package order

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var ErrDuplicateOrder = errors.New("order number already exists")

// код unique_violation в postgres
const uniqueViolation = "23505"

type repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) Repo {
	return &repo{db: db}
}

func (r *repo) CreateOrder(ctx context.Context, o *Order) error {
	metadata, err := json.Marshal(o.Slots)
	if err != nil {
		return fmt.Errorf("marshal order metadata: %w", err)
	}

	err = r.db.QueryRowContext(ctx, `
		INSERT INTO orders (
			order_number, session_id, restoration_type, tooth_positions,
			material_category, material_subtype, material,
			product_code, product_name, patient_name, shade,
			bridge_span, position_type, status, confirmed_at, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id, created_at
	`,
		o.OrderNumber,
		o.SessionID,
		o.Slots.RestorationType,
		o.Slots.ToothPositions,
		o.Slots.MaterialCategory,
		o.Slots.MaterialSubtype,
		o.Material,
		nullString(o.Slots.ProductCode),
		nullString(o.Slots.ProductName),
		o.Slots.PatientName,
		o.Slots.Shade,
		nullInt(o.Slots.BridgeSpan),
		nullString(o.Slots.PositionType),
		o.Status,
		o.ConfirmedAt,
		metadata,
	).Scan(&o.ID, &o.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", ErrDuplicateOrder, o.OrderNumber)
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

const selectOrder = `
	SELECT id, order_number, session_id, restoration_type, tooth_positions,
		material_category, material_subtype, material,
		product_code, product_name, patient_name, shade,
		bridge_span, position_type, status, confirmed_at, created_at
	FROM orders
`

func (r *repo) GetOrder(ctx context.Context, orderNumber string) (*Order, error) {
	row := r.db.QueryRowContext(ctx, selectOrder+` WHERE order_number = $1`, orderNumber)

	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order %s: %w", orderNumber, err)
	}
	return o, nil
}

func (r *repo) ListRecent(ctx context.Context, limit int) ([]Order, error) {
	rows, err := r.db.QueryContext(ctx, selectOrder+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, *o)
	}

	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*Order, error) {
	var (
		o                        Order
		productCode, productName sql.NullString
		positionType             sql.NullString
		bridgeSpan               sql.NullInt64
	)
	if err := row.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.SessionID,
		&o.Slots.RestorationType,
		&o.Slots.ToothPositions,
		&o.Slots.MaterialCategory,
		&o.Slots.MaterialSubtype,
		&o.Material,
		&productCode,
		&productName,
		&o.Slots.PatientName,
		&o.Slots.Shade,
		&bridgeSpan,
		&positionType,
		&o.Status,
		&o.ConfirmedAt,
		&o.CreatedAt,
	); err != nil {
		return nil, err
	}
	o.Slots.ProductCode = productCode.String
	o.Slots.ProductName = productName.String
	o.Slots.PositionType = positionType.String
	o.Slots.BridgeSpan = int(bridgeSpan.Int64)
	return &o, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}

type catalog struct {
	db *sql.DB
}

func NewCatalog(db *sql.DB) Catalog {
	return &catalog{db: db}
}

// SearchProducts фильтрует по типу и категории; подтип и позиция сужают
// выборку только если заданы. Продукт без position_type подходит к любой.
func (c *catalog) SearchProducts(ctx context.Context, q ProductQuery) ([]Product, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT product_code, name, description
		FROM products
		WHERE restoration_type = $1
		  AND material_category = $2
		  AND ($3 = '' OR material_subtype = $3)
		  AND ($4 = '' OR position_type IS NULL OR position_type = $4)
		ORDER BY product_code ASC
		LIMIT $5
	`, q.RestorationType, q.MaterialCategory, q.MaterialSubtype, q.PositionType, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.Code, &p.Name, &p.Description); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}

	return out, rows.Err()
}
