package intake

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/Vovarama1992/dental-order-bridge/internal/material"
	"github.com/Vovarama1992/dental-order-bridge/internal/metrics"
	"github.com/Vovarama1992/dental-order-bridge/internal/order"
	"github.com/Vovarama1992/dental-order-bridge/internal/tooth"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
)

const (
	resultValid            = "valid"
	resultRejected         = "rejected"
	resultInvalidArguments = "invalid_arguments"
	resultError            = "error"
)

// toolResult — ответ инструмента и то, что из него надо влить в слоты
type toolResult struct {
	payload any
	ok      bool
	outcome order.Outcome
}

type toolFunc func(ctx context.Context, slots order.Slots, args json.RawMessage) (toolResult, error)

type service struct {
	engine     Checker
	normalizer Normalizer
	catalog    order.Catalog
	repo       order.Repo
	log        *zap.Logger

	sessions *sessions
	tools    map[string]toolFunc
	defs     []openai.Tool
	now      func() time.Time
}

func NewService(
	engine Checker,
	normalizer Normalizer,
	catalog order.Catalog,
	repo order.Repo,
	log *zap.Logger,
) Service {
	s := &service{
		engine:     engine,
		normalizer: normalizer,
		catalog:    catalog,
		repo:       repo,
		log:        log,
		sessions:   newSessions(),
		defs:       ToolDefinitions(),
		now:        time.Now,
	}
	s.tools = map[string]toolFunc{
		ToolValidateToothPositions: s.validateTeeth,
		ToolGetValidToothRanges:    s.toothRanges,
		ToolValidateBridge:         s.validateBridge,
		ToolValidateMaterial:       s.validateMaterial,
		ToolSearchProducts:         s.searchProducts,
		ToolSelectProduct:          s.selectProduct,
		ToolStoreShade:             s.storeShade,
		ToolStorePatientName:       s.storePatientName,
	}
	return s
}

func (s *service) Tools() []openai.Tool {
	return s.defs
}

func (s *service) NewSession() string {
	id := uuid.NewString()
	s.sessions.getOrCreate(id)
	s.log.Info("session started", zap.String("session_id", id), zap.Int("active", s.sessions.count()))
	return id
}

// Execute выполняет инструмент и вливает его результат в слоты сессии.
// Вызовы одной сессии идут строго по очереди.
func (s *service) Execute(ctx context.Context, sessionID, tool string, args json.RawMessage) (ToolResponse, error) {
	if sessionID == "" {
		return ToolResponse{}, ErrEmptySessionID
	}
	run, ok := s.tools[tool]
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues("unknown", resultError).Inc()
		return ToolResponse{}, fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}

	sess := s.sessions.acquire(sessionID)
	defer sess.mu.Unlock()

	res, err := run(ctx, sess.slots.Snapshot(), args)
	if err != nil {
		metrics.ToolCallsTotal.WithLabelValues(tool, resultError).Inc()
		s.log.Error("tool failed",
			zap.String("session_id", sessionID),
			zap.String("tool", tool),
			zap.Error(err),
		)
		return ToolResponse{}, fmt.Errorf("%s: %w", tool, err)
	}

	tr := order.Transition{Kind: order.Unchanged}
	if res.outcome != nil {
		tr = sess.slots.Apply(res.outcome)
	}

	label := resultRejected
	switch {
	case res.ok:
		label = resultValid
	case isArgumentError(res.payload):
		label = resultInvalidArguments
	}
	metrics.ToolCallsTotal.WithLabelValues(tool, label).Inc()

	s.log.Info("tool executed",
		zap.String("session_id", sessionID),
		zap.String("tool", tool),
		zap.String("result", label),
		zap.String("transition", string(tr.Kind)),
		zap.Any("cleared", tr.Cleared),
	)

	return ToolResponse{
		Tool:       tool,
		Result:     res.payload,
		Slots:      sess.slots.Snapshot(),
		Transition: tr,
	}, nil
}

func (s *service) State(sessionID string) (OrderState, error) {
	sess, ok := s.sessions.lock(sessionID)
	if !ok {
		return OrderState{}, ErrSessionNotFound
	}
	defer sess.mu.Unlock()

	complete, missing := sess.slots.IsComplete(order.RequiredFields)
	return OrderState{
		SessionID: sessionID,
		Slots:     sess.slots.Snapshot(),
		Complete:  complete,
		Missing:   missing,
	}, nil
}

// Confirm сохраняет заказ и закрывает сессию. Неполный заказ не сохраняется.
func (s *service) Confirm(ctx context.Context, sessionID string) (*order.Order, error) {
	sess, ok := s.sessions.lock(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	defer sess.mu.Unlock()

	if complete, missing := sess.slots.IsComplete(order.RequiredFields); !complete {
		return nil, &IncompleteOrderError{Missing: missing}
	}

	o := order.NewOrder(sessionID, sess.slots.Snapshot(), s.now())
	if err := s.repo.CreateOrder(ctx, o); err != nil {
		s.log.Error("order persist failed",
			zap.String("session_id", sessionID),
			zap.String("order_number", o.OrderNumber),
			zap.Error(err),
		)
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	s.sessions.discard(sessionID)
	metrics.OrdersConfirmedTotal.Inc()

	s.log.Info("order confirmed",
		zap.String("session_id", sessionID),
		zap.String("order_number", o.OrderNumber),
		zap.String("restoration_type", o.Slots.RestorationType),
		zap.String("material", o.Material),
	)
	return o, nil
}

func (s *service) Discard(sessionID string) {
	s.sessions.discard(sessionID)
	s.log.Info("session discarded", zap.String("session_id", sessionID))
}

// EvictIdle сбрасывает брошенные черновики; вызывается по таймеру из main
func (s *service) EvictIdle(maxIdle time.Duration) int {
	n := s.sessions.evictIdle(maxIdle)
	if n > 0 {
		s.log.Info("idle sessions evicted", zap.Int("evicted", n), zap.Int("active", s.sessions.count()))
	}
	return n
}

func (s *service) GetOrder(ctx context.Context, orderNumber string) (*order.Order, error) {
	return s.repo.GetOrder(ctx, orderNumber)
}

func (s *service) RecentOrders(ctx context.Context, limit int) ([]order.Order, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	return s.repo.ListRecent(ctx, limit)
}

func (s *service) CacheStats() material.CacheStats {
	return s.normalizer.CacheStats()
}

func (s *service) ClearCache() {
	s.normalizer.ClearCache()
}

// ------------------------------------------------------------

// ArgumentError — аргументы инструмента не разобрались; модель должна повторить вызов
type ArgumentError struct {
	Valid     bool   `json:"valid"`
	ErrorType string `json:"error_type"`
	Message   string `json:"message"`
}

func invalidArgs(format string, a ...any) toolResult {
	return toolResult{payload: ArgumentError{
		ErrorType: resultInvalidArguments,
		Message:   fmt.Sprintf(format, a...),
	}}
}

func isArgumentError(v any) bool {
	_, ok := v.(ArgumentError)
	return ok
}

func decodeArgs(raw json.RawMessage, v any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func (s *service) validateTeeth(_ context.Context, _ order.Slots, raw json.RawMessage) (toolResult, error) {
	var a toothArgs
	if err := decodeArgs(raw, &a); err != nil {
		return invalidArgs("cannot parse arguments: %v", err), nil
	}

	res := tooth.Validate(a.ToothPositions)
	return toolResult{payload: res, ok: res.Valid, outcome: order.ToothOutcome{Result: res}}, nil
}

func (s *service) toothRanges(_ context.Context, _ order.Slots, _ json.RawMessage) (toolResult, error) {
	return toolResult{payload: tooth.Ranges(), ok: true}, nil
}

type bridgePayload struct {
	tooth.BridgeResult
	InvalidTeeth []tooth.InvalidTooth `json:"invalid_teeth,omitempty"`
}

// validateBridge сначала проверяет сами номера зубов, потом непрерывность
func (s *service) validateBridge(_ context.Context, _ order.Slots, raw json.RawMessage) (toolResult, error) {
	var a toothArgs
	if err := decodeArgs(raw, &a); err != nil {
		return invalidArgs("cannot parse arguments: %v", err), nil
	}

	set := tooth.Validate(a.ToothPositions)
	if !set.Valid {
		return toolResult{payload: bridgePayload{
			BridgeResult: tooth.BridgeResult{ErrorType: set.ErrorType, Message: set.Error},
			InvalidTeeth: set.InvalidTeeth,
		}}, nil
	}

	res := tooth.ValidateBridge(a.ToothPositions)
	return toolResult{
		payload: bridgePayload{BridgeResult: res},
		ok:      res.Valid,
		outcome: order.BridgeOutcome{Result: res},
	}, nil
}

// validateMaterial: без bridge_span в аргументах берётся длина уже записанного моста
func (s *service) validateMaterial(ctx context.Context, slots order.Slots, raw json.RawMessage) (toolResult, error) {
	var a materialArgs
	if err := decodeArgs(raw, &a); err != nil {
		return invalidArgs("cannot parse arguments: %v", err), nil
	}

	span := 0
	switch {
	case a.BridgeSpan != nil:
		span = *a.BridgeSpan
	case slots.RestorationType == string(material.Bridge):
		span = slots.BridgeSpan
	}

	res := s.engine.Check(ctx, material.CompatibilityRequest{
		RestorationType:  a.RestorationType,
		MaterialCategory: a.MaterialCategory,
		MaterialSubtype:  a.MaterialSubtype,
		BridgeSpan:       span,
	})
	if len(res.Warnings) > 0 {
		s.log.Warn("material accepted with warnings",
			zap.String("restoration_type", string(res.RestorationType)),
			zap.String("material_subtype", res.MaterialSubtype),
			zap.Strings("warnings", res.Warnings),
		)
	}

	return toolResult{payload: res, ok: res.Valid, outcome: order.MaterialOutcome{Result: res}}, nil
}

type searchResult struct {
	Found           bool            `json:"found"`
	Count           int             `json:"count"`
	Products        []order.Product `json:"products"`
	Message         string          `json:"message"`
	ErrorType       string          `json:"error_type,omitempty"`
	AllowedSubtypes []string        `json:"allowed_subtypes,omitempty"`
}

// searchProducts ищет только по сочетанию, которое пропустил движок совместимости:
// в слоты не должна попасть запрещённая комбинация
func (s *service) searchProducts(ctx context.Context, _ order.Slots, raw json.RawMessage) (toolResult, error) {
	var a searchArgs
	if err := decodeArgs(raw, &a); err != nil {
		return invalidArgs("cannot parse arguments: %v", err), nil
	}

	position := strings.ToLower(strings.TrimSpace(a.PositionType))
	if position != "" && position != tooth.PositionAnterior && position != tooth.PositionPosterior {
		return invalidArgs("position_type must be %q or %q", tooth.PositionAnterior, tooth.PositionPosterior), nil
	}

	check := s.engine.Check(ctx, material.CompatibilityRequest{
		RestorationType:  a.RestorationType,
		MaterialCategory: a.MaterialCategory,
		MaterialSubtype:  a.MaterialSubtype,
	})
	if !check.Valid {
		return toolResult{payload: searchResult{
			Products:        []order.Product{},
			ErrorType:       string(check.ErrorType),
			Message:         check.Message,
			AllowedSubtypes: check.AllowedSubtypes,
		}}, nil
	}
	rt, category, subtype := check.RestorationType, check.MaterialCategory, check.MaterialSubtype

	q := order.ProductQuery{
		RestorationType:  string(rt),
		MaterialCategory: string(category),
		MaterialSubtype:  subtype,
		PositionType:     position,
		Limit:            searchLimit,
	}
	products, err := s.catalog.SearchProducts(ctx, q)
	if err != nil {
		return toolResult{}, err
	}
	if products == nil {
		products = []order.Product{}
	}

	res := searchResult{Found: len(products) > 0, Count: len(products), Products: products}
	switch len(products) {
	case 0:
		res.Message = "No matching products found."
	case 1:
		res.Message = "Found 1 matching product."
	default:
		res.Message = fmt.Sprintf("Found %d products. List them and ask the dentist to choose one.", len(products))
	}

	return toolResult{payload: res, ok: true, outcome: order.ProductOutcome{Query: q, Products: products}}, nil
}

type selectResult struct {
	Success     bool   `json:"success"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name,omitempty"`
}

func (s *service) selectProduct(_ context.Context, _ order.Slots, raw json.RawMessage) (toolResult, error) {
	var a selectArgs
	if err := decodeArgs(raw, &a); err != nil {
		return invalidArgs("cannot parse arguments: %v", err), nil
	}
	code := strings.TrimSpace(a.ProductCode)
	if code == "" {
		return invalidArgs("product_code is required"), nil
	}
	name := strings.TrimSpace(a.ProductName)

	return toolResult{
		payload: selectResult{Success: true, ProductCode: code, ProductName: name},
		ok:      true,
		outcome: order.ProductSelection{Code: code, Name: name},
	}, nil
}

func (s *service) storeShade(_ context.Context, _ order.Slots, raw json.RawMessage) (toolResult, error) {
	var a shadeArgs
	if err := decodeArgs(raw, &a); err != nil {
		return invalidArgs("cannot parse arguments: %v", err), nil
	}

	res := order.StoreShade(a.Shade)
	return toolResult{payload: res, ok: res.Success, outcome: order.ShadeOutcome{Result: res}}, nil
}

func (s *service) storePatientName(_ context.Context, _ order.Slots, raw json.RawMessage) (toolResult, error) {
	var a patientNameArgs
	if err := decodeArgs(raw, &a); err != nil {
		return invalidArgs("cannot parse arguments: %v", err), nil
	}

	res := order.StorePatientName(a.PatientName)
	return toolResult{payload: res, ok: res.Success, outcome: order.PatientNameOutcome{Result: res}}, nil
}
