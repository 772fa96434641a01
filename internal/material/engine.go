package material

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type ErrorType string

const (
	ErrTypeMissingParameter           ErrorType = "missing_parameter"
	ErrTypeUnsupportedRestorationType ErrorType = "unsupported_restoration_type"
	ErrTypeUnsupportedCategory        ErrorType = "unsupported_category"
	ErrTypeForbiddenCategory          ErrorType = "forbidden_category"
	ErrTypeForbiddenSubtype           ErrorType = "forbidden_subtype"
	ErrTypeIncompatibleSubtype        ErrorType = "incompatible_subtype"
)

var (
	ErrMissingParameter           = errors.New("material: missing parameter")
	ErrUnsupportedRestorationType = errors.New("material: unsupported restoration type")
	ErrUnsupportedCategory        = errors.New("material: unsupported category")
	ErrForbiddenCategory          = errors.New("material: forbidden category")
	ErrForbiddenSubtype           = errors.New("material: forbidden subtype")
	ErrIncompatibleSubtype        = errors.New("material: incompatible subtype")
)

var sentinels = map[ErrorType]error{
	ErrTypeMissingParameter:           ErrMissingParameter,
	ErrTypeUnsupportedRestorationType: ErrUnsupportedRestorationType,
	ErrTypeUnsupportedCategory:        ErrUnsupportedCategory,
	ErrTypeForbiddenCategory:          ErrForbiddenCategory,
	ErrTypeForbiddenSubtype:           ErrForbiddenSubtype,
	ErrTypeIncompatibleSubtype:        ErrIncompatibleSubtype,
}

// подтипы, достаточно прочные для длинных безметалловых мостов
var longSpanSubtypes = []string{"fmz", "lava"}

const longSpanThreshold = 3

type CompatibilityRequest struct {
	RestorationType  string `json:"restoration_type"`
	MaterialCategory string `json:"material_category"`
	MaterialSubtype  string `json:"material_subtype,omitempty"`
	BridgeSpan       int    `json:"bridge_span,omitempty"`
}

type CompatibilityResult struct {
	Valid             bool            `json:"valid"`
	QueryMode         bool            `json:"query_mode,omitempty"`
	ErrorType         ErrorType       `json:"error_type,omitempty"`
	Message           string          `json:"message"`
	Reason            string          `json:"reason,omitempty"`
	RestorationType   RestorationType `json:"restoration_type,omitempty"`
	MaterialCategory  Category        `json:"material_category,omitempty"`
	MaterialSubtype   string          `json:"material_subtype,omitempty"`
	AllowedSubtypes   []string        `json:"allowed_subtypes,omitempty"`
	AllowedCategories []Category      `json:"allowed_categories,omitempty"`
	Supported         []string        `json:"supported,omitempty"`
	Warnings          []string        `json:"warnings,omitempty"`
}

// Err возвращает nil для успешного результата, иначе ошибку,
// оборачивающую один из экспортированных sentinel-ов.
func (r CompatibilityResult) Err() error {
	if r.Valid {
		return nil
	}
	if s, ok := sentinels[r.ErrorType]; ok {
		return fmt.Errorf("%w: %s", s, r.Message)
	}
	return errors.New(r.Message)
}

// SubtypeNormalizer — то, что Engine требует от нормализатора
type SubtypeNormalizer interface {
	Normalize(ctx context.Context, input string, category Category, allowFallback bool) string
}

type Engine struct {
	normalizer SubtypeNormalizer
}

func NewEngine(n SubtypeNormalizer) *Engine {
	return &Engine{normalizer: n}
}

// Check работает в двух режимах: без подтипа отдаёт список допустимых
// (query mode), с подтипом проверяет его по таблице.
func (e *Engine) Check(ctx context.Context, req CompatibilityRequest) CompatibilityResult {
	if strings.TrimSpace(req.RestorationType) == "" {
		return fail(ErrTypeMissingParameter, "Missing restoration type parameter")
	}
	if strings.TrimSpace(req.MaterialCategory) == "" {
		return fail(ErrTypeMissingParameter, "Missing material category parameter")
	}

	rt, ok := ParseRestorationType(req.RestorationType)
	if !ok {
		res := fail(ErrTypeUnsupportedRestorationType,
			fmt.Sprintf("Unsupported restoration type: %s", req.RestorationType))
		for _, t := range RestorationTypes {
			res.Supported = append(res.Supported, string(t))
		}
		return res
	}

	category, ok := ParseCategory(req.MaterialCategory)
	if !ok {
		res := fail(ErrTypeUnsupportedCategory,
			fmt.Sprintf("%s does not support material category %s", rt, req.MaterialCategory))
		res.RestorationType = rt
		for _, c := range Categories {
			res.Supported = append(res.Supported, string(c))
		}
		return res
	}

	rule, ok := LookupRule(rt, category)
	if !ok {
		return fail(ErrTypeUnsupportedCategory,
			fmt.Sprintf("%s does not support material category %s", rt, category))
	}

	if len(rule.Allowed) == 0 {
		res := fail(ErrTypeForbiddenCategory,
			fmt.Sprintf("%s cannot be made from %s. %s", rt, category, rule.Reason))
		res.RestorationType = rt
		res.MaterialCategory = category
		res.Reason = rule.Reason
		res.AllowedCategories = allowedCategories(rt)
		return res
	}

	subtype := ""
	if strings.TrimSpace(req.MaterialSubtype) != "" {
		subtype = e.normalizer.Normalize(ctx, req.MaterialSubtype, category, true)
	}

	if subtype == "" {
		return CompatibilityResult{
			Valid:            true,
			QueryMode:        true,
			Message:          fmt.Sprintf("%s in %s: choose one of the allowed subtypes", rt, category),
			Reason:           rule.Reason,
			RestorationType:  rt,
			MaterialCategory: category,
			AllowedSubtypes:  rule.Allowed,
		}
	}

	if contains(rule.Forbidden, subtype) {
		res := fail(ErrTypeForbiddenSubtype,
			fmt.Sprintf("%s cannot be made from %s. Please choose another material.", rt, subtype))
		res.RestorationType = rt
		res.MaterialCategory = category
		res.MaterialSubtype = subtype
		res.AllowedSubtypes = rule.Allowed
		return res
	}

	if !contains(rule.Allowed, subtype) {
		res := fail(ErrTypeIncompatibleSubtype,
			fmt.Sprintf("%s + %s does not support %s", rt, category, subtype))
		res.RestorationType = rt
		res.MaterialCategory = category
		res.MaterialSubtype = subtype
		res.AllowedSubtypes = rule.Allowed
		return res
	}

	var warnings []string
	if rt == Bridge && req.BridgeSpan > longSpanThreshold &&
		category == MetalFree && !contains(longSpanSubtypes, subtype) {
		warnings = append(warnings, fmt.Sprintf(
			"A %d-unit bridge in %s may lack strength; FMZ or Lava is recommended", req.BridgeSpan, subtype))
	}

	return CompatibilityResult{
		Valid:            true,
		Message:          fmt.Sprintf("%s in %s (%s) is compatible", rt, category, subtype),
		Reason:           rule.Reason,
		RestorationType:  rt,
		MaterialCategory: category,
		MaterialSubtype:  subtype,
		AllowedSubtypes:  rule.Allowed,
		Warnings:         warnings,
	}
}

func fail(t ErrorType, msg string) CompatibilityResult {
	return CompatibilityResult{ErrorType: t, Message: msg}
}
