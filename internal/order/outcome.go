package order

import (
	"github.com/Vovarama1992/dental-order-bridge/internal/material"
	"github.com/Vovarama1992/dental-order-bridge/internal/tooth"
)

type TransitionKind string

const (
	FirstSet  TransitionKind = "first_set"
	Unchanged TransitionKind = "unchanged"
	Changed   TransitionKind = "changed"
)

// Transition — что сделал Apply со слотами
type Transition struct {
	Kind    TransitionKind `json:"kind"`
	Set     []Field        `json:"set,omitempty"`
	Cleared []Field        `json:"cleared,omitempty"`
}

// Outcome — результат одного инструмента. Реализации только в этом пакете.
type Outcome interface {
	apply(s *Slots, tr *tracker)
}

// Apply вливает результат в слоты. Неуспешные результаты ничего не меняют.
func (s *Slots) Apply(o Outcome) Transition {
	tr := &tracker{s: s}
	o.apply(s, tr)
	return tr.transition()
}

type tracker struct {
	s       *Slots
	set     []Field
	cleared []Field
	first   bool
	changed bool
}

func (tr *tracker) reset(f Field) {
	tr.cleared = append(tr.cleared, tr.s.ResetDependents(f)...)
}

func (tr *tracker) setString(f Field, v string) {
	p := tr.s.str(f)
	tr.note(f, *p != "", *p != v)
	*p = v
}

func (tr *tracker) setSpan(v int) {
	tr.note(FieldBridgeSpan, tr.s.BridgeSpan != 0, tr.s.BridgeSpan != v)
	tr.s.BridgeSpan = v
}

func (tr *tracker) note(f Field, had, differs bool) {
	tr.set = append(tr.set, f)
	switch {
	case !had:
		tr.first = true
	case differs:
		tr.changed = true
	}
}

func (tr *tracker) transition() Transition {
	kind := Unchanged
	switch {
	case tr.changed || len(tr.cleared) > 0:
		kind = Changed
	case tr.first:
		kind = FirstSet
	}
	return Transition{Kind: kind, Set: tr.set, Cleared: tr.cleared}
}

type ToothOutcome struct {
	Result tooth.SetResult
}

func (o ToothOutcome) apply(_ *Slots, tr *tracker) {
	if !o.Result.Valid {
		return
	}
	tr.setString(FieldToothPositions, o.Result.Positions())
}

type BridgeOutcome struct {
	Result tooth.BridgeResult
}

func (o BridgeOutcome) apply(s *Slots, tr *tracker) {
	if !o.Result.Valid {
		return
	}
	bridge := string(material.Bridge)
	if s.RestorationType != "" && s.RestorationType != bridge {
		tr.reset(FieldRestorationType)
	}
	tr.setString(FieldRestorationType, bridge)
	tr.setString(FieldToothPositions, tooth.Join(o.Result.Positions))
	tr.setSpan(o.Result.BridgeSpan)
	tr.setString(FieldPositionType, o.Result.PositionType)
}

type MaterialOutcome struct {
	Result material.CompatibilityResult
}

// сброс идёт от самого верхнего изменившегося поля; в query mode подтип
// не записывается и сам по себе сброса не вызывает
func (o MaterialOutcome) apply(s *Slots, tr *tracker) {
	r := o.Result
	if !r.Valid {
		return
	}
	rt, category := string(r.RestorationType), string(r.MaterialCategory)

	switch {
	case s.RestorationType != "" && s.RestorationType != rt:
		tr.reset(FieldRestorationType)
	case s.MaterialCategory != "" && s.MaterialCategory != category:
		tr.reset(FieldMaterialCategory)
	case !r.QueryMode && s.MaterialSubtype != "" && s.MaterialSubtype != r.MaterialSubtype:
		tr.reset(FieldMaterialSubtype)
	}

	tr.setString(FieldRestorationType, rt)
	tr.setString(FieldMaterialCategory, category)
	if !r.QueryMode {
		tr.setString(FieldMaterialSubtype, r.MaterialSubtype)
	}
}

type ProductOutcome struct {
	Query    ProductQuery
	Products []Product
}

// ProductOutcome только дозаполняет пустые поля. Запрос, расходящийся с уже
// записанными полями, слоты не трогает вовсе. Продукт выбирается
// автоматически лишь при единственном кандидате.
func (o ProductOutcome) apply(s *Slots, tr *tracker) {
	backfill := []struct {
		field Field
		value string
	}{
		{FieldRestorationType, o.Query.RestorationType},
		{FieldMaterialCategory, o.Query.MaterialCategory},
		{FieldMaterialSubtype, o.Query.MaterialSubtype},
	}

	for _, b := range backfill {
		if b.value != "" && s.IsSet(b.field) && *s.str(b.field) != b.value {
			return
		}
	}
	for _, b := range backfill {
		if b.value != "" && !s.IsSet(b.field) {
			tr.setString(b.field, b.value)
		}
	}

	if len(o.Products) == 1 && s.ProductCode == "" {
		p := o.Products[0]
		name := p.Name
		if name == "" {
			name = "N/A"
		}
		tr.setString(FieldProductCode, p.Code)
		tr.setString(FieldProductName, name)
	}
}

type ProductSelection struct {
	Code string
	Name string
}

func (o ProductSelection) apply(_ *Slots, tr *tracker) {
	if o.Code == "" {
		return
	}
	tr.setString(FieldProductCode, o.Code)
	tr.setString(FieldProductName, o.Name)
}

type ShadeOutcome struct {
	Result ShadeResult
}

func (o ShadeOutcome) apply(_ *Slots, tr *tracker) {
	if !o.Result.Success {
		return
	}
	tr.setString(FieldShade, o.Result.Shade)
}

type PatientNameOutcome struct {
	Result NameResult
}

func (o PatientNameOutcome) apply(_ *Slots, tr *tracker) {
	if !o.Result.Success || o.Result.PatientName == "" {
		return
	}
	tr.setString(FieldPatientName, o.Result.PatientName)
}
