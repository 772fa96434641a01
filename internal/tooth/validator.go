package tooth

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// FDI: первая цифра — квадрант (1-4), вторая — позиция (1-8)
const (
	MinQuadrant = 1
	MaxQuadrant = 4
	MinPosition = 1
	MaxPosition = 8
)

type ErrorType string

const (
	ErrMissingPositions ErrorType = "missing_positions"
	ErrInvalidFormat    ErrorType = "invalid_format"
	ErrInvalidTooth     ErrorType = "invalid_tooth"
	ErrDiscontinuous    ErrorType = "discontinuous"
	ErrTooLong          ErrorType = "too_long"
)

var separators = regexp.MustCompile(`[,，、\s]+`)

var quadrantNames = map[int]string{
	1: "Upper Right",
	2: "Upper Left",
	3: "Lower Left",
	4: "Lower Right",
}

var toothTypes = map[int]string{
	1: "Central Incisor",
	2: "Lateral Incisor",
	3: "Canine",
	4: "First Premolar",
	5: "Second Premolar",
	6: "First Molar",
	7: "Second Molar",
	8: "Third Molar",
}

// Position — один зуб в нотации FDI
type Position int

func (p Position) Quadrant() int { return int(p) / 10 }
func (p Position) Number() int   { return int(p) % 10 }

func (p Position) Valid() bool {
	q, n := p.Quadrant(), p.Number()
	return q >= MinQuadrant && q <= MaxQuadrant && n >= MinPosition && n <= MaxPosition
}

// reason объясняет, почему номер не существует; "" для валидного зуба
func (p Position) reason() string {
	n := int(p)
	if p.Valid() {
		return ""
	}
	switch {
	case n < 11:
		return fmt.Sprintf("Invalid tooth number %d. Tooth numbers must be between 11-18, 21-28, 31-38, or 41-48.", n)
	case n > 48:
		return fmt.Sprintf("Invalid tooth number %d. Maximum tooth number is 48.", n)
	case p.Quadrant() < MinQuadrant || p.Quadrant() > MaxQuadrant:
		return fmt.Sprintf("Invalid quadrant %d. Valid quadrants are 1 (UR), 2 (UL), 3 (LL), 4 (LR).", p.Quadrant())
	default:
		return fmt.Sprintf("Invalid position %d in quadrant %d. Valid positions are 1-8.", p.Number(), p.Quadrant())
	}
}

type InvalidTooth struct {
	Tooth  int    `json:"tooth"`
	Reason string `json:"reason"`
}

type SetResult struct {
	Valid             bool           `json:"valid"`
	Teeth             []int          `json:"teeth"`
	ValidTeeth        []int          `json:"valid_teeth"`
	InvalidTeeth      []InvalidTooth `json:"invalid_teeth"`
	Count             int            `json:"count"`
	QuadrantsInvolved []int          `json:"quadrants_involved"`
	IsContinuous      bool           `json:"is_continuous"`
	ErrorType         ErrorType      `json:"error_type,omitempty"`
	Error             string         `json:"error,omitempty"`
}

// Positions возвращает валидные зубы строкой "14,15,16" для записи в заказ
func (r SetResult) Positions() string {
	return Join(r.ValidTeeth)
}

// Join склеивает номера зубов через запятую без пробелов
func Join(teeth []int) string {
	parts := make([]string, 0, len(teeth))
	for _, t := range teeth {
		parts = append(parts, strconv.Itoa(t))
	}
	return strings.Join(parts, ",")
}

// Validate проверяет список зубов через запятую или пробел.
// Один нечисловой токен проваливает весь вызов.
func Validate(raw string) SetResult {
	res := SetResult{
		Teeth:             []int{},
		ValidTeeth:        []int{},
		InvalidTeeth:      []InvalidTooth{},
		QuadrantsInvolved: []int{},
	}

	teeth, bad, ok := parse(raw)
	if !ok {
		res.ErrorType = ErrInvalidFormat
		res.Error = fmt.Sprintf("Invalid input format: %q is not a tooth number. Please use numbers separated by commas or spaces, e.g. 14,15,16.", bad)
		return res
	}
	if len(teeth) == 0 {
		res.ErrorType = ErrMissingPositions
		res.Error = "No tooth positions provided. Please give FDI numbers such as 11 or 14,15,16."
		return res
	}

	seen := make(map[int]bool, len(teeth))
	for _, t := range teeth {
		if seen[t] {
			res.ErrorType = ErrInvalidFormat
			res.Error = fmt.Sprintf("Tooth %d is listed more than once. Please list each tooth once.", t)
			return res
		}
		seen[t] = true
	}

	res.Teeth = teeth
	res.Count = len(teeth)

	quadrants := map[int]bool{}
	for _, t := range teeth {
		p := Position(t)
		if !p.Valid() {
			res.InvalidTeeth = append(res.InvalidTeeth, InvalidTooth{Tooth: t, Reason: p.reason()})
			continue
		}
		res.ValidTeeth = append(res.ValidTeeth, t)
		if !quadrants[p.Quadrant()] {
			quadrants[p.Quadrant()] = true
			res.QuadrantsInvolved = append(res.QuadrantsInvolved, p.Quadrant())
		}
	}
	slices.Sort(res.QuadrantsInvolved)
	res.IsContinuous = isContinuous(res.ValidTeeth)
	res.Valid = len(res.InvalidTeeth) == 0

	if !res.Valid {
		details := make([]string, 0, len(res.InvalidTeeth))
		for _, it := range res.InvalidTeeth {
			details = append(details, fmt.Sprintf("Tooth %d: %s", it.Tooth, it.Reason))
		}
		res.ErrorType = ErrInvalidTooth
		res.Error = fmt.Sprintf("Found %d invalid tooth position(s). %s", len(res.InvalidTeeth), strings.Join(details, "; "))
	}

	return res
}

// parse режет строку на токены; при ошибке возвращает первый плохой токен
func parse(raw string) ([]int, string, bool) {
	tokens := separators.Split(strings.TrimSpace(raw), -1)
	out := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, tok, false
		}
		out = append(out, n)
	}
	return out, "", true
}

func isContinuous(teeth []int) bool {
	if len(teeth) <= 1 {
		return true
	}

	sorted := slices.Clone(teeth)
	slices.Sort(sorted)

	first := Position(sorted[0]).Quadrant()
	for _, t := range sorted[1:] {
		if Position(t).Quadrant() != first {
			// через среднюю линию допустимы только центральные резцы
			return len(sorted) == 2 &&
				((sorted[0] == 11 && sorted[1] == 21) || (sorted[0] == 31 && sorted[1] == 41))
		}
	}

	for i := 0; i < len(sorted)-1; i++ {
		if sorted[i+1]-sorted[i] != 1 {
			return false
		}
	}
	return true
}

type Description struct {
	Tooth        int    `json:"tooth"`
	Quadrant     int    `json:"quadrant"`
	QuadrantName string `json:"quadrant_name"`
	Position     int    `json:"position"`
	ToothType    string `json:"tooth_type"`
}

// Describe — человекочитаемое описание валидного зуба
func Describe(n int) (Description, error) {
	p := Position(n)
	if !p.Valid() {
		return Description{}, fmt.Errorf("tooth %d: %s", n, p.reason())
	}
	return Description{
		Tooth:        n,
		Quadrant:     p.Quadrant(),
		QuadrantName: quadrantNames[p.Quadrant()],
		Position:     p.Number(),
		ToothType:    toothTypes[p.Number()],
	}, nil
}

type Neighbours struct {
	Tooth    int   `json:"tooth"`
	Mesial   *int  `json:"mesial"`
	Distal   *int  `json:"distal"`
	Adjacent []int `json:"adjacent"`
}

// Adjacent возвращает соседей зуба: мезиальный (к средней линии) и дистальный
func Adjacent(n int) (Neighbours, error) {
	p := Position(n)
	if !p.Valid() {
		return Neighbours{}, fmt.Errorf("tooth %d: %s", n, p.reason())
	}

	var mesial, distal *int
	toward, away := n-1, n+1
	if p.Quadrant() == 2 || p.Quadrant() == 3 {
		toward, away = n+1, n-1
	}
	if p.Quadrant() == 1 || p.Quadrant() == 4 {
		if p.Number() > MinPosition {
			mesial = &toward
		}
		if p.Number() < MaxPosition {
			distal = &away
		}
	} else {
		if p.Number() < MaxPosition {
			mesial = &toward
		}
		if p.Number() > MinPosition {
			distal = &away
		}
	}

	midline := map[int]int{11: 21, 21: 11, 31: 41, 41: 31}
	if other, ok := midline[n]; ok {
		mesial = &other
	}

	out := Neighbours{Tooth: n, Mesial: mesial, Distal: distal, Adjacent: []int{}}
	for _, t := range []*int{mesial, distal} {
		if t != nil {
			out.Adjacent = append(out.Adjacent, *t)
		}
	}
	return out, nil
}

type QuadrantRange struct {
	Name  string `json:"name"`
	Range string `json:"range"`
	Teeth []int  `json:"teeth"`
}

type RangeReference struct {
	System     string                   `json:"system"`
	TotalTeeth int                      `json:"total_teeth"`
	Quadrants  map[string]QuadrantRange `json:"quadrants"`
	Examples   map[string]string        `json:"examples"`
}

// Ranges — справка по допустимым номерам для ассистента
func Ranges() RangeReference {
	ref := RangeReference{
		System:    "FDI Two-Digit Notation",
		Quadrants: map[string]QuadrantRange{},
		Examples: map[string]string{
			"single_crown":    "11 (upper right central incisor)",
			"bridge":          "14,15,16 (upper right premolars and first molar)",
			"multiple_crowns": "11,21 (upper central incisors)",
		},
	}
	for q := MinQuadrant; q <= MaxQuadrant; q++ {
		teeth := make([]int, 0, MaxPosition)
		for n := MinPosition; n <= MaxPosition; n++ {
			teeth = append(teeth, q*10+n)
		}
		ref.Quadrants[strconv.Itoa(q)] = QuadrantRange{
			Name:  quadrantNames[q],
			Range: fmt.Sprintf("%d-%d", teeth[0], teeth[len(teeth)-1]),
			Teeth: teeth,
		}
		ref.TotalTeeth += len(teeth)
	}
	return ref
}
