package tooth

import (
	"fmt"
	"slices"
	"strings"
)

// MaxBridgeSpan — мост длиннее четырёх единиц лаборатория не делает
const MaxBridgeSpan = 4

const (
	PositionAnterior  = "anterior"
	PositionPosterior = "posterior"
)

type BridgeResult struct {
	Valid        bool      `json:"valid"`
	Message      string    `json:"message"`
	ErrorType    ErrorType `json:"error_type,omitempty"`
	BridgeSpan   int       `json:"bridge_span,omitempty"`
	PositionType string    `json:"position_type,omitempty"`
	Positions    []int     `json:"positions,omitempty"`
}

// ValidateBridge проверяет непрерывность и длину моста.
// Номера зубов здесь не проверяются: вызывающий уже прогнал Validate.
func ValidateBridge(raw string) BridgeResult {
	if strings.TrimSpace(raw) == "" {
		return BridgeResult{
			Message:   "Please provide the tooth positions for the bridge, e.g. 14,15,16.",
			ErrorType: ErrMissingPositions,
		}
	}

	positions, bad, ok := parse(raw)
	if !ok {
		return BridgeResult{
			Message:   fmt.Sprintf("Invalid tooth position format: %q is not a number. Please use numbers such as 14,15,16.", bad),
			ErrorType: ErrInvalidFormat,
		}
	}
	if len(positions) == 0 {
		return BridgeResult{
			Message:   "Please provide valid tooth positions for the bridge, e.g. 14,15,16.",
			ErrorType: ErrMissingPositions,
		}
	}

	slices.Sort(positions)

	for i := 0; i < len(positions)-1; i++ {
		gap := positions[i+1] - positions[i]
		if gap == 0 {
			return BridgeResult{
				Message:   fmt.Sprintf("Tooth %d is listed more than once. Please list each bridge unit once.", positions[i]),
				ErrorType: ErrInvalidFormat,
				Positions: positions,
			}
		}
		if gap != 1 {
			return BridgeResult{
				Message: fmt.Sprintf("Tooth positions are not continuous: tooth %d is missing between %d and %d. Please include it or choose adjacent teeth.",
					positions[i]+1, positions[i], positions[i+1]),
				ErrorType: ErrDiscontinuous,
				Positions: positions,
			}
		}
	}

	if len(positions) > MaxBridgeSpan {
		return BridgeResult{
			Message:   fmt.Sprintf("A bridge supports at most %d units (you selected %d). Please split it or shorten the span.", MaxBridgeSpan, len(positions)),
			ErrorType: ErrTooLong,
			Positions: positions,
		}
	}

	return BridgeResult{
		Valid:        true,
		Message:      fmt.Sprintf("Bridge positions %v validated", positions),
		BridgeSpan:   len(positions),
		PositionType: positionType(positions),
		Positions:    positions,
	}
}

// positionType: anterior — любой зуб из 11..23, т.е. весь первый квадрант и 21-23
func positionType(positions []int) string {
	for _, p := range positions {
		if p >= 11 && p <= 23 {
			return PositionAnterior
		}
	}
	return PositionPosterior
}
