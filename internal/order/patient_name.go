package order

import (
	"regexp"
	"strings"

	"github.com/Vovarama1992/dental-order-bridge/internal/material"
)

type RejectType string

const (
	RejectEmptyName         RejectType = "empty_name"
	RejectShadeCode         RejectType = "shade_code"
	RejectProductCode       RejectType = "product_code"
	RejectSelectionResponse RejectType = "selection_response"
	RejectMaterialTerm      RejectType = "material_term"
	RejectInvalidShade      RejectType = "invalid_shade"
)

// DefaultShade подставляется в заказ, если оттенок не назвали
const DefaultShade = "A2"

var (
	shadePattern       = regexp.MustCompile(`^[A-Da-d][1-4](\.\d)?$`)
	productCodePattern = regexp.MustCompile(`^\d{4}([,，\s]+\d{4})*$`)
	selectionPattern   = regexp.MustCompile(`^\d{1,3}$`)
)

// NameResult — ответ store_patient_name. Отказ не фатален: модель
// должна переспросить, текст подсказки в Message.
type NameResult struct {
	Success     bool       `json:"success"`
	PatientName string     `json:"patient_name,omitempty"`
	ErrorType   RejectType `json:"error_type,omitempty"`
	Message     string     `json:"message"`
}

// StorePatientName отсекает то, что модель по ошибке приняла за имя:
// оттенки, коды продуктов, номер из списка, названия материалов.
func StorePatientName(raw string) NameResult {
	name := strings.TrimSpace(raw)

	switch {
	case name == "":
		return reject(RejectEmptyName, "Patient name is empty. Please ask for the patient's name.")
	case shadePattern.MatchString(name):
		return reject(RejectShadeCode,
			"\""+name+"\" looks like a shade code, not a patient name. Store it as the shade and ask for the patient's name.")
	case productCodePattern.MatchString(name):
		return reject(RejectProductCode,
			"\""+name+"\" looks like a product code, not a patient name. Record the product selection and ask for the patient's name.")
	case selectionPattern.MatchString(name):
		return reject(RejectSelectionResponse,
			"\""+name+"\" looks like a choice from a list, not a patient name. Resolve the selection and ask for the patient's name.")
	case material.IsMaterialTerm(name):
		return reject(RejectMaterialTerm,
			"\""+name+"\" is a material name or abbreviation, not a patient name. Please ask for the patient's name.")
	}

	return NameResult{
		Success:     true,
		PatientName: name,
		Message:     "Patient name stored: " + name,
	}
}

func reject(t RejectType, msg string) NameResult {
	return NameResult{ErrorType: t, Message: msg}
}

type ShadeResult struct {
	Success   bool       `json:"success"`
	Shade     string     `json:"shade,omitempty"`
	ErrorType RejectType `json:"error_type,omitempty"`
	Message   string     `json:"message"`
}

// StoreShade принимает оттенок по шкале VITA classical: A1..D4, допускается десятая
func StoreShade(raw string) ShadeResult {
	shade := strings.TrimSpace(raw)
	if !shadePattern.MatchString(shade) {
		return ShadeResult{
			ErrorType: RejectInvalidShade,
			Message:   "\"" + shade + "\" is not a valid shade. Use a code like A2, B1 or C3.5.",
		}
	}
	shade = strings.ToUpper(shade)
	return ShadeResult{Success: true, Shade: shade, Message: "Shade stored: " + shade}
}
