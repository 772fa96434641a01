package intake

import (
	"fmt"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"

	"github.com/Vovarama1992/dental-order-bridge/internal/material"
	"github.com/Vovarama1992/dental-order-bridge/internal/tooth"
)

const (
	ToolValidateToothPositions = "validate_tooth_positions"
	ToolGetValidToothRanges    = "get_valid_tooth_ranges"
	ToolValidateBridge         = "validate_bridge"
	ToolValidateMaterial       = "validate_material"
	ToolSearchProducts         = "search_products"
	ToolSelectProduct          = "select_product"
	ToolStoreShade             = "store_shade"
	ToolStorePatientName       = "store_patient_name"
)

// searchLimit — сколько кандидатов показывать врачу за раз
const searchLimit = 3

type toothArgs struct {
	ToothPositions string `json:"tooth_positions"`
}

type materialArgs struct {
	RestorationType  string `json:"restoration_type"`
	MaterialCategory string `json:"material_category"`
	MaterialSubtype  string `json:"material_subtype"`
	BridgeSpan       *int   `json:"bridge_span"`
}

type searchArgs struct {
	RestorationType  string `json:"restoration_type"`
	MaterialCategory string `json:"material_category"`
	MaterialSubtype  string `json:"material_subtype"`
	PositionType     string `json:"position_type"`
}

type selectArgs struct {
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
}

type shadeArgs struct {
	Shade string `json:"shade"`
}

type patientNameArgs struct {
	PatientName string `json:"patient_name"`
}

func restorationEnum() []string {
	out := make([]string, 0, len(material.RestorationTypes))
	for _, t := range material.RestorationTypes {
		out = append(out, string(t))
	}
	return out
}

func categoryEnum() []string {
	out := make([]string, 0, len(material.Categories))
	for _, c := range material.Categories {
		out = append(out, string(c))
	}
	return out
}

func function(name, description string, params jsonschema.Definition) openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

func object(required []string, props map[string]jsonschema.Definition) jsonschema.Definition {
	if props == nil {
		props = map[string]jsonschema.Definition{}
	}
	return jsonschema.Definition{
		Type:       jsonschema.Object,
		Properties: props,
		Required:   required,
	}
}

var teethProp = jsonschema.Definition{
	Type:        jsonschema.String,
	Description: "FDI tooth numbers separated by commas, e.g. \"14,15,16\"",
}

// ToolDefinitions — инструменты, которые модель может вызывать
func ToolDefinitions() []openai.Tool {
	restoration := jsonschema.Definition{
		Type: jsonschema.String,
		Enum: restorationEnum(),
	}
	category := jsonschema.Definition{
		Type:        jsonschema.String,
		Enum:        categoryEnum(),
		Description: "Main material category",
	}
	subtype := jsonschema.Definition{
		Type:        jsonschema.String,
		Description: "Specific material as the dentist said it, e.g. \"IPS e.max\", \"全鋯\", \"NP\". Omit to list allowed subtypes.",
	}

	return []openai.Tool{
		function(ToolValidateToothPositions,
			"Validate FDI tooth numbers. Call this before anything else that uses tooth positions.",
			object([]string{"tooth_positions"}, map[string]jsonschema.Definition{
				"tooth_positions": teethProp,
			})),
		function(ToolGetValidToothRanges,
			"Return the valid FDI tooth ranges for each quadrant.",
			object(nil, nil)),
		function(ToolValidateBridge,
			fmt.Sprintf("Validate bridge positions: teeth must be adjacent and the bridge at most %d units long.", tooth.MaxBridgeSpan),
			object([]string{"tooth_positions"}, map[string]jsonschema.Definition{
				"tooth_positions": teethProp,
			})),
		function(ToolValidateMaterial,
			"Check that a material category and subtype are allowed for the restoration type. Without a subtype, returns the allowed subtypes.",
			object([]string{"restoration_type", "material_category"}, map[string]jsonschema.Definition{
				"restoration_type":  restoration,
				"material_category": category,
				"material_subtype":  subtype,
				"bridge_span": {
					Type:        jsonschema.Integer,
					Description: "Number of units for bridges",
				},
			})),
		function(ToolSearchProducts,
			fmt.Sprintf("Search the lab catalog. Returns at most %d products; if more than one, list them and let the dentist choose.", searchLimit),
			object([]string{"restoration_type", "material_category"}, map[string]jsonschema.Definition{
				"restoration_type":  restoration,
				"material_category": category,
				"material_subtype":  subtype,
				"position_type": {
					Type: jsonschema.String,
					Enum: []string{tooth.PositionAnterior, tooth.PositionPosterior},
				},
			})),
		function(ToolSelectProduct,
			"Record the product the dentist chose from the search results.",
			object([]string{"product_code"}, map[string]jsonschema.Definition{
				"product_code": {Type: jsonschema.String},
				"product_name": {Type: jsonschema.String},
			})),
		function(ToolStoreShade,
			"Store the VITA shade, e.g. A2.",
			object([]string{"shade"}, map[string]jsonschema.Definition{
				"shade": {Type: jsonschema.String},
			})),
		function(ToolStorePatientName,
			"Store the patient's name. Rejects shades, product codes, list numbers and material names.",
			object([]string{"patient_name"}, map[string]jsonschema.Definition{
				"patient_name": {Type: jsonschema.String},
			})),
	}
}
