package order

type Field string

const (
	FieldRestorationType  Field = "restoration_type"
	FieldToothPositions   Field = "tooth_positions"
	FieldBridgeSpan       Field = "bridge_span"
	FieldPositionType     Field = "position_type"
	FieldMaterialCategory Field = "material_category"
	FieldMaterialSubtype  Field = "material_subtype"
	FieldProductCode      Field = "product_code"
	FieldProductName      Field = "product_name"
	FieldShade            Field = "shade"
	FieldPatientName      Field = "patient_name"
)

// RequiredFields — без них заказ нельзя подтвердить. Порядок важен:
// в нём же отдаются недостающие поля.
var RequiredFields = []Field{
	FieldRestorationType,
	FieldToothPositions,
	FieldMaterialCategory,
	FieldMaterialSubtype,
	FieldPatientName,
}

// dependents — что очищается при смене поля.
// shade и patient_name не зависят ни от чего.
var dependents = map[Field][]Field{
	FieldRestorationType: {
		FieldMaterialCategory,
		FieldMaterialSubtype,
		FieldProductCode,
		FieldProductName,
		FieldBridgeSpan,
		FieldPositionType,
	},
	FieldMaterialCategory: {
		FieldMaterialSubtype,
		FieldProductCode,
		FieldProductName,
	},
	FieldMaterialSubtype: {
		FieldProductCode,
		FieldProductName,
	},
}

// Slots — частично заполненный заказ одной сессии.
// Пустая строка и ноль означают "не задано".
type Slots struct {
	RestorationType  string `json:"restoration_type,omitempty"`
	ToothPositions   string `json:"tooth_positions,omitempty"`
	BridgeSpan       int    `json:"bridge_span,omitempty"`
	PositionType     string `json:"position_type,omitempty"`
	MaterialCategory string `json:"material_category,omitempty"`
	MaterialSubtype  string `json:"material_subtype,omitempty"`
	ProductCode      string `json:"product_code,omitempty"`
	ProductName      string `json:"product_name,omitempty"`
	Shade            string `json:"shade,omitempty"`
	PatientName      string `json:"patient_name,omitempty"`
}

func (s *Slots) str(f Field) *string {
	switch f {
	case FieldRestorationType:
		return &s.RestorationType
	case FieldToothPositions:
		return &s.ToothPositions
	case FieldPositionType:
		return &s.PositionType
	case FieldMaterialCategory:
		return &s.MaterialCategory
	case FieldMaterialSubtype:
		return &s.MaterialSubtype
	case FieldProductCode:
		return &s.ProductCode
	case FieldProductName:
		return &s.ProductName
	case FieldShade:
		return &s.Shade
	case FieldPatientName:
		return &s.PatientName
	}
	return nil
}

func (s *Slots) IsSet(f Field) bool {
	if f == FieldBridgeSpan {
		return s.BridgeSpan != 0
	}
	if p := s.str(f); p != nil {
		return *p != ""
	}
	return false
}

func (s *Slots) clear(f Field) {
	if f == FieldBridgeSpan {
		s.BridgeSpan = 0
		return
	}
	if p := s.str(f); p != nil {
		*p = ""
	}
}

// ResetDependents очищает всё, что зависит от changed, и возвращает
// реально очищенные поля (те, что были заданы).
func (s *Slots) ResetDependents(changed Field) []Field {
	var cleared []Field
	for _, f := range dependents[changed] {
		if s.IsSet(f) {
			s.clear(f)
			cleared = append(cleared, f)
		}
	}
	return cleared
}

func (s *Slots) Snapshot() Slots {
	return *s
}

// IsComplete проверяет обязательные поля; missing — в порядке required
func (s *Slots) IsComplete(required []Field) (bool, []Field) {
	var missing []Field
	for _, f := range required {
		if !s.IsSet(f) {
			missing = append(missing, f)
		}
	}
	return len(missing) == 0, missing
}
