package material

// Rule — допустимые подтипы для пары (тип реставрации, категория).
// Пустой Allowed означает, что категория запрещена целиком.
type Rule struct {
	Allowed   []string
	Forbidden []string
	Reason    string
}

// rules — таблица совместимости. Порядок категорий внутри типа задаётся
// Categories и используется для allowed_categories.
var rules = map[RestorationType]map[Category]Rule{
	Crown: {
		PFM: {
			Allowed: []string{"high-noble", "semi-precious", "non-precious", "palladium", "titanium"},
			Reason:  "PFM crowns can use any metal substructure",
		},
		MetalFree: {
			Allowed:   []string{"emax", "fmz", "fmz-ultra", "lava", "lava-plus", "lava-esthetic", "calypso", "composite"},
			Forbidden: []string{"zineer"},
			Reason:    "Metal-free crowns can use a range of all-ceramic materials",
		},
		FullCast: {
			Allowed: []string{"high-precious-gold", "semi-precious-gold", "low-precious-gold", "white-gold", "pure-titanium", "non-precious"},
			Reason:  "Full-cast crowns can use any casting alloy",
		},
	},
	Bridge: {
		PFM: {
			Allowed: []string{"titanium", "non-precious", "high-noble", "semi-precious"},
			Reason:  "PFM bridges need a strong metal substructure",
		},
		MetalFree: {
			Allowed:   []string{"emax", "fmz", "lava"},
			Forbidden: []string{"composite", "zineer"},
			Reason:    "Metal-free bridges require high-strength ceramics",
		},
		FullCast: {
			Allowed: []string{"high-precious-gold", "titanium"},
			Reason:  "Full-cast bridges are rare and need very high strength",
		},
	},
	Veneer: {
		PFM: {
			Reason: "Veneers must be all-ceramic for translucency",
		},
		MetalFree: {
			Allowed:   []string{"emax"},
			Forbidden: []string{"composite", "zineer", "fmz"},
			Reason:    "Veneers need a highly translucent ceramic",
		},
		FullCast: {
			Reason: "Veneers must be all-ceramic",
		},
	},
	Inlay: {
		PFM: {
			Reason: "PFM is not used for inlays",
		},
		MetalFree: {
			Allowed: []string{"emax", "composite"},
			Reason:  "Inlays are best made from ceramic or composite",
		},
		FullCast: {
			Allowed: []string{"high-precious-gold", "pure-titanium"},
			Reason:  "Inlays can be cast in metal",
		},
	},
	Onlay: {
		PFM: {
			Reason: "PFM is not used for onlays",
		},
		MetalFree: {
			Allowed: []string{"emax", "fmz"},
			Reason:  "Onlays are best made from ceramic",
		},
		FullCast: {
			Allowed: []string{"high-precious-gold", "pure-titanium"},
			Reason:  "Onlays can be cast in metal",
		},
	},
}

// LookupRule отдаёт копию правила, чтобы таблицу нельзя было поменять снаружи
func LookupRule(t RestorationType, c Category) (Rule, bool) {
	byCategory, ok := rules[t]
	if !ok {
		return Rule{}, false
	}
	r, ok := byCategory[c]
	if !ok {
		return Rule{}, false
	}
	return Rule{
		Allowed:   append([]string(nil), r.Allowed...),
		Forbidden: append([]string(nil), r.Forbidden...),
		Reason:    r.Reason,
	}, true
}

// allowedCategories — категории с непустым Allowed, в порядке Categories
func allowedCategories(t RestorationType) []Category {
	var out []Category
	for _, c := range Categories {
		if r, ok := rules[t][c]; ok && len(r.Allowed) > 0 {
			out = append(out, c)
		}
	}
	return out
}

// inRuleTable — встречается ли подтип в таблице для категории у какого-либо типа
func inRuleTable(c Category, subtype string) bool {
	for _, byCategory := range rules {
		r := byCategory[c]
		if contains(r.Allowed, subtype) || contains(r.Forbidden, subtype) {
			return true
		}
	}
	return false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
