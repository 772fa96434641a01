package material

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

type RestorationType string

const (
	Crown  RestorationType = "crown"
	Bridge RestorationType = "bridge"
	Veneer RestorationType = "veneer"
	Inlay  RestorationType = "inlay"
	Onlay  RestorationType = "onlay"
)

var RestorationTypes = []RestorationType{Crown, Bridge, Veneer, Inlay, Onlay}

type Category string

const (
	PFM       Category = "pfm"
	MetalFree Category = "metal-free"
	FullCast  Category = "full-cast"
)

var Categories = []Category{PFM, MetalFree, FullCast}

// Vocabulary — канонические подтипы по категориям; единственный источник
// правды и для нормализатора, и для таблицы совместимости.
var Vocabulary = map[Category][]string{
	PFM: {
		"high-noble",
		"semi-precious",
		"non-precious",
		"palladium",
		"titanium",
	},
	MetalFree: {
		"emax",
		"fmz",
		"fmz-ultra",
		"lava",
		"lava-plus",
		"lava-esthetic",
		"calypso",
		"composite",
		"zineer",
	},
	FullCast: {
		"high-precious-gold",
		"semi-precious-gold",
		"low-precious-gold",
		"white-gold",
		"pure-titanium",
		"non-precious",
	},
}

var restorationSynonyms = map[string]RestorationType{
	"crown":  Crown,
	"bridge": Bridge,
	"veneer": Veneer,
	"inlay":  Inlay,
	"onlay":  Onlay,
	"牙冠":     Crown,
	"牙橋":     Bridge,
	"牙桥":     Bridge,
	"貼片":     Veneer,
	"贴片":     Veneer,
	"嵌體":     Inlay,
	"嵌体":     Inlay,
	"高嵌體":    Onlay,
	"高嵌体":    Onlay,
}

var categorySynonyms = map[string]Category{
	"pfm":                      PFM,
	"porcelain-fused-to-metal": PFM,
	"porcelain":                PFM,
	"烤瓷":                       PFM,

	"metal-free":  MetalFree,
	"metalfree":   MetalFree,
	"all-ceramic": MetalFree,
	"ceramic":     MetalFree,
	"全瓷":          MetalFree,

	"full-cast":  FullCast,
	"fullcast":   FullCast,
	"full-metal": FullCast,
	"全金屬":        FullCast,
	"全金属":        FullCast,
	"全金":         FullCast,
}

// aliases: ключ — очищенная форма (без пробелов, точек, дефисов, в нижнем регистре).
// Канонические формы добавляются в init.
var aliases = map[string]string{
	// emax
	"emx":     "emax",
	"ips":     "emax",
	"ipsemax": "emax",
	"伊馬克斯":    "emax",
	"伊马克斯":    "emax",

	// pfm
	"np":   "non-precious",
	"pd":   "palladium",
	"ti":   "titanium",
	"高貴金屬": "high-noble",
	"半貴金屬": "semi-precious",
	"非貴金屬": "non-precious",
	"鈀基":   "palladium",
	"鈦合金":  "titanium",
	"鈦":    "titanium",

	// metal-free
	"cpst":   "composite",
	"comp":   "composite",
	"全鋯":     "fmz",
	"高透多層鋯":  "fmz-ultra",
	"3mlava": "lava",
	"卡呂普索":   "calypso",
	"複合樹脂":   "composite",

	// full-cast
	"高貴黃金": "high-precious-gold",
	"半貴黃金": "semi-precious-gold",
	"低貴黃金": "low-precious-gold",
	"白金":   "white-gold",
	"純鈦":   "pure-titanium",
}

// abbreviations — короткие обозначения, которые врачи пишут в чат вместо материала
var abbreviations = []string{"np", "hp", "sp", "ti", "zr", "pd", "pfm", "gold", "zirconia", "palladiumbased"}

func init() {
	for _, subtypes := range Vocabulary {
		for _, s := range subtypes {
			aliases[clean(s)] = s
		}
	}
}

var separatorRun = regexp.MustCompile(`[\s_]+`)

var cleaner = strings.NewReplacer(" ", "", ".", "", "-", "", "\t", "")

// fold приводит полноширинные символы к обычным и делает case folding.
// Caser хранит состояние, поэтому создаётся на каждый вызов.
func fold(s string) string {
	return cases.Fold().String(width.Fold.String(strings.TrimSpace(s)))
}

// clean — форма для сравнения: без пробелов, точек и дефисов
func clean(s string) string {
	return cleaner.Replace(fold(s))
}

// ParseRestorationType принимает "Crown", " bridge ", "牙冠" и т.п.
func ParseRestorationType(raw string) (RestorationType, bool) {
	t, ok := restorationSynonyms[separatorRun.ReplaceAllString(fold(raw), "-")]
	return t, ok
}

// ParseCategory сводит синонимы категории к одной из трёх канонических
func ParseCategory(raw string) (Category, bool) {
	c, ok := categorySynonyms[separatorRun.ReplaceAllString(fold(raw), "-")]
	return c, ok
}

// Subtypes возвращает копию словаря категории
func Subtypes(c Category) []string {
	return append([]string(nil), Vocabulary[c]...)
}

// InVocabulary — есть ли подтип в словаре категории
func InVocabulary(c Category, subtype string) bool {
	for _, s := range Vocabulary[c] {
		if s == subtype {
			return true
		}
	}
	return false
}

// IsMaterialTerm — похожа ли строка на название или сокращение материала
func IsMaterialTerm(raw string) bool {
	c := clean(raw)
	if c == "" {
		return false
	}
	if _, ok := aliases[c]; ok {
		return true
	}
	if _, ok := ParseCategory(raw); ok {
		return true
	}
	for _, a := range abbreviations {
		if c == a {
			return true
		}
	}
	return false
}
