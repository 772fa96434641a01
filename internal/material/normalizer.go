package material

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/Vovarama1992/dental-order-bridge/internal/metrics"
)

const DefaultClassifierTimeout = 5 * time.Second

const (
	stageCache       = "cache"
	stageAlias       = "alias"
	stageFuzzy       = "fuzzy"
	stageClassifier  = "classifier"
	stagePassthrough = "passthrough"
)

// stage возвращает канонический подтип и true, если распознал вход
type stage struct {
	name string
	run  func(ctx context.Context, input string, category Category) (string, bool)
}

// Normalizer сводит свободный ввод к каноническому подтипу:
// alias → fuzzy → (опционально) классификатор. Результат любого этапа,
// включая сырой fallback, кэшируется.
type Normalizer struct {
	cache      *Cache
	classifier Classifier
	timeout    time.Duration
	log        *zap.Logger
	inflight   singleflight.Group
}

type Option func(*Normalizer)

// WithClassifier подключает внешний классификатор с ограничением по времени
func WithClassifier(c Classifier, timeout time.Duration) Option {
	return func(n *Normalizer) {
		n.classifier = c
		if timeout > 0 {
			n.timeout = timeout
		}
	}
}

func NewNormalizer(cache *Cache, log *zap.Logger, opts ...Option) *Normalizer {
	n := &Normalizer{
		cache:   cache,
		timeout: DefaultClassifierTimeout,
		log:     log,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize никогда не возвращает ошибку: если ни один этап не сработал,
// отдаётся lower(input) без проверки по словарю.
func (n *Normalizer) Normalize(ctx context.Context, input string, category Category, allowFallback bool) string {
	if strings.TrimSpace(input) == "" {
		return ""
	}

	key := cacheKey(category, input)
	if v, ok := n.cache.Get(key); ok {
		metrics.NormalizeTotal.WithLabelValues(stageCache).Inc()
		return v
	}

	v, _, _ := n.inflight.Do(key, func() (any, error) {
		if v, ok := n.cache.Get(key); ok {
			metrics.NormalizeTotal.WithLabelValues(stageCache).Inc()
			return v, nil
		}

		result, stageName := n.resolve(ctx, input, category, allowFallback)
		n.cache.Put(key, result)

		metrics.NormalizeTotal.WithLabelValues(stageName).Inc()
		n.log.Debug("material normalized",
			zap.String("input", input),
			zap.String("category", string(category)),
			zap.String("stage", stageName),
			zap.String("result", result),
		)
		return result, nil
	})

	return v.(string)
}

func (n *Normalizer) resolve(ctx context.Context, input string, category Category, allowFallback bool) (string, string) {
	for _, s := range n.stages(allowFallback) {
		if result, ok := s.run(ctx, input, category); ok {
			return result, s.name
		}
	}
	return strings.ToLower(input), stagePassthrough
}

func (n *Normalizer) stages(allowFallback bool) []stage {
	out := []stage{
		{name: stageAlias, run: aliasStage},
		{name: stageFuzzy, run: fuzzyStage},
	}
	if allowFallback && n.classifier != nil {
		out = append(out, stage{name: stageClassifier, run: n.classifierStage})
	}
	return out
}

func (n *Normalizer) ClearCache() {
	n.cache.Clear()
	n.log.Info("normalization cache cleared")
}

func (n *Normalizer) CacheStats() CacheStats {
	return n.cache.Stats()
}

// aliasStage берёт алиас, только если он ведёт в словарь категории.
// Каноническое имя из другой категории проходит, если таблица совместимости
// знает его для этой категории (мост full-cast из titanium).
func aliasStage(_ context.Context, input string, category Category) (string, bool) {
	word := clean(input)
	result, ok := aliases[word]
	if !ok {
		return "", false
	}
	if InVocabulary(category, result) {
		return result, true
	}
	if word == clean(result) && inRuleTable(category, result) {
		return result, true
	}
	return "", false
}

func fuzzyStage(_ context.Context, input string, category Category) (string, bool) {
	vocab := Vocabulary[category]
	word := clean(input)
	if len(vocab) == 0 || word == "" {
		return "", false
	}

	cleaned := make([]string, len(vocab))
	original := make(map[string]string, len(vocab))
	for i, s := range vocab {
		cleaned[i] = clean(s)
		original[cleaned[i]] = s
	}

	if s, ok := original[word]; ok {
		return s, true
	}

	for i, c := range cleaned {
		if strings.Contains(c, word) || strings.Contains(word, c) {
			return vocab[i], true
		}
	}

	if best, ok := closestMatch(word, cleaned, SimilarityCutoff); ok {
		return original[best], true
	}
	return "", false
}

func (n *Normalizer) classifierStage(ctx context.Context, input string, category Category) (string, bool) {
	vocab := Vocabulary[category]
	if len(vocab) == 0 {
		return "", false
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	matched, err := n.classifier.Classify(ctx, input, category, Subtypes(category))
	elapsed := time.Since(start)

	if err != nil {
		metrics.ClassifierDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		n.log.Warn("material classifier failed, treating as no match",
			zap.String("input", input),
			zap.String("category", string(category)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", false
	}
	if matched == "" {
		metrics.ClassifierDuration.WithLabelValues("no_match").Observe(elapsed.Seconds())
		return "", false
	}

	metrics.ClassifierDuration.WithLabelValues("match").Observe(elapsed.Seconds())
	return matched, true
}
