package material

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type fakeClassifier struct {
	reply string
	err   error
	delay time.Duration
	calls atomic.Int32
}

func (f *fakeClassifier) Classify(ctx context.Context, _ string, _ Category, _ []string) (string, error) {
	f.calls.Add(1)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func newTestNormalizer(opts ...Option) *Normalizer {
	return NewNormalizer(NewCache(), zap.NewNop(), opts...)
}

func TestNormalize_CanonicalRoundTrip(t *testing.T) {
	n := newTestNormalizer()
	for c, subtypes := range Vocabulary {
		for _, s := range subtypes {
			assert.Equal(t, s, n.Normalize(context.Background(), s, c, false), "%s/%s", c, s)
		}
	}
}

func TestNormalize_Aliases(t *testing.T) {
	n := newTestNormalizer()
	tests := []struct {
		in       string
		category Category
		want     string
	}{
		{"IPS e.max", MetalFree, "emax"},
		{"E.MAX", MetalFree, "emax"},
		{"Ｅｍａｘ", MetalFree, "emax"},
		{"伊馬克斯", MetalFree, "emax"},
		{"全鋯", MetalFree, "fmz"},
		{"FMZ Ultra", MetalFree, "fmz-ultra"},
		{"3M Lava", MetalFree, "lava"},
		{"lava esthetic", MetalFree, "lava-esthetic"},
		{"NP", PFM, "non-precious"},
		{"Ti", PFM, "titanium"},
		{"high noble", PFM, "high-noble"},
		{"高貴黃金", FullCast, "high-precious-gold"},
		{"white gold", FullCast, "white-gold"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Normalize(context.Background(), tt.in, tt.category, false), tt.in)
	}
}

func TestNormalize_AliasOutsideCategoryFallsThrough(t *testing.T) {
	n := newTestNormalizer()
	tests := []struct {
		in       string
		category Category
		want     string
	}{
		{"Ti", FullCast, "pure-titanium"},
		{"TI", FullCast, "pure-titanium"},
		{"titanium", FullCast, "titanium"},
		{"NP", MetalFree, "np"},
		{"Ti", PFM, "titanium"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Normalize(context.Background(), tt.in, tt.category, false), "%s/%s", tt.category, tt.in)
	}
}

func TestNormalize_Fuzzy(t *testing.T) {
	n := newTestNormalizer()
	tests := []struct {
		in       string
		category Category
		want     string
	}{
		{"calipso", MetalFree, "calypso"},
		{"zirconia fmz", MetalFree, "fmz"},
		{"ultra", MetalFree, "fmz-ultra"},
		{"palladum", PFM, "palladium"},
		{"semi precious gold alloy", FullCast, "semi-precious-gold"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, n.Normalize(context.Background(), tt.in, tt.category, false), tt.in)
	}
}

func TestNormalize_Passthrough(t *testing.T) {
	n := newTestNormalizer()
	assert.Equal(t, "xyzzy", n.Normalize(context.Background(), "Xyzzy", MetalFree, true))
	assert.Equal(t, 1, n.CacheStats().CacheSize)
}

func TestNormalize_EmptyNotCached(t *testing.T) {
	n := newTestNormalizer()
	assert.Equal(t, "", n.Normalize(context.Background(), "", PFM, true))
	assert.Equal(t, "", n.Normalize(context.Background(), "   ", PFM, true))
	assert.Equal(t, 0, n.CacheStats().CacheSize)
}

func TestNormalize_Idempotent(t *testing.T) {
	n := newTestNormalizer()
	for _, in := range []string{"IPS e.max", "calipso", "xyzzy"} {
		first := n.Normalize(context.Background(), in, MetalFree, false)
		assert.Equal(t, first, n.Normalize(context.Background(), in, MetalFree, false), in)
	}
}

func TestNormalize_ClassifierCalledOncePerKey(t *testing.T) {
	cls := &fakeClassifier{reply: "calypso"}
	n := newTestNormalizer(WithClassifier(cls, time.Second))

	assert.Equal(t, "calypso", n.Normalize(context.Background(), "qwerty", MetalFree, true))
	assert.Equal(t, "calypso", n.Normalize(context.Background(), "QWERTY", MetalFree, true))
	assert.Equal(t, int32(1), cls.calls.Load())

	stats := n.CacheStats()
	assert.Equal(t, []string{"metal-free:qwerty"}, stats.CachedItems)
}

func TestNormalize_ClassifierSkippedWithoutFallback(t *testing.T) {
	cls := &fakeClassifier{reply: "calypso"}
	n := newTestNormalizer(WithClassifier(cls, time.Second))

	assert.Equal(t, "qwerty", n.Normalize(context.Background(), "qwerty", MetalFree, false))
	assert.Equal(t, int32(0), cls.calls.Load())
}

func TestNormalize_ClassifierNotReachedOnTableHit(t *testing.T) {
	cls := &fakeClassifier{reply: "calypso"}
	n := newTestNormalizer(WithClassifier(cls, time.Second))

	assert.Equal(t, "emax", n.Normalize(context.Background(), "e.max", MetalFree, true))
	assert.Equal(t, int32(0), cls.calls.Load())
}

func TestNormalize_ClassifierErrorDegrades(t *testing.T) {
	cls := &fakeClassifier{err: errors.New("boom")}
	n := newTestNormalizer(WithClassifier(cls, time.Second))

	assert.Equal(t, "qwerty", n.Normalize(context.Background(), "Qwerty", MetalFree, true))
}

func TestNormalize_ClassifierNoMatch(t *testing.T) {
	cls := &fakeClassifier{reply: ""}
	n := newTestNormalizer(WithClassifier(cls, time.Second))

	assert.Equal(t, "qwerty", n.Normalize(context.Background(), "qwerty", MetalFree, true))
}

func TestNormalize_ClassifierTimeout(t *testing.T) {
	cls := &fakeClassifier{reply: "calypso", delay: time.Minute}
	n := newTestNormalizer(WithClassifier(cls, 20*time.Millisecond))

	start := time.Now()
	assert.Equal(t, "qwerty", n.Normalize(context.Background(), "qwerty", MetalFree, true))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestNormalize_ConcurrentMissesCollapse(t *testing.T) {
	cls := &fakeClassifier{reply: "calypso", delay: 50 * time.Millisecond}
	n := newTestNormalizer(WithClassifier(cls, time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, "calypso", n.Normalize(context.Background(), "qwerty", MetalFree, true))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), cls.calls.Load())
}

func TestNormalizer_ClearCache(t *testing.T) {
	cls := &fakeClassifier{reply: "calypso"}
	n := newTestNormalizer(WithClassifier(cls, time.Second))

	n.Normalize(context.Background(), "qwerty", MetalFree, true)
	n.ClearCache()
	assert.Equal(t, 0, n.CacheStats().CacheSize)

	n.Normalize(context.Background(), "qwerty", MetalFree, true)
	assert.Equal(t, int32(2), cls.calls.Load())
}
