package intake

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Vovarama1992/dental-order-bridge/internal/material"
	"github.com/Vovarama1992/dental-order-bridge/internal/order"
	"github.com/Vovarama1992/dental-order-bridge/internal/tooth"
)

type fakeCatalog struct {
	products []order.Product
	err      error
	queries  []order.ProductQuery
}

func (f *fakeCatalog) SearchProducts(_ context.Context, q order.ProductQuery) ([]order.Product, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.products) > q.Limit {
		return f.products[:q.Limit], nil
	}
	return f.products, nil
}

type fakeRepo struct {
	mu      sync.Mutex
	created []*order.Order
	err     error
}

func (f *fakeRepo) CreateOrder(_ context.Context, o *order.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	o.ID = int64(len(f.created) + 1)
	f.created = append(f.created, o)
	return nil
}

func (f *fakeRepo) GetOrder(_ context.Context, number string) (*order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.created {
		if o.OrderNumber == number {
			return o, nil
		}
	}
	return nil, order.ErrOrderNotFound
}

func (f *fakeRepo) ListRecent(_ context.Context, limit int) ([]order.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []order.Order
	for i := len(f.created) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *f.created[i])
	}
	return out, nil
}

type fixture struct {
	svc     *service
	catalog *fakeCatalog
	repo    *fakeRepo
}

func newFixture() fixture {
	normalizer := material.NewNormalizer(material.NewCache(), zap.NewNop())
	catalog := &fakeCatalog{}
	repo := &fakeRepo{}
	svc := NewService(material.NewEngine(normalizer), normalizer, catalog, repo, zap.NewNop()).(*service)
	svc.now = func() time.Time { return time.Date(2026, 1, 3, 14, 30, 22, 0, time.UTC) }
	return fixture{svc: svc, catalog: catalog, repo: repo}
}

func (f fixture) exec(t *testing.T, session, tool, args string) ToolResponse {
	t.Helper()
	resp, err := f.svc.Execute(context.Background(), session, tool, json.RawMessage(args))
	require.NoError(t, err)
	return resp
}

func TestTools_AllDispatched(t *testing.T) {
	f := newFixture()
	defs := f.svc.Tools()
	require.Len(t, defs, len(f.svc.tools))
	for _, d := range defs {
		_, ok := f.svc.tools[d.Function.Name]
		assert.True(t, ok, d.Function.Name)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Execute(context.Background(), "s1", "delete_everything", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, err = f.svc.Execute(context.Background(), "", ToolStoreShade, nil)
	assert.ErrorIs(t, err, ErrEmptySessionID)
}

func TestExecute_InvalidArguments(t *testing.T) {
	f := newFixture()
	resp := f.exec(t, "s1", ToolValidateToothPositions, `{"tooth_positions": 11`)

	argErr, ok := resp.Result.(ArgumentError)
	require.True(t, ok)
	assert.Equal(t, resultInvalidArguments, argErr.ErrorType)
	assert.Equal(t, order.Unchanged, resp.Transition.Kind)
}

func TestExecute_ToothPositions(t *testing.T) {
	f := newFixture()

	resp := f.exec(t, "s1", ToolValidateToothPositions, `{"tooth_positions": "11, 21"}`)
	res := resp.Result.(tooth.SetResult)
	assert.True(t, res.Valid)
	assert.True(t, res.IsContinuous)
	assert.Equal(t, "11,21", resp.Slots.ToothPositions)
	assert.Equal(t, order.FirstSet, resp.Transition.Kind)

	resp = f.exec(t, "s1", ToolValidateToothPositions, `{"tooth_positions": "11, 9"}`)
	assert.False(t, resp.Result.(tooth.SetResult).Valid)
	assert.Equal(t, "11,21", resp.Slots.ToothPositions)
}

func TestExecute_DuplicateTeethNotStored(t *testing.T) {
	f := newFixture()

	resp := f.exec(t, "s1", ToolValidateToothPositions, `{"tooth_positions": "11,11"}`)
	assert.Equal(t, tooth.ErrInvalidFormat, resp.Result.(tooth.SetResult).ErrorType)
	assert.Empty(t, resp.Slots.ToothPositions)
	assert.Equal(t, order.Unchanged, resp.Transition.Kind)
}

func TestExecute_Ranges(t *testing.T) {
	f := newFixture()
	resp := f.exec(t, "s1", ToolGetValidToothRanges, ``)
	assert.Equal(t, 32, resp.Result.(tooth.RangeReference).TotalTeeth)
}

func TestExecute_BridgeRunsToothValidationFirst(t *testing.T) {
	f := newFixture()

	resp := f.exec(t, "s1", ToolValidateBridge, `{"tooth_positions": "14,15,19"}`)
	res := resp.Result.(bridgePayload)
	assert.False(t, res.Valid)
	assert.Equal(t, tooth.ErrInvalidTooth, res.ErrorType)
	require.Len(t, res.InvalidTeeth, 1)
	assert.Equal(t, 19, res.InvalidTeeth[0].Tooth)

	resp = f.exec(t, "s1", ToolValidateBridge, `{"tooth_positions": "14,16"}`)
	assert.Equal(t, tooth.ErrDiscontinuous, resp.Result.(bridgePayload).ErrorType)
	assert.Empty(t, resp.Slots.RestorationType)
}

func TestExecute_CrownToBridgeResetsMaterial(t *testing.T) {
	f := newFixture()

	f.exec(t, "s1", ToolValidateToothPositions, `{"tooth_positions": "14"}`)
	resp := f.exec(t, "s1", ToolValidateMaterial,
		`{"restoration_type": "crown", "material_category": "metal-free", "material_subtype": "IPS e.max"}`)
	require.True(t, resp.Result.(material.CompatibilityResult).Valid)
	assert.Equal(t, "emax", resp.Slots.MaterialSubtype)

	f.exec(t, "s1", ToolStorePatientName, `{"patient_name": "陳大明"}`)

	resp = f.exec(t, "s1", ToolValidateBridge, `{"tooth_positions": "14,15,16"}`)
	assert.Equal(t, order.Changed, resp.Transition.Kind)
	assert.Equal(t, []order.Field{order.FieldMaterialCategory, order.FieldMaterialSubtype}, resp.Transition.Cleared)
	assert.Equal(t, order.Slots{
		RestorationType: "bridge",
		ToothPositions:  "14,15,16",
		BridgeSpan:      3,
		PositionType:    "posterior",
		PatientName:     "陳大明",
	}, resp.Slots)
}

func TestExecute_MaterialUsesRecordedBridgeSpan(t *testing.T) {
	f := newFixture()

	f.exec(t, "s1", ToolValidateBridge, `{"tooth_positions": "34,35,36,37"}`)
	resp := f.exec(t, "s1", ToolValidateMaterial,
		`{"restoration_type": "bridge", "material_category": "metal-free", "material_subtype": "emax"}`)
	res := resp.Result.(material.CompatibilityResult)
	assert.True(t, res.Valid)
	assert.Len(t, res.Warnings, 1)

	resp = f.exec(t, "s1", ToolValidateMaterial,
		`{"restoration_type": "bridge", "material_category": "metal-free", "material_subtype": "emax", "bridge_span": 2}`)
	assert.Empty(t, resp.Result.(material.CompatibilityResult).Warnings)
}

func TestExecute_MaterialRejected(t *testing.T) {
	f := newFixture()
	resp := f.exec(t, "s1", ToolValidateMaterial,
		`{"restoration_type": "veneer", "material_category": "pfm"}`)

	res := resp.Result.(material.CompatibilityResult)
	assert.Equal(t, material.ErrTypeForbiddenCategory, res.ErrorType)
	assert.Equal(t, order.Slots{}, resp.Slots)
}

func TestExecute_SearchMultipleCandidatesNeverCollapse(t *testing.T) {
	f := newFixture()
	f.catalog.products = []order.Product{
		{Code: "3630", Name: "IPS e.max Crown"},
		{Code: "3631", Name: "IPS e.max Press Crown"},
		{Code: "3632", Name: "IPS e.max CAD Crown"},
		{Code: "3633", Name: "IPS e.max Veneer"},
	}

	resp := f.exec(t, "s1", ToolSearchProducts,
		`{"restoration_type": "Crown", "material_category": "全瓷", "material_subtype": "e.max", "position_type": "Anterior"}`)

	res := resp.Result.(searchResult)
	assert.True(t, res.Found)
	assert.Equal(t, 3, res.Count)
	assert.Empty(t, resp.Slots.ProductCode)
	assert.Equal(t, "crown", resp.Slots.RestorationType)
	assert.Equal(t, "metal-free", resp.Slots.MaterialCategory)
	assert.Equal(t, "emax", resp.Slots.MaterialSubtype)

	require.Len(t, f.catalog.queries, 1)
	assert.Equal(t, order.ProductQuery{
		RestorationType:  "crown",
		MaterialCategory: "metal-free",
		MaterialSubtype:  "emax",
		PositionType:     "anterior",
		Limit:            3,
	}, f.catalog.queries[0])

	resp = f.exec(t, "s1", ToolSelectProduct, `{"product_code": "3631", "product_name": "IPS e.max Press Crown"}`)
	assert.Equal(t, "3631", resp.Slots.ProductCode)
}

func TestExecute_SearchSingleCandidateAutoSelects(t *testing.T) {
	f := newFixture()
	f.catalog.products = []order.Product{{Code: "5100", Name: "Ti PFM Bridge"}}

	resp := f.exec(t, "s1", ToolSearchProducts, `{"restoration_type": "bridge", "material_category": "pfm"}`)
	assert.Equal(t, "5100", resp.Slots.ProductCode)
	assert.Equal(t, "Ti PFM Bridge", resp.Slots.ProductName)
}

func TestExecute_SearchBadInput(t *testing.T) {
	f := newFixture()

	resp := f.exec(t, "s1", ToolSearchProducts, `{"restoration_type": "denture", "material_category": "pfm"}`)
	assert.Equal(t, string(material.ErrTypeUnsupportedRestorationType), resp.Result.(searchResult).ErrorType)

	resp = f.exec(t, "s1", ToolSearchProducts, `{"restoration_type": "crown", "material_category": "pfm", "position_type": "lingual"}`)
	assert.True(t, isArgumentError(resp.Result))
	assert.Empty(t, f.catalog.queries)
}

func TestExecute_SearchRejectedCombinationLeavesSlotsEmpty(t *testing.T) {
	f := newFixture()
	f.catalog.products = []order.Product{{Code: "7000", Name: "Ti PFM Veneer"}}

	resp := f.exec(t, "s1", ToolSearchProducts,
		`{"restoration_type": "veneer", "material_category": "pfm", "material_subtype": "titanium"}`)
	res := resp.Result.(searchResult)
	assert.False(t, res.Found)
	assert.Equal(t, string(material.ErrTypeForbiddenCategory), res.ErrorType)
	assert.Equal(t, order.Slots{}, resp.Slots)
	assert.Equal(t, order.Unchanged, resp.Transition.Kind)

	resp = f.exec(t, "s1", ToolSearchProducts,
		`{"restoration_type": "crown", "material_category": "metal-free", "material_subtype": "zineer"}`)
	res = resp.Result.(searchResult)
	assert.Equal(t, string(material.ErrTypeForbiddenSubtype), res.ErrorType)
	assert.NotEmpty(t, res.AllowedSubtypes)
	assert.Equal(t, order.Slots{}, resp.Slots)
	assert.Empty(t, f.catalog.queries)

	f.exec(t, "s1", ToolValidateToothPositions, `{"tooth_positions": "11"}`)
	f.exec(t, "s1", ToolStorePatientName, `{"patient_name": "陳大明"}`)

	_, err := f.svc.Confirm(context.Background(), "s1")
	assert.ErrorIs(t, err, ErrIncompleteOrder)
	assert.Empty(t, f.repo.created)
}

func TestExecute_SearchDoesNotBackfillIntoConflictingDraft(t *testing.T) {
	f := newFixture()
	f.catalog.products = []order.Product{{Code: "5100", Name: "Pd PFM Crown"}}

	f.exec(t, "s1", ToolValidateBridge, `{"tooth_positions": "14,15,16"}`)
	resp := f.exec(t, "s1", ToolSearchProducts,
		`{"restoration_type": "crown", "material_category": "pfm", "material_subtype": "palladium"}`)

	assert.True(t, resp.Result.(searchResult).Found)
	assert.Equal(t, "bridge", resp.Slots.RestorationType)
	assert.Empty(t, resp.Slots.MaterialCategory)
	assert.Empty(t, resp.Slots.MaterialSubtype)
	assert.Empty(t, resp.Slots.ProductCode)
}

func TestExecute_CatalogFailurePropagates(t *testing.T) {
	f := newFixture()
	f.catalog.err = errors.New("db down")

	_, err := f.svc.Execute(context.Background(), "s1", ToolSearchProducts,
		json.RawMessage(`{"restoration_type": "crown", "material_category": "pfm"}`))
	assert.Error(t, err)
}

func TestExecute_SessionsAreIsolated(t *testing.T) {
	f := newFixture()
	f.exec(t, "a", ToolStoreShade, `{"shade": "B2"}`)
	f.exec(t, "b", ToolStoreShade, `{"shade": "A1"}`)

	a, err := f.svc.State("a")
	require.NoError(t, err)
	b, err := f.svc.State("b")
	require.NoError(t, err)
	assert.Equal(t, "B2", a.Slots.Shade)
	assert.Equal(t, "A1", b.Slots.Shade)
}

func TestExecute_ConcurrentCallsOneSession(t *testing.T) {
	f := newFixture()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Execute(context.Background(), "s1", ToolStoreShade, json.RawMessage(`{"shade": "A3"}`))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	state, err := f.svc.State("s1")
	require.NoError(t, err)
	assert.Equal(t, "A3", state.Slots.Shade)
}

func TestState_UnknownSession(t *testing.T) {
	f := newFixture()
	_, err := f.svc.State("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestConfirm_Incomplete(t *testing.T) {
	f := newFixture()
	f.exec(t, "s1", ToolValidateToothPositions, `{"tooth_positions": "11"}`)

	_, err := f.svc.Confirm(context.Background(), "s1")
	require.ErrorIs(t, err, ErrIncompleteOrder)

	var incomplete *IncompleteOrderError
	require.ErrorAs(t, err, &incomplete)
	assert.Equal(t, []order.Field{
		order.FieldRestorationType,
		order.FieldMaterialCategory,
		order.FieldMaterialSubtype,
		order.FieldPatientName,
	}, incomplete.Missing)
	assert.Empty(t, f.repo.created)
}

func TestConfirm_FullFlow(t *testing.T) {
	f := newFixture()
	id := f.svc.NewSession()

	f.exec(t, id, ToolValidateToothPositions, `{"tooth_positions": "11"}`)
	f.exec(t, id, ToolValidateMaterial, `{"restoration_type": "crown", "material_category": "metal-free", "material_subtype": "emax"}`)
	resp := f.exec(t, id, ToolStorePatientName, `{"patient_name": "NP"}`)
	assert.False(t, resp.Result.(order.NameResult).Success)
	f.exec(t, id, ToolStorePatientName, `{"patient_name": "陳大明"}`)

	state, err := f.svc.State(id)
	require.NoError(t, err)
	assert.True(t, state.Complete)

	o, err := f.svc.Confirm(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260103-143022-"+id[len(id)-3:], o.OrderNumber)
	assert.Equal(t, "metal-free (emax)", o.Material)
	assert.Equal(t, order.DefaultShade, o.Slots.Shade)
	assert.Len(t, f.repo.created, 1)

	_, err = f.svc.State(id)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	got, err := f.svc.GetOrder(context.Background(), o.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, "陳大明", got.Slots.PatientName)

	recent, err := f.svc.RecentOrders(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestConfirm_RepoFailureKeepsSession(t *testing.T) {
	f := newFixture()
	f.repo.err = errors.New("insert failed")
	f.svc.sessions.getOrCreate("s1").slots = order.Slots{
		RestorationType:  "crown",
		ToothPositions:   "11",
		MaterialCategory: "pfm",
		MaterialSubtype:  "titanium",
		PatientName:      "Wong",
	}

	_, err := f.svc.Confirm(context.Background(), "s1")
	assert.Error(t, err)

	_, err = f.svc.State("s1")
	assert.NoError(t, err)
}

func TestDiscard_Idempotent(t *testing.T) {
	f := newFixture()
	f.exec(t, "s1", ToolStoreShade, `{"shade": "A2"}`)

	f.svc.Discard("s1")
	f.svc.Discard("s1")

	_, err := f.svc.State("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCache_PassThrough(t *testing.T) {
	f := newFixture()
	f.exec(t, "s1", ToolValidateMaterial, `{"restoration_type": "crown", "material_category": "pfm", "material_subtype": "Ti"}`)
	assert.Equal(t, 1, f.svc.CacheStats().CacheSize)

	f.svc.ClearCache()
	assert.Equal(t, 0, f.svc.CacheStats().CacheSize)
}

func TestEvictIdle_DropsAbandonedDrafts(t *testing.T) {
	f := newFixture()
	now := time.Date(2026, 1, 3, 9, 0, 0, 0, time.UTC)
	f.svc.sessions.now = func() time.Time { return now }

	f.exec(t, "abandoned", ToolStoreShade, `{"shade": "A3"}`)
	now = now.Add(30 * time.Minute)
	f.exec(t, "active", ToolStoreShade, `{"shade": "B1"}`)

	now = now.Add(45 * time.Minute)
	assert.Equal(t, 1, f.svc.EvictIdle(time.Hour))

	_, err := f.svc.State("abandoned")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	_, err = f.svc.State("active")
	assert.NoError(t, err)
}

func TestExecute_WaitingCallSurvivesConfirm(t *testing.T) {
	f := newFixture()
	held := f.svc.sessions.acquire("s1")

	done := make(chan ToolResponse, 1)
	go func() {
		resp, err := f.svc.Execute(context.Background(), "s1", ToolStoreShade, json.RawMessage(`{"shade": "C1"}`))
		assert.NoError(t, err)
		done <- resp
	}()

	f.svc.sessions.discard("s1")
	held.mu.Unlock()

	resp := <-done
	assert.Equal(t, "C1", resp.Slots.Shade)

	state, err := f.svc.State("s1")
	require.NoError(t, err)
	assert.Equal(t, "C1", state.Slots.Shade)
}
