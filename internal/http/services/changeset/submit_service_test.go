package changeset

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/laneeditor/internal/domain/repository"
	"github.com/dropDatabas3/laneeditor/internal/osm"
)

type fakeClient struct {
	mu      sync.Mutex
	ways    map[int64]*osm.Way
	openErr error
	failUpd map[int64]bool
	block   map[int64]bool // FetchWay espera a que venza el contexto

	opens, fetches, updates, closes int
	sent                            []*osm.Way
}

func newFakeClient() *fakeClient {
	return &fakeClient{ways: map[int64]*osm.Way{}, failUpd: map[int64]bool{}, block: map[int64]bool{}}
}

func (f *fakeClient) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opens + f.fetches + f.updates + f.closes
}

func (f *fakeClient) FetchWay(ctx context.Context, id int64) (*osm.Way, error) {
	f.mu.Lock()
	f.fetches++
	block := f.block[id]
	w, ok := f.ways[id]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if !ok {
		return nil, &osm.RemoteError{Op: osm.OpFetchWay, Status: 404, Kind: osm.ErrNotFound}
	}
	return w.Clone(), nil
}

func (f *fakeClient) OpenChangeset(context.Context, string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opens++
	if f.openErr != nil {
		return 0, f.openErr
	}
	return 9001, nil
}

func (f *fakeClient) UpdateWay(_ context.Context, csID int64, w *osm.Way) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.failUpd[w.ID] {
		return 0, &osm.RemoteError{Op: osm.OpUpdateWay, Status: 409, Kind: osm.ErrRemote}
	}
	f.sent = append(f.sent, w.Clone())
	f.ways[w.ID] = &osm.Way{ID: w.ID, Version: w.Version + 1, Nodes: w.Nodes, Tags: osm.CopyTags(w.Tags)}
	return w.Version + 1, nil
}

func (f *fakeClient) CloseChangeset(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

type fakeLedger struct {
	recorded []repository.RecordChangesetInput
	err      error
}

func (l *fakeLedger) RecordChangeset(_ context.Context, in repository.RecordChangesetInput) (*repository.Changeset, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.recorded = append(l.recorded, in)
	id := in.OSMChangesetID
	return &repository.Changeset{ID: int64(len(l.recorded)), UserID: in.UserID, OSMChangesetID: &id, Status: repository.StatusSent}, nil
}

func (l *fakeLedger) ListChangesets(context.Context, int64, int) ([]repository.ChangesetSummary, error) {
	return nil, nil
}

func (l *fakeLedger) GetChangeset(context.Context, int64, int64) (*repository.Changeset, error) {
	return nil, repository.ErrNotFound
}

func (l *fakeLedger) ListRoadChanges(context.Context, int64) ([]repository.RoadChange, error) {
	return nil, nil
}

type countingMetrics struct {
	submissions map[string]int
	items       map[string]int
}

func (m *countingMetrics) Submission(r string) { m.submissions[r]++ }
func (m *countingMetrics) Item(o string)       { m.items[o]++ }

var principal = Principal{UserID: 1, OSMUserID: 42, AccessToken: "tok"}

func newSvc(c *fakeClient, l *fakeLedger, m *countingMetrics, timeout time.Duration) Service {
	deps := Deps{
		Clients: func(token string) EntityClient { return c },
		Ledger:  l,
		Timeout: timeout,
	}
	if m != nil {
		deps.Metrics = m
	}
	return NewService(deps)
}

func TestSubmit_EmptyListNoRemoteCalls(t *testing.T) {
	c := newFakeClient()
	l := &fakeLedger{}
	_, err := newSvc(c, l, nil, 0).Submit(context.Background(), principal, "x", nil)
	require.ErrorIs(t, err, ErrNoChanges)
	require.Zero(t, c.calls())
	require.Empty(t, l.recorded)
}

func TestSubmit_Unauthenticated(t *testing.T) {
	c := newFakeClient()
	svc := newSvc(c, &fakeLedger{}, nil, 0)
	items := []ChangeItem{{WayID: 1, NewTags: map[string]string{"lanes": "2"}}}

	_, err := svc.Submit(context.Background(), Principal{UserID: 1}, "", items)
	require.ErrorIs(t, err, ErrUnauthenticated)

	past := time.Now().Add(-time.Minute)
	_, err = svc.Submit(context.Background(), Principal{UserID: 1, AccessToken: "t", TokenExpiresAt: &past}, "", items)
	require.ErrorIs(t, err, ErrUnauthenticated)
	require.Zero(t, c.calls())
}

func TestSubmit_InvalidWayID(t *testing.T) {
	c := newFakeClient()
	_, err := newSvc(c, &fakeLedger{}, nil, 0).Submit(context.Background(), principal, "", []ChangeItem{{WayID: 0}})
	require.ErrorIs(t, err, ErrInvalidItem)
	require.Zero(t, c.calls())
}

func TestSubmit_OpenFailsAbortsEverything(t *testing.T) {
	c := newFakeClient()
	c.ways[1] = &osm.Way{ID: 1, Version: 1}
	c.openErr = &osm.RemoteError{Op: osm.OpOpenChangeset, Status: 500, Kind: osm.ErrRemote}
	l := &fakeLedger{}

	res, err := newSvc(c, l, nil, 0).Submit(context.Background(), principal, "", []ChangeItem{{WayID: 1}})
	require.ErrorIs(t, err, ErrOpenTransaction)
	require.ErrorIs(t, err, osm.ErrRemote)
	require.Nil(t, res)
	require.Zero(t, c.fetches)
	require.Zero(t, c.updates)
	require.Empty(t, l.recorded)
}

func TestSubmit_MiddleFetchFailsIsSkipped(t *testing.T) {
	c := newFakeClient()
	c.ways[1] = &osm.Way{ID: 1, Version: 3, Nodes: []int64{10, 11}, Tags: map[string]string{"highway": "primary", "lanes": "2"}}
	c.ways[3] = &osm.Way{ID: 3, Version: 1, Nodes: []int64{20, 21}, Tags: map[string]string{"highway": "secondary"}}
	l := &fakeLedger{}
	m := &countingMetrics{submissions: map[string]int{}, items: map[string]int{}}

	res, err := newSvc(c, l, m, 0).Submit(context.Background(), principal, "lanes", []ChangeItem{
		{WayID: 1, NewTags: map[string]string{"lanes": "3"}},
		{WayID: 2, NewTags: map[string]string{"lanes": "4"}},
		{WayID: 3, NewTags: map[string]string{"turn:lanes": "left|through"}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(9001), res.ChangesetID)
	require.Equal(t, 2, res.TotalUpdated)
	require.Len(t, res.Updated, 2)
	require.Equal(t, int64(1), res.Updated[0].WayID)
	require.Equal(t, int64(3), res.Updated[1].WayID)
	require.Equal(t, int64(3), res.Updated[0].OldVersion)
	require.Equal(t, int64(4), res.Updated[0].NewVersion)
	require.Equal(t, map[string]string{"highway": "primary", "lanes": "3"}, res.Updated[0].NewTags)
	require.Equal(t, map[string]string{"highway": "primary", "lanes": "2"}, res.Updated[0].OldTags)

	require.Equal(t, []ItemOutcome{
		{WayID: 1, Status: OutcomeApplied},
		{WayID: 2, Status: OutcomeSkipped, Reason: ReasonNotFound},
		{WayID: 3, Status: OutcomeApplied},
	}, res.Outcomes)

	// el ledger refleja la intención: 3 filas
	require.Len(t, l.recorded, 1)
	rec := l.recorded[0]
	require.Equal(t, int64(9001), rec.OSMChangesetID)
	require.Equal(t, "lanes", rec.Comment)
	require.Len(t, rec.Changes, 3)
	require.Equal(t, map[string]string{}, rec.Changes[1].OldTags)
	require.Equal(t, map[string]string{"lanes": "4"}, rec.Changes[1].NewTags)
	require.Equal(t, int64(1), res.LocalChangesetID)

	// el way enviado conserva nodos en orden
	require.Equal(t, []int64{10, 11}, c.sent[0].Nodes)
	require.Equal(t, 1, c.closes)
	require.Equal(t, 1, m.submissions["sent"])
	require.Equal(t, 2, m.items[OutcomeApplied])
	require.Equal(t, 1, m.items[OutcomeSkipped])
}

func TestSubmit_UpdateFailureIsSkipped(t *testing.T) {
	c := newFakeClient()
	c.ways[1] = &osm.Way{ID: 1, Version: 1, Tags: map[string]string{"lanes": "1"}}
	c.ways[2] = &osm.Way{ID: 2, Version: 1}
	c.failUpd[1] = true
	l := &fakeLedger{}

	res, err := newSvc(c, l, nil, 0).Submit(context.Background(), principal, "", []ChangeItem{
		{WayID: 1, NewTags: map[string]string{"lanes": "2"}},
		{WayID: 2, NewTags: map[string]string{"lanes": "2"}},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalUpdated)
	require.Equal(t, ReasonUpdateFailed, res.Outcomes[0].Reason)
	require.Equal(t, DefaultComment, l.recorded[0].Comment)
	// fetched pero rechazado: el ledger guarda old y merged
	require.Equal(t, map[string]string{"lanes": "1"}, l.recorded[0].Changes[0].OldTags)
	require.Equal(t, map[string]string{"lanes": "2"}, l.recorded[0].Changes[0].NewTags)
}

func TestSubmit_LedgerFailureSurfacedWithResult(t *testing.T) {
	c := newFakeClient()
	c.ways[1] = &osm.Way{ID: 1, Version: 1}
	l := &fakeLedger{err: errors.New("database is locked")}

	res, err := newSvc(c, l, nil, 0).Submit(context.Background(), principal, "", []ChangeItem{{WayID: 1, NewTags: map[string]string{"lanes": "2"}}})
	require.ErrorIs(t, err, ErrLedgerWrite)
	require.NotNil(t, res)
	require.Equal(t, int64(9001), res.ChangesetID)
	require.Equal(t, 1, res.TotalUpdated)
	require.Zero(t, res.LocalChangesetID)
}

func TestSubmit_TimeoutReturnsPartial(t *testing.T) {
	c := newFakeClient()
	c.ways[1] = &osm.Way{ID: 1, Version: 1}
	c.block[2] = true
	c.ways[3] = &osm.Way{ID: 3, Version: 1}
	l := &fakeLedger{}

	res, err := newSvc(c, l, nil, 50*time.Millisecond).Submit(context.Background(), principal, "", []ChangeItem{
		{WayID: 1}, {WayID: 2}, {WayID: 3},
	})
	require.NoError(t, err)
	require.Equal(t, 1, res.TotalUpdated)
	require.Equal(t, ReasonTimeout, res.Outcomes[1].Reason)
	require.Equal(t, ReasonTimeout, res.Outcomes[2].Reason)
	// cierre y ledger igual corren
	require.Equal(t, 1, c.closes)
	require.Len(t, l.recorded, 1)
	require.Len(t, l.recorded[0].Changes, 3)
}

func TestSubmit_SameDeltaTwiceIsIdempotent(t *testing.T) {
	c := newFakeClient()
	c.ways[1] = &osm.Way{ID: 1, Version: 1, Tags: map[string]string{"highway": "primary", "lanes": "2"}}
	svc := newSvc(c, &fakeLedger{}, nil, 0)
	items := []ChangeItem{{WayID: 1, NewTags: map[string]string{"lanes": "3", "turn:lanes": "left|through|right"}}}

	first, err := svc.Submit(context.Background(), principal, "", items)
	require.NoError(t, err)
	second, err := svc.Submit(context.Background(), principal, "", items)
	require.NoError(t, err)
	require.Equal(t, first.Updated[0].NewTags, second.Updated[0].NewTags)
	require.Equal(t, int64(3), second.Updated[0].NewVersion)
}
