package syncer

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodtruck/salesync/internal/domain"
	"github.com/foodtruck/salesync/internal/repository"
	"github.com/foodtruck/salesync/internal/square"
)

const testEpoch = "2024-01-01T00:00:00Z"

type searchCall struct {
	LocationID  string
	WindowStart string
	WindowEnd   string
	Cursor      string
}

// fakeSource serves canned locations and order pages, recording every call.
// Cursors are page indexes rendered as strings.
type fakeSource struct {
	locations []domain.Location
	pages     map[string][][]domain.Order

	locationsErr error
	failAtPage   int // 1-based global page count at which SearchOrders fails
	searchErr    error

	searchCalls []searchCall
}

func (f *fakeSource) ListLocations(ctx context.Context) ([]domain.Location, error) {
	if f.locationsErr != nil {
		return nil, f.locationsErr
	}
	return f.locations, nil
}

func (f *fakeSource) SearchOrders(ctx context.Context, locationID, windowStart, windowEnd, cursor string) ([]domain.Order, string, error) {
	f.searchCalls = append(f.searchCalls, searchCall{locationID, windowStart, windowEnd, cursor})
	if f.failAtPage > 0 && len(f.searchCalls) >= f.failAtPage {
		return nil, "", f.searchErr
	}

	page := 0
	if cursor != "" {
		page, _ = strconv.Atoi(cursor)
	}
	pages := f.pages[locationID]
	if page >= len(pages) {
		return nil, "", nil
	}

	next := ""
	if page+1 < len(pages) {
		next = strconv.Itoa(page + 1)
	}
	return pages[page], next, nil
}

func order(id, locationID, createdAt string, itemUIDs ...string) domain.Order {
	o := domain.Order{
		ID:            id,
		LocationID:    locationID,
		CreatedAt:     createdAt,
		TotalTipMoney: &domain.Money{Amount: 150, Currency: "USD"},
	}
	for _, uid := range itemUIDs {
		o.LineItems = append(o.LineItems, domain.LineItem{
			UID:             uid,
			CatalogObjectID: "C1",
			Name:            "Taco",
			Quantity:        "1",
			GrossSalesMoney: &domain.Money{Amount: 500, Currency: "USD"},
			TotalMoney:      &domain.Money{Amount: 480, Currency: "USD"},
		})
	}
	return o
}

func newTestService(t *testing.T, source OrderSource) (*Service, *repository.Store) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "sync.db")

	store, err := repository.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	opener := func() (*repository.Store, error) { return repository.Open(dbPath) }
	return NewService(source, opener, testEpoch), store
}

func twoLocationSource() *fakeSource {
	return &fakeSource{
		locations: []domain.Location{{ID: "LOC1"}, {ID: "LOC2"}},
		pages: map[string][][]domain.Order{
			"LOC1": {
				{
					order("O1", "LOC1", "2024-07-01T10:00:00Z", "U1", "U2"),
					order("O2", "LOC1", "2024-07-01T11:00:00Z", "U3"),
				},
				{
					order("O3", "LOC1", "2024-07-01T12:00:00Z", "U4"),
				},
			},
			"LOC2": {
				{
					order("O4", "LOC2", "2024-07-01T09:00:00Z", "U5"),
				},
			},
		},
	}
}

func TestRunHappyPath(t *testing.T) {
	source := twoLocationSource()
	svc, store := newTestService(t, source)

	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, res.State)
	assert.Equal(t, 2, res.Locations)
	assert.Equal(t, 3, res.Pages)
	assert.Equal(t, 4, res.Orders)
	assert.Equal(t, 5, res.RecordsInserted)
	assert.Equal(t, 0, res.DuplicatesSkipped)
	assert.Equal(t, testEpoch, res.WindowStart)

	count, err := store.Sales.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	// Locations in listing order, pages followed by cursor until absent,
	// one identical window throughout the run.
	require.Len(t, source.searchCalls, 3)
	assert.Equal(t, "LOC1", source.searchCalls[0].LocationID)
	assert.Equal(t, "", source.searchCalls[0].Cursor)
	assert.Equal(t, "LOC1", source.searchCalls[1].LocationID)
	assert.Equal(t, "1", source.searchCalls[1].Cursor)
	assert.Equal(t, "LOC2", source.searchCalls[2].LocationID)
	for _, call := range source.searchCalls {
		assert.Equal(t, res.WindowStart, call.WindowStart)
		assert.Equal(t, res.WindowEnd, call.WindowEnd)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	source := twoLocationSource()
	svc, store := newTestService(t, source)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5, first.RecordsInserted)

	// Unchanged remote data: every candidate hits the dedup key, the run
	// still succeeds.
	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSucceeded, second.State)
	assert.Equal(t, 0, second.RecordsInserted)
	assert.Equal(t, 5, second.DuplicatesSkipped)

	count, err := store.Sales.Count()
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestRunWindowStartsAtWatermark(t *testing.T) {
	source := twoLocationSource()
	svc, _ := newTestService(t, source)

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, testEpoch, first.WindowStart)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)

	// The next window starts at the max persisted order time; it never
	// moves backward.
	assert.Equal(t, "2024-07-01T12:00:00Z", second.WindowStart)
	assert.GreaterOrEqual(t, second.WindowStart, first.WindowStart)
}

func TestRunLocationsFailureAbortsBeforeAnyWrite(t *testing.T) {
	source := twoLocationSource()
	source.locationsErr = &square.APIError{StatusCode: 401, Body: "unauthorized"}
	svc, store := newTestService(t, source)

	res, err := svc.Run(context.Background())
	require.Error(t, err)

	var apiErr *square.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 401, apiErr.StatusCode)

	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)
	assert.Contains(t, res.Error, "fetch locations")

	count, err := store.Sales.Count()
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRunSearchFailureKeepsEarlierPages(t *testing.T) {
	source := twoLocationSource()
	source.failAtPage = 2 // first page of LOC1 succeeds, second fails
	source.searchErr = &square.APIError{StatusCode: 500, Body: "boom"}
	svc, store := newTestService(t, source)

	res, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateFailed, res.State)

	// Page one's records are durable; LOC2 was never attempted.
	count, err := store.Sales.Count()
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, source.searchCalls, 2)
	assert.Equal(t, "LOC1", source.searchCalls[1].LocationID)

	// The committed records resume the watermark for the next run.
	wm, ok, err := store.Watermarks.Current()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2024-07-01T11:00:00Z", wm)
}

func TestRunRejectsOverlap(t *testing.T) {
	svc, _ := newTestService(t, twoLocationSource())

	svc.runMu.Lock()
	defer svc.runMu.Unlock()

	_, err := svc.Run(context.Background())
	require.ErrorIs(t, err, ErrRunInProgress)
}

func TestLastResultIsRetained(t *testing.T) {
	svc, _ := newTestService(t, twoLocationSource())
	require.Nil(t, svc.LastResult())

	res, err := svc.Run(context.Background())
	require.NoError(t, err)

	last := svc.LastResult()
	require.NotNil(t, last)
	assert.Equal(t, res.RunID, last.RunID)
	assert.Equal(t, StateSucceeded, last.State)
}

func TestRunResultErrorMentionsLocation(t *testing.T) {
	source := twoLocationSource()
	source.failAtPage = 3 // LOC2's only page fails
	source.searchErr = fmt.Errorf("connection reset")
	svc, _ := newTestService(t, source)

	res, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, res.Error, "LOC2")
}
