package lookup

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/google/uuid"

	"github.com/Eudes8/Compta/piece"
	"github.com/Eudes8/Compta/port"
)

// fakeSearcher answers account searches with one match per query. Queries
// listed in hold block until released, ignoring cancellation like a backend
// that answers anyway.
type fakeSearcher struct {
	mu    sync.Mutex
	calls []string
	kinds []port.JournalKind
	hold  map[string]chan struct{}
	err   error
}

func newFakeSearcher() *fakeSearcher {
	return &fakeSearcher{hold: make(map[string]chan struct{})}
}

func (f *fakeSearcher) block(query string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.hold[query] = ch
	return ch
}

func (f *fakeSearcher) record(query string, kind port.JournalKind) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, query)
	f.kinds = append(f.kinds, kind)
	return f.hold[query]
}

func (f *fakeSearcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSearcher) SearchAccounts(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.AccountMatch, error) {
	if ch := f.record(query, kind); ch != nil {
		<-ch
	}
	if f.err != nil {
		return nil, f.err
	}
	return []port.AccountMatch{{Code: "code-" + query, Label: query}}, nil
}

func (f *fakeSearcher) SearchCounterparties(ctx context.Context, query string, kind port.JournalKind, limit int) ([]port.CounterpartyMatch, error) {
	if ch := f.record(query, kind); ch != nil {
		<-ch
	}
	return []port.CounterpartyMatch{{Code: "FO001", Name: "Fournisseur " + query, Account: "401000"}}, nil
}

func collect(results chan Result) func(Result) {
	return func(r Result) { results <- r }
}

func receive(t *testing.T, results chan Result) Result {
	t.Helper()
	select {
	case r := <-results:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for lookup result")
		return Result{}
	}
}

// waitForCalls blocks until the searcher has received n calls, so a request
// is known to be in flight before the next keystroke supersedes it.
func waitForCalls(t *testing.T, f *fakeSearcher, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for len(f.Calls()) < n {
		if time.Now().After(deadline) {
			t.Fatalf("searcher received %d calls, want %d", len(f.Calls()), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func accountCell() Cell {
	return Cell{Line: uuid.New(), Column: piece.ColumnAccount}
}

func TestShortQueriesAreNotSent(t *testing.T) {
	searcher := newFakeSearcher()
	results := make(chan Result, 4)
	c := New(searcher, WithDebounce(0), WithDelivery(collect(results)))

	_, ok := c.Input(context.Background(), accountCell(), Account, "6", port.Purchases)
	assert.False(t, ok)

	_, ok = c.Input(context.Background(), accountCell(), Account, "  6  ", port.Purchases)
	assert.False(t, ok)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, len(searcher.Calls()))
}

func TestLateResponseIsDropped(t *testing.T) {
	searcher := newFakeSearcher()
	release := searcher.block("60")
	results := make(chan Result, 4)
	c := New(searcher, WithDebounce(0), WithDelivery(collect(results)))
	cell := accountCell()

	first, ok := c.Input(context.Background(), cell, Account, "60", port.Purchases)
	assert.True(t, ok)
	waitForCalls(t, searcher, 1)
	second, ok := c.Input(context.Background(), cell, Account, "601", port.Purchases)
	assert.True(t, ok)
	assert.True(t, second.Seq > first.Seq)

	// The newer query answers first.
	newer := receive(t, results)
	assert.Equal(t, "601", newer.Request.Query)
	assert.True(t, c.Apply(newer))

	close(release)
	older := receive(t, results)
	assert.Equal(t, "60", older.Request.Query)
	assert.False(t, c.Apply(older))

	list, ok := c.List()
	assert.True(t, ok)
	assert.Equal(t, "601", list.Query)
	assert.Equal(t, "code-601", list.Matches[0].Code)
}

func TestOlderResponseArrivingFirstIsStillDropped(t *testing.T) {
	searcher := newFakeSearcher()
	releaseNew := searcher.block("601")
	results := make(chan Result, 4)
	c := New(searcher, WithDebounce(0), WithDelivery(collect(results)))
	cell := accountCell()

	releaseOld := searcher.block("60")
	_, _ = c.Input(context.Background(), cell, Account, "60", port.Purchases)
	waitForCalls(t, searcher, 1)
	_, _ = c.Input(context.Background(), cell, Account, "601", port.Purchases)
	waitForCalls(t, searcher, 2)

	close(releaseOld)
	older := receive(t, results)
	assert.False(t, c.Apply(older))
	_, open := c.List()
	assert.False(t, open)

	close(releaseNew)
	newer := receive(t, results)
	assert.True(t, c.Apply(newer))
}

func TestDebounceSendsLastQueryOnly(t *testing.T) {
	searcher := newFakeSearcher()
	results := make(chan Result, 4)
	c := New(searcher, WithDebounce(30*time.Millisecond), WithDelivery(collect(results)))
	cell := accountCell()

	for _, q := range []string{"40", "401", "4010"} {
		_, _ = c.Input(context.Background(), cell, Account, q, port.Purchases)
	}

	r := receive(t, results)
	assert.Equal(t, "4010", r.Request.Query)
	assert.True(t, c.Apply(r))
	assert.Equal(t, []string{"4010"}, searcher.Calls())
}

func TestShorteningQuerySupersedesPending(t *testing.T) {
	searcher := newFakeSearcher()
	release := searcher.block("60")
	results := make(chan Result, 4)
	c := New(searcher, WithDebounce(0), WithDelivery(collect(results)))
	cell := accountCell()

	_, _ = c.Input(context.Background(), cell, Account, "60", port.Purchases)
	waitForCalls(t, searcher, 1)
	_, ok := c.Input(context.Background(), cell, Account, "6", port.Purchases)
	assert.False(t, ok)

	close(release)
	assert.False(t, c.Apply(receive(t, results)))
}

func TestCellsAreIndependent(t *testing.T) {
	searcher := newFakeSearcher()
	results := make(chan Result, 4)
	c := New(searcher, WithDebounce(0), WithDelivery(collect(results)))
	line := uuid.New()
	account := Cell{Line: line, Column: piece.ColumnAccount}
	party := Cell{Line: line, Column: piece.ColumnCounterparty}

	_, _ = c.Input(context.Background(), account, Account, "401", port.Purchases)
	r1 := receive(t, results)
	_, _ = c.Input(context.Background(), party, Counterparty, "dupont", port.Purchases)
	r2 := receive(t, results)

	assert.True(t, c.Apply(r1))
	assert.True(t, c.Apply(r2))

	list, _ := c.List()
	assert.Equal(t, party, list.Cell)
	assert.Equal(t, "Fournisseur dupont", list.Matches[0].Label)
	assert.Equal(t, "401000", list.Matches[0].Account)
}

func TestConfirmAndDismiss(t *testing.T) {
	searcher := newFakeSearcher()
	c := New(searcher, WithDebounce(0), WithDelivery(func(Result) {}))
	cell := accountCell()

	req, _ := c.Input(context.Background(), cell, Account, "60", port.Purchases)
	assert.True(t, c.Apply(Result{Request: req, Matches: []Match{{Code: "601000"}, {Code: "602000"}}}))

	c.Select(5)
	match, confirmed, ok := c.Confirm()
	assert.True(t, ok)
	assert.Equal(t, "602000", match.Code)
	assert.Equal(t, cell, confirmed)

	_, open := c.List()
	assert.False(t, open)

	// A late copy of the same answer cannot reopen the list.
	assert.False(t, c.Apply(Result{Request: req, Matches: []Match{{Code: "601000"}}}))

	req, _ = c.Input(context.Background(), cell, Account, "61", port.Purchases)
	assert.True(t, c.Apply(Result{Request: req, Matches: []Match{{Code: "611000"}}}))
	c.Dismiss(cell)
	_, open = c.List()
	assert.False(t, open)
	_, _, ok = c.Confirm()
	assert.False(t, ok)
}

func TestConfirmWithoutMatchesClosesList(t *testing.T) {
	searcher := newFakeSearcher()
	c := New(searcher, WithDebounce(0), WithDelivery(func(Result) {}))
	cell := accountCell()

	req, _ := c.Input(context.Background(), cell, Account, "69", port.Purchases)
	assert.True(t, c.Apply(Result{Request: req}))
	list, open := c.List()
	assert.True(t, open)
	assert.Equal(t, 0, len(list.Matches))

	_, _, ok := c.Confirm()
	assert.False(t, ok)
	_, open = c.List()
	assert.False(t, open)
	assert.False(t, c.Apply(Result{Request: req, Matches: []Match{{Code: "691000"}}}))
}

func TestFailedLookupClosesList(t *testing.T) {
	searcher := newFakeSearcher()
	searcher.err = errors.New("backend down")
	results := make(chan Result, 1)
	c := New(searcher, WithDebounce(0), WithDelivery(collect(results)))

	_, _ = c.Input(context.Background(), accountCell(), Account, "60", port.Bank)
	r := receive(t, results)

	assert.True(t, c.Apply(r))
	assert.Error(t, c.Err())
	_, open := c.List()
	assert.False(t, open)
}

func TestDefaultDeliveryApplies(t *testing.T) {
	searcher := newFakeSearcher()
	c := New(searcher, WithDebounce(0))

	_, _ = c.Input(context.Background(), accountCell(), Account, "512", port.Bank)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if list, ok := c.List(); ok {
			assert.Equal(t, "code-512", list.Matches[0].Code)
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("result was never applied")
}

func TestKindForColumn(t *testing.T) {
	k, ok := KindForColumn(piece.ColumnCounterparty)
	assert.True(t, ok)
	assert.Equal(t, Counterparty, k)

	_, ok = KindForColumn(piece.ColumnLabel)
	assert.False(t, ok)
}
