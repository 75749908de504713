package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/covtrack/covtrack/internal/model"
	"github.com/covtrack/covtrack/internal/parser"
	"github.com/covtrack/covtrack/internal/store"
)

const lcovSample = `SF:src/a.c
DA:1,3
DA:2,0
DA:3,0
end_of_record
`

func lcovRequest() Request {
	return Request{
		ProjectID: "p1",
		Branch:    "main",
		CommitSHA: "abc1234",
		Content:   []byte(lcovSample),
	}
}

func TestIngest_EndToEnd(t *testing.T) {
	st := store.NewMemoryStore()
	ing := New(st)

	rep, err := ing.Ingest(context.Background(), lcovRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, rep.ID)
	assert.False(t, rep.UploadedAt.IsZero())
	assert.Equal(t, "lcov", rep.Format)
	require.Len(t, rep.Files, 1)
	assert.Equal(t, 1, rep.Files[0].LinesCovered)
	assert.Equal(t, 3, rep.Files[0].LinesTotal)

	// The report is immediately visible to readers.
	current, err := ing.CurrentReport(context.Background(), "p1", "main")
	require.NoError(t, err)
	assert.Equal(t, rep.ID, current.ID)

	snaps, err := ing.Trend(context.Background(), "p1", "main",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 33.3, snaps[0].CoveragePercent)
	assert.Equal(t, rep.ID, snaps[0].ReportID)
}

func TestIngest_SequentialUploadsOrderTrend(t *testing.T) {
	st := store.NewMemoryStore()
	ing := New(st)

	first, err := ing.Ingest(context.Background(), lcovRequest())
	require.NoError(t, err)

	second, err := ing.Ingest(context.Background(), Request{
		ProjectID: "p1",
		Branch:    "main",
		Content:   []byte("SF:src/a.c\nDA:1,1\nDA:2,1\nDA:3,0\nend_of_record\n"),
	})
	require.NoError(t, err)

	snaps, err := ing.Trend(context.Background(), "p1", "main",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, first.ID, snaps[0].ReportID)
	assert.Equal(t, second.ID, snaps[1].ReportID)

	current, err := ing.CurrentReport(context.Background(), "p1", "main")
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID, "the later upload becomes current")
}

func TestIngest_BranchesTrackedIndependently(t *testing.T) {
	st := store.NewMemoryStore()
	ing := New(st)

	main, err := ing.Ingest(context.Background(), lcovRequest())
	require.NoError(t, err)

	req := lcovRequest()
	req.Branch = "feature/x"
	feature, err := ing.Ingest(context.Background(), req)
	require.NoError(t, err)

	// A feature-branch upload must not clobber default-branch state.
	current, err := ing.CurrentReport(context.Background(), "p1", "main")
	require.NoError(t, err)
	assert.Equal(t, main.ID, current.ID)

	current, err = ing.CurrentReport(context.Background(), "p1", "feature/x")
	require.NoError(t, err)
	assert.Equal(t, feature.ID, current.ID)

	latest, err := st.LatestSnapshots(context.Background(), "p1")
	require.NoError(t, err)
	assert.Len(t, latest, 2)
}

func TestIngest_MalformedLeavesStateUntouched(t *testing.T) {
	st := store.NewMemoryStore()
	ing := New(st)

	good, err := ing.Ingest(context.Background(), lcovRequest())
	require.NoError(t, err)

	req := lcovRequest()
	req.Content = []byte("SF:src/a.c\nDA:abc,5\nend_of_record\n")
	_, err = ing.Ingest(context.Background(), req)
	var parseErr *parser.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.True(t, Rejected(err))

	current, err := ing.CurrentReport(context.Background(), "p1", "main")
	require.NoError(t, err)
	assert.Equal(t, good.ID, current.ID, "rejected uploads must not change current state")

	snaps, err := ing.Trend(context.Background(), "p1", "main",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, snaps, 1, "rejected uploads leave no history entry")
}

func TestIngest_UnrecognizedFormat(t *testing.T) {
	ing := New(store.NewMemoryStore())

	req := lcovRequest()
	req.Content = []byte("no coverage here\n")
	_, err := ing.Ingest(context.Background(), req)
	assert.ErrorIs(t, err, parser.ErrFormatUnrecognized)
	assert.True(t, Rejected(err))
}

func TestIngest_RequiredFields(t *testing.T) {
	ing := New(store.NewMemoryStore())

	req := lcovRequest()
	req.ProjectID = ""
	_, err := ing.Ingest(context.Background(), req)
	require.Error(t, err)

	req = lcovRequest()
	req.Branch = ""
	_, err = ing.Ingest(context.Background(), req)
	require.Error(t, err)

	req = lcovRequest()
	req.Content = nil
	_, err = ing.Ingest(context.Background(), req)
	require.Error(t, err)
}

func TestIngest_CancelledBeforeCommit(t *testing.T) {
	st := store.NewMemoryStore()
	ing := New(st)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ing.Ingest(ctx, lcovRequest())
	require.ErrorIs(t, err, context.Canceled)

	_, err = ing.CurrentReport(context.Background(), "p1", "main")
	assert.ErrorIs(t, err, store.ErrNotFound, "cancelled upload has no side effects")
}

func TestIngest_DuplicateContentAcceptedAsNewReport(t *testing.T) {
	ing := New(store.NewMemoryStore())

	first, err := ing.Ingest(context.Background(), lcovRequest())
	require.NoError(t, err)
	second, err := ing.Ingest(context.Background(), lcovRequest())
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID, "byte-identical resubmission is a new independent report")
}

func TestIngest_ConcurrentUploadsSameBranch(t *testing.T) {
	st := store.NewMemoryStore()
	ing := New(st)

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := lcovRequest()
			req.CommitSHA = fmt.Sprintf("commit-%02d", i)
			_, errs[i] = ing.Ingest(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "upload %d", i)
	}

	snaps, err := ing.Trend(context.Background(), "p1", "main",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, snaps, n, "every accepted upload produces exactly one snapshot")

	// The current pointer matches the last committed snapshot.
	current, err := ing.CurrentReport(context.Background(), "p1", "main")
	require.NoError(t, err)
	assert.Equal(t, snaps[n-1].ReportID, current.ID, "last commit wins")
}

func TestIngest_CommitFailureWrapped(t *testing.T) {
	ing := New(&failingStore{Store: store.NewMemoryStore()})

	_, err := ing.Ingest(context.Background(), lcovRequest())
	var commitErr *CommitError
	require.ErrorAs(t, err, &commitErr)
	assert.False(t, Rejected(err), "commit failures are retryable, not rejections")
}

type failingStore struct {
	store.Store
}

func (s *failingStore) Commit(context.Context, *model.CoverageReport, *model.TrendSnapshot) error {
	return errors.New("disk full")
}
