package sweeper

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/campusshare/campusshare/internal/common"
	"github.com/campusshare/campusshare/internal/dbx"
	"github.com/campusshare/campusshare/internal/logging"
	"github.com/campusshare/campusshare/internal/server/blob"
	"github.com/campusshare/campusshare/internal/server/config"
	"github.com/campusshare/campusshare/internal/server/metrics"
	"github.com/campusshare/campusshare/internal/server/models"
	"github.com/campusshare/campusshare/internal/server/repositories/contents"
	"github.com/campusshare/campusshare/internal/server/repositories/inmemory"
	"github.com/campusshare/campusshare/internal/server/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/afero"
)

// ---- test logger ----

type nopLogger struct{}

func (n nopLogger) Info(context.Context, string, ...any)  {}
func (n nopLogger) Warn(context.Context, string, ...any)  {}
func (n nopLogger) Error(context.Context, string, ...any) {}
func (n nopLogger) With(...any) logging.Logger            { return n }

// ---- fixture ----

type fixture struct {
	cfg     *config.Config
	repos   *inmemory.RepositoryManager
	fs      afero.Fs
	blobs   *blob.FSStore
	content *services.ContentService
	sweeper *Sweeper
	now     time.Time
}

func newFixture(t *testing.T, m *metrics.SweepMetrics) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	repos := inmemory.NewRepositoryManager()
	fs := afero.NewMemMapFs()
	blobs := blob.NewFSStore(fs)
	content := services.NewContentService(nil, repos, blobs, cfg, nopLogger{})

	f := &fixture{
		cfg:     cfg,
		repos:   repos,
		fs:      fs,
		blobs:   blobs,
		content: content,
		now:     time.Date(2026, 3, 10, 3, 0, 0, 0, time.UTC),
	}
	f.sweeper = New(nil, repos, content, blobs, nopLogger{}, m, time.Hour, cfg.OrphanScan, cfg.OrphanGrace)
	f.sweeper.now = func() time.Time { return f.now }
	return f
}

func (f *fixture) addAccount(t *testing.T, id string, used, limit int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := f.repos.Accounts(nil).Create(ctx, &models.Account{ID: id, Name: id, StorageLimitBytes: limit}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if used > 0 {
		if err := f.repos.Accounts(nil).Reserve(ctx, id, used); err != nil {
			t.Fatalf("reserve: %v", err)
		}
	}
}

// addFile registers a file entry with its payload and a fixed expiry.
func (f *fixture) addFile(t *testing.T, id, accountID string, size int64, expiresAt time.Time) {
	t.Helper()
	ctx := context.Background()
	key := "2026/3/10/" + id
	if _, err := f.blobs.Save(ctx, key, strings.NewReader(strings.Repeat("x", int(size)))); err != nil {
		t.Fatalf("save blob: %v", err)
	}
	entry := &models.ContentEntry{
		ID:         id,
		AccountID:  accountID,
		Kind:       models.KindFile,
		Name:       id,
		SizeBytes:  size,
		StorageKey: key,
		CreatedAt:  expiresAt.AddDate(0, 0, -7),
		ExpiresAt:  expiresAt,
	}
	if err := f.repos.Contents(nil).Create(ctx, entry); err != nil {
		t.Fatalf("create entry: %v", err)
	}
}

func (f *fixture) usedBytes(t *testing.T, id string) int64 {
	t.Helper()
	a, err := f.repos.Accounts(nil).GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.StorageUsedBytes
}

// ---- tests ----

func TestRun_RemovesExpiredOnly(t *testing.T) {
	f := newFixture(t, nil)
	f.addAccount(t, "acc-1", 70, 1000)
	f.addAccount(t, "acc-2", 40, 1000)

	past := f.now.Add(-time.Minute)
	future := f.now.Add(time.Hour)

	f.addFile(t, "e1", "acc-1", 30, past)
	f.addFile(t, "e2", "acc-1", 40, past)
	f.addFile(t, "e3", "acc-2", 40, future)

	summary := f.sweeper.Run(context.Background())

	if summary.EntriesDeleted != 2 {
		t.Fatalf("EntriesDeleted = %d, want 2", summary.EntriesDeleted)
	}
	if summary.BytesFreed != 70 {
		t.Fatalf("BytesFreed = %d, want 70", summary.BytesFreed)
	}
	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", summary.Errors)
	}

	if used := f.usedBytes(t, "acc-1"); used != 0 {
		t.Fatalf("acc-1 used = %d, want 0", used)
	}
	if used := f.usedBytes(t, "acc-2"); used != 40 {
		t.Fatalf("acc-2 used = %d, want 40", used)
	}

	// Unexpired entry and its payload survive.
	if _, err := f.repos.Contents(nil).GetByID(context.Background(), "e3", "acc-2"); err != nil {
		t.Fatalf("e3 gone: %v", err)
	}
	objects, err := f.blobs.List(context.Background())
	if err != nil {
		t.Fatalf("list blobs: %v", err)
	}
	if len(objects) != 1 || objects[0].Key != "2026/3/10/e3" {
		t.Fatalf("unexpected blobs: %+v", objects)
	}

	// A second run over the same state is a no-op.
	summary = f.sweeper.Run(context.Background())
	if summary.EntriesDeleted != 0 || summary.BytesFreed != 0 {
		t.Fatalf("second run not idempotent: %+v", summary)
	}
}

func TestRun_ExpiryBoundary(t *testing.T) {
	f := newFixture(t, nil)
	f.addAccount(t, "acc-1", 30, 1000)

	// Due one second ago, due exactly at the run's start instant, and due
	// one second later. The boundary is inclusive.
	f.addFile(t, "e1", "acc-1", 10, f.now.Add(-time.Second))
	f.addFile(t, "e2", "acc-1", 10, f.now)
	f.addFile(t, "e3", "acc-1", 10, f.now.Add(time.Second))

	summary := f.sweeper.Run(context.Background())
	if summary.EntriesDeleted != 2 {
		t.Fatalf("EntriesDeleted = %d, want 2", summary.EntriesDeleted)
	}
	if _, err := f.repos.Contents(nil).GetByID(context.Background(), "e3", "acc-1"); err != nil {
		t.Fatalf("e3 removed before it was due: %v", err)
	}
}

// ghostContents injects ids into the due page that no longer have rows,
// simulating a user delete racing the sweeper.
type ghostContents struct {
	contents.Repository
	ghosts []string
}

func (g *ghostContents) SelectDue(ctx context.Context, asOf time.Time, limit int) ([]string, error) {
	ids, err := g.Repository.SelectDue(ctx, asOf, limit)
	if err != nil {
		return nil, err
	}
	return append(g.ghosts, ids...), nil
}

type ghostManager struct {
	*inmemory.RepositoryManager
	contents *ghostContents
}

func (m *ghostManager) Contents(db dbx.DBTX) contents.Repository { return m.contents }

func TestRun_SkipsVanishedEntries(t *testing.T) {
	f := newFixture(t, nil)
	f.addAccount(t, "acc-1", 10, 1000)
	f.addFile(t, "e1", "acc-1", 10, f.now.Add(-time.Minute))

	gm := &ghostManager{
		RepositoryManager: f.repos,
		contents:          &ghostContents{Repository: f.repos.Contents(nil), ghosts: []string{"vanished"}},
	}
	f.sweeper.repos = gm

	summary := f.sweeper.Run(context.Background())

	// The vanished id is a skip, not an error.
	if len(summary.Errors) != 0 {
		t.Fatalf("unexpected errors: %+v", summary.Errors)
	}
	if summary.EntriesDeleted != 1 || summary.BytesFreed != 10 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestRun_OrphanScan(t *testing.T) {
	f := newFixture(t, nil)
	f.addAccount(t, "acc-1", 10, 1000)
	f.addFile(t, "e1", "acc-1", 10, f.now.Add(time.Hour))

	ctx := context.Background()

	// Unreferenced payload older than the grace period: orphan.
	if _, err := f.blobs.Save(ctx, "2026/3/9/orphan", strings.NewReader("stale")); err != nil {
		t.Fatalf("save orphan: %v", err)
	}
	old := f.now.Add(-time.Hour)
	if err := f.fs.Chtimes("2026/3/9/orphan", old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// Unreferenced but fresh: its metadata insert may still be in flight.
	if _, err := f.blobs.Save(ctx, "2026/3/10/fresh", strings.NewReader("uploading")); err != nil {
		t.Fatalf("save fresh: %v", err)
	}
	if err := f.fs.Chtimes("2026/3/10/fresh", f.now, f.now); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	// Referenced payloads need a timestamp past the grace period too, or
	// the orphan pass would skip rather than check them.
	if err := f.fs.Chtimes("2026/3/10/e1", old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	summary := f.sweeper.Run(ctx)

	if summary.OrphansDeleted != 1 {
		t.Fatalf("OrphansDeleted = %d, want 1", summary.OrphansDeleted)
	}
	if summary.OrphanBytesFreed != int64(len("stale")) {
		t.Fatalf("OrphanBytesFreed = %d", summary.OrphanBytesFreed)
	}

	if ok, _ := afero.Exists(f.fs, "2026/3/9/orphan"); ok {
		t.Fatalf("orphan payload still present")
	}
	if ok, _ := afero.Exists(f.fs, "2026/3/10/fresh"); !ok {
		t.Fatalf("fresh payload removed inside grace period")
	}
	if ok, _ := afero.Exists(f.fs, "2026/3/10/e1"); !ok {
		t.Fatalf("referenced payload removed")
	}
}

func TestRun_OrphanScanDisabled(t *testing.T) {
	f := newFixture(t, nil)
	f.sweeper.orphanScan = false

	ctx := context.Background()
	if _, err := f.blobs.Save(ctx, "2026/3/9/orphan", strings.NewReader("stale")); err != nil {
		t.Fatalf("save orphan: %v", err)
	}
	old := f.now.Add(-time.Hour)
	if err := f.fs.Chtimes("2026/3/9/orphan", old, old); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	summary := f.sweeper.Run(ctx)
	if summary.OrphansDeleted != 0 {
		t.Fatalf("OrphansDeleted = %d, want 0", summary.OrphansDeleted)
	}
	if ok, _ := afero.Exists(f.fs, "2026/3/9/orphan"); !ok {
		t.Fatalf("payload removed with orphan scan disabled")
	}
}

// failingContents makes Delete fail for one id while the rest proceed.
type failingContents struct {
	contents.Repository
	failID string
}

func (c *failingContents) Delete(ctx context.Context, id string) (*models.ContentEntry, error) {
	if id == c.failID {
		return nil, common.ErrorInternal
	}
	return c.Repository.Delete(ctx, id)
}

type failingManager struct {
	*inmemory.RepositoryManager
	contents *failingContents
}

func (m *failingManager) Contents(db dbx.DBTX) contents.Repository { return m.contents }

func TestRun_ToleratesPerEntryFailures(t *testing.T) {
	f := newFixture(t, nil)
	f.addAccount(t, "acc-1", 30, 1000)

	past := f.now.Add(-time.Minute)
	f.addFile(t, "e1", "acc-1", 10, past)
	f.addFile(t, "e2", "acc-1", 20, past)

	fm := &failingManager{
		RepositoryManager: f.repos,
		contents:          &failingContents{Repository: f.repos.Contents(nil), failID: "e1"},
	}
	f.sweeper.repos = fm
	f.sweeper.content = services.NewContentService(nil, fm, f.blobs, f.cfg, nopLogger{})

	summary := f.sweeper.Run(context.Background())

	if summary.EntriesDeleted != 1 || summary.BytesFreed != 20 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(summary.Errors) != 1 || summary.Errors[0].ContentID != "e1" {
		t.Fatalf("unexpected errors: %+v", summary.Errors)
	}
}

func TestRun_ReportsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewSweepMetrics(reg)

	f := newFixture(t, m)
	f.addAccount(t, "acc-1", 25, 1000)
	f.addFile(t, "e1", "acc-1", 25, f.now.Add(-time.Minute))

	f.sweeper.Run(context.Background())

	if got := testutil.ToFloat64(m.RunsTotal); got != 1 {
		t.Fatalf("RunsTotal = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.EntriesDeleted); got != 1 {
		t.Fatalf("EntriesDeleted = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.BytesFreed); got != 25 {
		t.Fatalf("BytesFreed = %v, want 25", got)
	}
	if got := testutil.ToFloat64(m.EntryErrors); got != 0 {
		t.Fatalf("EntryErrors = %v, want 0", got)
	}
}
