package investigations

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/forensiq/internal/application"
	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
	"github.com/bryanwahyu/forensiq/internal/infra/db/memory"
	"github.com/bryanwahyu/forensiq/internal/infra/locker"
	"github.com/bryanwahyu/forensiq/internal/infra/parsers"
)

const historyCSV = "timestamp,url,downloaded_file\n" +
	"2024-01-15 14:31:00,https://evil.example/payload,payload.exe\n" +
	"2024-01-15 14:30:45,https://example.com,\n"

type fakeReporter struct {
	got []evidence.Event
	err error
}

func (f *fakeReporter) Report(ctx context.Context, events []evidence.Event) (string, error) {
	f.got = events
	if f.err != nil {
		return "", f.err
	}
	return "#### Analysis Phase 1 (Events 0-2)\nall good", nil
}

type fakeArchive struct {
	mu   sync.Mutex
	keys []string
}

func (a *fakeArchive) Upload(ctx context.Context, localPath, key string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.keys = append(a.keys, key)
	return "http://archive/" + key, nil
}

func (a *fakeArchive) UploadAndCleanup(ctx context.Context, localPath, key string) (string, error) {
	url, err := a.Upload(ctx, localPath, key)
	os.Remove(localPath)
	return url, err
}

func upload(name, content string) Upload {
	return Upload{
		Name: name,
		Size: int64(len(content)),
		Open: func() (io.ReadCloser, error) { return io.NopCloser(strings.NewReader(content)), nil },
	}
}

func newService(t *testing.T, rep Reporter) (*Service, string) {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Evidence")
	lk, err := locker.New(root, false, zerolog.Nop())
	require.NoError(t, err)
	repo, err := memory.NewInvestigationRepository(0)
	require.NoError(t, err)
	errs, err := memory.NewArtifactErrorRepository(0)
	require.NoError(t, err)
	return &Service{
		Repo:           repo,
		ArtifactErrors: errs,
		Locker:         lk,
		Parsers:        parsers.NewRouter(),
		Reporter:       rep,
		Clock:          application.FixedClock{T: time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)},
		Log:            zerolog.Nop(),
	}, root
}

func TestAnalyzeNoEvidence(t *testing.T) {
	svc, _ := newService(t, &fakeReporter{})

	_, err := svc.Analyze(context.Background(), AnalyzeCommand{})
	assert.ErrorIs(t, err, ErrNoEvidence)

	_, err = svc.Analyze(context.Background(), AnalyzeCommand{Files: []Upload{upload("  ", "x")}})
	assert.ErrorIs(t, err, ErrNoEvidence)
	assert.True(t, IsInputError(err))
}

func TestAnalyzeNoArtifacts(t *testing.T) {
	svc, _ := newService(t, &fakeReporter{})
	ctx := context.Background()

	res, err := svc.Analyze(ctx, AnalyzeCommand{Files: []Upload{upload("photo.png", "png")}})
	require.ErrorIs(t, err, ErrNoArtifacts)
	assert.Equal(t, "No valid artifacts detected.", err.Error())

	inv, err := svc.Get(ctx, domain.ID(res.ID))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, inv.Status)

	errs, err := svc.Errors(ctx, domain.ID(res.ID), 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "photo.png", errs[0].FileName)
	assert.Equal(t, "parse", errs[0].Phase)
}

func TestAnalyzeEmptyLogCountsAsUnprocessed(t *testing.T) {
	svc, _ := newService(t, &fakeReporter{})

	_, err := svc.Analyze(context.Background(), AnalyzeCommand{Files: []Upload{upload("auth.log", "nothing to see\n")}})
	assert.ErrorIs(t, err, ErrNoArtifacts)
}

func TestAnalyzeBuildsTimelineAndReport(t *testing.T) {
	rep := &fakeReporter{}
	svc, root := newService(t, rep)
	archive := &fakeArchive{}
	svc.Archive = archive
	ctx := context.Background()

	res, err := svc.Analyze(ctx, AnalyzeCommand{Files: []Upload{
		upload("../history.csv", historyCSV),
		upload("notes.docx", "ignored"),
	}})
	require.NoError(t, err)

	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 2, res.FilesTotal)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Timeline, 2)
	assert.Equal(t, "Visited URL: https://example.com", res.Timeline[0].Description)
	assert.Equal(t, rep.got, res.Timeline)
	assert.Contains(t, res.Report, "Analysis Phase 1")
	assert.Equal(t, "http://archive/"+res.ID+"/report.md", res.ArchiveURL)
	assert.ElementsMatch(t, []string{
		res.ID + "/evidence/history.csv",
		res.ID + "/timeline.json",
		res.ID + "/report.md",
	}, archive.keys)

	inv, err := svc.Get(ctx, domain.ID(res.ID))
	require.NoError(t, err)
	assert.Equal(t, 2, inv.EventCount)
	assert.Equal(t, 1, inv.FilesProcessed)

	errs, err := svc.Errors(ctx, domain.ID(res.ID), 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "notes.docx", errs[0].FileName)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries, "locker directory is released")

	latest, err := svc.Latest(ctx, 5)
	require.NoError(t, err)
	assert.Len(t, latest, 1)
}

func TestAnalyzeReporterFailure(t *testing.T) {
	svc, _ := newService(t, &fakeReporter{err: errors.New("boom")})

	_, err := svc.Analyze(context.Background(), AnalyzeCommand{Files: []Upload{upload("history.csv", historyCSV)}})
	require.Error(t, err)
	assert.False(t, IsInputError(err))
}

func TestAnalyzeSaveFailureIsRecorded(t *testing.T) {
	svc, _ := newService(t, &fakeReporter{})
	broken := Upload{Name: "auth.log", Open: func() (io.ReadCloser, error) { return nil, errors.New("stream closed") }}

	res, err := svc.Analyze(context.Background(), AnalyzeCommand{Files: []Upload{broken, upload("history.csv", historyCSV)}})
	require.NoError(t, err)

	errs, err := svc.Errors(context.Background(), domain.ID(res.ID), 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "save", errs[0].Phase)
	assert.Equal(t, "stream closed", errs[0].Message)
}

type partialParser struct{}

func (partialParser) Parse(ctx context.Context, name, path string) (evidence.Kind, []evidence.Event, error) {
	events := []evidence.Event{{Timestamp: "2024-01-15T14:30:45", Description: "Failed login attempt for user: root", Source: evidence.SourceAuthLog}}
	return evidence.KindAuthLog, events, errors.New("read auth log: unexpected EOF")
}

func TestAnalyzeKeepsEventsFromPartialParse(t *testing.T) {
	rep := &fakeReporter{}
	svc, _ := newService(t, rep)
	svc.Parsers = partialParser{}
	ctx := context.Background()

	res, err := svc.Analyze(ctx, AnalyzeCommand{Files: []Upload{upload("auth.log", "truncated")}})
	require.NoError(t, err)
	assert.Equal(t, "success", res.Status)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Timeline, 1)
	assert.Len(t, rep.got, 1)

	errs, err := svc.Errors(ctx, domain.ID(res.ID), 10)
	require.NoError(t, err)
	require.Len(t, errs, 1)
	assert.Equal(t, "parse", errs[0].Phase)
	assert.Equal(t, "read auth log: unexpected EOF", errs[0].Message)
}
