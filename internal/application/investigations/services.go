package investigations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bryanwahyu/forensiq/internal/application"
	"github.com/bryanwahyu/forensiq/internal/domain/artifacterrors"
	"github.com/bryanwahyu/forensiq/internal/domain/evidence"
	domain "github.com/bryanwahyu/forensiq/internal/domain/investigation"
	"github.com/bryanwahyu/forensiq/internal/domain/timeline"
)

// Input errors. Their messages are shown to the uploader verbatim.
var (
	ErrNoEvidence  = errors.New("No evidence files received.")
	ErrNoArtifacts = errors.New("No valid artifacts detected.")
	ErrNoEvents    = errors.New("No forensic events found in files.")
)

// IsInputError reports whether err was caused by the submitted files rather
// than by the system.
func IsInputError(err error) bool {
	return errors.Is(err, ErrNoEvidence) || errors.Is(err, ErrNoArtifacts) || errors.Is(err, ErrNoEvents)
}

// Parser routes a stored artifact to the parser for its kind.
type Parser interface {
	Parse(ctx context.Context, name, path string) (evidence.Kind, []evidence.Event, error)
}

// Reporter writes the narrative report for a timeline.
type Reporter interface {
	Report(ctx context.Context, events []evidence.Event) (string, error)
}

// Service implements the investigation use-cases. It is safe for concurrent
// use: every investigation works in its own locker directory.
type Service struct {
	Repo           domain.Repository
	ArtifactErrors artifacterrors.Repository
	Locker         domain.Locker
	Archive        domain.ArchiveStore // optional
	Parsers        Parser
	Reporter       Reporter
	Clock          application.Clock
	Log            zerolog.Logger
}

// Upload is one evidence file as received from the client.
type Upload struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

type AnalyzeCommand struct {
	Files []Upload
}

type AnalyzeResult struct {
	ID         string           `json:"id"`
	Status     string           `json:"status"`
	Report     string           `json:"report"`
	Timeline   []evidence.Event `json:"timeline"`
	ArchiveURL string           `json:"archive_url,omitempty"`
	FilesTotal int              `json:"-"`
	Processed  int              `json:"-"`
}

type stored struct {
	name string
	path string
}

// Analyze stores the uploads, parses them into one timeline and summarizes
// it. Investigations that fail on their input are still persisted together
// with their artifact errors.
func (s *Service) Analyze(ctx context.Context, cmd AnalyzeCommand) (AnalyzeResult, error) {
	files := make([]Upload, 0, len(cmd.Files))
	for _, f := range cmd.Files {
		if strings.TrimSpace(f.Name) != "" && f.Open != nil {
			files = append(files, f)
		}
	}
	if len(files) == 0 {
		return AnalyzeResult{}, ErrNoEvidence
	}

	start := s.Clock.Now()
	id := domain.ID(uuid.New().String())
	log := s.Log.With().Str("investigation", string(id)).Logger()
	log.Info().Int("files", len(files)).Msg("investigation started")

	dir, err := s.Locker.Open(id)
	if err != nil {
		return AnalyzeResult{ID: string(id), Status: string(domain.StatusFailed)}, fmt.Errorf("open locker: %w", err)
	}
	defer func() {
		if rerr := s.Locker.Release(dir); rerr != nil {
			log.Warn().Err(rerr).Msg("release locker")
		}
	}()

	var artErrs []*artifacterrors.ArtifactError
	record := func(name, parser, phase, msg string) {
		log.Warn().Str("file", name).Str("phase", phase).Msg(msg)
		artErrs = append(artErrs, &artifacterrors.ArtifactError{
			InvestigationID: string(id),
			FileName:        name,
			Parser:          parser,
			Phase:           phase,
			Message:         msg,
		})
	}

	saved := make([]stored, 0, len(files))
	for _, f := range files {
		path, err := s.save(dir, f)
		if err != nil {
			record(f.Name, "", "save", err.Error())
			continue
		}
		saved = append(saved, stored{name: filepath.Base(path), path: path})
	}

	var events []evidence.Event
	processed := 0
	for _, f := range saved {
		if err := ctx.Err(); err != nil {
			return AnalyzeResult{ID: string(id), Status: string(domain.StatusFailed)}, err
		}
		kind, evs, err := s.Parsers.Parse(ctx, f.name, f.path)
		switch {
		case kind == evidence.KindUnsupported:
			record(f.name, string(kind), "parse", "unsupported file type")
		case err != nil && len(evs) == 0:
			record(f.name, string(kind), "parse", err.Error())
		case len(evs) == 0:
			record(f.name, string(kind), "empty", "no events extracted")
		default:
			if err != nil {
				// partial read: keep what was extracted
				record(f.name, string(kind), "parse", err.Error())
			}
			processed++
			events = append(events, evs...)
			log.Debug().Str("file", f.name).Str("parser", string(kind)).Int("events", len(evs)).Msg("artifact parsed")
		}
	}

	inv := &domain.Investigation{
		ID:             id,
		CreatedAt:      start,
		Status:         domain.StatusFailed,
		FilesReceived:  len(files),
		FilesProcessed: processed,
		EventCount:     len(events),
	}

	var inputErr error
	switch {
	case processed == 0:
		inputErr = ErrNoArtifacts
	case len(events) == 0:
		inputErr = ErrNoEvents
	}
	if inputErr != nil {
		inv.DurationMS = s.Clock.Now().Sub(start).Milliseconds()
		s.persist(ctx, inv, artErrs)
		return AnalyzeResult{ID: string(id), Status: string(inv.Status), FilesTotal: len(files)}, inputErr
	}

	tl := timeline.Build(events)
	report, err := s.Reporter.Report(ctx, tl)
	if err != nil {
		return AnalyzeResult{ID: string(id), Status: string(domain.StatusFailed)}, fmt.Errorf("generate report: %w", err)
	}

	inv.Status = domain.StatusSuccess
	inv.Report = report
	inv.Timeline = tl
	inv.ArchiveURL = s.archive(ctx, log, id, dir, saved, report, tl)
	inv.DurationMS = s.Clock.Now().Sub(start).Milliseconds()

	if err := s.Repo.Save(ctx, inv); err != nil {
		return AnalyzeResult{ID: string(id), Status: string(inv.Status)}, fmt.Errorf("save investigation: %w", err)
	}
	s.saveErrors(ctx, artErrs)

	log.Info().Int("processed", processed).Int("events", len(tl)).Int64("duration_ms", inv.DurationMS).Msg("investigation finished")
	return AnalyzeResult{
		ID:         string(id),
		Status:     string(inv.Status),
		Report:     report,
		Timeline:   tl,
		ArchiveURL: inv.ArchiveURL,
		FilesTotal: len(files),
		Processed:  processed,
	}, nil
}

func (s *Service) save(dir string, f Upload) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return s.Locker.Save(dir, f.Name, rc)
}

// archive copies evidence, report and timeline to the archive store and
// returns the report URL. Failures are logged; the investigation still
// succeeds.
func (s *Service) archive(ctx context.Context, log zerolog.Logger, id domain.ID, dir string, files []stored, report string, tl []evidence.Event) string {
	if s.Archive == nil {
		return ""
	}
	for _, f := range files {
		key := fmt.Sprintf("%s/evidence/%s", id, f.name)
		if _, err := s.Archive.Upload(ctx, f.path, key); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("archive evidence")
		}
	}

	if data, err := json.MarshalIndent(tl, "", "  "); err == nil {
		path := filepath.Join(dir, "timeline.json")
		if err := os.WriteFile(path, data, 0o644); err == nil {
			if _, err := s.Archive.UploadAndCleanup(ctx, path, fmt.Sprintf("%s/timeline.json", id)); err != nil {
				log.Warn().Err(err).Msg("archive timeline")
			}
		}
	}

	path := filepath.Join(dir, "report.md")
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		log.Warn().Err(err).Msg("write report")
		return ""
	}
	url, err := s.Archive.UploadAndCleanup(ctx, path, fmt.Sprintf("%s/report.md", id))
	if err != nil {
		log.Warn().Err(err).Msg("archive report")
		return ""
	}
	return url
}

func (s *Service) persist(ctx context.Context, inv *domain.Investigation, errs []*artifacterrors.ArtifactError) {
	if err := s.Repo.Save(ctx, inv); err != nil {
		s.Log.Error().Err(err).Str("investigation", string(inv.ID)).Msg("save failed investigation")
	}
	s.saveErrors(ctx, errs)
}

func (s *Service) saveErrors(ctx context.Context, errs []*artifacterrors.ArtifactError) {
	if s.ArtifactErrors == nil {
		return
	}
	for _, e := range errs {
		if err := s.ArtifactErrors.Save(ctx, e); err != nil {
			s.Log.Error().Err(err).Str("file", e.FileName).Msg("save artifact error")
		}
	}
}

// Latest returns the most recent investigations.
func (s *Service) Latest(ctx context.Context, limit int) ([]*domain.Investigation, error) {
	return s.Repo.Latest(ctx, limit)
}

func (s *Service) Get(ctx context.Context, id domain.ID) (*domain.Investigation, error) {
	return s.Repo.Get(ctx, id)
}

// Errors lists the artifact errors recorded for an investigation.
func (s *Service) Errors(ctx context.Context, id domain.ID, limit int) ([]*artifacterrors.ArtifactError, error) {
	if s.ArtifactErrors == nil {
		return []*artifacterrors.ArtifactError{}, nil
	}
	return s.ArtifactErrors.ListByInvestigation(ctx, string(id), limit)
}
