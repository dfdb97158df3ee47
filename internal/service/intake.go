package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/gateway"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
	"github.com/bnema/videofactory/internal/validation"
)

type SubmitRequest struct {
	Owner      string
	Filename   string
	SourcePath string
}

type IntakeConfig struct {
	// UploadDir receives inputs when remote storage is unavailable.
	UploadDir string
	Rules     validation.Rules
}

// Intake validates and stores new uploads and answers status queries.
type Intake struct {
	jobs    port.JobRepository
	storage *gateway.Gateway
	prober  port.Prober
	cfg     IntakeConfig
}

func NewIntake(jobs port.JobRepository, storage *gateway.Gateway, prober port.Prober, cfg IntakeConfig) *Intake {
	if storage == nil {
		storage = gateway.New(nil)
	}
	return &Intake{jobs: jobs, storage: storage, prober: prober, cfg: cfg}
}

// Submit registers an upload. The returned job is STORING with its input
// placed, or FAILED when validation or storage failed; the error is returned
// in the latter case alongside the persisted job.
func (s *Intake) Submit(ctx context.Context, req SubmitRequest) (*domain.Job, error) {
	name := validation.SanitizeFilename(req.Filename)
	job := domain.NewJob(req.Owner, name)
	if err := s.jobs.Save(job); err != nil {
		return nil, fmt.Errorf("save job: %w", err)
	}
	logger.Info.Printf("job %s submitted by %s: %s", job.ID, logger.SanitizeForLog(req.Owner), logger.SanitizeForLog(name))

	if err := s.advance(job, domain.StatusValidating); err != nil {
		return job, err
	}
	info, err := s.validate(ctx, req.SourcePath, name)
	if err != nil {
		return job, s.reject(job, "validate", err)
	}
	job.InputMetadata = info

	if err := s.advance(job, domain.StatusStoring); err != nil {
		return job, err
	}
	loc, err := s.store(ctx, job, req.SourcePath, name)
	if err != nil {
		return job, s.reject(job, "store", err)
	}
	job.SetInput(loc)
	if err := s.jobs.Save(job); err != nil {
		return job, fmt.Errorf("save job: %w", err)
	}
	return job, nil
}

func (s *Intake) advance(job *domain.Job, status domain.Status) error {
	if err := job.Advance(status); err != nil {
		return err
	}
	return s.jobs.Save(job)
}

func (s *Intake) validate(ctx context.Context, path, name string) (*domain.MediaInfo, error) {
	mime, size, err := s.cfg.Rules.CheckFile(path, name)
	if err != nil {
		return nil, err
	}
	logger.Debug.Printf("upload %s: %s, %d bytes", logger.SanitizeForLog(name), mime, size)

	if s.prober == nil {
		return nil, nil
	}
	info, err := s.prober.Probe(ctx, path)
	if err != nil {
		return nil, domain.Wrap(domain.ErrValidation, "validate", "file is not a readable video", err)
	}
	if err := s.cfg.Rules.CheckDuration(info.Duration); err != nil {
		return nil, err
	}
	return info, nil
}

func (s *Intake) store(ctx context.Context, job *domain.Job, src, name string) (domain.Location, error) {
	if s.storage.Available() {
		key := objectKey("uploads", job.Owner, job.ID+"_"+name)
		err := s.storage.Put(ctx, src, key)
		if err == nil {
			return domain.RemoteLocation(key), nil
		}
		logger.Warn.Printf("job %s: upload to storage failed, keeping input locally: %v", job.ID, err)
	}

	dst := filepath.Join(s.cfg.UploadDir, job.ID+"_"+name)
	if err := copyFile(src, dst); err != nil {
		return domain.Location{}, domain.Wrap(domain.ErrTransientStorage, "store", "copy input to "+s.cfg.UploadDir, err)
	}
	return domain.LocalLocation(dst), nil
}

// reject marks job failed. Untyped errors at intake are the upload's fault.
func (s *Intake) reject(job *domain.Job, stage string, err error) error {
	if domain.KindOf(err) == domain.ErrUnexpected {
		err = domain.Wrap(domain.ErrValidation, stage, "", err)
	}
	logger.Warn.Printf("job %s rejected: %v", job.ID, err)
	if aerr := job.Advance(domain.StatusFailed, domain.WithError(err.Error())); aerr != nil {
		logger.Error.Printf("job %s: mark failed: %v", job.ID, aerr)
	}
	if serr := s.jobs.Save(job); serr != nil {
		logger.Error.Printf("job %s: save failed job: %v", job.ID, serr)
	}
	return err
}

func (s *Intake) Get(id string) (*domain.Job, error) {
	return s.jobs.Get(id)
}

func (s *Intake) ListByOwner(owner string) ([]*domain.Job, error) {
	return s.jobs.ListByOwner(owner)
}

// StatusView is what a client polls while a job runs.
type StatusView struct {
	ID        string        `json:"id"`
	Status    domain.Status `json:"status"`
	Label     string        `json:"label"`
	Progress  int           `json:"progress"`
	Error     string        `json:"error,omitempty"`
	Completed bool          `json:"completed"`
}

func (s *Intake) Status(id string) (StatusView, error) {
	job, err := s.jobs.Get(id)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		ID:        job.ID,
		Status:    job.Status,
		Label:     job.Status.Label(),
		Progress:  job.Progress,
		Error:     job.Error,
		Completed: job.IsCompleted(),
	}, nil
}

// DownloadURL returns a presigned URL for remote outputs or the file path
// for local ones.
func (s *Intake) DownloadURL(ctx context.Context, job *domain.Job, ttl time.Duration) (string, error) {
	if !job.IsCompleted() {
		return "", domain.Wrap(domain.ErrValidation, "download", "job is not completed", nil)
	}
	if key, ok := job.Output.RemoteKey(); ok {
		return s.storage.PresignedURL(ctx, key, ttl)
	}
	if path, ok := job.Output.LocalPath(); ok {
		return path, nil
	}
	return "", domain.Wrap(domain.ErrUnexpected, "download", "completed job has no output", nil)
}
