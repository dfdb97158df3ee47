package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/videofactory/internal/analysis"
	"github.com/bnema/videofactory/internal/composition"
	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/gateway"
	"github.com/bnema/videofactory/internal/infrastructure/lock"
	"github.com/bnema/videofactory/internal/infrastructure/logger"
	"github.com/bnema/videofactory/internal/port"
	"github.com/bnema/videofactory/internal/validation"
)

// Artifact names inside a job's working directory.
const (
	audioArtifact      = "audio.wav"
	SubtitlesArtifact  = "subtitles.srt"
	highlightsArtifact = "highlights.json"
	planArtifact       = "plan.json"
)

type PipelineDeps struct {
	Jobs        port.JobRepository
	Storage     *gateway.Gateway
	Editor      port.Editor
	Audio       port.AudioExtractor
	Prober      port.Prober
	Transcriber port.Transcriber
	Detector    *analysis.Detector
	Planner     port.CompositionPlanner
	Renderer    port.Renderer
}

type PipelineConfig struct {
	// TempDir holds the per-job working directories.
	TempDir string
	// LockDir holds the per-job lease files. It must not be swept by age:
	// a lease file removed while held lets a second controller in. Defaults
	// to a "locks" directory beside TempDir.
	LockDir string
	// OutputDir receives outputs when remote storage is unavailable.
	OutputDir string
}

type Pipeline struct {
	deps PipelineDeps
	cfg  PipelineConfig
}

func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if deps.Storage == nil {
		deps.Storage = gateway.New(nil)
	}
	if deps.Detector == nil {
		deps.Detector = analysis.NewDetector(nil)
	}
	if cfg.LockDir == "" {
		cfg.LockDir = filepath.Join(filepath.Dir(filepath.Clean(cfg.TempDir)), "locks")
	}
	return &Pipeline{deps: deps, cfg: cfg}
}

// WorkDir returns the deterministic working directory of a job.
func (p *Pipeline) WorkDir(jobID string) string {
	return filepath.Join(p.cfg.TempDir, "job_"+jobID)
}

// ProcessByID loads the job and processes it.
func (p *Pipeline) ProcessByID(ctx context.Context, id string, observer ProgressFunc) error {
	job, err := p.deps.Jobs.Get(id)
	if err != nil {
		return err
	}
	return p.Process(ctx, job, observer)
}

// Process drives job to COMPLETED or FAILED. Stages whose artifact already
// exists are skipped, so a failed job can be processed again and resumes
// where it stopped. Every failure is recorded on the job before it is
// returned; Process never panics.
func (p *Pipeline) Process(ctx context.Context, job *domain.Job, observer ProgressFunc) (err error) {
	lease, err := lock.Acquire(p.cfg.LockDir, job.ID)
	if err != nil {
		return err
	}
	defer func() {
		if rerr := lease.Release(); rerr != nil {
			logger.Warn.Printf("job %s: release lock: %v", job.ID, rerr)
		}
	}()

	if job.IsCompleted() {
		logger.Info.Printf("job %s already completed", job.ID)
		return nil
	}

	r := &run{
		p:        p,
		job:      job,
		observer: observer,
		workDir:  p.WorkDir(job.ID),
		name:     validation.SanitizeFilename(job.OriginalName),
	}
	defer func() {
		if rec := recover(); rec != nil {
			err = r.fail(fmt.Errorf("panic: %v", rec))
		}
	}()

	if job.Status == domain.StatusFailed {
		if err := job.Reopen(); err != nil {
			return err
		}
		logger.Info.Printf("job %s reopened at %s", job.ID, job.Status)
	}

	if err := r.execute(ctx); err != nil {
		return r.fail(err)
	}
	return nil
}

// run carries the state of one Process call.
type run struct {
	p        *Pipeline
	job      *domain.Job
	observer ProgressFunc
	workDir  string
	name     string
	stage    string

	segments   []domain.Segment
	highlights []domain.Highlight
	media      *domain.MediaInfo
}

func (r *run) path(name string) string {
	return filepath.Join(r.workDir, name)
}

func (r *run) execute(ctx context.Context) error {
	if err := os.MkdirAll(r.workDir, 0o755); err != nil {
		return domain.Wrap(domain.ErrUnexpected, "prepare", "create working directory", err)
	}

	inputPath := r.path("input_" + r.name)
	editedPath := r.path("edited_" + r.name)
	audioPath := r.path(audioArtifact)
	srtPath := r.path(SubtitlesArtifact)
	highlightsPath := r.path(highlightsArtifact)
	planPath := r.path(planArtifact)
	finalPath := r.path("final_" + r.job.ID + ".mp4")

	steps := []struct {
		stage    string
		status   domain.Status
		progress int
		message  string
		fn       func(context.Context) error
	}{
		{"acquire", r.job.Status, 10, "Downloading input file...", func(ctx context.Context) error {
			return r.acquire(ctx, inputPath)
		}},
		{"edit", domain.StatusEditing, 20, "Removing silent segments...", func(ctx context.Context) error {
			return r.produce(editedPath, func(out string) error { return r.p.deps.Editor.Edit(ctx, inputPath, out) })
		}},
		{"extract audio", domain.StatusTranscribing, 40, "Extracting audio...", func(ctx context.Context) error {
			return r.produce(audioPath, func(out string) error { return r.p.deps.Audio.ExtractAudio(ctx, editedPath, out) })
		}},
		{"transcribe", domain.StatusTranscribing, 50, "Transcribing audio...", func(ctx context.Context) error {
			return r.transcribe(ctx, audioPath, srtPath)
		}},
		{"analyze", domain.StatusAnalyzing, 60, "Analyzing content...", func(ctx context.Context) error {
			return r.analyze(ctx, editedPath, highlightsPath)
		}},
		{"plan", domain.StatusAnalyzing, 70, "Generating composition plan...", func(ctx context.Context) error {
			return r.plan(ctx, editedPath, planPath)
		}},
		{"render", domain.StatusRendering, 80, "Rendering video...", func(ctx context.Context) error {
			return r.produce(finalPath, func(out string) error { return r.p.deps.Renderer.Render(ctx, planPath, editedPath, out) })
		}},
		{"probe output", domain.StatusRendering, 90, "Collecting video metadata...", func(ctx context.Context) error {
			r.job.OutputMetadata = r.probe(ctx, finalPath)
			return nil
		}},
		{"place output", domain.StatusRendering, 95, "Uploading processed video...", func(ctx context.Context) error {
			return r.place(ctx, finalPath)
		}},
	}

	for _, step := range steps {
		r.stage = step.stage
		if err := r.checkpoint(step.status, step.progress, step.message); err != nil {
			return err
		}
		if err := step.fn(ctx); err != nil {
			return err
		}
	}

	r.stage = "complete"
	if err := r.checkpoint(domain.StatusCompleted, 100, "Processing completed!"); err != nil {
		return err
	}
	logger.Info.Printf("job %s completed, output %s", r.job.ID, r.job.Output)

	if err := os.RemoveAll(r.workDir); err != nil {
		logger.Warn.Printf("job %s: remove working directory: %v", r.job.ID, err)
	}
	return nil
}

// checkpoint records the stage about to run. A job resumed past status
// keeps its later status; progress never goes backwards.
func (r *run) checkpoint(status domain.Status, progress int, message string) error {
	if status != r.job.Status && !r.job.Status.CanAdvanceTo(status) {
		status = r.job.Status
	}
	if err := r.job.Advance(status, domain.WithProgress(progress)); err != nil {
		return err
	}
	if err := r.p.deps.Jobs.Save(r.job); err != nil {
		return domain.Wrap(domain.ErrUnexpected, r.stage, "save job", err)
	}
	r.notify(message, r.job.Progress)
	return nil
}

func (r *run) notify(message string, progress int) {
	if r.observer == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			logger.Warn.Printf("job %s: progress observer panicked: %v", r.job.ID, rec)
		}
	}()
	r.observer(message, progress)
}

// fail records err on the job and returns it classified.
func (r *run) fail(err error) error {
	err = domain.Classify(r.stage, err)
	if errors.Is(err, domain.ErrUnexpected) {
		logger.Error.Printf("job %s: unexpected failure in %s: %v", r.job.ID, r.stage, err)
	} else {
		logger.Error.Printf("job %s failed in %s: %v", r.job.ID, r.stage, err)
	}

	msg := err.Error()
	if aerr := r.job.Advance(domain.StatusFailed, domain.WithError(msg)); aerr != nil {
		logger.Error.Printf("job %s: mark failed: %v", r.job.ID, aerr)
	}
	if serr := r.p.deps.Jobs.Save(r.job); serr != nil {
		logger.Error.Printf("job %s: save failed job: %v", r.job.ID, serr)
	}
	r.notify("Processing failed: "+msg, r.job.Progress)
	return err
}

// produce runs fn unless the artifact at path already exists. fn writes to
// a scratch path that replaces path only after fn succeeded; a failed stage
// leaves no artifact.
func (r *run) produce(path string, fn func(out string) error) error {
	if artifactReady(path) {
		logger.Info.Printf("job %s: %s done, reusing %s", r.job.ID, r.stage, filepath.Base(path))
		return nil
	}
	part := partPath(path)
	_ = os.Remove(part)
	if err := fn(part); err != nil {
		discard(part)
		return err
	}
	if !artifactReady(part) {
		discard(part)
		return domain.Wrap(domain.ErrStageExecution, r.stage, "no output written to "+filepath.Base(path), nil)
	}
	if err := os.Rename(part, path); err != nil {
		discard(part)
		return domain.Wrap(domain.ErrUnexpected, r.stage, "finish "+filepath.Base(path), err)
	}
	return nil
}

func (r *run) acquire(ctx context.Context, inputPath string) error {
	err := r.produce(inputPath, func(out string) error {
		if key, ok := r.job.Input.RemoteKey(); ok {
			return storageError("acquire", r.p.deps.Storage.Get(ctx, key, out))
		}
		if src, ok := r.job.Input.LocalPath(); ok {
			if err := copyFile(src, out); err != nil {
				return domain.Wrap(domain.ErrValidation, "acquire", "read local input", err)
			}
			return nil
		}
		return domain.Wrap(domain.ErrValidation, "acquire", "job has no input location", nil)
	})
	if err != nil {
		return err
	}
	if r.job.InputMetadata == nil {
		r.job.InputMetadata = r.probe(ctx, inputPath)
	}
	return nil
}

// probe is best effort: metadata is informational.
func (r *run) probe(ctx context.Context, path string) *domain.MediaInfo {
	if r.p.deps.Prober == nil {
		return nil
	}
	info, err := r.p.deps.Prober.Probe(ctx, path)
	if err != nil {
		logger.Warn.Printf("job %s: probe %s: %v", r.job.ID, filepath.Base(path), err)
		return nil
	}
	return info
}

// reusable reports whether a stored document artifact can be loaded with
// load. An unreadable one is deleted so its stage runs again.
func (r *run) reusable(path string, load func() error) bool {
	if !fileExists(path) {
		return false
	}
	if err := load(); err != nil {
		logger.Warn.Printf("job %s: %s unreadable, running %s again: %v", r.job.ID, filepath.Base(path), r.stage, err)
		discard(path)
		return false
	}
	logger.Info.Printf("job %s: %s done, reusing %s", r.job.ID, r.stage, filepath.Base(path))
	return true
}

// transcribe keeps the subtitles file as the resume marker. A silent video
// yields an empty but present file.
func (r *run) transcribe(ctx context.Context, audioPath, srtPath string) error {
	if r.reusable(srtPath, func() error {
		segments, err := readSubtitles(srtPath)
		if err != nil {
			return err
		}
		r.segments = segments
		return nil
	}) {
		return nil
	}

	part := partPath(srtPath)
	_ = os.Remove(part)
	segments, err := r.p.deps.Transcriber.Transcribe(ctx, audioPath, part)
	if err != nil {
		discard(part)
		return err
	}
	r.segments = segments
	// Rewritten from the returned cues: the transcriber may not have written
	// the file at all.
	if err := writeSubtitles(part, segments); err != nil {
		discard(part)
		return domain.Wrap(domain.ErrUnexpected, r.stage, "write subtitles", err)
	}
	if err := os.Rename(part, srtPath); err != nil {
		discard(part)
		return domain.Wrap(domain.ErrUnexpected, r.stage, "write subtitles", err)
	}
	return nil
}

func (r *run) analyze(ctx context.Context, editedPath, highlightsPath string) error {
	if r.reusable(highlightsPath, func() error { return readJSON(highlightsPath, &r.highlights) }) {
		return nil
	}

	r.media = r.probe(ctx, editedPath)
	total := domain.TranscriptDuration(r.segments)
	if r.media != nil && r.media.Duration > 0 {
		total = r.media.Duration
	}

	res := r.p.deps.Detector.Detect(ctx, r.segments, total)
	if res.Rejected != nil {
		logger.Warn.Printf("job %s: model highlights rejected: %v", r.job.ID, res.Rejected)
	}
	logger.Info.Printf("job %s: %d highlights from %s", r.job.ID, len(res.Highlights), res.Source)
	r.highlights = res.Highlights

	if err := writeJSON(highlightsPath, r.highlights); err != nil {
		return domain.Wrap(domain.ErrUnexpected, r.stage, "write highlights", err)
	}
	return nil
}

func (r *run) plan(ctx context.Context, editedPath, planPath string) error {
	if r.reusable(planPath, func() error {
		_, err := composition.ReadFile(planPath)
		return err
	}) {
		return nil
	}

	if r.media == nil {
		r.media = r.probe(ctx, editedPath)
	}
	plan, err := r.p.deps.Planner.Plan(ctx, port.PlanRequest{
		MediaPath:  editedPath,
		Media:      r.media,
		Segments:   r.segments,
		Highlights: r.highlights,
	})
	if err != nil {
		return err
	}
	if err := composition.Validate(plan); err != nil {
		return err
	}
	if err := composition.WriteFile(planPath, plan); err != nil {
		return domain.Wrap(domain.ErrUnexpected, r.stage, "write plan", err)
	}
	return nil
}

// place uploads the output, falling back to the local output directory on
// any remote failure. Exactly one placement is recorded.
func (r *run) place(ctx context.Context, finalPath string) error {
	storage := r.p.deps.Storage
	if storage.Available() {
		key := objectKey("outputs", r.job.Owner, r.job.ID+"_processed_"+r.name)
		err := storage.Put(ctx, finalPath, key)
		if err == nil {
			r.job.SetOutput(domain.RemoteLocation(key))
			return nil
		}
		logger.Warn.Printf("job %s: upload failed, keeping output locally: %v", r.job.ID, err)
	}

	dst := filepath.Join(r.p.cfg.OutputDir, r.job.ID+"_processed_"+r.name)
	if err := copyFile(finalPath, dst); err != nil {
		return domain.Wrap(domain.ErrUnexpected, r.stage, "copy output to "+r.p.cfg.OutputDir, err)
	}
	r.job.SetOutput(domain.LocalLocation(dst))
	return nil
}

// storageError gives gateway errors that carry no failure kind one: a
// missing object is a validation problem, anything else is storage.
func storageError(stage string, err error) error {
	switch {
	case err == nil:
		return nil
	case domain.KindOf(err) != domain.ErrUnexpected:
		return err
	case errors.Is(err, domain.ErrObjectNotFound):
		return domain.Wrap(domain.ErrValidation, stage, "input object is missing", err)
	default:
		return domain.Wrap(domain.ErrTransientStorage, stage, "", err)
	}
}
