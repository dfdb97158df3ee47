package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bnema/videofactory/internal/domain"
	"github.com/bnema/videofactory/internal/gateway"
	"github.com/bnema/videofactory/internal/port"
	"github.com/bnema/videofactory/internal/subtitle"
)

type memRepo struct {
	mu    sync.Mutex
	jobs  map[string]*domain.Job
	saves []domain.Status
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: make(map[string]*domain.Job)}
}

func (r *memRepo) Save(job *domain.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job.Clone()
	r.saves = append(r.saves, job.Status)
	return nil
}

func (r *memRepo) Get(id string) (*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return j.Clone(), nil
}

func (r *memRepo) ListByOwner(owner string) ([]*domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var list []*domain.Job
	for _, j := range r.jobs {
		if j.Owner == owner {
			list = append(list, j.Clone())
		}
	}
	sort.Slice(list, func(a, b int) bool { return list[a].CreatedAt.After(list[b].CreatedAt) })
	return list, nil
}

func (r *memRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.saves)
}

type memObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
	puts    int
}

func newMemObjectStore() *memObjectStore {
	return &memObjectStore{objects: make(map[string][]byte)}
}

func (s *memObjectStore) PutObject(_ context.Context, localPath, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return err
	}
	s.objects[key] = data
	return nil
}

func (s *memObjectStore) GetObject(_ context.Context, key, localPath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return domain.ErrObjectNotFound
	}
	return os.WriteFile(localPath, data, 0o644)
}

func (s *memObjectStore) DeleteObject(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

func (s *memObjectStore) PresignGet(_ context.Context, key string, ttl time.Duration) (string, error) {
	return "https://storage.example.test/" + key + "?expires=" + ttl.String(), nil
}

func (s *memObjectStore) StatObject(_ context.Context, key string) (domain.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[key]
	if !ok {
		return domain.ObjectInfo{}, domain.ErrObjectNotFound
	}
	return domain.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (s *memObjectStore) ListObjects(_ context.Context, prefix string) ([]domain.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ObjectInfo
	for k, v := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, domain.ObjectInfo{Key: k, Size: int64(len(v))})
		}
	}
	return out, nil
}

func (s *memObjectStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok
}

func newGateway(store port.ObjectStore) *gateway.Gateway {
	return gateway.New(store, gateway.WithRetryPolicy(gateway.RetryPolicy{
		MaxAttempts: 2,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		Sleep:       func(time.Duration) {},
	}))
}

// stages is a set of fake adapters counting their invocations.
type stages struct {
	mu    sync.Mutex
	calls map[string]int

	renderErr   error
	renderPanic bool
	// renderCut and transcribeCut make the stage write a truncated
	// artifact before failing.
	renderCut     bool
	transcribeCut bool
	silent        bool
}

func newStages() *stages {
	return &stages{calls: make(map[string]int)}
}

func (s *stages) count(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[name]++
}

func (s *stages) called(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

var testSegments = []domain.Segment{
	{Start: 0, End: 3, Text: "Hi everyone."},
	{Start: 3, End: 7.5, Text: "Today we cover the pipeline."},
	{Start: 7.5, End: 12, Text: "Thanks for watching."},
}

func (s *stages) Edit(_ context.Context, in, out string) error {
	s.count("edit")
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}
	return os.WriteFile(out, append([]byte("edited:"), data...), 0o644)
}

func (s *stages) ExtractAudio(_ context.Context, _, audio string) error {
	s.count("audio")
	return os.WriteFile(audio, []byte("RIFF"), 0o644)
}

func (s *stages) Probe(_ context.Context, path string) (*domain.MediaInfo, error) {
	s.count("probe")
	return &domain.MediaInfo{Duration: 12.5, Size: 2048, Width: 1920, Height: 1080, FPS: 30, Codec: "h264"}, nil
}

func (s *stages) Transcribe(_ context.Context, _, srtPath string) ([]domain.Segment, error) {
	s.count("transcribe")
	if s.transcribeCut {
		_ = os.WriteFile(srtPath, []byte("1\n00:00:00,000 --> 00:0"), 0o644)
		return nil, errors.New("whisper killed")
	}
	f, err := os.Create(srtPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if s.silent {
		return nil, nil
	}
	return testSegments, subtitle.Write(f, testSegments)
}

func (s *stages) Analyze(_ context.Context, _ []domain.Segment) (json.RawMessage, error) {
	s.count("analyze")
	return json.RawMessage(`[{"type":"key_point","start_time":3,"end_time":7,"importance":0.8,"text":"The pipeline"}]`), nil
}

func (s *stages) Render(_ context.Context, planPath, mediaPath, out string) error {
	s.count("render")
	if s.renderPanic {
		panic("renderer crashed")
	}
	if s.renderErr != nil {
		return s.renderErr
	}
	if s.renderCut {
		_ = os.WriteFile(out, []byte("trunc"), 0o644)
		return errors.New("remotion killed")
	}
	if _, err := os.Stat(planPath); err != nil {
		return errors.New("plan missing")
	}
	return os.WriteFile(out, []byte("final video"), 0o644)
}

type observed struct {
	mu       sync.Mutex
	messages []string
	progress []int
}

func (o *observed) observe(message string, progress int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, message)
	o.progress = append(o.progress, progress)
}
