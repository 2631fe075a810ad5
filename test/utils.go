package test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"tryonapi/dbhelper"
	"tryonapi/models"

	"github.com/hibiken/asynq"
)

func JsonString(model interface{}) string {
	bytes, _ := json.Marshal(model)
	return string(bytes)
}

func NewJSONRequest(method string, target string, param interface{}) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(JsonString(param)))
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	return req
}

func NewRefString(data string) *string {
	return &data
}

// PNGBytes sniffs as image/png.
var PNGBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRtest")

// MemoryJobStore is an in-memory dbhelper.JobStore.
type MemoryJobStore struct {
	mu     sync.Mutex
	jobs   map[uint]models.TryOnJob
	nextID uint
	Saves  int
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: map[uint]models.TryOnJob{}}
}

func (s *MemoryJobStore) Create(ctx context.Context, job *models.TryOnJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	job.ID = s.nextID
	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt
	s.jobs[job.ID] = *job
	return nil
}

func (s *MemoryJobStore) Get(ctx context.Context, id uint) (*models.TryOnJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, dbhelper.ErrJobNotFound
	}
	return &job, nil
}

func (s *MemoryJobStore) Save(ctx context.Context, job *models.TryOnJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; !ok {
		return dbhelper.ErrJobNotFound
	}
	job.UpdatedAt = time.Now()
	s.jobs[job.ID] = *job
	s.Saves++
	return nil
}

// StorageMock records uploads by presigned URL.
type StorageMock struct {
	mu         sync.Mutex
	Uploaded   map[string][]byte
	FailUpload bool
}

func NewStorageMock() *StorageMock {
	return &StorageMock{Uploaded: map[string][]byte{}}
}

func (s *StorageMock) PresignLink(ctx context.Context, bucketName string, fileName string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s/%s", bucketName, fileName), nil
}

func (s *StorageMock) GetPresignedR2FileReadURL(ctx context.Context, bucketName, fileKey string) (string, error) {
	return fmt.Sprintf("https://fakebucketurl.com/%s/%s?read=1", bucketName, fileKey), nil
}

func (s *StorageMock) UploadToPresignedURL(ctx context.Context, url string, fileContent []byte) (int, error) {
	if s.FailUpload {
		return http.StatusForbidden, errors.New("upload rejected")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Uploaded[url] = fileContent
	return http.StatusOK, nil
}

type URLCacheMock struct{}

func (m *URLCacheMock) GetReadURL(ctx context.Context, objectKey string) (string, error) {
	if objectKey == "" {
		return "", nil
	}
	return "https://cdn.example.com/" + objectKey, nil
}

// EnqueuerMock collects tasks instead of sending them to redis.
type EnqueuerMock struct {
	mu    sync.Mutex
	Tasks []*asynq.Task
	Err   error
}

func (m *EnqueuerMock) Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tasks = append(m.Tasks, task)
	return &asynq.TaskInfo{ID: fmt.Sprintf("task-%d", len(m.Tasks)), Queue: "generate", Type: task.Type()}, nil
}

// GeneratorMock returns a fixed outcome. When Release is set every call
// blocks until it is closed, after signalling on Started.
type GeneratorMock struct {
	mu       sync.Mutex
	Outcome  models.GenerationOutcome
	Requests []models.TryOnRequest
	Started  chan struct{}
	Release  chan struct{}
}

func (m *GeneratorMock) GenerateTryOn(ctx context.Context, req models.TryOnRequest) models.GenerationOutcome {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.Release != nil {
		if m.Started != nil {
			m.Started <- struct{}{}
		}
		<-m.Release
	}
	return m.Outcome
}

func (m *GeneratorMock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

type AdvisorMock struct {
	Recommendation models.StyleRecommendation
	Garments       []models.ImageReference
}

func (m *AdvisorMock) GetRecommendations(ctx context.Context, garment models.ImageReference) models.StyleRecommendation {
	m.Garments = append(m.Garments, garment)
	return m.Recommendation
}

// SuccessOutcome is a typical two-step result with a swapped face.
func SuccessOutcome(image models.ImageReference) models.GenerationOutcome {
	return models.SuccessOutcome(image, []models.ProviderAttempt{
		{ProviderID: "gemini", Model: "gemini-2.0-flash-exp-image-generation", Outcome: models.AttemptSucceeded, LatencyMs: 1200},
		{ProviderID: "replicate", Model: "roop", Outcome: models.AttemptSucceeded, LatencyMs: 800},
	}, nil)
}
