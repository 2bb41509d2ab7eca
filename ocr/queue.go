package ocr

import (
	"context"
	"sync"
	"time"

	"bitbucket.org/mmdatafocus/invoiceocr_backend/config"
	"bitbucket.org/mmdatafocus/invoiceocr_backend/utils"
	"github.com/google/uuid"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
	StatusNotFound   Status = "not_found"
)

// DocumentStatus is the pollable state of one queued document. Result
// and RawPayload are set only in the completed state.
type DocumentStatus struct {
	Id          string    `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Status      Status    `json:"status"`
	Progress    int       `json:"progress"`
	Result      *Document `json:"result,omitempty"`
	RawPayload  []byte    `json:"-"`
	Error       string    `json:"error,omitempty"`
	QueuedAt    time.Time `json:"queued_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StatusStore holds document statuses for polling. The in-memory
// implementation loses state on restart; documents are transient and
// the client re-uploads, so that is accepted behavior.
type StatusStore interface {
	Get(id string) (*DocumentStatus, bool)
	Set(id string, status *DocumentStatus)
	Delete(id string)
	All() []*DocumentStatus
}

type MemoryStatusStore struct {
	mu    sync.RWMutex
	items map[string]*DocumentStatus
}

func NewMemoryStatusStore() *MemoryStatusStore {
	return &MemoryStatusStore{items: map[string]*DocumentStatus{}}
}

func (s *MemoryStatusStore) Get(id string) (*DocumentStatus, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	status, ok := s.items[id]
	if !ok {
		return nil, false
	}
	clone := *status
	return &clone, true
}

func (s *MemoryStatusStore) Set(id string, status *DocumentStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	status.UpdatedAt = time.Now()
	s.items[id] = status
}

func (s *MemoryStatusStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
}

func (s *MemoryStatusStore) All() []*DocumentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DocumentStatus, 0, len(s.items))
	for _, status := range s.items {
		clone := *status
		out = append(out, &clone)
	}
	return out
}

type queuedFile struct {
	id          string
	filename    string
	contentType string
	data        []byte
}

// Queue drains uploaded documents through a bounded worker pool, one
// outstanding OCR call per document. File bytes live only in memory
// until the reconciled invoice is saved.
type Queue struct {
	client *Client
	store  StatusStore
	cfg    config.OcrConfig

	jobs             chan queuedFile
	wg               sync.WaitGroup
	cancel           context.CancelFunc
	progressInterval time.Duration
}

func NewQueue(client *Client, store StatusStore, cfg config.OcrConfig) *Queue {
	return &Queue{
		client:           client,
		store:            store,
		cfg:              cfg,
		jobs:             make(chan queuedFile, 100),
		progressInterval: 3 * time.Second,
	}
}

// Start launches the worker pool. Workers exit when ctx is cancelled
// via Stop; in-flight documents run to a terminal state first.
func (q *Queue) Start(ctx context.Context) {
	ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.WorkerCount; i++ {
		q.wg.Add(1)
		go q.worker(ctx)
	}
}

func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()
}

// Enqueue registers the document and returns its polling id without
// blocking. A full queue is rejected so the upload handler can tell the
// caller to retry.
func (q *Queue) Enqueue(filename, contentType string, data []byte) (string, error) {
	id := uuid.New().String()
	status := &DocumentStatus{
		Id:          id,
		Filename:    filename,
		ContentType: contentType,
		Status:      StatusQueued,
		Progress:    0,
		QueuedAt:    time.Now(),
	}

	// store before dispatch: a worker may pick the job up immediately
	// and must find the status already registered
	q.store.Set(id, status)
	select {
	case q.jobs <- queuedFile{id: id, filename: filename, contentType: contentType, data: data}:
		return id, nil
	default:
		q.store.Delete(id)
		return "", utils.NewValidationError("processing queue is full, try again shortly")
	}
}

// Poll returns the current status; unknown ids get a distinguished
// not_found status rather than an error.
func (q *Queue) Poll(id string) *DocumentStatus {
	if status, ok := q.store.Get(id); ok {
		return status
	}
	return &DocumentStatus{Id: id, Status: StatusNotFound}
}

func (q *Queue) worker(ctx context.Context) {
	defer q.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-q.jobs:
			q.process(ctx, job)
		}
	}
}

func (q *Queue) process(ctx context.Context, job queuedFile) {
	status, ok := q.store.Get(job.id)
	if !ok {
		return
	}
	status.Status = StatusProcessing
	status.Progress = 5
	q.store.Set(job.id, status)

	// synthetic progress: OCR gives no real progress signal, so tick
	// upward and hold at 90 until a terminal state. The ticker must be
	// fully drained before a terminal write, or a late tick could
	// overwrite it with a stale processing snapshot.
	progressDone := make(chan struct{})
	progressStopped := make(chan struct{})
	go func() {
		defer close(progressStopped)
		q.tickProgress(job.id, progressDone)
	}()
	stopProgress := func() {
		close(progressDone)
		<-progressStopped
	}

	doc, raw, err := q.client.Recognize(ctx, job.filename, job.data)
	if err != nil {
		if q.cfg.DevMode {
			doc = SyntheticDocument(job.filename)
			raw = nil
		} else {
			stopProgress()
			q.finish(job.id, func(s *DocumentStatus) {
				s.Status = StatusError
				s.Error = err.Error()
			})
			return
		}
	}

	stopProgress()
	q.finish(job.id, func(s *DocumentStatus) {
		s.Status = StatusCompleted
		s.Progress = 100
		s.Result = doc
		s.RawPayload = raw
	})
}

func (q *Queue) tickProgress(id string, done <-chan struct{}) {
	ticker := time.NewTicker(q.progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			status, ok := q.store.Get(id)
			if !ok || status.Status != StatusProcessing {
				return
			}
			if status.Progress < 90 {
				status.Progress += 5
				if status.Progress > 90 {
					status.Progress = 90
				}
				q.store.Set(id, status)
			}
		}
	}
}

func (q *Queue) finish(id string, mutate func(*DocumentStatus)) {
	status, ok := q.store.Get(id)
	if !ok {
		return
	}
	mutate(status)
	q.store.Set(id, status)
}

// Sweep drops terminal entries older than maxAge so the in-memory map
// does not grow unbounded. Wired to a cron schedule by the server.
func (q *Queue) Sweep(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, status := range q.store.All() {
		if status.Status != StatusCompleted && status.Status != StatusError {
			continue
		}
		if status.UpdatedAt.Before(cutoff) {
			q.store.Delete(status.Id)
			removed++
		}
	}
	return removed
}
