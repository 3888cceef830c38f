package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/notttired/aire-frontend/internal/entity"
)

// fakeAPI scripts JobAPIRepository answers by call number, starting at 1.
type fakeAPI struct {
	mu          sync.Mutex
	submits     int
	calls       int
	submitFn    func(req *entity.ScrapeRequest) (*entity.SubmitResult, error)
	statusFn    func(ctx context.Context, call int) (*entity.JobStatus, error)
	lastRequest *entity.ScrapeRequest
}

func (f *fakeAPI) Submit(_ context.Context, req *entity.ScrapeRequest) (*entity.SubmitResult, error) {
	f.mu.Lock()
	f.submits++
	f.lastRequest = req
	f.mu.Unlock()
	if f.submitFn == nil {
		return nil, errors.New("submit not scripted")
	}
	return f.submitFn(req)
}

func (f *fakeAPI) FetchStatus(ctx context.Context, _ entity.JobHandle) (*entity.JobStatus, error) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.mu.Unlock()
	return f.statusFn(ctx, n)
}

func (f *fakeAPI) statusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func status(kind entity.StatusKind, data string, errMsg string) *entity.JobStatus {
	st := &entity.JobStatus{Status: kind, Error: errMsg}
	if data != "" {
		st.Data = json.RawMessage(data)
	}
	st.Raw, _ = json.Marshal(map[string]any{"status": kind, "error": errMsg})
	return st
}

// recorder is a ProgressSink that keeps every event.
type recorder struct {
	mu     sync.Mutex
	events []entity.PollEvent
	onPoll func(ev entity.PollEvent)
}

func (r *recorder) OnPollEvent(ev entity.PollEvent) {
	r.mu.Lock()
	r.events = append(r.events, ev)
	r.mu.Unlock()
	if r.onPoll != nil {
		r.onPoll(ev)
	}
}

func (r *recorder) snapshot() []entity.PollEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.PollEvent(nil), r.events...)
}
