package service

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/noah-isme/roster-console/internal/client"
	"github.com/noah-isme/roster-console/internal/models"
)

// fakeRoster is a concurrency-safe stand-in for the roster backend.
type fakeRoster struct {
	mu sync.Mutex

	students      []models.Student
	searchResult  []models.Student
	total         int
	filteredTotal int

	listErr          error
	countErr         error
	searchErr        error
	countFilteredErr error
	deleteErr        error
	createErr        error
	updateErr        error

	created *models.Student
	updated *models.Student

	calls      []string
	deletedIDs []int64
	lastFilter models.FilterCriteria
	lastPage   int
	tokens     []string
	sent       []models.Student
}

func (f *fakeRoster) record(ctx context.Context, call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	f.tokens = append(f.tokens, client.TokenFromContext(ctx))
}

func (f *fakeRoster) List(ctx context.Context, pageIndex, pageSize int) ([]models.Student, error) {
	f.record(ctx, "list")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastPage = pageIndex
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Student(nil), f.students...), nil
}

func (f *fakeRoster) Count(ctx context.Context) (int, error) {
	f.record(ctx, "count")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total, f.countErr
}

func (f *fakeRoster) Search(ctx context.Context, filter models.FilterCriteria, pageIndex, pageSize int) ([]models.Student, error) {
	f.record(ctx, "search")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	f.lastPage = pageIndex
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return append([]models.Student{}, f.searchResult...), nil
}

func (f *fakeRoster) CountFiltered(ctx context.Context, filter models.FilterCriteria) (int, error) {
	f.record(ctx, "countFiltered")
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.filteredTotal, f.countFilteredErr
}

func (f *fakeRoster) Delete(ctx context.Context, id int64) error {
	f.record(ctx, fmt.Sprintf("delete:%d", id))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedIDs = append(f.deletedIDs, id)
	kept := f.students[:0]
	for _, s := range f.students {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.students = kept
	return nil
}

func (f *fakeRoster) Create(ctx context.Context, s models.Student) (*models.Student, error) {
	f.record(ctx, "create")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	if f.createErr != nil {
		return nil, f.createErr
	}
	if f.created != nil {
		return f.created, nil
	}
	return &models.Student{}, nil
}

func (f *fakeRoster) Update(ctx context.Context, id int64, s models.Student) (*models.Student, error) {
	f.record(ctx, fmt.Sprintf("update:%d", id))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, s)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.updated != nil {
		return f.updated, nil
	}
	return &s, nil
}

func (f *fakeRoster) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeRoster) resetCalls() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
	f.tokens = nil
}

func httpStatus(code int) error {
	return &client.StatusError{Method: http.MethodGet, URL: "http://backend/api/student", StatusCode: code}
}
