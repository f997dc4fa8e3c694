package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/noah-isme/roster-console/internal/models"
)

// RosterClient calls the backend student endpoints. It keeps no state
// between calls.
type RosterClient struct {
	base *Client
	path string
}

// NewRosterClient mounts the student endpoints at path, e.g. /api/student.
func NewRosterClient(base *Client, path string) *RosterClient {
	return &RosterClient{base: base, path: strings.TrimRight(path, "/")}
}

func pageQuery(q url.Values, pageIndex, pageSize int) url.Values {
	q.Set("pageIndex", strconv.Itoa(pageIndex))
	q.Set("pageSize", strconv.Itoa(pageSize))
	return q
}

// filterQuery always sends the three text filters, empty or not; age bounds
// only when set.
func filterQuery(f models.FilterCriteria) url.Values {
	q := url.Values{}
	q.Set("fullName", f.FullName)
	q.Set("country", f.Country)
	q.Set("gender", f.Gender)
	if f.MinAge != nil {
		q.Set("minAge", strconv.Itoa(*f.MinAge))
	}
	if f.MaxAge != nil {
		q.Set("maxAge", strconv.Itoa(*f.MaxAge))
	}
	return q
}

// List fetches one unfiltered page; pageIndex is zero-based.
func (r *RosterClient) List(ctx context.Context, pageIndex, pageSize int) ([]models.Student, error) {
	var out []models.Student
	q := pageQuery(url.Values{}, pageIndex, pageSize)
	if err := r.base.doJSON(ctx, "student.list", http.MethodGet, r.path+"/GetAllStudents", q, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// Count returns the total number of students.
func (r *RosterClient) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.base.doJSON(ctx, "student.count", http.MethodGet, r.path+"/GetStudentCount", nil, nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// Search fetches one filtered page; pageIndex is zero-based.
func (r *RosterClient) Search(ctx context.Context, f models.FilterCriteria, pageIndex, pageSize int) ([]models.Student, error) {
	var out []models.Student
	q := pageQuery(filterQuery(f), pageIndex, pageSize)
	if err := r.base.doJSON(ctx, "student.search", http.MethodGet, r.path+"/SearchStudentsByFilter", q, nil, &out); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// CountFiltered returns how many students match f.
func (r *RosterClient) CountFiltered(ctx context.Context, f models.FilterCriteria) (int, error) {
	var total int
	if err := r.base.doJSON(ctx, "student.count_filtered", http.MethodGet, r.path+"/CountFilteredStudents", filterQuery(f), nil, &total); err != nil {
		return 0, err
	}
	return total, nil
}

// Create adds a student and returns the stored record. A 2xx answer that is
// not a student record yields a zero record rather than an error.
func (r *RosterClient) Create(ctx context.Context, s models.Student) (*models.Student, error) {
	var raw json.RawMessage
	if err := r.base.doJSON(ctx, "student.create", http.MethodPost, r.path+"/AddStudent", nil, s, &raw); err != nil {
		return nil, err
	}
	return decodeStudent(raw), nil
}

// Update replaces the student with the given id. The answer is read the same
// way as Create's.
func (r *RosterClient) Update(ctx context.Context, id int64, s models.Student) (*models.Student, error) {
	var raw json.RawMessage
	path := r.path + "/UpdateStudent/" + strconv.FormatInt(id, 10)
	if err := r.base.doJSON(ctx, "student.update", http.MethodPut, path, nil, s, &raw); err != nil {
		return nil, err
	}
	return decodeStudent(raw), nil
}

func decodeStudent(raw json.RawMessage) *models.Student {
	var out models.Student
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return &out
}

// Delete removes the student with the given id.
func (r *RosterClient) Delete(ctx context.Context, id int64) error {
	path := r.path + "/DeleteStudent/" + strconv.FormatInt(id, 10)
	return r.base.doJSON(ctx, "student.delete", http.MethodDelete, path, nil, nil, nil)
}

func nonNil(list []models.Student) []models.Student {
	if list == nil {
		return []models.Student{}
	}
	return list
}
