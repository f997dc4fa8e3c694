package models

import (
	"strings"
	"time"
)

// ViewState enumerates the roster view coordinator states. A request without
// a session never reaches a view; the session guard redirects it to login.
type ViewState string

const (
	ViewLoading   ViewState = "loading"
	ViewReady     ViewState = "ready"
	ViewFiltering ViewState = "filtering"
	ViewMutating  ViewState = "mutating"
)

// FilterCriteria narrows a roster query. Empty strings and nil bounds mean
// "no constraint".
type FilterCriteria struct {
	FullName string `json:"fullName"`
	Country  string `json:"country"`
	Gender   string `json:"gender"`
	MinAge   *int   `json:"minAge"`
	MaxAge   *int   `json:"maxAge"`
}

// Active reports whether any constraint is set.
func (f FilterCriteria) Active() bool {
	return f.FullName != "" || f.Country != "" || f.Gender != "" || f.MinAge != nil || f.MaxAge != nil
}

// Normalized trims text fields and clamps negative age bounds to zero.
func (f FilterCriteria) Normalized() FilterCriteria {
	out := FilterCriteria{
		FullName: strings.TrimSpace(f.FullName),
		Country:  strings.TrimSpace(f.Country),
		Gender:   strings.TrimSpace(f.Gender),
	}
	out.MinAge = clampAge(f.MinAge)
	out.MaxAge = clampAge(f.MaxAge)
	return out
}

func clampAge(v *int) *int {
	if v == nil {
		return nil
	}
	n := *v
	if n < 0 {
		n = 0
	}
	return &n
}

// PageWindow describes the displayed slice. PageIndex is 1-based; the
// backend expects it 0-based.
type PageWindow struct {
	PageIndex  int `json:"pageIndex"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
}

// WireIndex returns the zero-based page index sent to the backend.
func (p PageWindow) WireIndex() int {
	if p.PageIndex < 1 {
		return 0
	}
	return p.PageIndex - 1
}

// PageCount returns the number of pages for TotalItems.
func (p PageWindow) PageCount() int {
	if p.PageSize <= 0 || p.TotalItems <= 0 {
		return 0
	}
	return (p.TotalItems + p.PageSize - 1) / p.PageSize
}

// DialogMode distinguishes add from edit dialogs.
type DialogMode string

const (
	DialogAdd  DialogMode = "add"
	DialogEdit DialogMode = "edit"
)

// DialogState is an open mutation dialog. Pristine is only set for edits.
type DialogState struct {
	Mode     DialogMode   `json:"mode"`
	Title    string       `json:"title"`
	Working  StudentForm  `json:"working"`
	Pristine *StudentForm `json:"pristine,omitempty"`
	Resume   ViewState    `json:"resume"`
}

// RosterView is the coordinator-owned state of one signed-in console session.
type RosterView struct {
	State     ViewState      `json:"state"`
	Filter    FilterCriteria `json:"filter"`
	Page      PageWindow     `json:"page"`
	Students  []Student      `json:"students"`
	Dialog    *DialogState   `json:"dialog,omitempty"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewRosterView returns a fresh view on the first page.
func NewRosterView(pageSize int) *RosterView {
	return &RosterView{
		State:    ViewLoading,
		Page:     PageWindow{PageIndex: 1, PageSize: pageSize},
		Students: []Student{},
	}
}

// ResetFilter clears every constraint and rewinds to the first page.
func (v *RosterView) ResetFilter() {
	v.Filter = FilterCriteria{}
	v.Page.PageIndex = 1
}

// RosterRow is a student as displayed, with the derived age when the birth
// date parses.
type RosterRow struct {
	Student
	Age *int `json:"age,omitempty"`
}

// DialogSnapshot is an open dialog as rendered, including whether its save
// action is enabled.
type DialogSnapshot struct {
	DialogState
	CanSave bool `json:"canSave"`
}

// RosterSnapshot is what the console returns after every roster action.
// Notice travels in the response envelope, not the data payload.
type RosterSnapshot struct {
	DisplayName string          `json:"displayName"`
	State       ViewState       `json:"state"`
	Filter      FilterCriteria  `json:"filter"`
	Page        PageWindow      `json:"page"`
	PageCount   int             `json:"pageCount"`
	Students    []RosterRow     `json:"students"`
	Dialog      *DialogSnapshot `json:"dialog,omitempty"`
	Notice      *Notice         `json:"-"`
}

// RosterOptions are the fixed choices offered by the filter bar and dialogs.
type RosterOptions struct {
	Countries []string `json:"countries"`
	Genders   []string `json:"genders"`
	PageSize  int      `json:"pageSize"`
}
