package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/client"
	"github.com/noah-isme/roster-console/internal/models"
	"github.com/noah-isme/roster-console/internal/repository"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
)

var (
	noticeNoStudents    = models.Notice{Level: models.NoticeInfo, Title: "No Students Found", Text: "No students match the criteria of the search."}
	noticeConfirmDelete = models.Notice{Level: models.NoticeWarning, Title: "Are you sure?", Text: "You won't be able to revert this!", ConfirmLabel: "Yes, delete it!"}
	noticeDeleted       = models.Notice{Level: models.NoticeSuccess, Title: "Deleted!", Text: "The student has been deleted."}
	noticeDeleteFailed  = models.Notice{Level: models.NoticeError, Title: "Error!", Text: "There was an error deleting the student."}
	noticeLoadFailed    = models.Notice{Level: models.NoticeError, Title: "Error!", Text: "The roster could not be loaded. Please try again."}
	noticeCountFailed   = models.Notice{Level: models.NoticeError, Title: "Error!", Text: "The roster total could not be loaded. Please try again."}
)

const reloadFailedText = "The roster could not be reloaded. Please try again."

type rosterGateway interface {
	studentWriter
	List(ctx context.Context, pageIndex, pageSize int) ([]models.Student, error)
	Count(ctx context.Context) (int, error)
	Search(ctx context.Context, f models.FilterCriteria, pageIndex, pageSize int) ([]models.Student, error)
	CountFiltered(ctx context.Context, f models.FilterCriteria) (int, error)
	Delete(ctx context.Context, id int64) error
}

// RosterCoordinator runs the roster view state machine for one session per
// call. View state is loaded from and saved back to the view store.
type RosterCoordinator struct {
	gateway  rosterGateway
	views    repository.ViewStateRepository
	dialog   *StudentDialog
	pageSize int
	logger   *zap.Logger
	now      func() time.Time
}

// NewRosterCoordinator constructs a RosterCoordinator.
func NewRosterCoordinator(gateway rosterGateway, views repository.ViewStateRepository, dialog *StudentDialog, pageSize int, logger *zap.Logger) *RosterCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if pageSize <= 0 {
		pageSize = 5
	}
	return &RosterCoordinator{
		gateway:  gateway,
		views:    views,
		dialog:   dialog,
		pageSize: pageSize,
		logger:   logger,
		now:      time.Now,
	}
}

// Options returns the fixed filter and dialog choices.
func (c *RosterCoordinator) Options() models.RosterOptions {
	return models.RosterOptions{
		Countries: append([]string(nil), models.Countries...),
		Genders:   []string{models.GenderMale.String(), models.GenderFemale.String()},
		PageSize:  c.pageSize,
	}
}

// Enter loads the view for the session, fetching the current page and its
// total concurrently.
func (c *RosterCoordinator) Enter(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	notice, err := c.fetch(ctx, sess, view, true)
	if err != nil {
		return nil, err
	}
	c.settle(view, notice)
	return c.commit(ctx, sess, view, notice)
}

// ChangePage moves to pageIndex (1-based) and refreshes the matching total.
func (c *RosterCoordinator) ChangePage(ctx context.Context, sess models.Session, pageIndex int) (*models.RosterSnapshot, error) {
	if pageIndex < 1 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "page index must be at least 1")
	}
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	view.Page.PageIndex = pageIndex
	notice, err := c.fetch(ctx, sess, view, true)
	if err != nil {
		return nil, err
	}
	c.settle(view, notice)
	return c.commit(ctx, sess, view, notice)
}

// ApplyFilter searches with criteria from the first page. An empty result is
// reported with an informational notice.
func (c *RosterCoordinator) ApplyFilter(ctx context.Context, sess models.Session, criteria models.FilterCriteria) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	view.Filter = criteria.Normalized()
	view.Page.PageIndex = 1
	notice, err := c.fetch(ctx, sess, view, true)
	if err != nil {
		return nil, err
	}
	c.settle(view, notice)
	return c.commit(ctx, sess, view, notice)
}

// ResetFilter clears every filter, rewinds to page 1 and reloads the
// unfiltered list and total.
func (c *RosterCoordinator) ResetFilter(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	view.ResetFilter()
	notice, err := c.fetch(ctx, sess, view, true)
	if err != nil {
		return nil, err
	}
	c.settle(view, notice)
	return c.commit(ctx, sess, view, notice)
}

// Delete removes a student. Without confirmation nothing is sent and the
// confirmation prompt is returned instead.
func (c *RosterCoordinator) Delete(ctx context.Context, sess models.Session, id int64, confirmed bool) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	if !confirmed {
		return c.snapshot(sess, view, copyNotice(noticeConfirmDelete)), nil
	}

	if err := c.gateway.Delete(clientContext(ctx, sess), id); err != nil {
		if isUnauthorized(err) {
			return nil, c.expire(ctx, sess, err)
		}
		c.logger.Warn("delete student failed", zap.Int64("student_id", id), zap.Error(err))
		return c.commit(ctx, sess, view, copyNotice(noticeDeleteFailed))
	}

	c.logger.Info("student deleted", zap.Int64("student_id", id))
	reload, err := c.fetch(ctx, sess, view, false)
	if err != nil {
		return nil, err
	}
	c.settle(view, reload)
	if loadFailed(reload) {
		c.logger.Warn("roster reload after delete failed", zap.Int64("student_id", id))
		return c.commit(ctx, sess, view, staleNotice(copyNotice(noticeDeleted)))
	}
	return c.commit(ctx, sess, view, copyNotice(noticeDeleted))
}

// OpenAdd opens the add dialog on an empty template.
func (c *RosterCoordinator) OpenAdd(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	c.openDialog(view, c.dialog.OpenAdd())
	return c.commit(ctx, sess, view, nil)
}

// OpenEdit opens the edit dialog on a copy of the displayed student id.
func (c *RosterCoordinator) OpenEdit(ctx context.Context, sess models.Session, id int64) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	for _, s := range view.Students {
		if s.ID == id {
			c.openDialog(view, c.dialog.OpenEdit(s))
			return c.commit(ctx, sess, view, nil)
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound, "Student is not on the current page.")
}

// UpdateDialog replaces the open dialog's working copy.
func (c *RosterCoordinator) UpdateDialog(ctx context.Context, sess models.Session, form models.StudentForm) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	if view.Dialog == nil {
		return nil, appErrors.ErrNoDialog
	}
	c.dialog.Update(view.Dialog, form)
	return c.commit(ctx, sess, view, nil)
}

// SubmitDialog saves the open dialog. On success the dialog closes, the
// record is merged into the page and the page reloads.
func (c *RosterCoordinator) SubmitDialog(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	if view.Dialog == nil {
		return nil, appErrors.ErrNoDialog
	}

	outcome, err := c.dialog.Submit(clientContext(ctx, sess), view.Dialog)
	if err != nil {
		if errors.Is(err, appErrors.ErrSessionExpired) {
			return nil, c.expire(ctx, sess, err)
		}
		return nil, err
	}
	if outcome.Saved == nil {
		return c.commit(ctx, sess, view, outcome.Notice)
	}

	mode := view.Dialog.Mode
	c.closeDialog(view)
	mergeStudent(view, *outcome.Saved, mode)
	reload, err := c.fetch(ctx, sess, view, false)
	if err != nil {
		return nil, err
	}
	if loadFailed(reload) {
		c.logger.Warn("roster reload after save failed",
			zap.String("mode", string(mode)),
			zap.Int64("student_id", outcome.Saved.ID),
		)
		return c.commit(ctx, sess, view, staleNotice(outcome.Notice))
	}
	return c.commit(ctx, sess, view, outcome.Notice)
}

// DismissDialog closes the open dialog without changes.
func (c *RosterCoordinator) DismissDialog(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error) {
	view, err := c.load(ctx, sess)
	if err != nil {
		return nil, err
	}
	c.closeDialog(view)
	return c.commit(ctx, sess, view, nil)
}

// Current returns the stored view without contacting the backend.
func (c *RosterCoordinator) Current(ctx context.Context, sess models.Session) (*models.RosterView, error) {
	return c.load(ctx, sess)
}

// Discard drops the session's view state, resetting filters for the next
// sign-in.
func (c *RosterCoordinator) Discard(ctx context.Context, sess models.Session) error {
	if !sess.Valid() {
		return nil
	}
	if err := c.views.Delete(ctx, sess.ViewKey()); err != nil {
		c.logger.Warn("discard roster view failed", zap.Error(err))
		return err
	}
	return nil
}

func (c *RosterCoordinator) load(ctx context.Context, sess models.Session) (*models.RosterView, error) {
	if !sess.Valid() {
		return nil, appErrors.ErrUnauthorized
	}
	view, err := c.views.Load(ctx, sess.ViewKey())
	if err != nil {
		if errors.Is(err, repository.ErrViewNotFound) {
			return models.NewRosterView(c.pageSize), nil
		}
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "")
	}
	if view.Page.PageSize <= 0 {
		view.Page.PageSize = c.pageSize
	}
	if view.Page.PageIndex < 1 {
		view.Page.PageIndex = 1
	}
	return view, nil
}

func (c *RosterCoordinator) commit(ctx context.Context, sess models.Session, view *models.RosterView, notice *models.Notice) (*models.RosterSnapshot, error) {
	view.UpdatedAt = c.now().UTC()
	if err := c.views.Save(ctx, sess.ViewKey(), view); err != nil {
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "")
	}
	return c.snapshot(sess, view, notice), nil
}

func (c *RosterCoordinator) snapshot(sess models.Session, view *models.RosterView, notice *models.Notice) *models.RosterSnapshot {
	now := c.now()
	rows := make([]models.RosterRow, 0, len(view.Students))
	for _, s := range view.Students {
		row := models.RosterRow{Student: s}
		if parts, err := models.ParseDateParts(s.BirthDate); err == nil {
			age := models.CalculateAge(parts, now)
			row.Age = &age
		}
		rows = append(rows, row)
	}
	return &models.RosterSnapshot{
		DisplayName: sess.DisplayName,
		State:       view.State,
		Filter:      view.Filter,
		Page:        view.Page,
		PageCount:   view.Page.PageCount(),
		Students:    rows,
		Dialog:      c.dialog.Snapshot(view.Dialog),
		Notice:      notice,
	}
}

func (c *RosterCoordinator) restingState(view *models.RosterView) models.ViewState {
	if view.Filter.Active() {
		return models.ViewFiltering
	}
	return models.ViewReady
}

// settle moves the view to its resting state after a fetch. An open dialog
// keeps the view in Mutating until it closes, and a view that has never
// loaded a page stays in Loading until one arrives.
func (c *RosterCoordinator) settle(view *models.RosterView, notice *models.Notice) {
	if view.State == models.ViewMutating && view.Dialog != nil {
		view.Dialog.Resume = c.restingState(view)
		return
	}
	if view.State == models.ViewLoading && loadFailed(notice) {
		return
	}
	view.State = c.restingState(view)
}

func (c *RosterCoordinator) openDialog(view *models.RosterView, state *models.DialogState) {
	if view.Dialog != nil {
		state.Resume = view.Dialog.Resume
	} else {
		state.Resume = c.restingState(view)
	}
	view.Dialog = state
	view.State = models.ViewMutating
}

func (c *RosterCoordinator) closeDialog(view *models.RosterView) {
	if view.Dialog == nil {
		return
	}
	resume := view.Dialog.Resume
	if resume == "" {
		resume = c.restingState(view)
	}
	view.Dialog = nil
	view.State = resume
}

type pageResult struct {
	students []models.Student
	err      error
}

type countResult struct {
	total int
	err   error
}

// fetch reloads the current page, and its total when withCount is set. The
// two requests run concurrently and each result is applied on its own: a
// failed count keeps the previous total and a failed page keeps the previous
// rows.
func (c *RosterCoordinator) fetch(ctx context.Context, sess models.Session, view *models.RosterView, withCount bool) (*models.Notice, error) {
	cctx := clientContext(ctx, sess)
	filter := view.Filter
	filtered := filter.Active()
	wireIndex, size := view.Page.WireIndex(), view.Page.PageSize

	var (
		wg    sync.WaitGroup
		page  pageResult
		count countResult
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		if filtered {
			page.students, page.err = c.gateway.Search(cctx, filter, wireIndex, size)
		} else {
			page.students, page.err = c.gateway.List(cctx, wireIndex, size)
		}
	}()
	if withCount {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if filtered {
				count.total, count.err = c.gateway.CountFiltered(cctx, filter)
			} else {
				count.total, count.err = c.gateway.Count(cctx)
			}
		}()
	}
	wg.Wait()

	if isUnauthorized(page.err) {
		return nil, c.expire(ctx, sess, page.err)
	}
	if withCount && isUnauthorized(count.err) {
		return nil, c.expire(ctx, sess, count.err)
	}

	var notice *models.Notice
	switch {
	case page.err == nil:
		view.Students = page.students
		if filtered && len(page.students) == 0 {
			notice = copyNotice(noticeNoStudents)
		}
	case filtered && client.StatusCode(page.err) == http.StatusBadRequest:
		view.Students = []models.Student{}
		notice = copyNotice(noticeNoStudents)
	default:
		c.logger.Warn("roster page fetch failed", zap.Bool("filtered", filtered), zap.Error(page.err))
		notice = copyNotice(noticeLoadFailed)
	}

	if withCount {
		if count.err == nil {
			view.Page.TotalItems = count.total
		} else {
			c.logger.Warn("roster count fetch failed", zap.Bool("filtered", filtered), zap.Error(count.err))
			if notice == nil {
				notice = copyNotice(noticeCountFailed)
			}
		}
	}
	return notice, nil
}

// expire discards the view of a session the backend no longer accepts.
func (c *RosterCoordinator) expire(ctx context.Context, sess models.Session, cause error) error {
	c.logger.Info("backend rejected session token", zap.Error(cause))
	if err := c.views.Delete(ctx, sess.ViewKey()); err != nil {
		c.logger.Warn("discard expired roster view failed", zap.Error(err))
	}
	if errors.Is(cause, appErrors.ErrSessionExpired) {
		return cause
	}
	return appErrors.WrapAs(cause, appErrors.ErrSessionExpired, "")
}

// mergeStudent applies a saved record to the displayed page ahead of the
// reload, so the page reflects it even if the reload fails. An added record
// only joins a page that still has room.
func mergeStudent(view *models.RosterView, saved models.Student, mode models.DialogMode) {
	if mode == models.DialogEdit {
		for i := range view.Students {
			if view.Students[i].ID == saved.ID {
				view.Students[i] = saved
				return
			}
		}
		return
	}
	if view.Page.PageSize > 0 && len(view.Students) >= view.Page.PageSize {
		return
	}
	view.Students = append(view.Students, saved)
}

// loadFailed reports whether a fetch left the page rows unloaded.
func loadFailed(n *models.Notice) bool {
	return n != nil && *n == noticeLoadFailed
}

// staleNotice downgrades a mutation notice when the page behind it could not
// be reloaded.
func staleNotice(n *models.Notice) *models.Notice {
	if n == nil {
		return copyNotice(noticeLoadFailed)
	}
	out := copyNotice(*n)
	out.Level = models.NoticeWarning
	out.Text = strings.TrimSpace(out.Text + " " + reloadFailedText)
	return out
}

func clientContext(ctx context.Context, sess models.Session) context.Context {
	return client.WithToken(ctx, sess.Token)
}

func isUnauthorized(err error) bool {
	return err != nil && client.StatusCode(err) == http.StatusUnauthorized
}
