package service

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/client"
	"github.com/noah-isme/roster-console/internal/models"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
)

const (
	titleAddStudent  = "Add New Student"
	titleEditStudent = "Edit Student"

	tagFutureDate = "notfuture"
	tagValidDate  = "calendardate"
)

var (
	noticeFieldsRequired = models.Notice{Level: models.NoticeWarning, Title: "All Fields Required", Text: "Please fill in all the fields."}
	noticeFutureBirth    = models.Notice{Level: models.NoticeWarning, Title: "Invalid Birth Date", Text: "Birth date cannot be in the future."}
	noticeAddFailed      = models.Notice{Level: models.NoticeError, Title: "Error!", Text: "Failed to add student. Please check the form for errors."}
	noticeUpdateFailed   = models.Notice{Level: models.NoticeError, Title: "Error!", Text: "Failed to update student. Please check the birth date format."}
	noticeAdded          = models.Notice{Level: models.NoticeSuccess, Title: "Success!", Text: "Student added successfully."}
	noticeUpdated        = models.Notice{Level: models.NoticeSuccess, Title: "Success!", Text: "Student updated successfully."}
)

type studentWriter interface {
	Create(ctx context.Context, s models.Student) (*models.Student, error)
	Update(ctx context.Context, id int64, s models.Student) (*models.Student, error)
}

// DialogOutcome is the result of a dialog submission. Saved is set when the
// dialog closes with a record; otherwise the dialog stays open.
type DialogOutcome struct {
	Saved  *models.Student
	Notice *models.Notice
}

// StudentDialog drives the add and edit dialogs: it owns the working copy,
// decides when saving is allowed and submits through the writer.
type StudentDialog struct {
	writer    studentWriter
	validator *validator.Validate
	logger    *zap.Logger
	createdBy string
	now       func() time.Time
}

// NewStudentDialog constructs a StudentDialog. createdBy fills the creator
// field of new records.
func NewStudentDialog(writer studentWriter, validate *validator.Validate, logger *zap.Logger, createdBy string) *StudentDialog {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	d := &StudentDialog{writer: writer, validator: validate, logger: logger, createdBy: createdBy, now: time.Now}
	validate.RegisterStructValidation(d.validateBirthDate, models.StudentForm{})
	return d
}

// OpenAdd returns a dialog on an empty template.
func (d *StudentDialog) OpenAdd() *models.DialogState {
	return &models.DialogState{
		Mode:    models.DialogAdd,
		Title:   titleAddStudent,
		Working: models.StudentForm{CreatedBy: d.createdBy},
	}
}

// OpenEdit returns a dialog on an independent copy of s. The pristine copy
// is kept to detect changes.
func (d *StudentDialog) OpenEdit(s models.Student) *models.DialogState {
	working := models.FormFromStudent(s)
	pristine := working.Clone()
	return &models.DialogState{
		Mode:     models.DialogEdit,
		Title:    titleEditStudent,
		Working:  working,
		Pristine: &pristine,
	}
}

// Update replaces the working copy with form. The record identity and the
// creator stay those the dialog was opened with.
func (d *StudentDialog) Update(state *models.DialogState, form models.StudentForm) {
	working := form.Clone()
	working.ID = state.Working.ID
	if working.CreatedBy == "" {
		working.CreatedBy = state.Working.CreatedBy
	}
	state.Working = working
}

// CanSave reports whether the save action is enabled.
func (d *StudentDialog) CanSave(state *models.DialogState) bool {
	if d.validator.Struct(state.Working) != nil {
		return false
	}
	if state.Mode == models.DialogEdit {
		return d.Changed(state)
	}
	return true
}

// Changed compares the working copy with the pristine original after
// normalising both birth dates and recomposing both full names.
func (d *StudentDialog) Changed(state *models.DialogState) bool {
	if state.Pristine == nil {
		return true
	}
	return !reflect.DeepEqual(normalisedForm(state.Working), normalisedForm(*state.Pristine))
}

func normalisedForm(form models.StudentForm) models.StudentForm {
	out := form.Clone()
	out.BirthDate.Normalize()
	out.FullName = models.ComposeFullName(out.FirstName, out.LastName)
	return out
}

// Snapshot renders the dialog for a response.
func (d *StudentDialog) Snapshot(state *models.DialogState) *models.DialogSnapshot {
	if state == nil {
		return nil
	}
	return &models.DialogSnapshot{DialogState: *state, CanSave: d.CanSave(state)}
}

// Submit validates, normalises and sends the working copy. On failure the
// working copy is left as the user entered it. An expired session is the only
// error returned; every other failure becomes a notice.
func (d *StudentDialog) Submit(ctx context.Context, state *models.DialogState) (DialogOutcome, error) {
	if state.Mode == models.DialogEdit && !d.Changed(state) {
		return DialogOutcome{}, nil
	}
	if err := d.validator.Struct(state.Working); err != nil {
		return DialogOutcome{Notice: d.validationNotice(err)}, nil
	}

	form := state.Working.Clone()
	form.BirthDate.Normalize()
	form.FullName = models.ComposeFullName(form.FirstName, form.LastName)
	if state.Mode == models.DialogAdd {
		form.ID = 0
	}
	record, err := form.ToStudent()
	if err != nil {
		return DialogOutcome{Notice: copyNotice(noticeFieldsRequired)}, nil
	}

	var saved *models.Student
	if state.Mode == models.DialogAdd {
		saved, err = d.writer.Create(ctx, record)
	} else {
		saved, err = d.writer.Update(ctx, record.ID, record)
	}
	if err != nil {
		if client.StatusCode(err) == http.StatusUnauthorized {
			return DialogOutcome{}, appErrors.WrapAs(err, appErrors.ErrSessionExpired, "")
		}
		d.logger.Warn("student dialog submit failed",
			zap.String("mode", string(state.Mode)),
			zap.Int64("student_id", record.ID),
			zap.Error(err),
		)
		if state.Mode == models.DialogAdd {
			return DialogOutcome{Notice: copyNotice(noticeAddFailed)}, nil
		}
		return DialogOutcome{Notice: copyNotice(noticeUpdateFailed)}, nil
	}

	// Backends that answer with an empty body confirm the record as sent.
	if saved == nil || saved.ID == 0 {
		sent := record
		saved = &sent
	}

	if state.Mode == models.DialogAdd {
		return DialogOutcome{Saved: saved, Notice: copyNotice(noticeAdded)}, nil
	}
	return DialogOutcome{Saved: saved, Notice: copyNotice(noticeUpdated)}, nil
}

func (d *StudentDialog) validationNotice(err error) *models.Notice {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Tag() == tagFutureDate {
				return copyNotice(noticeFutureBirth)
			}
		}
	}
	return copyNotice(noticeFieldsRequired)
}

// validateBirthDate is the struct-level rule for StudentForm: a birth date
// must be present, name a real day and not lie after today.
func (d *StudentDialog) validateBirthDate(sl validator.StructLevel) {
	form, ok := sl.Current().Interface().(models.StudentForm)
	if !ok {
		return
	}
	if form.BirthDate.IsZero() {
		sl.ReportError(form.BirthDate, "BirthDate", "birthDate", "required", "")
		return
	}
	parts, err := form.BirthDate.Date()
	if err != nil {
		sl.ReportError(form.BirthDate, "BirthDate", "birthDate", tagValidDate, "")
		return
	}
	now := d.now()
	today := models.DateParts{Year: now.Year(), Month: int(now.Month()), Day: now.Day()}
	if parts.Time().After(today.Time()) {
		sl.ReportError(form.BirthDate, "BirthDate", "birthDate", tagFutureDate, "")
	}
}

func copyNotice(n models.Notice) *models.Notice {
	return &n
}
