package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/roster-console/internal/models"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
)

var fixedNow = time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC)

func newTestDialog(writer studentWriter) *StudentDialog {
	d := NewStudentDialog(writer, nil, nil, "Admin")
	d.now = func() time.Time { return fixedNow }
	return d
}

func genderPtr(g models.Gender) *models.Gender {
	return &g
}

func completeForm() models.StudentForm {
	return models.StudentForm{
		FirstName: "Ada",
		LastName:  "Lovelace",
		FullName:  "stale value",
		Email:     "ada@example.com",
		Gender:    genderPtr(models.GenderFemale),
		Country:   "United Kingdom",
		BirthDate: models.BirthDateFromParts(models.DateParts{Year: 2001, Month: 4, Day: 9}),
	}
}

func storedStudent() models.Student {
	return models.Student{
		ID:        7,
		FirstName: "Grace",
		LastName:  "Hopper",
		FullName:  "Grace Hopper",
		Email:     "grace@example.com",
		Gender:    models.GenderFemale,
		Country:   "United States",
		BirthDate: "1990-12-09",
		CreatedBy: "Admin",
	}
}

func TestOpenAddTemplate(t *testing.T) {
	d := newTestDialog(&fakeRoster{})
	state := d.OpenAdd()
	assert.Equal(t, models.DialogAdd, state.Mode)
	assert.Equal(t, "Admin", state.Working.CreatedBy)
	assert.Nil(t, state.Pristine)
	assert.False(t, d.CanSave(state))
}

func TestCanSaveRequiresEveryField(t *testing.T) {
	d := newTestDialog(&fakeRoster{})
	mutations := map[string]func(f *models.StudentForm){
		"first name": func(f *models.StudentForm) { f.FirstName = "" },
		"last name":  func(f *models.StudentForm) { f.LastName = "" },
		"email":      func(f *models.StudentForm) { f.Email = "" },
		"gender":     func(f *models.StudentForm) { f.Gender = nil },
		"country":    func(f *models.StudentForm) { f.Country = "" },
		"birth date": func(f *models.StudentForm) { f.BirthDate = models.BirthDate{} },
	}

	state := d.OpenAdd()
	d.Update(state, completeForm())
	require.True(t, d.CanSave(state))

	for name, mutate := range mutations {
		form := completeForm()
		mutate(&form)
		d.Update(state, form)
		assert.False(t, d.CanSave(state), name)
	}
}

func TestMaleGenderCountsAsSet(t *testing.T) {
	d := newTestDialog(&fakeRoster{})
	state := d.OpenAdd()
	form := completeForm()
	form.Gender = genderPtr(models.GenderMale)
	d.Update(state, form)
	assert.True(t, d.CanSave(state))
}

func TestFutureBirthDateRejected(t *testing.T) {
	writer := &fakeRoster{}
	d := newTestDialog(writer)
	state := d.OpenAdd()
	form := completeForm()
	form.BirthDate = models.BirthDateFromParts(models.DateParts{Year: 2024, Month: 6, Day: 16})
	d.Update(state, form)
	assert.False(t, d.CanSave(state))

	outcome, err := d.Submit(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, outcome.Saved)
	require.NotNil(t, outcome.Notice)
	assert.Equal(t, "Invalid Birth Date", outcome.Notice.Title)
	assert.Empty(t, writer.calls)

	form.BirthDate = models.BirthDateFromParts(models.DateParts{Year: 2024, Month: 6, Day: 15})
	d.Update(state, form)
	assert.True(t, d.CanSave(state))
}

func TestEditSaveDisabledUntilChanged(t *testing.T) {
	d := newTestDialog(&fakeRoster{})
	state := d.OpenEdit(storedStudent())

	require.NotNil(t, state.Working.BirthDate.Parts)
	assert.Equal(t, models.DateParts{Year: 1990, Month: 12, Day: 9}, *state.Working.BirthDate.Parts)
	assert.False(t, d.CanSave(state))

	// the same date typed as a string is not a change
	same := state.Working.Clone()
	same.BirthDate = models.BirthDateFromText("1990-12-09")
	d.Update(state, same)
	assert.False(t, d.CanSave(state))

	changed := state.Working.Clone()
	changed.Country = "Canada"
	d.Update(state, changed)
	assert.True(t, d.CanSave(state))
}

func TestEditWorkingCopyIsIndependent(t *testing.T) {
	d := newTestDialog(&fakeRoster{})
	source := storedStudent()
	state := d.OpenEdit(source)

	*state.Working.Gender = models.GenderMale
	state.Working.BirthDate.Parts.Day = 1

	assert.Equal(t, models.GenderFemale, *state.Pristine.Gender)
	assert.Equal(t, 9, state.Pristine.BirthDate.Parts.Day)
	assert.Equal(t, "1990-12-09", source.BirthDate)
}

func TestUpdateKeepsIdentity(t *testing.T) {
	d := newTestDialog(&fakeRoster{})
	state := d.OpenEdit(storedStudent())
	form := completeForm()
	form.ID = 99
	d.Update(state, form)
	assert.Equal(t, int64(7), state.Working.ID)
	assert.Equal(t, "Admin", state.Working.CreatedBy)
}

func TestSubmitAddRecomputesFullNameAndNormalises(t *testing.T) {
	writer := &fakeRoster{created: &models.Student{ID: 42, FirstName: "Ada"}}
	d := newTestDialog(writer)
	state := d.OpenAdd()
	d.Update(state, completeForm())

	outcome, err := d.Submit(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, outcome.Saved)
	assert.Equal(t, int64(42), outcome.Saved.ID)
	assert.Equal(t, "Student added successfully.", outcome.Notice.Text)

	require.Len(t, writer.sent, 1)
	sent := writer.sent[0]
	assert.Equal(t, "Ada Lovelace", sent.FullName)
	assert.Equal(t, "2001-04-09", sent.BirthDate)
	assert.Equal(t, "Admin", sent.CreatedBy)
	assert.Zero(t, sent.ID)

	// the dialog's own copy is untouched by normalisation
	assert.NotNil(t, state.Working.BirthDate.Parts)
}

func TestSubmitAddWithEmptyAnswerUsesSentRecord(t *testing.T) {
	writer := &fakeRoster{}
	d := newTestDialog(writer)
	state := d.OpenAdd()
	d.Update(state, completeForm())

	outcome, err := d.Submit(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, outcome.Saved)
	assert.Equal(t, "Ada Lovelace", outcome.Saved.FullName)
}

func TestSubmitInvalidSendsNothing(t *testing.T) {
	writer := &fakeRoster{}
	d := newTestDialog(writer)
	state := d.OpenAdd()
	form := completeForm()
	form.Country = ""
	d.Update(state, form)

	outcome, err := d.Submit(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, outcome.Saved)
	assert.Equal(t, "All Fields Required", outcome.Notice.Title)
	assert.Equal(t, "Please fill in all the fields.", outcome.Notice.Text)
	assert.Equal(t, models.NoticeWarning, outcome.Notice.Level)
	assert.Empty(t, writer.calls)
}

func TestSubmitFailureKeepsDialogOpen(t *testing.T) {
	writer := &fakeRoster{createErr: httpStatus(http.StatusBadRequest), updateErr: errors.New("boom")}
	d := newTestDialog(writer)

	add := d.OpenAdd()
	d.Update(add, completeForm())
	before := add.Working.Clone()
	outcome, err := d.Submit(context.Background(), add)
	require.NoError(t, err)
	assert.Nil(t, outcome.Saved)
	assert.Equal(t, "Failed to add student. Please check the form for errors.", outcome.Notice.Text)
	assert.Equal(t, before, add.Working)

	edit := d.OpenEdit(storedStudent())
	changed := edit.Working.Clone()
	changed.LastName = "Brewster"
	d.Update(edit, changed)
	outcome, err = d.Submit(context.Background(), edit)
	require.NoError(t, err)
	assert.Nil(t, outcome.Saved)
	assert.Equal(t, "Failed to update student. Please check the birth date format.", outcome.Notice.Text)
}

func TestSubmitEditSendsNormalisedRecord(t *testing.T) {
	writer := &fakeRoster{}
	d := newTestDialog(writer)
	state := d.OpenEdit(storedStudent())
	changed := state.Working.Clone()
	changed.Country = "Canada"
	d.Update(state, changed)

	outcome, err := d.Submit(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, outcome.Saved)
	assert.Equal(t, "Canada", outcome.Saved.Country)
	assert.Equal(t, []string{"update:7"}, writer.calls)
	assert.Equal(t, "1990-12-09", writer.sent[0].BirthDate)
	assert.Equal(t, "Grace Hopper", writer.sent[0].FullName)
}

func TestSubmitEditRecomposesFullName(t *testing.T) {
	writer := &fakeRoster{}
	d := newTestDialog(writer)
	state := d.OpenEdit(storedStudent())
	renamed := state.Working.Clone()
	renamed.LastName = "Murray"
	renamed.FullName = ""
	d.Update(state, renamed)

	outcome, err := d.Submit(context.Background(), state)
	require.NoError(t, err)
	require.NotNil(t, outcome.Saved)
	require.Len(t, writer.sent, 1)
	assert.Equal(t, "Grace Murray", writer.sent[0].FullName)
	assert.Equal(t, "Murray", writer.sent[0].LastName)
}

func TestEditWithoutFullNameIsUnchanged(t *testing.T) {
	writer := &fakeRoster{}
	d := newTestDialog(writer)
	state := d.OpenEdit(storedStudent())
	untouched := state.Working.Clone()
	untouched.FullName = ""
	d.Update(state, untouched)

	assert.False(t, d.CanSave(state))
	outcome, err := d.Submit(context.Background(), state)
	require.NoError(t, err)
	assert.Nil(t, outcome.Saved)
	assert.Empty(t, writer.calls)
}

func TestSubmitUnchangedEditIsNoop(t *testing.T) {
	writer := &fakeRoster{}
	d := newTestDialog(writer)
	outcome, err := d.Submit(context.Background(), d.OpenEdit(storedStudent()))
	require.NoError(t, err)
	assert.Nil(t, outcome.Saved)
	assert.Nil(t, outcome.Notice)
	assert.Empty(t, writer.calls)
}

func TestSubmitUnauthorizedExpiresSession(t *testing.T) {
	d := newTestDialog(&fakeRoster{createErr: httpStatus(http.StatusUnauthorized)})
	state := d.OpenAdd()
	d.Update(state, completeForm())

	_, err := d.Submit(context.Background(), state)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrSessionExpired))
}
