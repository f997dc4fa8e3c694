package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Gender is transmitted as an integer on the wire.
type Gender int

const (
	GenderMale   Gender = 0
	GenderFemale Gender = 1
)

// String returns the display name used by the filter select.
func (g Gender) String() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	default:
		return strconv.Itoa(int(g))
	}
}

// ParseGender accepts either the display name or the numeric wire value.
func ParseGender(raw string) (Gender, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "0":
		return GenderMale, true
	case "female", "1":
		return GenderFemale, true
	}
	return 0, false
}

// Countries is the fixed suggestion list offered for the country field. The
// field itself is free text.
var Countries = []string{
	"United States",
	"Canada",
	"United Kingdom",
	"Australia",
	"Germany",
	"France",
	"India",
	"China",
}

// Student is the roster record as exchanged with the backend.
type Student struct {
	ID        int64  `json:"student_ID,omitempty"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	FullName  string `json:"fullName"`
	Email     string `json:"student_Email"`
	Gender    Gender `json:"gender"`
	Country   string `json:"country"`
	BirthDate string `json:"birthDate"`
	CreatedBy string `json:"studentCreatedBy"`
}

// ComposeFullName joins first and last name the way the backend expects.
func ComposeFullName(first, last string) string {
	return first + " " + last
}

// DateParts is the structured date used by the birth date picker.
type DateParts struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Format renders the canonical YYYY-MM-DD form, zero padding month and day.
func (d DateParts) Format() string {
	return fmt.Sprintf("%d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Valid reports whether the parts describe a real calendar date.
func (d DateParts) Valid() bool {
	if d.Year <= 0 || d.Month < 1 || d.Month > 12 || d.Day < 1 {
		return false
	}
	t := d.Time()
	return t.Year() == d.Year && int(t.Month()) == d.Month && t.Day() == d.Day
}

// Time returns midnight UTC of the date.
func (d DateParts) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// ParseDateParts parses a canonical date string. Backends sometimes append a
// time component ("2001-04-09T00:00:00"); anything after the day is ignored.
func ParseDateParts(raw string) (DateParts, error) {
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexAny(raw, "T "); idx >= 0 {
		raw = raw[:idx]
	}
	segments := strings.Split(raw, "-")
	if len(segments) != 3 {
		return DateParts{}, fmt.Errorf("invalid date %q", raw)
	}
	values := make([]int, 3)
	for i, segment := range segments {
		n, err := strconv.Atoi(segment)
		if err != nil {
			return DateParts{}, fmt.Errorf("invalid date %q: %w", raw, err)
		}
		values[i] = n
	}
	parts := DateParts{Year: values[0], Month: values[1], Day: values[2]}
	if !parts.Valid() {
		return DateParts{}, fmt.Errorf("invalid date %q", raw)
	}
	return parts, nil
}

// BirthDate carries a birth date in either of its two in-flight forms: the
// structured picker form or the canonical string form. At most one is set.
type BirthDate struct {
	Parts *DateParts
	Text  string
}

// BirthDateFromText wraps a canonical string.
func BirthDateFromText(text string) BirthDate {
	return BirthDate{Text: text}
}

// BirthDateFromParts wraps a structured picker value.
func BirthDateFromParts(parts DateParts) BirthDate {
	p := parts
	return BirthDate{Parts: &p}
}

// IsZero reports an unset birth date.
func (b BirthDate) IsZero() bool {
	return b.Parts == nil && strings.TrimSpace(b.Text) == ""
}

// Normalize converts the structured form into the canonical string form. A
// value already in string form is left untouched, so repeated calls are no-ops.
func (b *BirthDate) Normalize() {
	if b.Parts == nil {
		return
	}
	b.Text = b.Parts.Format()
	b.Parts = nil
}

// Canonical returns the string form without mutating the receiver.
func (b BirthDate) Canonical() string {
	c := b
	c.Normalize()
	return c.Text
}

// Date resolves the birth date to calendar parts.
func (b BirthDate) Date() (DateParts, error) {
	if b.Parts != nil {
		if !b.Parts.Valid() {
			return DateParts{}, fmt.Errorf("invalid date %s", b.Parts.Format())
		}
		return *b.Parts, nil
	}
	return ParseDateParts(b.Text)
}

// MarshalJSON emits the string form as a JSON string and the structured form
// as an object.
func (b BirthDate) MarshalJSON() ([]byte, error) {
	if b.Parts != nil {
		return json.Marshal(b.Parts)
	}
	if b.Text == "" {
		return []byte("null"), nil
	}
	return json.Marshal(b.Text)
}

// UnmarshalJSON accepts null, a date string or a {year, month, day} object.
func (b *BirthDate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*b = BirthDate{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		return json.Unmarshal(data, &b.Text)
	}
	var parts DateParts
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("birthDate must be a date string or {year, month, day}: %w", err)
	}
	b.Parts = &parts
	return nil
}

// StudentForm is the working copy a dialog edits.
type StudentForm struct {
	ID        int64     `json:"student_ID,omitempty"`
	FirstName string    `json:"firstName" validate:"required"`
	LastName  string    `json:"lastName" validate:"required"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"student_Email" validate:"required"`
	Gender    *Gender   `json:"gender" validate:"required"`
	Country   string    `json:"country" validate:"required"`
	BirthDate BirthDate `json:"birthDate"`
	CreatedBy string    `json:"studentCreatedBy"`
}

// FormFromStudent copies a stored record into a dialog working copy, turning
// its birth date into picker form when it parses.
func FormFromStudent(s Student) StudentForm {
	gender := s.Gender
	form := StudentForm{
		ID:        s.ID,
		FirstName: s.FirstName,
		LastName:  s.LastName,
		FullName:  s.FullName,
		Email:     s.Email,
		Gender:    &gender,
		Country:   s.Country,
		BirthDate: BirthDateFromText(s.BirthDate),
		CreatedBy: s.CreatedBy,
	}
	if parts, err := ParseDateParts(s.BirthDate); err == nil {
		form.BirthDate = BirthDateFromParts(parts)
	}
	return form
}

// Clone returns a deep copy so that edits never leak into the source.
func (f StudentForm) Clone() StudentForm {
	c := f
	if f.Gender != nil {
		g := *f.Gender
		c.Gender = &g
	}
	if f.BirthDate.Parts != nil {
		p := *f.BirthDate.Parts
		c.BirthDate.Parts = &p
	}
	return c
}

// ToStudent converts a normalised form into the wire record.
func (f StudentForm) ToStudent() (Student, error) {
	if f.BirthDate.Parts != nil {
		return Student{}, fmt.Errorf("birth date must be normalised before transmission")
	}
	if f.Gender == nil {
		return Student{}, fmt.Errorf("gender is required")
	}
	return Student{
		ID:        f.ID,
		FirstName: f.FirstName,
		LastName:  f.LastName,
		FullName:  f.FullName,
		Email:     f.Email,
		Gender:    *f.Gender,
		Country:   f.Country,
		BirthDate: f.BirthDate.Text,
		CreatedBy: f.CreatedBy,
	}, nil
}

// CalculateAge returns the age in whole years at now. The result is one less
// than the year difference while now's month/day precedes the birthday.
func CalculateAge(birth DateParts, now time.Time) int {
	age := now.Year() - birth.Year
	month := int(now.Month())
	if month < birth.Month || (month == birth.Month && now.Day() < birth.Day) {
		age--
	}
	return age
}
