package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/roster-console/internal/models"
	appErrors "github.com/noah-isme/roster-console/pkg/errors"
	"github.com/noah-isme/roster-console/pkg/export"
)

// Export formats.
const (
	ExportCSV = "csv"
	ExportPDF = "pdf"
)

var exportHeaders = []string{"ID", "Full Name", "Email", "Gender", "Country", "Birth Date", "Age"}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type snapshotSource interface {
	Enter(ctx context.Context, sess models.Session) (*models.RosterSnapshot, error)
}

// ExportFile is a rendered export ready to be served as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders the displayed roster page for download.
type ExportService struct {
	roster    snapshotSource
	renderers map[string]renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with the CSV and PDF renderers.
func NewExportService(roster snapshotSource, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		roster: roster,
		renderers: map[string]renderer{
			ExportCSV: export.NewCSVExporter(),
			ExportPDF: export.NewPDFExporter(1, 3, 4, 1.5, 2.5, 2, 1),
		},
		logger: logger,
		now:    time.Now,
	}
}

// ExportPage refreshes the session's current page, honouring its filter, and
// renders it in format.
func (s *ExportService) ExportPage(ctx context.Context, sess models.Session, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	snap, err := s.roster.Enter(ctx, sess)
	if err != nil {
		return nil, err
	}

	data := export.Dataset{
		Title:   fmt.Sprintf("Students, page %d of %d", snap.Page.PageIndex, maxInt(snap.PageCount, 1)),
		Headers: exportHeaders,
		Rows:    make([][]string, 0, len(snap.Students)),
	}
	for _, row := range snap.Students {
		age := ""
		if row.Age != nil {
			age = strconv.Itoa(*row.Age)
		}
		data.Rows = append(data.Rows, []string{
			strconv.FormatInt(row.ID, 10),
			row.FullName,
			row.Email,
			row.Gender.String(),
			row.Country,
			row.BirthDate,
			age,
		})
	}

	body, err := r.Render(data)
	if err != nil {
		s.logger.Error("render roster export", zap.String("format", format), zap.Error(err))
		return nil, appErrors.WrapAs(err, appErrors.ErrInternal, "")
	}
	return &ExportFile{
		Filename:    fmt.Sprintf("students-page-%d-%s.%s", snap.Page.PageIndex, s.now().UTC().Format("20060102-150405"), r.Extension()),
		ContentType: r.ContentType(),
		Data:        body,
	}, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
