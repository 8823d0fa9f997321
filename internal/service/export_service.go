package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sensei-assign-api/internal/models"
	appErrors "github.com/noah-isme/sensei-assign-api/pkg/errors"
	"github.com/noah-isme/sensei-assign-api/pkg/export"
)

// Export formats for candidate shortlists.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type shortlistRanker interface {
	RankTrip(ctx context.Context, trip models.Trip) ([]models.Candidate, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title, subtitle string) ([]byte, error)
}

// ExportFile is a rendered shortlist ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders candidate rankings for operators to share offline.
type ExportService struct {
	trips  tripReader
	ranker shortlistRanker
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(trips tripReader, ranker shortlistRanker, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{trips: trips, ranker: ranker, csv: csv, pdf: pdf, logger: logger, now: time.Now}
}

// ExportCandidates ranks the trip and renders the shortlist in the requested format.
func (s *ExportService) ExportCandidates(ctx context.Context, tripID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	trip, err := loadTripForRead(ctx, s.trips, tripID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.ranker.RankTrip(ctx, *trip)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rank candidates")
	}

	data := buildShortlistDataset(candidates)
	generated := s.now().UTC()
	base := fmt.Sprintf("candidates_%s_%s", sanitizeFilename(trip.ID), generated.Format("20060102T150405"))

	var file *ExportFile
	switch format {
	case ExportFormatPDF:
		title := fmt.Sprintf("Sensei candidates: %s", trip.Theme)
		subtitle := fmt.Sprintf("%s, %s to %s. Generated %s",
			trip.Destination, trip.StartDate.Format("2006-01-02"), trip.EndDate.Format("2006-01-02"), generated.Format(time.RFC3339))
		out, err := s.pdf.Render(data, title, subtitle)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		file = &ExportFile{Filename: base + ".pdf", ContentType: "application/pdf", Data: out}
	default:
		out, err := s.csv.Render(data)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		file = &ExportFile{Filename: base + ".csv", ContentType: "text/csv", Data: out}
	}

	s.logger.Info("candidate shortlist exported",
		zap.String("trip_id", trip.ID),
		zap.String("format", format),
		zap.Int("candidates", len(candidates)))
	return file, nil
}

func buildShortlistDataset(candidates []models.Candidate) export.Dataset {
	data := export.Dataset{
		Headers: []string{"Rank", "Sensei", "Specialties", "Weighted Score", "Match Score", "Requirements Met %", "Trip Load", "Conflict Risk", "Auto Assignable"},
		Rows:    make([][]string, 0, len(candidates)),
	}
	for i, c := range candidates {
		data.Rows = append(data.Rows, []string{
			strconv.Itoa(i + 1),
			c.Sensei.Name,
			strings.Join(c.Sensei.Specialties, ", "),
			formatScore(c.Match.WeightedScore),
			formatScore(c.Match.MatchScore),
			formatScore(c.Match.RequirementsMetPercentage),
			strconv.Itoa(c.Sensei.CurrentTripLoad),
			string(c.ConflictRisk),
			strconv.FormatBool(c.AutoAssignable),
		})
	}
	return data
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func sanitizeFilename(raw string) string {
	clean := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, raw)
	if clean == "" {
		return "trip"
	}
	return clean
}
