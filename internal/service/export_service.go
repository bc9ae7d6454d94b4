package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lms-api/internal/dto"
	"github.com/noah-isme/lms-api/pkg/export"
)

// Supported gradebook export formats.
const (
	ExportFormatCSV  = "csv"
	ExportFormatPDF  = "pdf"
	ExportFormatXLSX = "xlsx"
)

var exportContentTypes = map[string]string{
	ExportFormatCSV:  "text/csv",
	ExportFormatPDF:  "application/pdf",
	ExportFormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

type xlsxRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	ResultTTL time.Duration
}

// ExportFile is a rendered export ready to stream.
type ExportFile struct {
	Filename     string
	ContentType  string
	RelativePath string
	Data         []byte
}

// ExportService renders gradebooks and keeps a copy of each export on disk.
type ExportService struct {
	storage exportStorage
	csv     csvRenderer
	pdf     pdfRenderer
	xlsx    xlsxRenderer
	logger  *zap.Logger
	cfg     ExportConfig
	now     func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(storage exportStorage, cfg ExportConfig, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer, xlsx xlsxRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if xlsx == nil {
		xlsx = export.NewXLSXExporter()
	}
	return &ExportService{
		storage: storage,
		csv:     csv,
		pdf:     pdf,
		xlsx:    xlsx,
		logger:  logger,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Render converts book into format and stores the result.
func (s *ExportService) Render(ctx context.Context, book *dto.Gradebook, courseTitle, format string) (*ExportFile, error) {
	if book == nil {
		return nil, fmt.Errorf("gradebook nil")
	}
	dataset := GradebookDataset(book)

	var (
		payload []byte
		err     error
	)
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Gradebook - "+courseTitle)
	case ExportFormatXLSX:
		payload, err = s.xlsx.Render(dataset)
	default:
		err = fmt.Errorf("unsupported format %s", format)
	}
	if err != nil {
		return nil, err
	}

	filename := s.buildFilename(courseTitle, format)
	file := &ExportFile{Filename: filename, ContentType: exportContentTypes[format], Data: payload}
	if s.storage != nil {
		relPath, err := s.storage.Save(filename, payload)
		if err != nil {
			s.logger.Warn("failed to keep export copy", zap.String("filename", filename), zap.Error(err))
		} else {
			file.RelativePath = relPath
		}
	}
	return file, nil
}

// Cleanup removes files older than ttl (defaults to configured ResultTTL when ttl <= 0).
func (s *ExportService) Cleanup(ctx context.Context, ttl time.Duration) ([]string, error) {
	if ttl <= 0 {
		ttl = s.cfg.ResultTTL
	}
	if s.storage == nil {
		return nil, nil
	}
	removed, err := s.storage.CleanupOlderThan(ttl)
	if err != nil {
		return removed, err
	}
	if len(removed) > 0 {
		s.logger.Info("export files removed", zap.Int("count", len(removed)))
	}
	return removed, nil
}

// GradebookDataset flattens a gradebook into export rows. Lesson columns are
// numbered so duplicate titles stay distinct.
func GradebookDataset(book *dto.Gradebook) export.Dataset {
	headers := []string{"Student", "Email", "Status"}
	columnHeaders := make([]string, len(book.Columns))
	for i, col := range book.Columns {
		columnHeaders[i] = fmt.Sprintf("%d. %s", i+1, col.Title)
	}
	headers = append(headers, columnHeaders...)

	rows := make([]map[string]string, 0, len(book.Rows))
	for _, r := range book.Rows {
		status := "active"
		if !r.IsActive {
			status = "inactive"
		}
		row := map[string]string{
			"Student": r.StudentName,
			"Email":   r.StudentEmail,
			"Status":  status,
		}
		for i, col := range book.Columns {
			if grade, ok := r.Grades[col.ID]; ok {
				row[columnHeaders[i]] = strconv.Itoa(grade)
			}
		}
		rows = append(rows, row)
	}
	return export.Dataset{Headers: headers, Rows: rows}
}

func validExportFormat(format string) bool {
	_, ok := exportContentTypes[format]
	return ok
}

func (s *ExportService) buildFilename(courseTitle, format string) string {
	timestamp := s.now().UTC().Format("20060102_150405")
	return fmt.Sprintf("gradebook_%s_%s.%s", sanitizeFilename(strings.ToLower(courseTitle)), timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
