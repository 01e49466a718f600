package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"campnest/internal/config"
	"campnest/internal/domain"
	"campnest/internal/models"
)

// ExportService builds the admin booking report as an xlsx workbook.
type ExportService struct {
	repo   domain.Repository
	cfg    config.ExportConfig
	logger *zerolog.Logger
}

func NewExportService(repo domain.Repository, cfg config.ExportConfig, logger *zerolog.Logger) *ExportService {
	return &ExportService{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

var exportHeaders = []string{
	"ID", "Status", "User ID", "Campground", "Campsite",
	"Start", "End", "Nights", "Guests", "Total (cents)", "Paid", "Session ID", "Created",
}

// WriteBookingsReport streams the report for a date window to w.
func (s *ExportService) WriteBookingsReport(ctx context.Context, w io.Writer, start, end time.Time) error {
	f, err := s.buildWorkbook(ctx, start, end)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %v", err)
	}
	return nil
}

// ExportBookings writes the report to the exports directory and returns
// the file path.
func (s *ExportService) ExportBookings(ctx context.Context, start, end time.Time) (string, error) {
	if err := os.MkdirAll(s.cfg.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	f, err := s.buildWorkbook(ctx, start, end)
	if err != nil {
		return "", err
	}
	defer f.Close()

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		start.Format(models.DateFormat), end.Format(models.DateFormat))
	filePath := filepath.Join(s.cfg.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	s.logger.Info().Str("file_path", filePath).Msg("bookings report created")
	return filePath, nil
}

func (s *ExportService) buildWorkbook(ctx context.Context, start, end time.Time) (*excelize.File, error) {
	bookings, err := s.repo.ListBookingsInRange(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("error getting bookings: %v", err)
	}

	campgroundNames, campsiteNames, err := s.nameIndexes(ctx)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	title := fmt.Sprintf("Bookings %s to %s",
		start.Format(models.DateFormat), end.Format(models.DateFormat))
	_ = f.SetCellValue(sheetName, "A1", title)
	lastCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, booking := range bookings {
		campsite := ""
		if booking.CampsiteID != nil {
			campsite = campsiteNames[*booking.CampsiteID]
			if campsite == "" {
				campsite = fmt.Sprintf("site %d", *booking.CampsiteID)
			}
		}
		sessionID := ""
		if booking.PaymentSessionID != nil {
			sessionID = *booking.PaymentSessionID
		}

		row := rowIdx + 3
		values := []any{
			booking.ID,
			booking.Status,
			booking.UserID,
			campgroundNames[booking.CampgroundID],
			campsite,
			booking.StartDate.Format(models.DateFormat),
			booking.EndDate.Format(models.DateFormat),
			booking.TotalDays,
			booking.GuestCount,
			booking.TotalPriceCents,
			booking.Paid,
			sessionID,
			booking.CreatedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "B", 12)
	_ = f.SetColWidth(sheetName, "C", "G", 16)
	_ = f.SetColWidth(sheetName, "L", "M", 28)

	_ = f.DeleteSheet("Sheet1")

	return f, nil
}

func (s *ExportService) nameIndexes(ctx context.Context) (map[int64]string, map[int64]string, error) {
	campgrounds, err := s.repo.ListCampgrounds(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting campgrounds: %v", err)
	}
	campgroundNames := make(map[int64]string, len(campgrounds))
	campsiteNames := make(map[int64]string)
	for _, cg := range campgrounds {
		campgroundNames[cg.ID] = cg.Name
		sites, err := s.repo.ListCampsitesByCampground(ctx, cg.ID)
		if err != nil {
			return nil, nil, fmt.Errorf("error getting campsites: %v", err)
		}
		for _, site := range sites {
			campsiteNames[site.ID] = site.Name
		}
	}
	return campgroundNames, campsiteNames, nil
}
