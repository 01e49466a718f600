package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"campnest/internal/config"
)

func TestExportBookings(t *testing.T) {
	f := newFixture(t)
	logger := zerolog.Nop()
	exporter := NewExportService(f.db, config.ExportConfig{Path: t.TempDir()}, &logger)

	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	booking := seedConfirmedBooking(t, f.db, 42, cg.ID, &site.ID, "2024-06-01", "2024-06-04", "cs_export")

	path, err := exporter.ExportBookings(context.Background(),
		mustDate(t, "2024-05-01"), mustDate(t, "2024-07-01"))
	require.NoError(t, err)

	wb, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer wb.Close()

	header, err := wb.GetCellValue("Bookings", "A2")
	require.NoError(t, err)
	assert.Equal(t, "ID", header)

	status, err := wb.GetCellValue("Bookings", "B3")
	require.NoError(t, err)
	assert.Equal(t, booking.Status, status)

	campground, err := wb.GetCellValue("Bookings", "D3")
	require.NoError(t, err)
	assert.Equal(t, "Pine Hollow", campground)

	total, err := wb.GetCellValue("Bookings", "J3")
	require.NoError(t, err)
	assert.Equal(t, "15000", total)

	session, err := wb.GetCellValue("Bookings", "L3")
	require.NoError(t, err)
	assert.Equal(t, "cs_export", session)
}

func TestWriteBookingsReport(t *testing.T) {
	f := newFixture(t)
	logger := zerolog.Nop()
	exporter := NewExportService(f.db, config.ExportConfig{Path: t.TempDir()}, &logger)

	cg := seedCampground(t, f.db)
	site := seedCampsite(t, f.db, cg.ID, 5000, 4, true)
	seedConfirmedBooking(t, f.db, 42, cg.ID, &site.ID, "2024-06-01", "2024-06-04", "cs_stream")

	var buf bytes.Buffer
	err := exporter.WriteBookingsReport(context.Background(), &buf,
		mustDate(t, "2024-05-01"), mustDate(t, "2024-07-01"))
	require.NoError(t, err)
	assert.NotZero(t, buf.Len())

	wb, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer wb.Close()

	user, err := wb.GetCellValue("Bookings", "C3")
	require.NoError(t, err)
	assert.Equal(t, "42", user)
}
