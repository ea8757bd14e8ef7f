package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/delloop-lab/accreditor-sub000/internal/importer"
	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Client Coaching Log"

var icfLogColumns = []string{
	importer.ColumnClientName,
	importer.ColumnContactInfo,
	importer.ColumnSessionKind,
	importer.ColumnGroupSize,
	importer.ColumnStartDate,
	importer.ColumnEndDate,
	importer.ColumnPaidHours,
	importer.ColumnProBonoHrs,
}

type exportSessionReader interface {
	List(ctx context.Context, filter repository.SessionListFilter) ([]models.Session, error)
}

type exportClientReader interface {
	List(ctx context.Context, userID uuid.UUID) ([]models.Client, error)
}

type ExportService struct {
	sessions exportSessionReader
	clients  exportClientReader
}

func NewExportService(sessions exportSessionReader, clients exportClientReader) *ExportService {
	return &ExportService{sessions: sessions, clients: clients}
}

type Export struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportICFLog writes the owner's sessions in the ICF Client Coaching Log
// layout. year 0 exports every session. The sheet reads back through the
// session importer.
func (s *ExportService) ExportICFLog(ctx context.Context, userID uuid.UUID, year int) (*Export, error) {
	filter := repository.SessionListFilter{UserID: userID}
	label := "all"
	if year != 0 {
		if year < 1900 || year > 9999 {
			return nil, ErrInvalidInput
		}
		filter.From = fmt.Sprintf("%04d-01-01", year)
		filter.To = fmt.Sprintf("%04d-12-31", year)
		label = fmt.Sprint(year)
	}

	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	clients, err := s.clients.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	contacts := make(map[uuid.UUID]string, len(clients))
	for _, client := range clients {
		contact := strings.TrimSpace(client.Email)
		if contact == "" {
			contact = strings.TrimSpace(client.Phone)
		}
		contacts[client.ID] = contact
	}

	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Date < sessions[j].Date
	})

	data, err := buildICFWorkbook(sessions, contacts, label)
	if err != nil {
		return nil, err
	}
	return &Export{
		Filename:    fmt.Sprintf("ICF_Client_Coaching_Log_%s.xlsx", label),
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Data:        data,
	}, nil
}

func buildICFWorkbook(sessions []models.Session, contacts map[uuid.UUID]string, label string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("create style: %w", err)
	}

	if err := f.SetCellValue(exportSheet, "A1", "ICF Client Coaching Log ("+label+")"); err != nil {
		return nil, err
	}
	header := make([]interface{}, len(icfLogColumns))
	for i, column := range icfLogColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(exportSheet, "A3", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "H3", bold); err != nil {
		return nil, err
	}

	var paidTotal, proBonoTotal float64
	row := 4
	for _, session := range sessions {
		paid, proBono := splitHours(session)
		paidTotal += paid
		proBonoTotal += proBono

		contact := ""
		if session.ClientID != nil {
			contact = contacts[*session.ClientID]
		}
		kind, groupSize := "Individual", interface{}(1)
		if isGroupSession(session.Types) {
			kind, groupSize = "Group", ""
		}
		endDate := session.Date
		if session.FinishDate != nil && *session.FinishDate != "" {
			endDate = *session.FinishDate
		}

		values := []interface{}{
			session.ClientName,
			contact,
			kind,
			groupSize,
			session.Date,
			endDate,
			hoursCell(paid),
			hoursCell(proBono),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}
		row++
	}

	// The totals row leaves Client Name empty so a re-import skips it.
	totals := []interface{}{"", "", "", "", "", "Total", roundHours(paidTotal), roundHours(proBonoTotal)}
	totalsCell, err := excelize.CoordinatesToCellName(1, row+1)
	if err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(exportSheet, totalsCell, &totals); err != nil {
		return nil, fmt.Errorf("write totals: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, fmt.Sprintf("F%d", row+1), fmt.Sprintf("H%d", row+1), bold); err != nil {
		return nil, err
	}
	if err := f.SetColWidth(exportSheet, "A", "H", 20); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// splitHours attributes mixed sessions to paid hours; the log has no column
// for a split.
func splitHours(session models.Session) (paid, proBono float64) {
	hours := float64(session.Duration) / 60
	if session.PaymentType == models.PaymentTypeProBono {
		return 0, hours
	}
	return hours, 0
}

func hoursCell(hours float64) interface{} {
	if hours == 0 {
		return ""
	}
	return math.Round(hours*10000) / 10000
}

func isGroupSession(types []string) bool {
	for _, value := range types {
		switch strings.ToLower(value) {
		case models.SessionTypeGroup, models.SessionTypeTeam:
			return true
		}
	}
	return false
}
