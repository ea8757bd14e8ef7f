package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
	"github.com/delloop-lab/accreditor-sub000/internal/repository"
	"github.com/google/uuid"
)

var reportFilenameUnsafe = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

var userReportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"hours": func(minutes int) string { return fmt.Sprintf("%.2f", float64(minutes)/60) },
	"fixed": func(value float64) string { return fmt.Sprintf("%.2f", value) },
	"join":  func(values []string) string { return strings.Join(values, ", ") },
	"yesno": func(value bool) string {
		if value {
			return "Yes"
		}
		return "No"
	},
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ICF Report - {{.Name}} - {{.Year}}</title>
<style>
body{font-family:Arial,sans-serif;color:#1f2937;margin:32px}
h1{color:#1e40af;margin-bottom:4px}
h2{margin-top:32px;border-bottom:2px solid #e5e7eb;padding-bottom:4px}
table{border-collapse:collapse;width:100%;font-size:13px}
th,td{border:1px solid #e5e7eb;padding:6px 8px;text-align:left}
th{background:#f3f4f6}
.summary{display:flex;gap:24px;margin-top:16px}
.card{background:#f9fafb;border:1px solid #e5e7eb;border-radius:6px;padding:12px 16px}
.muted{color:#6b7280}
</style>
</head>
<body>
<h1>ICF Report {{.Year}}</h1>
<p class="muted">{{.Name}} &middot; {{.Email}} &middot; Credential: {{.Level}} &middot; Generated {{.Generated}}</p>
<div class="summary">
<div class="card"><strong>{{len .Sessions}}</strong> sessions</div>
<div class="card"><strong>{{fixed .CoachingHours}}</strong> coaching hours</div>
<div class="card"><strong>{{fixed .PaidHours}}</strong> paid / <strong>{{fixed .ProBonoHours}}</strong> pro-bono</div>
<div class="card"><strong>{{fixed .CPDHours}}</strong> CPD hours ({{fixed .CCEHours}} CCE)</div>
</div>
<h2>Coaching sessions</h2>
{{if .Sessions}}<table>
<tr><th>Date</th><th>Client</th><th>Type</th><th>Hours</th><th>Payment</th></tr>
{{range .Sessions}}<tr><td>{{.Date}}</td><td>{{.ClientName}}</td><td>{{join .Types}}</td><td>{{hours .Duration}}</td><td>{{.PaymentType}}</td></tr>
{{end}}</table>{{else}}<p class="muted">No sessions logged in {{.Year}}.</p>{{end}}
<h2>CPD activities</h2>
{{if .CPD}}<table>
<tr><th>Date</th><th>Title</th><th>Type</th><th>Hours</th><th>Core competency</th><th>Resource development</th><th>ICF CCE</th></tr>
{{range .CPD}}<tr><td>{{.ActivityDate}}</td><td>{{.Title}}</td><td>{{.CPDType}}</td><td>{{fixed .Hours}}</td><td>{{fixed .CoreCompetencyHours}}</td><td>{{fixed .ResourceDevelopmentHours}}</td><td>{{yesno .IsICFCCE}}</td></tr>
{{end}}</table>{{else}}<p class="muted">No CPD activities logged in {{.Year}}.</p>{{end}}
</body>
</html>
`))

type userReport struct {
	Name          string
	Email         string
	Level         string
	Year          int
	Generated     string
	Sessions      []models.Session
	CPD           []models.CPDEntry
	CoachingHours float64
	PaidHours     float64
	ProBonoHours  float64
	CPDHours      float64
	CCEHours      float64
}

// UserReport renders a self-contained HTML summary of one user's sessions
// and CPD activities for a calendar year.
func (s *AdminService) UserReport(ctx context.Context, userID uuid.UUID, year int) (*Export, error) {
	if year < 1900 || year > 9999 {
		return nil, ErrInvalidInput
	}
	profile, err := s.profiles.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-12-31", year)
	sessions, err := s.sessions.List(ctx, repository.SessionListFilter{UserID: userID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	entries, err := s.cpd.List(ctx, userID, repository.DateRange{From: from, To: to})
	if err != nil {
		return nil, err
	}

	report := userReport{
		Name:      displayName(*profile),
		Email:     profile.Email,
		Level:     icfLevelLabel(profile.ICFLevel),
		Year:      year,
		Generated: s.now().UTC().Format(time.RFC1123),
		Sessions:  sessions,
		CPD:       entries,
	}
	for _, session := range sessions {
		paid, proBono := splitHours(session)
		report.PaidHours += paid
		report.ProBonoHours += proBono
	}
	report.CoachingHours = report.PaidHours + report.ProBonoHours
	for _, entry := range entries {
		report.CPDHours += entry.Hours
		if entry.IsICFCCE {
			report.CCEHours += entry.Hours
		}
	}

	var buf bytes.Buffer
	if err := userReportTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("render report: %w", err)
	}
	return &Export{
		Filename:    reportFilename(report.Name, year),
		ContentType: "text/html; charset=utf-8",
		Data:        buf.Bytes(),
	}, nil
}

func reportFilename(name string, year int) string {
	safe := strings.Trim(reportFilenameUnsafe.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if safe == "" {
		safe = "User"
	}
	return fmt.Sprintf("ICF_Report_%s_%d.html", safe, year)
}
