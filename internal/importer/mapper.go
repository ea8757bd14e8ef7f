package importer

import (
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/delloop-lab/accreditor-sub000/internal/models"
)

const (
	ColumnClientName  = "Client Name"
	ColumnContactInfo = "Contact Information"
	ColumnSessionKind = "Individual/Group"
	ColumnGroupSize   = "Number in Group"
	ColumnStartDate   = "Start Date"
	ColumnEndDate     = "End Date"
	ColumnPaidHours   = "Paid hours"
	ColumnProBonoHrs  = "Pro-bono hours"
)

// PaymentAmountColumns is searched in order; the first non-empty cell wins.
var PaymentAmountColumns = []string{
	"Payment Amount",
	"Payment",
	"Amount",
	"Fee",
	"Rate",
	"Cost",
	"Paid Amount",
	"Payment Fee",
	"Session Fee",
	"Hourly Rate",
}

// EmailColumns is searched in order when the contact column has no address.
var EmailColumns = []string{
	"Email",
	"Client Email",
	"E-mail",
	"Email Address",
	"Client Email Address",
	"Contact Email",
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+\.[a-zA-Z0-9._-]+`)

type SkipReason int

const (
	SkipNone SkipReason = iota
	SkipMissingClientName
	SkipMissingDateAndHours
	SkipInvalidRow
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipMissingClientName:
		return "missing client name"
	case SkipMissingDateAndHours:
		return "missing start date and hours"
	case SkipInvalidRow:
		return "invalid row"
	default:
		return "unknown"
	}
}

// ClientIdentity is the client a row refers to, before reconciliation.
type ClientIdentity struct {
	Name    string
	Email   string
	Contact string
}

// Key identifies the client within one import batch.
func (c ClientIdentity) Key() string {
	if c.Email != "" {
		return "email:" + strings.ToLower(c.Email)
	}
	return "name:" + c.Name
}

// StoredEmail is what a newly created client record keeps as its email.
func (c ClientIdentity) StoredEmail() string {
	if c.Email != "" {
		return c.Email
	}
	return c.Contact
}

type CandidateSession struct {
	Client          ClientIdentity
	Date            string
	FinishDate      *string
	Duration        int
	Types           []string
	PaymentType     string
	PaymentAmount   *float64
	AdditionalNotes string
}

// DedupKey is the exact match used to recognise an already stored session.
func (s CandidateSession) DedupKey() string {
	return fmt.Sprintf("%s|%s|%d", s.Client.Name, s.Date, s.Duration)
}

// MapRow turns one extracted row into a candidate session. Rows that cannot
// be used return a non-zero SkipReason.
func MapRow(row Row, locale Locale, now time.Time) (candidate CandidateSession, reason SkipReason) {
	defer func() {
		if recovered := recover(); recovered != nil {
			slog.Debug("import row dropped", "panic", recovered)
			candidate = CandidateSession{}
			reason = SkipInvalidRow
		}
	}()

	name := row.Get(ColumnClientName)
	if name == "" {
		return CandidateSession{}, SkipMissingClientName
	}

	startDate := row.Get(ColumnStartDate)
	paidHours := parseHours(row.Get(ColumnPaidHours))
	proBonoHours := parseHours(row.Get(ColumnProBonoHrs))
	if startDate == "" && paidHours+proBonoHours <= 0 {
		return CandidateSession{}, SkipMissingDateAndHours
	}

	contact := row.Get(ColumnContactInfo)
	candidate = CandidateSession{
		Client: ClientIdentity{
			Name:    name,
			Email:   extractEmail(row, contact),
			Contact: contact,
		},
		Date:            NormalizeDate(startDate, now),
		Duration:        int(math.Round((paidHours + proBonoHours) * 60)),
		Types:           []string{sessionKind(row.Get(ColumnSessionKind))},
		PaymentType:     paymentType(paidHours, proBonoHours),
		PaymentAmount:   paymentAmount(row, locale),
		AdditionalNotes: contact,
	}
	if endDate := row.Get(ColumnEndDate); endDate != "" {
		finish := NormalizeDate(endDate, now)
		candidate.FinishDate = &finish
	}
	return candidate, SkipNone
}

func paymentType(paidHours, proBonoHours float64) string {
	switch {
	case paidHours > 0 && proBonoHours > 0:
		return models.PaymentTypePaidAndProBono
	case paidHours > 0:
		return models.PaymentTypePaid
	default:
		return models.PaymentTypeProBono
	}
}

func paymentAmount(row Row, locale Locale) *float64 {
	for _, column := range PaymentAmountColumns {
		raw := row.Get(column)
		if raw == "" {
			continue
		}
		amount, ok := ParseAmount(raw, locale)
		if !ok {
			return nil
		}
		return amount
	}
	return nil
}

func sessionKind(raw string) string {
	kind := strings.ToLower(strings.TrimSpace(raw))
	if kind == "" {
		return models.SessionTypeIndividual
	}
	return kind
}

func extractEmail(row Row, contact string) string {
	if strings.Contains(contact, "@") {
		if match := emailPattern.FindString(contact); match != "" {
			return match
		}
	}
	for _, column := range EmailColumns {
		value := row.Get(column)
		if value == "" {
			continue
		}
		if match := emailPattern.FindString(value); match != "" {
			return match
		}
	}
	return ""
}
