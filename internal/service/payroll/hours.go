package payroll

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cmlabs-hris/payslip-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/payslip-engine/internal/domain/payroll"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"
)

// Layouts carrying their own offset.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
}

// Layouts without offset, read in the employer location.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

var hourDecimal = decimal.NewFromInt(int64(time.Hour))

// HoursResult is the outcome of steps 1-5 for one employee and period.
type HoursResult struct {
	Total          time.Duration
	Days           []payroll.DayBreakdown
	ExcludedDates  []payroll.ExcludedDate
	Warnings       []payroll.DataQualityWarning
	SkippedRecords int
}

// TotalHours returns the included total in hours, rounded to 4 places.
func (r HoursResult) TotalHours() decimal.Decimal {
	return durationHours(r.Total)
}

type interval struct {
	start time.Time
	end   time.Time
}

type parsedPunch struct {
	kind attendance.PunchKind
	at   time.Time
}

type parsedRecord struct {
	id                 string
	date               string
	primary            *interval
	secondary          *interval
	punches            []parsedPunch
	adjustment         *attendance.Adjustment
	requestedPrimary   *interval
	requestedSecondary *interval
	fingerprint        string
}

// ComputeHours runs bucketing, deduplication, time resolution, the break
// policy and the counting policy over a snapshot of attendance records.
// It never fails: bad records are skipped and reported.
func ComputeHours(employeeID string, period payroll.PayPeriod, settings payroll.PayrollSettings, records []attendance.Record) HoursResult {
	loc := settings.Location()
	var result HoursResult

	buckets := make(map[string][]parsedRecord)
	for _, rec := range records {
		if rec.EmployeeID != "" && rec.EmployeeID != employeeID {
			continue
		}

		parsed, warning := parseRecord(rec, loc)
		if warning != nil {
			result.Warnings = append(result.Warnings, *warning)
			result.SkippedRecords++
			continue
		}
		if !period.Contains(parsed.date) {
			continue
		}
		buckets[parsed.date] = append(buckets[parsed.date], parsed)
	}

	dates := make([]string, 0, len(buckets))
	for date := range buckets {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	for _, date := range dates {
		day, warnings := resolveDay(date, buckets[date], settings)
		result.Warnings = append(result.Warnings, warnings...)
		result.Days = append(result.Days, day.breakdown)
		if day.breakdown.Included {
			result.Total += day.hours
		} else {
			result.ExcludedDates = append(result.ExcludedDates, payroll.ExcludedDate{
				Date:   date,
				Hours:  day.breakdown.Hours,
				Reason: day.excludedReason,
			})
		}
	}

	if result.Total < 0 {
		result.Total = 0
	}
	return result
}

type resolvedDay struct {
	breakdown      payroll.DayBreakdown
	hours          time.Duration
	excludedReason string
}

func resolveDay(date string, bucket []parsedRecord, settings payroll.PayrollSettings) (resolvedDay, []payroll.DataQualityWarning) {
	sort.SliceStable(bucket, func(i, j int) bool { return bucket[i].id < bucket[j].id })

	seen := make(map[string]struct{}, len(bucket))
	unique := make([]parsedRecord, 0, len(bucket))
	for _, rec := range bucket {
		if _, dup := seen[rec.fingerprint]; dup {
			continue
		}
		seen[rec.fingerprint] = struct{}{}
		unique = append(unique, rec)
	}

	day := resolvedDay{
		breakdown: payroll.DayBreakdown{
			Date:              date,
			Source:            payroll.SourceNone,
			Records:           len(bucket),
			DuplicatesDropped: len(bucket) - len(unique),
		},
	}
	var warnings []payroll.DataQualityWarning
	warn := func(recordID string, kind payroll.WarningKind, detail string) {
		warnings = append(warnings, payroll.DataQualityWarning{RecordID: recordID, Date: date, Kind: kind, Detail: detail})
	}

	// Approved corrections win over everything recorded for the date.
	var authoritative *parsedRecord
	outstanding := false
	for i := range unique {
		if unique[i].adjustment.IsAuthoritative() {
			authoritative = &unique[i]
		}
		if unique[i].adjustment.IsOutstanding() {
			outstanding = true
		}
	}

	if authoritative != nil {
		var total time.Duration
		for _, iv := range []*interval{authoritative.requestedPrimary, authoritative.requestedSecondary} {
			total += sessionDuration(iv, authoritative.id, warn)
		}
		day.hours = total
		day.breakdown.Source = payroll.SourceAdjustment
		day.breakdown.RawHours = durationHours(total)
		day.breakdown.Hours = durationHours(total)
		day.breakdown.Included = true
		return day, warnings
	}

	// One source per date: any punches on the date shadow every session.
	hasPunches := false
	for _, rec := range unique {
		if len(rec.punches) > 0 {
			hasPunches = true
			break
		}
	}

	var (
		raw          time.Duration
		sessionCount int
		splitOrPunch bool
		single       time.Duration
	)
	for _, rec := range unique {
		if hasPunches {
			if len(rec.punches) > 0 {
				raw += pairPunches(rec.punches, rec.id, warn)
				splitOrPunch = true
				day.breakdown.Source = payroll.SourcePunches
			}
			continue
		}
		if rec.primary != nil {
			d := sessionDuration(rec.primary, rec.id, warn)
			raw += d
			single = d
			sessionCount++
		}
		if rec.secondary != nil {
			raw += sessionDuration(rec.secondary, rec.id, warn)
			sessionCount++
			splitOrPunch = true
		}
		if rec.primary != nil || rec.secondary != nil {
			day.breakdown.Source = payroll.SourceSessions
		}
	}

	hours := raw
	// A lone long session has an unlogged lunch break in it. Split sessions
	// and punches already leave the break out.
	if !splitOrPunch && sessionCount == 1 && settings.BreakThreshold > 0 && single >= settings.BreakThreshold {
		hours -= settings.BreakDuration
		if hours < 0 {
			hours = 0
		}
		day.breakdown.BreakDeducted = true
	}

	day.hours = hours
	day.breakdown.RawHours = durationHours(raw)
	day.breakdown.Hours = durationHours(hours)
	day.breakdown.Included = true

	if outstanding {
		expected := time.Duration(settings.ExpectedDailyHours.Mul(hourDecimal).IntPart())
		diff := raw - expected
		if diff < 0 {
			diff = -diff
		}
		if diff > settings.Tolerance {
			day.breakdown.Included = false
			day.excludedReason = "adjustment pending approval and recorded hours outside tolerance"
		}
	}

	return day, warnings
}

func sessionDuration(iv *interval, recordID string, warn func(string, payroll.WarningKind, string)) time.Duration {
	if iv == nil {
		return 0
	}
	d := iv.end.Sub(iv.start)
	if d < 0 {
		warn(recordID, payroll.WarningNegativeDuration, fmt.Sprintf("session ends %s before it starts", (-d).String()))
		return 0
	}
	return d
}

// pairPunches matches each OUT with the most recent open IN. A repeated IN
// replaces the open one, an OUT with nothing open is ignored.
func pairPunches(punches []parsedPunch, recordID string, warn func(string, payroll.WarningKind, string)) time.Duration {
	var (
		total time.Duration
		open  *time.Time
	)
	for i := range punches {
		p := punches[i]
		switch p.kind {
		case attendance.PunchIn:
			if open != nil {
				warn(recordID, payroll.WarningUnmatchedPunch, "IN at "+open.Format(time.RFC3339)+" has no OUT")
			}
			at := p.at
			open = &at
		case attendance.PunchOut:
			if open == nil {
				warn(recordID, payroll.WarningUnmatchedPunch, "OUT at "+p.at.Format(time.RFC3339)+" has no IN")
				continue
			}
			total += sessionDuration(&interval{start: *open, end: p.at}, recordID, warn)
			open = nil
		}
	}
	if open != nil {
		warn(recordID, payroll.WarningUnmatchedPunch, "IN at "+open.Format(time.RFC3339)+" has no OUT")
	}
	return total
}

func parseRecord(rec attendance.Record, loc *time.Location) (parsedRecord, *payroll.DataQualityWarning) {
	malformed := func(kind payroll.WarningKind, detail string) *payroll.DataQualityWarning {
		return &payroll.DataQualityWarning{RecordID: rec.ID, Date: rec.Date, Kind: kind, Detail: detail}
	}

	parsed := parsedRecord{id: rec.ID, adjustment: rec.Adjustment}
	var err error

	if parsed.primary, err = parseSession(rec.Primary, loc); err != nil {
		return parsedRecord{}, malformed(payroll.WarningMalformedTimestamp, "primary session: "+err.Error())
	}
	if parsed.secondary, err = parseSession(rec.Secondary, loc); err != nil {
		return parsedRecord{}, malformed(payroll.WarningMalformedTimestamp, "secondary session: "+err.Error())
	}
	for i, p := range rec.Punches {
		if p.Kind != attendance.PunchIn && p.Kind != attendance.PunchOut {
			return parsedRecord{}, malformed(payroll.WarningMalformedTimestamp, fmt.Sprintf("punch %d: unknown kind %q", i, p.Kind))
		}
		at, err := parseTimestamp(p.Time, loc)
		if err != nil {
			return parsedRecord{}, malformed(payroll.WarningMalformedTimestamp, fmt.Sprintf("punch %d: %v", i, err))
		}
		parsed.punches = append(parsed.punches, parsedPunch{kind: p.Kind, at: at})
	}
	if rec.Adjustment != nil {
		if parsed.requestedPrimary, err = parseSession(rec.Adjustment.RequestedPrimary, loc); err != nil {
			return parsedRecord{}, malformed(payroll.WarningMalformedTimestamp, "requested primary session: "+err.Error())
		}
		if parsed.requestedSecondary, err = parseSession(rec.Adjustment.RequestedSecondary, loc); err != nil {
			return parsedRecord{}, malformed(payroll.WarningMalformedTimestamp, "requested secondary session: "+err.Error())
		}
	}

	date, err := bucketDate(rec.Date, parsed.firstInstant(), loc)
	if err != nil {
		kind := payroll.WarningMalformedTimestamp
		if strings.TrimSpace(rec.Date) == "" {
			kind = payroll.WarningMissingDate
		}
		return parsedRecord{}, malformed(kind, err.Error())
	}
	parsed.date = date
	parsed.fingerprint = fingerprint(parsed)
	return parsed, nil
}

func parseSession(s *attendance.Session, loc *time.Location) (*interval, error) {
	if s == nil {
		return nil, nil
	}
	start, err := parseTimestamp(s.Start, loc)
	if err != nil {
		return nil, err
	}
	end, err := parseTimestamp(s.End, loc)
	if err != nil {
		return nil, err
	}
	return &interval{start: start, end: end}, nil
}

func parseTimestamp(ts attendance.Timestamp, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(string(ts))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

// bucketDate returns the employer-local calendar date of a record.
// A date column holding a UTC-midnight timestamp is a serialized calendar
// date, so its UTC day is kept; any other instant is converted to local time.
func bucketDate(column string, first *time.Time, loc *time.Location) (string, error) {
	column = strings.TrimSpace(column)
	if column != "" {
		if d, err := time.Parse(payroll.DateLayout, column); err == nil {
			return d.Format(payroll.DateLayout), nil
		}
		t, err := parseTimestamp(attendance.Timestamp(column), loc)
		if err != nil {
			return "", fmt.Errorf("date: %w", err)
		}
		if u := t.UTC(); u.Hour() == 0 && u.Minute() == 0 && u.Second() == 0 && u.Nanosecond() == 0 {
			return u.Format(payroll.DateLayout), nil
		}
		return t.In(loc).Format(payroll.DateLayout), nil
	}
	if first == nil {
		return "", fmt.Errorf("no date and no session to derive one from")
	}
	return first.In(loc).Format(payroll.DateLayout), nil
}

func (p parsedRecord) firstInstant() *time.Time {
	var first *time.Time
	consider := func(t time.Time) {
		if first == nil || t.Before(*first) {
			tt := t
			first = &tt
		}
	}
	if p.primary != nil {
		consider(p.primary.start)
	}
	if p.secondary != nil {
		consider(p.secondary.start)
	}
	for _, punch := range p.punches {
		consider(punch.at)
	}
	if p.requestedPrimary != nil {
		consider(p.requestedPrimary.start)
	}
	return first
}

// fingerprint identifies the real work a record describes: its punches in
// order, or else its session pair, together with its correction state.
// The same instant written in two layouts fingerprints the same.
func fingerprint(p parsedRecord) string {
	var b strings.Builder
	b.WriteString(p.date)
	if len(p.punches) > 0 {
		b.WriteString("|P")
		for _, punch := range p.punches {
			b.WriteString("|")
			b.WriteString(string(punch.kind))
			b.WriteString("@")
			b.WriteString(strconv.FormatInt(punch.at.UnixNano(), 10))
		}
	} else {
		b.WriteString("|S")
		writeInterval(&b, p.primary)
		writeInterval(&b, p.secondary)
	}
	if p.adjustment != nil {
		b.WriteString("|A|")
		b.WriteString(string(p.adjustment.Status))
		b.WriteString("|")
		b.WriteString(strconv.FormatBool(p.adjustment.Applied))
		writeInterval(&b, p.requestedPrimary)
		writeInterval(&b, p.requestedSecondary)
	}
	sum := blake2b.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func writeInterval(b *strings.Builder, iv *interval) {
	if iv == nil {
		b.WriteString("|-")
		return
	}
	b.WriteString("|")
	b.WriteString(strconv.FormatInt(iv.start.UnixNano(), 10))
	b.WriteString("-")
	b.WriteString(strconv.FormatInt(iv.end.UnixNano(), 10))
}

func durationHours(d time.Duration) decimal.Decimal {
	return decimal.NewFromInt(int64(d)).Div(hourDecimal).Round(4)
}
