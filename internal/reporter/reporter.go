package reporter

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/wincap/wincap/internal/database"
	"github.com/wincap/wincap/internal/models"
	"github.com/wincap/wincap/pkg/utils"
)

// Number of recent commands and GIFs included in a report
const (
	RecentCommandLimit = 10
	RecentGIFLimit     = 10
)

// Reporter handles report generation
type Reporter struct {
	repo *database.Repository
	now  func() time.Time
}

// New creates a new reporter
func New(repo *database.Repository) *Reporter {
	return &Reporter{
		repo: repo,
		now:  time.Now,
	}
}

// GenerateReport generates a report for the specified period
func (r *Reporter) GenerateReport(periodType string) (*models.Report, error) {
	period, err := GetPeriod(periodType, r.now())
	if err != nil {
		return nil, err
	}

	commandCount, err := r.repo.CountCommandsSince(period.Start)
	if err != nil {
		return nil, err
	}

	tags, err := r.repo.GetTagSummarySince(period.Start)
	if err != nil {
		return nil, err
	}

	var screenshots int64
	for _, t := range tags {
		screenshots += t.Count
	}

	gifs, err := r.repo.GetGIFsSince(period.Start, 0)
	if err != nil {
		return nil, err
	}

	var gifBytes int64
	for _, g := range gifs {
		gifBytes += g.SizeBytes
	}
	if len(gifs) > RecentGIFLimit {
		gifs = gifs[:RecentGIFLimit]
	}

	recent, err := r.repo.GetRecentCommands(period.Start, RecentCommandLimit)
	if err != nil {
		return nil, err
	}

	errorCount, err := r.repo.CountErrorsSince(period.Start)
	if err != nil {
		return nil, err
	}

	return &models.Report{
		Period:         *period,
		CommandCount:   int(commandCount),
		ScreenshotTags: tags,
		Screenshots:    screenshots,
		GIFs:           gifs,
		GIFBytes:       gifBytes,
		RecentCommands: recent,
		ErrorCount:     errorCount,
		GeneratedAt:    r.now(),
	}, nil
}

// GetPeriod calculates the time range for a report ending around now
func GetPeriod(periodType string, now time.Time) (*models.ReportPeriod, error) {
	var start, end time.Time

	switch periodType {
	case "day", "today":
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		end = start.Add(24 * time.Hour)

	case "week":
		// Start of week (Monday)
		weekday := int(now.Weekday())
		if weekday == 0 {
			weekday = 7 // Sunday = 7
		}
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(weekday - 1))
		end = start.AddDate(0, 0, 7)

	case "month":
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		end = start.AddDate(0, 1, 0)

	case "all":
		start = time.Unix(0, 0).In(now.Location())
		end = now

	default:
		return nil, errors.Errorf("invalid period type: %s (valid: day, week, month, all)", periodType)
	}

	return &models.ReportPeriod{
		Start: start,
		End:   end,
		Type:  periodType,
	}, nil
}

// FormatReportText formats the report as human-readable text
func (r *Reporter) FormatReportText(report *models.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Capture Report - %s\n", report.Period.Type)
	if report.Period.Type == "all" {
		fmt.Fprintf(&b, "Period: everything up to %s\n", report.Period.End.Format("2006-01-02 15:04"))
	} else {
		fmt.Fprintf(&b, "Period: %s to %s (%s)\n",
			report.Period.Start.Format("2006-01-02 15:04"),
			report.Period.End.Format("2006-01-02 15:04"),
			utils.FormatRoundedUnit(int64(report.Period.End.Sub(report.Period.Start).Seconds())))
	}
	fmt.Fprintf(&b, "Commands: %s  Screenshots: %s  GIFs: %d (%s)  Errors: %d\n\n",
		humanize.Comma(int64(report.CommandCount)),
		humanize.Comma(report.Screenshots),
		len(report.GIFs),
		humanize.Bytes(uint64(report.GIFBytes)),
		report.ErrorCount)

	if report.CommandCount == 0 && report.Screenshots == 0 {
		b.WriteString("No activity recorded for this period.\n")
		return b.String()
	}

	if len(report.ScreenshotTags) > 0 {
		fmt.Fprintf(&b, "%-30s %10s\n", "Screenshot tag", "Count")
		b.WriteString(strings.Repeat("-", 41) + "\n")
		for _, t := range report.ScreenshotTags {
			fmt.Fprintf(&b, "%-30s %10d\n", tagLabel(t.Tag), t.Count)
		}
		b.WriteString("\n")
	}

	if len(report.RecentCommands) > 0 {
		b.WriteString("Recent commands:\n")
		for _, c := range report.RecentCommands {
			fmt.Fprintf(&b, "  [%s] %s\n", utils.LogStamp(c.Timestamp), truncate(c.Command, 60))
		}
		b.WriteString("\n")
	}

	if len(report.GIFs) > 0 {
		b.WriteString("Recent GIFs:\n")
		for _, g := range report.GIFs {
			fmt.Fprintf(&b, "  %s  %d frames  %s\n", g.Path, g.FrameCount, humanize.Bytes(uint64(g.SizeBytes)))
		}
	}

	return b.String()
}

// FormatReportJSON formats the report as JSON
func (r *Reporter) FormatReportJSON(report *models.Report) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal JSON")
	}
	return string(data), nil
}

func tagLabel(tag string) string {
	if tag == "" {
		return "(untagged)"
	}
	return strings.TrimPrefix(tag, "_")
}

// truncate truncates a string to the specified length
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
