package profile

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/sells-group/program-extractor/internal/model"
)

// Summary list limits.
const (
	summarySchedules = 10
	summaryPricing   = 5
	summaryPolicies  = 3
	policyWidth      = 100
)

// Summary renders a human-readable report of a profile.
func Summary(p *model.BusinessProfile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", p.Name)
	overview := newTable()
	overview.AppendRows([]table.Row{
		{"Website", p.Website},
		{"Category", p.Category + " / " + p.Subcategory},
		{"Address", joinNonEmpty(", ", p.Address, p.City, p.State, p.ZipCode)},
		{"Phone", p.Phone},
		{"Email", p.Email},
		{"Pages", fmt.Sprintf("%d analyzed of %d discovered", len(p.PagesAnalyzed), p.PagesDiscovered)},
		{"Confidence", fmt.Sprintf("%.0f%%", p.Confidence*100)},
		{"Tokens", fmt.Sprintf("%d in / %d out ($%.4f)", p.TokenUsage.InputTokens, p.TokenUsage.OutputTokens, p.TokenUsage.Cost)},
	})
	b.WriteString(overview.Render())
	b.WriteString("\n")

	section(&b, fmt.Sprintf("Programs (%d)", len(p.Programs)), len(p.Programs), func(t table.Writer) {
		t.AppendHeader(table.Row{"Program", "Ages", "Level", "Schedule", "Price", "Status", "Pages"})
		for _, prog := range p.Programs {
			t.AppendRow(table.Row{prog.Name, FormatAge(prog.AgeRange), prog.Level, prog.Schedule, prog.Price, prog.Status, len(prog.SourcePages)})
		}
	})

	section(&b, fmt.Sprintf("Instructors (%d)", len(p.Instructors)), len(p.Instructors), func(t table.Writer) {
		t.AppendHeader(table.Row{"Name", "Title", "Specialties"})
		for _, inst := range p.Instructors {
			t.AppendRow(table.Row{inst.Name, inst.Title, strings.Join(inst.Specialties, ", ")})
		}
	})

	section(&b, fmt.Sprintf("Schedules (%d)", len(p.Schedules)), len(p.Schedules), func(t table.Writer) {
		t.AppendHeader(table.Row{"Program", "Day", "Time", "Instructor"})
		for _, s := range p.Schedules[:min(len(p.Schedules), summarySchedules)] {
			t.AppendRow(table.Row{s.Program, s.Day, s.Time, s.Instructor})
		}
		if more := len(p.Schedules) - summarySchedules; more > 0 {
			t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", more)})
		}
	})

	section(&b, fmt.Sprintf("Pricing (%d)", len(p.Pricing)), len(p.Pricing), func(t table.Writer) {
		t.AppendHeader(table.Row{"Program", "Price", "Billing"})
		for _, pr := range p.Pricing[:min(len(p.Pricing), summaryPricing)] {
			t.AppendRow(table.Row{pr.Program, pr.Price, pr.BillingFrequency})
		}
		if more := len(p.Pricing) - summaryPricing; more > 0 {
			t.AppendFooter(table.Row{fmt.Sprintf("... and %d more", more)})
		}
	})

	section(&b, fmt.Sprintf("Policies (%d)", len(p.Policies)), len(p.Policies), func(t table.Writer) {
		for _, pol := range p.Policies[:min(len(p.Policies), summaryPolicies)] {
			t.AppendRow(table.Row{text.Trim(pol, policyWidth)})
		}
	})

	section(&b, "Pages analyzed", len(p.PagesAnalyzed), func(t table.Writer) {
		for i, u := range p.PagesAnalyzed {
			t.AppendRow(table.Row{i + 1, u})
		}
	})

	return b.String()
}

func section(b *strings.Builder, title string, n int, fill func(t table.Writer)) {
	if n == 0 {
		return
	}
	t := newTable()
	t.SetTitle(title)
	fill(t)
	b.WriteString(t.Render())
	b.WriteString("\n")
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.Style().Format.Footer = text.FormatDefault
	return t
}

// FormatAge renders an age range as "5-7", "5+", "up to 7" or "".
func FormatAge(a *model.AgeRange) string {
	switch {
	case a.IsZero():
		return ""
	case a.Min != nil && a.Max != nil:
		return fmt.Sprintf("%d-%d", *a.Min, *a.Max)
	case a.Min != nil:
		return fmt.Sprintf("%d+", *a.Min)
	default:
		return fmt.Sprintf("up to %d", *a.Max)
	}
}

func joinNonEmpty(sep string, parts ...string) string {
	var kept []string
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
