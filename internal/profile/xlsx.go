package profile

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/program-extractor/internal/model"
)

// Sheet names written by WriteXLSX.
const (
	SheetBusiness    = "Business"
	SheetPrograms    = "Programs"
	SheetInstructors = "Instructors"
	SheetSchedules   = "Schedules"
	SheetPricing     = "Pricing"
	SheetPolicies    = "Policies"
)

// WriteXLSX saves the profile as a workbook with one sheet per section.
func WriteXLSX(p *model.BusinessProfile, path string) error {
	f := xlsx.NewFile()

	business := [][]string{
		{"Field", "Value"},
		{"Name", p.Name},
		{"Description", p.Description},
		{"Category", p.Category},
		{"Subcategory", p.Subcategory},
		{"Address", p.Address},
		{"City", p.City},
		{"State", p.State},
		{"Zip Code", p.ZipCode},
		{"Phone", p.Phone},
		{"Email", p.Email},
		{"Website", p.Website},
		{"Platform", p.Platform},
		{"Confidence", fmt.Sprintf("%.2f", p.Confidence)},
		{"Pages Discovered", fmt.Sprintf("%d", p.PagesDiscovered)},
		{"Pages Analyzed", strings.Join(p.PagesAnalyzed, "\n")},
	}
	for _, day := range model.Weekdays {
		h, ok := p.OperatingHours[day]
		if !ok {
			continue
		}
		business = append(business, []string{"Hours " + day, formatDayHours(h)})
	}

	programs := [][]string{{"Name", "Description", "Ages", "Level", "Duration (min)", "Schedule", "Price", "Billing", "Session", "Start", "End", "Spots", "Status", "Instructors", "Skills", "Source Pages"}}
	for _, prog := range p.Programs {
		programs = append(programs, []string{
			prog.Name, prog.Description, FormatAge(prog.AgeRange), prog.Level, intCell(prog.DurationMinutes),
			prog.Schedule, prog.Price, prog.BillingFrequency, prog.SessionName, prog.StartDate, prog.EndDate,
			prog.SpotsAvailable, prog.Status, strings.Join(prog.Instructors, ", "), strings.Join(prog.Skills, ", "),
			strings.Join(prog.SourcePages, "\n"),
		})
	}

	instructors := [][]string{{"Name", "Title", "Specialties", "Experience", "Certifications", "Bio"}}
	for _, inst := range p.Instructors {
		instructors = append(instructors, []string{
			inst.Name, inst.Title, strings.Join(inst.Specialties, ", "), inst.Experience,
			strings.Join(inst.Certifications, ", "), inst.Bio,
		})
	}

	schedules := [][]string{{"Program", "Day", "Time", "Instructor", "Ages", "Level", "Location", "Status"}}
	for _, s := range p.Schedules {
		schedules = append(schedules, []string{s.Program, s.Day, s.Time, s.Instructor, FormatAge(s.AgeRange), s.Level, s.Location, s.Status})
	}

	pricing := [][]string{{"Program", "Price", "Billing", "Packages", "Discounts", "Fees"}}
	for _, pr := range p.Pricing {
		pricing = append(pricing, []string{
			pr.Program, pr.Price, pr.BillingFrequency, strings.Join(pr.Packages, "; "),
			strings.Join(pr.Discounts, "; "), strings.Join(pr.AdditionalFees, "; "),
		})
	}

	policies := [][]string{{"Policy"}}
	for _, pol := range p.Policies {
		policies = append(policies, []string{pol})
	}

	for _, s := range []struct {
		name string
		rows [][]string
	}{
		{SheetBusiness, business},
		{SheetPrograms, programs},
		{SheetInstructors, instructors},
		{SheetSchedules, schedules},
		{SheetPricing, pricing},
		{SheetPolicies, policies},
	} {
		if err := addSheet(f, s.name, s.rows); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "profile: save xlsx %s", path)
	}
	return nil
}

func addSheet(f *xlsx.File, name string, rows [][]string) error {
	sheet, err := f.AddSheet(name)
	if err != nil {
		return eris.Wrapf(err, "profile: add sheet %s", name)
	}
	for _, data := range rows {
		row := sheet.AddRow()
		for _, v := range data {
			row.AddCell().SetString(v)
		}
	}
	return nil
}

func formatDayHours(h model.DayHours) string {
	if h.Closed {
		return "Closed"
	}
	return h.Open + "-" + h.Close
}

func intCell(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%d", n)
}
