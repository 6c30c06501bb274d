package profile

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/program-extractor/internal/fusion"
	"github.com/sells-group/program-extractor/internal/model"
)

func intp(v int) *int { return &v }

func sampleInput() Input {
	return Input{
		RunID: "run-1",
		Run:   model.RunInput{BusinessName: "Flip City Gymnastics", BaseURL: "https://flipcity.test", Platform: "wix"},
		Fused: &fusion.Result{
			Programs: []model.ProgramEntity{{
				ProgramRecord: model.ProgramRecord{Name: "Beginner Tumbling", AgeRange: &model.AgeRange{Min: intp(5), Max: intp(7)}, Price: "$75/mo"},
				SourcePages:   []string{"https://flipcity.test/programs"},
				Contributions: 1,
			}},
			Instructors: []model.InstructorEntity{{Name: "Coach Kim", Title: "Head Coach"}},
			Policies:    []string{"Payment is due on the first of the month."},
			Schedules:   []model.ScheduleEntry{{Program: "Beginner Tumbling", Day: "Monday", Time: "4:30 PM"}},
			Pricing:     []model.PricingEntry{{Program: "Beginner Tumbling", Price: "$75", BillingFrequency: "monthly"}},
		},
		Fragments: []model.Fragment{
			{SourceURL: "https://flipcity.test/", BusinessInfo: &model.BusinessInfo{Name: "Flip City Gymnastics Academy", Phone: "555-0100", City: "Austin"}},
			{SourceURL: "https://flipcity.test/programs"},
			{SourceURL: "https://flipcity.test/about", BusinessInfo: &model.BusinessInfo{Phone: "555-0199", Hours: "Mon-Fri 3pm-8pm; Sat 9am-1pm; Sun closed"}},
		},
		PagesAnalyzed: []string{"https://flipcity.test/programs", "https://flipcity.test/about"},
		Discovered:    10,
		Extracted:     7,
		Usage:         model.TokenUsage{InputTokens: 1000, OutputTokens: 200, Cost: 0.006},
		GeneratedAt:   time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestAssemble(t *testing.T) {
	p, err := Assemble(sampleInput(), Options{Subcategory: "TUMBLING"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", p.RunID)
	assert.Equal(t, "Flip City Gymnastics Academy", p.Name, "extracted name wins over input")
	assert.Equal(t, "Quality programs at Flip City Gymnastics Academy", p.Description)
	assert.Equal(t, "SPORTS", p.Category)
	assert.Equal(t, "TUMBLING", p.Subcategory)
	assert.Equal(t, "555-0199", p.Phone, "later business info wins")
	assert.Equal(t, "Austin", p.City, "empty later field does not override")
	assert.Equal(t, DefaultAddress, p.Address)
	assert.Equal(t, DefaultState, p.State)
	assert.Equal(t, DefaultZipCode, p.ZipCode)
	assert.Equal(t, DefaultEmail, p.Email)
	assert.Equal(t, "https://flipcity.test", p.Website)
	assert.Equal(t, "wix", p.Platform)
	assert.InDelta(t, 0.7, p.Confidence, 1e-9)
	assert.Equal(t, 10, p.PagesDiscovered)
	assert.Len(t, p.Programs, 1)
	assert.Len(t, p.Schedules, 1)
	assert.Equal(t, model.DayHours{Open: "15:00", Close: "20:00"}, p.OperatingHours["wednesday"])
	assert.True(t, p.OperatingHours["sunday"].Closed)
}

func TestAssembleNameFallsBackToInput(t *testing.T) {
	in := sampleInput()
	in.Run.BusinessName = "flip city"
	in.Fragments = []model.Fragment{{SourceURL: "https://flipcity.test/", BusinessInfo: &model.BusinessInfo{Phone: "555-0100"}}}

	p, err := Assemble(in, Options{})
	require.NoError(t, err)
	assert.Equal(t, "flip city", p.Name)

	in.Fragments = append(in.Fragments, model.Fragment{
		SourceURL:    "https://flipcity.test/about",
		BusinessInfo: &model.BusinessInfo{Name: "Flip City Gymnastics Academy"},
	})
	p, err = Assemble(in, Options{})
	require.NoError(t, err)
	assert.Equal(t, "Flip City Gymnastics Academy", p.Name)
}

func TestAssembleEmpty(t *testing.T) {
	p, err := Assemble(Input{Run: model.RunInput{BusinessName: "Empty Gym", BaseURL: "https://empty.test"}}, Options{})
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Confidence)
	assert.Equal(t, DefaultSubcategory, p.Subcategory)
	assert.NotNil(t, p.Programs)
	assert.NotNil(t, p.Instructors)
	assert.NotNil(t, p.Policies)
	assert.NotNil(t, p.PagesAnalyzed)
	assert.Equal(t, DefaultHours(), p.OperatingHours)
	assert.False(t, p.GeneratedAt.IsZero())
}

func TestConfidence(t *testing.T) {
	assert.Equal(t, 0.0, Confidence(0, 0))
	assert.Equal(t, 0.0, Confidence(3, 0))
	assert.InDelta(t, 0.7, Confidence(7, 10), 1e-9)
	assert.Equal(t, 1.0, Confidence(12, 10))
	assert.Equal(t, 0.0, Confidence(-1, 10))
}

func TestValidate(t *testing.T) {
	p := &model.BusinessProfile{
		Programs: []model.ProgramEntity{
			{ProgramRecord: model.ProgramRecord{Name: "Ninja"}},
			{ProgramRecord: model.ProgramRecord{Name: "  "}},
		},
		Instructors: []model.InstructorEntity{{Name: ""}, {Name: "Coach Kim"}},
	}
	programs, instructors := Validate(p)
	assert.Equal(t, 1, programs)
	assert.Equal(t, 1, instructors)
	require.Len(t, p.Programs, 1)
	assert.Equal(t, "Ninja", p.Programs[0].Name)
	require.Len(t, p.Instructors, 1)
	assert.Equal(t, "Coach Kim", p.Instructors[0].Name)
}

func TestMergeBusinessInfo(t *testing.T) {
	info, err := MergeBusinessInfo([]model.Fragment{
		{BusinessInfo: &model.BusinessInfo{Name: "A", Email: "a@x.test"}},
		{BusinessInfo: &model.BusinessInfo{Name: "B"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "B", info.Name)
	assert.Equal(t, "a@x.test", info.Email)
}

func TestParseHours(t *testing.T) {
	tests := []struct {
		in   string
		want model.OperatingHours
	}{
		{
			in: "Mon-Fri 9am-6pm, Sat 9am-5pm, Sun closed",
			want: model.OperatingHours{
				"monday": {Open: "09:00", Close: "18:00"}, "tuesday": {Open: "09:00", Close: "18:00"},
				"wednesday": {Open: "09:00", Close: "18:00"}, "thursday": {Open: "09:00", Close: "18:00"},
				"friday": {Open: "09:00", Close: "18:00"}, "saturday": {Open: "09:00", Close: "17:00"},
				"sunday": {Closed: true},
			},
		},
		{
			in: "Monday, Wednesday 4:30 PM - 8:00 PM",
			want: model.OperatingHours{
				"monday": {Open: "16:30", Close: "20:00"}, "wednesday": {Open: "16:30", Close: "20:00"},
			},
		},
		{
			in: "9-6 Tues thru Thurs",
			want: model.OperatingHours{
				"tuesday": {Open: "09:00", Close: "18:00"}, "wednesday": {Open: "09:00", Close: "18:00"},
				"thursday": {Open: "09:00", Close: "18:00"},
			},
		},
		{
			in: "Sat–Sun 10–2pm",
			want: model.OperatingHours{
				"saturday": {Open: "10:00", Close: "14:00"}, "sunday": {Open: "10:00", Close: "14:00"},
			},
		},
	}
	for _, tt := range tests {
		got, ok := ParseHours(tt.in)
		require.True(t, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	h, ok := ParseHours("Open daily 6am-10pm")
	require.True(t, ok)
	assert.Len(t, h, 7)
	assert.Equal(t, "06:00", h["sunday"].Open)

	_, ok = ParseHours("Call us for hours")
	assert.False(t, ok)
	_, ok = ParseHours("")
	assert.False(t, ok)
}

func TestDefaultHours(t *testing.T) {
	h := DefaultHours()
	assert.Len(t, h, 7)
	assert.Equal(t, model.DayHours{Open: "09:00", Close: "18:00"}, h["friday"])
	assert.Equal(t, model.DayHours{Open: "09:00", Close: "17:00"}, h["saturday"])
	assert.Equal(t, model.DayHours{Open: "10:00", Close: "16:00"}, h["sunday"])
}

func TestFormatAge(t *testing.T) {
	assert.Equal(t, "", FormatAge(nil))
	assert.Equal(t, "5-7", FormatAge(&model.AgeRange{Min: intp(5), Max: intp(7)}))
	assert.Equal(t, "3+", FormatAge(&model.AgeRange{Min: intp(3)}))
	assert.Equal(t, "up to 12", FormatAge(&model.AgeRange{Max: intp(12)}))
}

func TestSummary(t *testing.T) {
	in := sampleInput()
	for i := 0; i < 12; i++ {
		in.Fused.Schedules = append(in.Fused.Schedules, model.ScheduleEntry{Program: "Open Gym", Day: "Friday", Time: "7:00 PM"})
	}
	in.Fused.Policies = append(in.Fused.Policies,
		"Make-up classes must be used within 30 days.",
		"Waivers are required for every participant.",
		"Hidden fourth policy that should not show.",
	)
	p, err := Assemble(in, Options{})
	require.NoError(t, err)

	s := Summary(p)
	assert.Contains(t, s, "Flip City Gymnastics")
	assert.Contains(t, s, "Beginner Tumbling")
	assert.Contains(t, s, "5-7")
	assert.Contains(t, s, "Coach Kim")
	assert.Contains(t, s, "Schedules (13)")
	assert.Contains(t, s, "and 3 more")
	assert.Contains(t, s, "Waivers are required")
	assert.NotContains(t, s, "Hidden fourth policy")
	assert.Contains(t, s, "70%")
	assert.Contains(t, s, "https://flipcity.test/about")
}

func TestWriteXLSX(t *testing.T) {
	p, err := Assemble(sampleInput(), Options{})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "profile.xlsx")
	require.NoError(t, WriteXLSX(p, path))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	for _, name := range []string{SheetBusiness, SheetPrograms, SheetInstructors, SheetSchedules, SheetPricing, SheetPolicies} {
		require.Contains(t, f.Sheet, name)
	}

	programs := f.Sheet[SheetPrograms]
	require.Len(t, programs.Rows, 2)
	assert.Equal(t, "Name", programs.Rows[0].Cells[0].String())
	assert.Equal(t, "Beginner Tumbling", programs.Rows[1].Cells[0].String())
	assert.Equal(t, "5-7", programs.Rows[1].Cells[2].String())

	var found bool
	for _, row := range f.Sheet[SheetBusiness].Rows {
		if row.Cells[0].String() == "Hours sunday" {
			found = true
			assert.Equal(t, "Closed", row.Cells[1].String())
		}
	}
	assert.True(t, found)

	err = WriteXLSX(p, filepath.Join(t.TempDir(), "missing", "dir", "x.xlsx"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "save xlsx"))
}
