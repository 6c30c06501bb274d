package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/model"
	"github.com/sells-group/program-extractor/internal/resilience"
)

// DefaultMaxTextChars bounds the page text sent to the oracle.
const DefaultMaxTextChars = 5000

// UnknownProgram names stubs whose entry had no program name.
const UnknownProgram = "Unknown Program"

// Outcome is the result of extracting one page. Err is set when the oracle
// failed or its output could not be parsed; Fragment is then empty but
// still tagged with the page URL and category.
type Outcome struct {
	Fragment model.Fragment
	Usage    model.TokenUsage
	Err      error
}

// OK reports whether the page counts as extracted.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Adapter runs the oracle under a guard and routes its output into a
// fragment.
type Adapter struct {
	oracle   Oracle
	guard    *resilience.Guard
	maxChars int
}

// New creates an Adapter. A nil guard runs the oracle unguarded.
func New(oracle Oracle, guard *resilience.Guard, maxChars int) *Adapter {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}
	return &Adapter{oracle: oracle, guard: guard, maxChars: maxChars}
}

type oracleReply struct {
	text  string
	usage model.TokenUsage
}

// Extract asks the oracle about one page. It never panics; every failure
// is reported through Outcome.Err.
func (a *Adapter) Extract(ctx context.Context, req Request) (out Outcome) {
	out.Fragment = model.Fragment{SourceURL: req.URL, Category: req.Category}
	defer func() {
		if r := recover(); r != nil {
			out.Fragment = model.Fragment{SourceURL: req.URL, Category: req.Category}
			out.Err = eris.Errorf("extract: oracle panicked: %v", r)
		}
		if out.Err != nil {
			zap.L().Warn("extract: page extraction failed",
				zap.String("url", req.URL),
				zap.String("category", string(req.Category)),
				zap.String("kind", resilience.Kind(out.Err)),
				zap.Error(out.Err),
			)
		}
	}()

	req.Text = Truncate(req.Text, a.maxChars)

	call := func(ctx context.Context) (oracleReply, error) {
		text, usage, err := a.oracle.Extract(ctx, req)
		return oracleReply{text: text, usage: usage}, err
	}

	var (
		reply oracleReply
		err   error
	)
	if a.guard != nil {
		reply, err = resilience.Call(ctx, a.guard, req.URL, call)
	} else {
		reply, err = call(ctx)
	}
	out.Usage = reply.usage
	if err != nil {
		out.Err = err
		return out
	}

	p, err := parsePayload(reply.text)
	if err != nil {
		out.Err = err
		return out
	}

	out.Fragment = route(req.URL, req.Category, p)
	zap.L().Debug("extract: page extracted",
		zap.String("url", req.URL),
		zap.String("category", string(req.Category)),
		zap.Int("programs", len(out.Fragment.Programs)),
		zap.Int("instructors", len(out.Fragment.Instructors)),
		zap.Int("schedules", len(out.Fragment.Schedules)),
		zap.Int("pricing", len(out.Fragment.Pricing)),
		zap.Int("policies", len(out.Fragment.Policies)),
	)
	return out
}

// ParseFragment parses raw oracle output for a page without calling the
// oracle.
func ParseFragment(url string, cat model.PageCategory, text string) (model.Fragment, error) {
	p, err := parsePayload(text)
	if err != nil {
		return model.Fragment{SourceURL: url, Category: cat}, err
	}
	return route(url, cat, p), nil
}

// route fills only the part of the fragment that matches the page
// category. Schedule and pricing pages also produce program stubs.
func route(url string, cat model.PageCategory, p *payload) model.Fragment {
	f := model.Fragment{SourceURL: url, Category: cat}
	if p == nil {
		return f
	}

	switch cat {
	case model.CategoryPrograms:
		for _, rp := range p.Programs {
			f.Programs = append(f.Programs, programFrom(rp, url))
		}
	case model.CategoryStaff:
		for _, ri := range p.Instructors {
			f.Instructors = append(f.Instructors, instructorFrom(ri))
		}
	case model.CategorySchedule:
		for _, rs := range p.Schedules {
			entry := scheduleFrom(rs)
			f.Schedules = append(f.Schedules, entry)
			f.Programs = append(f.Programs, scheduleStub(entry, url))
		}
	case model.CategoryPricing:
		for _, rp := range p.Pricing {
			entry := pricingFrom(rp)
			f.Pricing = append(f.Pricing, entry)
			f.Programs = append(f.Programs, pricingStub(entry, url))
		}
	case model.CategoryPolicies:
		for _, pol := range p.Policies {
			if v := strings.TrimSpace(string(pol)); v != "" {
				f.Policies = append(f.Policies, v)
			}
		}
	default:
		if p.BusinessInfo != nil {
			bi := businessFrom(*p.BusinessInfo)
			if bi != (model.BusinessInfo{}) {
				f.BusinessInfo = &bi
			}
		}
	}
	return f
}

func programFrom(rp rawProgram, url string) model.ProgramRecord {
	rec := model.ProgramRecord{
		Name:                 string(rp.Name),
		Description:          string(rp.Description),
		Prerequisites:        string(rp.Prerequisites),
		AdditionalInfo:       string(rp.AdditionalInfo),
		AgeRange:             rp.AgeRange.r,
		Level:                string(rp.Level),
		DurationMinutes:      int(rp.Duration),
		MaxParticipants:      int(rp.MaxParticipants),
		Skills:               rp.Skills,
		Instructors:          rp.Instructors,
		Schedule:             string(rp.Schedule),
		Price:                string(rp.Price),
		BillingFrequency:     string(rp.BillingFrequency),
		Category:             string(rp.Category),
		SessionName:          string(rp.SessionName),
		StartDate:            string(rp.StartDate),
		EndDate:              string(rp.EndDate),
		RegistrationDeadline: string(rp.RegistrationDeadline),
		SpotsAvailable:       string(rp.SpotsAvailable),
		TotalSpots:           int(rp.TotalSpots),
		Status:               string(rp.Status),
		Location:             string(rp.Location),
		SourceURL:            url,
	}
	if d := rp.ScheduleDetails; d != nil {
		details := &model.ScheduleDetails{Days: d.Days, Times: d.Times, SessionInfo: string(d.SessionInfo)}
		if !details.IsZero() {
			rec.ScheduleDetails = details
		}
	}
	return rec
}

func instructorFrom(ri rawInstructor) model.InstructorEntity {
	return model.InstructorEntity{
		Name:           string(ri.Name),
		Title:          string(ri.Title),
		Specialties:    ri.Specialties,
		Experience:     string(ri.Experience),
		Certifications: ri.Certifications,
		Bio:            string(ri.Bio),
		PhotoURL:       string(ri.PhotoURL),
	}
}

func scheduleFrom(rs rawSchedule) model.ScheduleEntry {
	t := string(rs.Time)
	if end := string(rs.EndTime); end != "" && t != "" && !strings.Contains(t, end) {
		t = fmt.Sprintf("%s - %s", t, end)
	}
	return model.ScheduleEntry{
		Program:        string(rs.Program),
		Day:            string(rs.Day),
		Time:           t,
		Instructor:     string(rs.Instructor),
		Location:       string(rs.Location),
		AgeRange:       rs.AgeRange.r,
		Level:          string(rs.Level),
		DurationMins:   int(rs.Duration),
		StartDate:      string(rs.StartDate),
		EndDate:        string(rs.EndDate),
		SessionName:    string(rs.SessionName),
		SpotsAvailable: string(rs.SpotsAvailable),
		TotalSpots:     int(rs.TotalSpots),
		Status:         string(rs.Status),
		Price:          string(rs.Price),
		Deadline:       string(rs.RegistrationDeadline),
		Notes:          string(rs.AdditionalInfo),
	}
}

// scheduleStub is the program record implied by one schedule row.
func scheduleStub(e model.ScheduleEntry, url string) model.ProgramRecord {
	name := strings.TrimSpace(e.Program)
	if name == "" {
		name = UnknownProgram
	}
	rec := model.ProgramRecord{
		Name:                 name,
		Schedule:             strings.TrimSpace(e.Day + " " + e.Time),
		DurationMinutes:      e.DurationMins,
		StartDate:            e.StartDate,
		EndDate:              e.EndDate,
		AgeRange:             e.AgeRange,
		Level:                e.Level,
		SpotsAvailable:       e.SpotsAvailable,
		TotalSpots:           e.TotalSpots,
		Status:               e.Status,
		Price:                e.Price,
		RegistrationDeadline: e.Deadline,
		AdditionalInfo:       e.Notes,
		SessionName:          e.SessionName,
		Location:             e.Location,
		SourceURL:            url,
	}
	if e.Instructor != "" {
		rec.Instructors = []string{e.Instructor}
	}
	details := &model.ScheduleDetails{SessionInfo: e.SessionName}
	if e.Day != "" {
		details.Days = []string{e.Day}
	}
	if e.Time != "" {
		details.Times = []string{e.Time}
	}
	if !details.IsZero() {
		rec.ScheduleDetails = details
	}
	return rec
}

func pricingFrom(rp rawPricing) model.PricingEntry {
	return model.PricingEntry{
		Program:          string(rp.Program),
		Price:            string(rp.Price),
		BillingFrequency: string(rp.BillingFrequency),
		Packages:         rp.Packages,
		Discounts:        rp.Discounts,
		AdditionalFees:   rp.AdditionalFees,
	}
}

func pricingStub(e model.PricingEntry, url string) model.ProgramRecord {
	name := strings.TrimSpace(e.Program)
	if name == "" {
		name = UnknownProgram
	}
	return model.ProgramRecord{
		Name:             name,
		Price:            e.Price,
		BillingFrequency: e.BillingFrequency,
		SourceURL:        url,
	}
}

func businessFrom(rb rawBusiness) model.BusinessInfo {
	return model.BusinessInfo{
		Name:            string(rb.Name),
		Description:     string(rb.Description),
		Address:         string(rb.Address),
		City:            string(rb.City),
		State:           string(rb.State),
		ZipCode:         string(rb.ZipCode),
		Phone:           string(rb.Phone),
		Email:           string(rb.Email),
		Hours:           string(rb.Hours),
		History:         string(rb.History),
		Mission:         string(rb.Mission),
		FacilityDetails: string(rb.FacilityDetails),
	}
}

// Truncate cuts s to at most n characters without splitting a rune.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
