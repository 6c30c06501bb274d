// Package profile assembles the final business profile from fused data,
// fills defaults for anything the site did not say, and renders it for
// people and spreadsheets.
package profile

import (
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/fusion"
	"github.com/sells-group/program-extractor/internal/model"
)

// Placeholders used when the site does not provide a value.
const (
	DefaultAddress = "Address not available"
	DefaultCity    = "City not available"
	DefaultState   = "State not available"
	DefaultZipCode = "00000"
	DefaultPhone   = "Phone not available"
	DefaultEmail   = "Email not available"

	DefaultCategory    = "SPORTS"
	DefaultSubcategory = "GYMNASTICS"
)

// Options stamp the classification on every profile.
type Options struct {
	Category    string
	Subcategory string
}

// Input is everything a run knows once browsing is done.
type Input struct {
	RunID         string
	Run           model.RunInput
	Fused         *fusion.Result
	Fragments     []model.Fragment
	PagesAnalyzed []string
	Discovered    int
	Extracted     int
	Phases        []model.PhaseResult
	Usage         model.TokenUsage
	GeneratedAt   time.Time
}

// Assemble builds the profile. It does not validate; see Validate.
func Assemble(in Input, opts Options) (*model.BusinessProfile, error) {
	info, err := MergeBusinessInfo(in.Fragments)
	if err != nil {
		return nil, err
	}

	name := orDefault(strings.TrimSpace(info.Name), strings.TrimSpace(in.Run.BusinessName))

	p := &model.BusinessProfile{
		RunID:           in.RunID,
		Name:            name,
		Description:     orDefault(info.Description, "Quality programs at "+name),
		Category:        orDefault(opts.Category, DefaultCategory),
		Subcategory:     orDefault(opts.Subcategory, DefaultSubcategory),
		Address:         orDefault(info.Address, DefaultAddress),
		City:            orDefault(info.City, DefaultCity),
		State:           orDefault(info.State, DefaultState),
		ZipCode:         orDefault(info.ZipCode, DefaultZipCode),
		Phone:           orDefault(info.Phone, DefaultPhone),
		Email:           orDefault(info.Email, DefaultEmail),
		Website:         in.Run.BaseURL,
		Platform:        in.Run.Platform,
		History:         info.History,
		Mission:         info.Mission,
		Facility:        info.FacilityDetails,
		OperatingHours:  OperatingHoursFor(info.Hours),
		PagesAnalyzed:   nonNil(in.PagesAnalyzed),
		PagesDiscovered: in.Discovered,
		Confidence:      Confidence(in.Extracted, in.Discovered),
		Phases:          in.Phases,
		TokenUsage:      in.Usage,
		GeneratedAt:     in.GeneratedAt,
	}
	if p.GeneratedAt.IsZero() {
		p.GeneratedAt = time.Now().UTC()
	}

	if in.Fused != nil {
		p.Programs = in.Fused.Programs
		p.Instructors = in.Fused.Instructors
		p.Policies = in.Fused.Policies
		p.Schedules = in.Fused.Schedules
		p.Pricing = in.Fused.Pricing
	}
	if p.Programs == nil {
		p.Programs = []model.ProgramEntity{}
	}
	if p.Instructors == nil {
		p.Instructors = []model.InstructorEntity{}
	}
	if p.Policies == nil {
		p.Policies = []string{}
	}
	return p, nil
}

// MergeBusinessInfo folds business_info fragments in order. A later
// non-empty field overrides an earlier one; empty fields never do.
func MergeBusinessInfo(fragments []model.Fragment) (model.BusinessInfo, error) {
	var out model.BusinessInfo
	for _, f := range fragments {
		if f.BusinessInfo == nil {
			continue
		}
		if err := mergo.Merge(&out, *f.BusinessInfo, mergo.WithOverride); err != nil {
			return out, eris.Wrapf(err, "profile: merge business info from %s", f.SourceURL)
		}
	}
	return out, nil
}

// Confidence is extracted/discovered clamped to [0, 1]; zero discovered
// pages give zero.
func Confidence(extracted, discovered int) float64 {
	if discovered <= 0 || extracted <= 0 {
		return 0
	}
	return min(float64(extracted)/float64(discovered), 1)
}

// Validate drops programs and instructors without a name and returns how
// many of each were removed.
func Validate(p *model.BusinessProfile) (programs, instructors int) {
	keptPrograms := p.Programs[:0]
	for _, prog := range p.Programs {
		if strings.TrimSpace(prog.Name) == "" {
			programs++
			continue
		}
		keptPrograms = append(keptPrograms, prog)
	}
	p.Programs = keptPrograms

	keptInstructors := p.Instructors[:0]
	for _, inst := range p.Instructors {
		if strings.TrimSpace(inst.Name) == "" {
			instructors++
			continue
		}
		keptInstructors = append(keptInstructors, inst)
	}
	p.Instructors = keptInstructors

	if programs > 0 || instructors > 0 {
		zap.L().Warn("profile: dropped unnamed entities",
			zap.String("run_id", p.RunID),
			zap.Int("programs", programs),
			zap.Int("instructors", instructors),
		)
	}
	return programs, instructors
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
