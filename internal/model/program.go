package model

// AgeRange is an age bracket with independently optional bounds.
type AgeRange struct {
	Min *int `json:"min" yaml:"min"`
	Max *int `json:"max" yaml:"max"`
}

// IsZero reports whether neither bound is set.
func (a *AgeRange) IsZero() bool {
	return a == nil || (a.Min == nil && a.Max == nil)
}

// ScheduleDetails breaks a schedule into structured parts.
type ScheduleDetails struct {
	Days        []string `json:"days,omitempty" yaml:"days,omitempty"`
	Times       []string `json:"times,omitempty" yaml:"times,omitempty"`
	SessionInfo string   `json:"session_info,omitempty" yaml:"session_info,omitempty"`
}

// IsZero reports whether the details carry no data.
func (s *ScheduleDetails) IsZero() bool {
	return s == nil || (len(s.Days) == 0 && len(s.Times) == 0 && s.SessionInfo == "")
}

// ProgramRecord is one program mention extracted from a single page.
// Zero values mean "absent".
type ProgramRecord struct {
	Name                 string           `json:"name" yaml:"name"`
	Description          string           `json:"description,omitempty" yaml:"description,omitempty"`
	Prerequisites        string           `json:"prerequisites,omitempty" yaml:"prerequisites,omitempty"`
	AdditionalInfo       string           `json:"additional_info,omitempty" yaml:"additional_info,omitempty"`
	AgeRange             *AgeRange        `json:"age_range,omitempty" yaml:"age_range,omitempty"`
	Level                string           `json:"level,omitempty" yaml:"level,omitempty"`
	DurationMinutes      int              `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`
	MaxParticipants      int              `json:"max_participants,omitempty" yaml:"max_participants,omitempty"`
	Skills               []string         `json:"skills_taught,omitempty" yaml:"skills_taught,omitempty"`
	Instructors          []string         `json:"instructors,omitempty" yaml:"instructors,omitempty"`
	Schedule             string           `json:"schedule,omitempty" yaml:"schedule,omitempty"`
	ScheduleDetails      *ScheduleDetails `json:"schedule_details,omitempty" yaml:"schedule_details,omitempty"`
	Price                string           `json:"price,omitempty" yaml:"price,omitempty"`
	BillingFrequency     string           `json:"billing_frequency,omitempty" yaml:"billing_frequency,omitempty"`
	Category             string           `json:"category,omitempty" yaml:"category,omitempty"`
	SessionName          string           `json:"session_name,omitempty" yaml:"session_name,omitempty"`
	StartDate            string           `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate              string           `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	RegistrationDeadline string           `json:"registration_deadline,omitempty" yaml:"registration_deadline,omitempty"`
	SpotsAvailable       string           `json:"spots_available,omitempty" yaml:"spots_available,omitempty"`
	TotalSpots           int              `json:"total_spots,omitempty" yaml:"total_spots,omitempty"`
	Status               string           `json:"status,omitempty" yaml:"status,omitempty"`
	Location             string           `json:"location,omitempty" yaml:"location,omitempty"`
	SourceURL            string           `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}

// ProgramEntity is the fused, canonical view of one program.
type ProgramEntity struct {
	ProgramRecord `yaml:",inline"`

	// Spots is the numeric reading of SpotsAvailable, when it has one.
	Spots         *int     `json:"spots,omitempty" yaml:"spots,omitempty"`
	SourcePages   []string `json:"source_pages" yaml:"source_pages"`
	Contributions int      `json:"contributions" yaml:"contributions"`
}

// InstructorEntity is a staff member.
type InstructorEntity struct {
	Name           string   `json:"name" yaml:"name"`
	Title          string   `json:"title,omitempty" yaml:"title,omitempty"`
	Specialties    []string `json:"specialties,omitempty" yaml:"specialties,omitempty"`
	Experience     string   `json:"experience,omitempty" yaml:"experience,omitempty"`
	Certifications []string `json:"certifications,omitempty" yaml:"certifications,omitempty"`
	Bio            string   `json:"bio,omitempty" yaml:"bio,omitempty"`
	PhotoURL       string   `json:"photo_url,omitempty" yaml:"photo_url,omitempty"`
}

// ScheduleEntry is one raw timetable row.
type ScheduleEntry struct {
	Program        string    `json:"program" yaml:"program"`
	Day            string    `json:"day,omitempty" yaml:"day,omitempty"`
	Time           string    `json:"time,omitempty" yaml:"time,omitempty"`
	Instructor     string    `json:"instructor,omitempty" yaml:"instructor,omitempty"`
	Location       string    `json:"location,omitempty" yaml:"location,omitempty"`
	AgeGroup       string    `json:"age_group,omitempty" yaml:"age_group,omitempty"`
	AgeRange       *AgeRange `json:"age_range,omitempty" yaml:"age_range,omitempty"`
	Level          string    `json:"level,omitempty" yaml:"level,omitempty"`
	DurationMins   int       `json:"duration_minutes,omitempty" yaml:"duration_minutes,omitempty"`
	StartDate      string    `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate        string    `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	SessionName    string    `json:"session_name,omitempty" yaml:"session_name,omitempty"`
	SpotsAvailable string    `json:"spots_available,omitempty" yaml:"spots_available,omitempty"`
	TotalSpots     int       `json:"total_spots,omitempty" yaml:"total_spots,omitempty"`
	Status         string    `json:"status,omitempty" yaml:"status,omitempty"`
	Price          string    `json:"price,omitempty" yaml:"price,omitempty"`
	Deadline       string    `json:"registration_deadline,omitempty" yaml:"registration_deadline,omitempty"`
	Notes          string    `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// PricingEntry is one raw price row.
type PricingEntry struct {
	Program          string   `json:"program" yaml:"program"`
	Price            string   `json:"price,omitempty" yaml:"price,omitempty"`
	BillingFrequency string   `json:"billing_frequency,omitempty" yaml:"billing_frequency,omitempty"`
	Packages         []string `json:"packages,omitempty" yaml:"packages,omitempty"`
	Discounts        []string `json:"discounts,omitempty" yaml:"discounts,omitempty"`
	AdditionalFees   []string `json:"additional_fees,omitempty" yaml:"additional_fees,omitempty"`
}

// BusinessInfo is general business information found on one page.
type BusinessInfo struct {
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	Description     string `json:"description,omitempty" yaml:"description,omitempty"`
	Address         string `json:"address,omitempty" yaml:"address,omitempty"`
	City            string `json:"city,omitempty" yaml:"city,omitempty"`
	State           string `json:"state,omitempty" yaml:"state,omitempty"`
	ZipCode         string `json:"zip_code,omitempty" yaml:"zip_code,omitempty"`
	Phone           string `json:"phone,omitempty" yaml:"phone,omitempty"`
	Email           string `json:"email,omitempty" yaml:"email,omitempty"`
	Hours           string `json:"hours,omitempty" yaml:"hours,omitempty"`
	History         string `json:"history,omitempty" yaml:"history,omitempty"`
	Mission         string `json:"mission,omitempty" yaml:"mission,omitempty"`
	FacilityDetails string `json:"facility_details,omitempty" yaml:"facility_details,omitempty"`
}

// Fragment is everything extracted from one page. Which slices are
// populated depends on Category; schedule and pricing pages also carry
// program stubs derived from their entries.
type Fragment struct {
	SourceURL    string             `json:"source_url"`
	Category     PageCategory       `json:"category"`
	Programs     []ProgramRecord    `json:"programs,omitempty"`
	Instructors  []InstructorEntity `json:"instructors,omitempty"`
	Schedules    []ScheduleEntry    `json:"schedules,omitempty"`
	Pricing      []PricingEntry     `json:"pricing,omitempty"`
	Policies     []string           `json:"policies,omitempty"`
	BusinessInfo *BusinessInfo      `json:"business_info,omitempty"`
}

// IsEmpty reports whether the fragment carries no data.
func (f Fragment) IsEmpty() bool {
	return len(f.Programs) == 0 && len(f.Instructors) == 0 && len(f.Schedules) == 0 &&
		len(f.Pricing) == 0 && len(f.Policies) == 0 && f.BusinessInfo == nil
}
