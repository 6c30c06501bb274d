package model

import "time"

// DayHours holds opening times for one weekday ("HH:MM", 24h).
type DayHours struct {
	Open   string `json:"open,omitempty" yaml:"open,omitempty"`
	Close  string `json:"close,omitempty" yaml:"close,omitempty"`
	Closed bool   `json:"closed,omitempty" yaml:"closed,omitempty"`
}

// OperatingHours maps lowercase weekday names to their hours.
type OperatingHours map[string]DayHours

// Weekdays lists the keys of OperatingHours in calendar order.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// BusinessProfile is the final output of a run.
type BusinessProfile struct {
	RunID          string             `json:"run_id" yaml:"run_id"`
	Name           string             `json:"name" yaml:"name"`
	Description    string             `json:"description" yaml:"description"`
	Category       string             `json:"category" yaml:"category"`
	Subcategory    string             `json:"subcategory" yaml:"subcategory"`
	Address        string             `json:"address" yaml:"address"`
	City           string             `json:"city" yaml:"city"`
	State          string             `json:"state" yaml:"state"`
	ZipCode        string             `json:"zip_code" yaml:"zip_code"`
	Phone          string             `json:"phone" yaml:"phone"`
	Email          string             `json:"email" yaml:"email"`
	Website        string             `json:"website" yaml:"website"`
	Platform       string             `json:"platform,omitempty" yaml:"platform,omitempty"`
	History        string             `json:"history,omitempty" yaml:"history,omitempty"`
	Mission        string             `json:"mission,omitempty" yaml:"mission,omitempty"`
	Facility       string             `json:"facility_details,omitempty" yaml:"facility_details,omitempty"`
	OperatingHours OperatingHours     `json:"operating_hours" yaml:"operating_hours"`
	Programs       []ProgramEntity    `json:"programs" yaml:"programs"`
	Instructors    []InstructorEntity `json:"instructors" yaml:"instructors"`
	Policies       []string           `json:"policies" yaml:"policies"`
	Schedules      []ScheduleEntry    `json:"schedules,omitempty" yaml:"schedules,omitempty"`
	Pricing        []PricingEntry     `json:"pricing,omitempty" yaml:"pricing,omitempty"`

	PagesAnalyzed   []string      `json:"pages_analyzed" yaml:"pages_analyzed"`
	PagesDiscovered int           `json:"pages_discovered" yaml:"pages_discovered"`
	Confidence      float64       `json:"confidence" yaml:"confidence"`
	Phases          []PhaseResult `json:"phases,omitempty" yaml:"phases,omitempty"`
	TokenUsage      TokenUsage    `json:"token_usage" yaml:"token_usage"`
	GeneratedAt     time.Time     `json:"generated_at" yaml:"generated_at"`
}
