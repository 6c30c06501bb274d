package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/program-extractor/internal/model"
)

// systemPrompt is the shared system instruction for page extraction.
const systemPrompt = `You extract structured data about a business's programs, classes, staff, schedules, pricing and policies from one page of its website.

Rules:
- Answer ONLY from the page text and screenshots provided
- Return a single valid JSON object and nothing else
- Omit fields you cannot find instead of guessing; use null for unknown values
- Ages are in years; convert months to years when needed
- Durations are in minutes as plain integers
- The screenshots show the whole page after every collapsible section was expanded and the page was scrolled to the end`

const programsSchema = `Extract every program or class offered. Look for recreational classes by age and level, competitive team programs, tumbling, ninja, preschool, camps, clinics and special programs.

Return JSON:
{
  "programs": [
    {
      "name": "program name",
      "description": "what the class offers",
      "age_range": [min_years, max_years],
      "level": "skill level (beginner, intermediate, advanced, team, etc.)",
      "duration": 60,
      "max_participants": 12,
      "skills": ["skills taught"],
      "prerequisites": "requirements or prior experience needed",
      "schedule": "when offered, if shown on this page",
      "schedule_details": {"days": ["Monday"], "times": ["4:30 PM - 5:30 PM"], "session_info": "Fall 2025"},
      "price": "cost if shown",
      "additional_info": "any other important details"
    }
  ]
}
Extract whatever schedule information is present even if it is partial.`

const staffSchema = `Extract coach and staff information.

Return JSON:
{
  "instructors": [
    {
      "name": "full name",
      "title": "position or title",
      "specialties": ["areas of expertise"],
      "experience": "years or description of experience",
      "certifications": ["certifications held"],
      "bio": "biography",
      "photo_url": "photo URL if shown"
    }
  ]
}`

const scheduleSchema = `Extract EVERY class session listed, one entry per day and time, even when the same program repeats.

Return JSON:
{
  "schedules": [
    {
      "program": "program or class name",
      "session_name": "session identifier (Fall 2025, Session 1)",
      "day": "day of week",
      "time": "start time",
      "end_time": "end time if shown",
      "duration": 60,
      "start_date": "session start date",
      "end_date": "session end date",
      "age_range": "age or age range as shown (5-7 years)",
      "level": "skill level",
      "instructor": "instructor name",
      "location": "room or location",
      "spots_available": "spots left, as shown",
      "total_spots": 12,
      "status": "Open, Waitlist, Full, Closed",
      "price": "price if shown",
      "registration_deadline": "deadline if mentioned",
      "additional_info": "makeup classes, holidays, other details"
    }
  ]
}`

const pricingSchema = `Extract pricing information.

Return JSON:
{
  "pricing": [
    {
      "program": "program name",
      "price": "cost",
      "billing_frequency": "monthly, weekly, per class, per session",
      "packages": ["package options"],
      "discounts": ["available discounts"],
      "additional_fees": ["registration fees and other extra costs"]
    }
  ]
}`

const policiesSchema = `Extract policies and rules (cancellation, makeup classes, refunds, dress code, safety, payment).

Return JSON:
{
  "policies": ["one policy per entry"]
}`

const businessSchema = `Extract general information about the business and its facility.

Return JSON:
{
  "business_info": {
    "name": "business name",
    "description": "what the business offers",
    "address": "street address",
    "city": "city",
    "state": "state",
    "zip_code": "postal code",
    "phone": "phone number",
    "email": "email",
    "hours": "operating hours as written",
    "history": "background of the business",
    "mission": "mission or philosophy",
    "facility_details": "equipment, space, amenities"
  }
}`

// SchemaFor returns the output schema the oracle is asked to fill for a
// page category. Categories without a dedicated schema use the business
// info schema.
func SchemaFor(cat model.PageCategory) string {
	switch cat {
	case model.CategoryPrograms:
		return programsSchema
	case model.CategoryStaff:
		return staffSchema
	case model.CategorySchedule:
		return scheduleSchema
	case model.CategoryPricing:
		return pricingSchema
	case model.CategoryPolicies:
		return policiesSchema
	default:
		return businessSchema
	}
}

// BuildPrompt renders the user prompt for one page.
func BuildPrompt(req Request) string {
	var sb strings.Builder
	business := req.BusinessName
	if business == "" {
		business = "a local business"
	}
	platform := req.Platform
	if platform == "" {
		platform = "an unknown"
	}
	fmt.Fprintf(&sb, "This is a %s page from the website of %s, built on %s platform.\n", req.Category, business, platform)
	if req.URL != "" {
		fmt.Fprintf(&sb, "URL: %s\n", req.URL)
	}
	sb.WriteString("\nPage content:\n")
	sb.WriteString(req.Text)
	sb.WriteString("\n\n")
	sb.WriteString(SchemaFor(req.Category))
	return sb.String()
}
