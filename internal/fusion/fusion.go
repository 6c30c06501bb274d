// Package fusion reconciles program, instructor, and policy data extracted
// from different pages of one site into canonical entities.
package fusion

import (
	"strings"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
	"go.uber.org/zap"

	"github.com/sells-group/program-extractor/internal/model"
)

// NearDuplicateThreshold is the Jaro-Winkler similarity at which two
// distinct grouping keys are reported as a possible under-merge.
const NearDuplicateThreshold = 0.93

// Group is the set of records sharing one normalized name.
type Group struct {
	Key     string
	Records []model.ProgramRecord
}

// NearDuplicate is a pair of grouping keys that look alike but were not
// merged.
type NearDuplicate struct {
	A          string  `json:"a"`
	B          string  `json:"b"`
	Similarity float64 `json:"similarity"`
}

// Result is the fused view of all fragments of a run.
type Result struct {
	Programs       []model.ProgramEntity    `json:"programs"`
	Instructors    []model.InstructorEntity `json:"instructors"`
	Policies       []string                 `json:"policies"`
	Schedules      []model.ScheduleEntry    `json:"schedules,omitempty"`
	Pricing        []model.PricingEntry     `json:"pricing,omitempty"`
	NearDuplicates []NearDuplicate          `json:"near_duplicates,omitempty"`
	RecordCount    int                      `json:"record_count"`
}

// Fuse merges fragments in the order given.
func Fuse(fragments []model.Fragment) *Result {
	var (
		records     []model.ProgramRecord
		instructors []model.InstructorEntity
		policies    []string
		res         = &Result{}
	)

	for _, f := range fragments {
		for _, p := range f.Programs {
			if p.SourceURL == "" {
				p.SourceURL = f.SourceURL
			}
			records = append(records, p)
		}
		instructors = append(instructors, f.Instructors...)
		policies = append(policies, f.Policies...)
		res.Schedules = append(res.Schedules, f.Schedules...)
		res.Pricing = append(res.Pricing, f.Pricing...)
	}

	groups := GroupRecords(records)
	res.RecordCount = len(records)
	res.Programs = make([]model.ProgramEntity, 0, len(groups))
	for _, g := range groups {
		e := MergeGroup(g)
		if len(g.Records) > 1 {
			zap.L().Debug("fusion: merged program",
				zap.String("name", e.Name),
				zap.String("key", g.Key),
				zap.Int("records", len(g.Records)),
				zap.Strings("source_pages", e.SourcePages),
			)
		}
		res.Programs = append(res.Programs, e)
	}

	res.NearDuplicates = FindNearDuplicates(groups, NearDuplicateThreshold)
	for _, nd := range res.NearDuplicates {
		zap.L().Warn("fusion: possible under-merge",
			zap.String("a", nd.A),
			zap.String("b", nd.B),
			zap.Float64("similarity", nd.Similarity),
		)
	}

	res.Instructors = DedupInstructors(instructors)
	res.Policies = CleanPolicies(policies)

	zap.L().Info("fusion: complete",
		zap.Int("records", res.RecordCount),
		zap.Int("programs", len(res.Programs)),
		zap.Int("instructors", len(res.Instructors)),
		zap.Int("policies", len(res.Policies)),
	)
	return res
}

// GroupRecords buckets records by normalized name in first-seen order.
// Records without a name are skipped.
func GroupRecords(records []model.ProgramRecord) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, r := range records {
		name := strings.TrimSpace(r.Name)
		if name == "" {
			continue
		}
		key := NormalizeName(name)
		if key == "" {
			key = strings.ToLower(name)
		}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Key: key})
		}
		groups[i].Records = append(groups[i].Records, r)
	}
	return groups
}

// MergeGroup folds a group left to right and attaches provenance. A
// single-record group keeps its record unchanged.
func MergeGroup(g Group) model.ProgramEntity {
	if len(g.Records) == 0 {
		return model.ProgramEntity{}
	}

	merged := g.Records[0]
	for _, r := range g.Records[1:] {
		merged = mergeRecords(merged, r)
	}

	e := model.ProgramEntity{
		ProgramRecord: merged,
		Contributions: len(g.Records),
	}
	if n, ok := ParseSpots(merged.SpotsAvailable); ok {
		e.Spots = &n
	}

	seen := make(map[string]bool)
	for _, r := range g.Records {
		if r.SourceURL == "" || seen[r.SourceURL] {
			continue
		}
		seen[r.SourceURL] = true
		e.SourcePages = append(e.SourcePages, r.SourceURL)
	}
	return e
}

// FindNearDuplicates compares every pair of group keys.
func FindNearDuplicates(groups []Group, threshold float64) []NearDuplicate {
	var out []NearDuplicate
	for i := 0; i < len(groups); i++ {
		for j := i + 1; j < len(groups); j++ {
			sim := matchr.JaroWinkler(groups[i].Key, groups[j].Key, false)
			if sim >= threshold {
				out = append(out, NearDuplicate{A: groups[i].Key, B: groups[j].Key, Similarity: sim})
			}
		}
	}
	return out
}

// InstructorKey is the identity of an instructor: lowercase name with
// whitespace collapsed.
func InstructorKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// DedupInstructors keeps the first record per name. Nameless entries are
// dropped.
func DedupInstructors(in []model.InstructorEntity) []model.InstructorEntity {
	seen := make(map[string]bool)
	var out []model.InstructorEntity
	for _, inst := range in {
		key := InstructorKey(inst.Name)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, inst)
	}
	return out
}

// minPolicyLen is the trimmed length at or below which a policy is noise.
const minPolicyLen = 10

// CleanPolicies removes exact duplicates, then short entries.
func CleanPolicies(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range in {
		if seen[p] {
			continue
		}
		seen[p] = true
		if utf8.RuneCountInString(strings.TrimSpace(p)) <= minPolicyLen {
			continue
		}
		out = append(out, p)
	}
	return out
}
