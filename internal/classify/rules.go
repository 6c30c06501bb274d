package classify

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/program-extractor/internal/model"
)

// LoadRules reads a rule table from a YAML file of the form:
//
//	rules:
//	  - name: schedule
//	    keywords: [schedule, calendar]
//	    category: schedule
//	    tier: 1
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "classify: read rules %s", path)
	}

	var wrapper struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "classify: parse rules")
	}
	if len(wrapper.Rules) == 0 {
		return nil, eris.Errorf("classify: %s defines no rules", path)
	}

	for i, r := range wrapper.Rules {
		if r.Reject {
			continue
		}
		if _, ok := model.ParsePageCategory(string(r.Category)); !ok {
			return nil, eris.Errorf("classify: rule %d (%s) has unknown category %q", i, r.Name, r.Category)
		}
	}

	return wrapper.Rules, nil
}

// Load returns the classifier for a rules file, or the default table when
// path is empty.
func Load(path string) (*Classifier, error) {
	if path == "" {
		return Default(), nil
	}
	rules, err := LoadRules(path)
	if err != nil {
		return nil, err
	}
	return New(rules), nil
}
