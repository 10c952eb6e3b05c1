package rules

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"vigil/internal/pathnorm"
	"vigil/internal/vigilerr"
)

// Policy is the operator-edited scan policy file. Whitelist entries seed the
// annotation store on first load; include/exclude feed the rule set.
type Policy struct {
	Include   []string `yaml:"include"`
	Exclude   []string `yaml:"exclude"`
	Whitelist []string `yaml:"whitelist"`
}

// LoadPolicy reads a YAML policy file. A missing file yields an empty
// policy so a bare config works out of the box.
func LoadPolicy(path string) (Policy, error) {
	var policy Policy
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return policy, nil
		}
		return policy, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return policy, vigilerr.Wrap(vigilerr.ErrValidation, "policy file", path, err)
	}
	normalized := make([]string, 0, len(policy.Whitelist))
	for _, entry := range policy.Whitelist {
		rel, err := pathnorm.Normalize(entry)
		if err != nil {
			return policy, err
		}
		normalized = append(normalized, rel)
	}
	policy.Whitelist = normalized
	return policy, nil
}

// RuleSet builds the rule set described by the policy merged with extra
// CLI-supplied patterns. CLI patterns come after the file's so they win
// specificity ties deterministically.
func (p Policy) RuleSet(extraIncludes, extraExcludes []string) (*RuleSet, error) {
	includes := append(append([]string{}, p.Include...), extraIncludes...)
	excludes := append(append([]string{}, p.Exclude...), extraExcludes...)
	return New(includes, excludes)
}
