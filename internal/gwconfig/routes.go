package gwconfig

import (
	"fmt"
	"os"
	"strings"

	"github.com/edgecomet/gateway/internal/route"
	"github.com/edgecomet/gateway/internal/yamlutil"
)

// stringOrList decodes a YAML scalar or sequence of scalars into a
// []string, per §6's `prefix`/`upstream` fields accepting either form.
type stringOrList []string

func (s *stringOrList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// RuleConfig is the on-disk shape of one route rule record.
type RuleConfig struct {
	Prefix    stringOrList `yaml:"prefix"`
	Upstream  stringOrList `yaml:"upstream"`
	Strategy  string       `yaml:"strategy,omitempty"`
	Whitelist []string     `yaml:"whitelist,omitempty"`
}

type routesFile struct {
	Routes []RuleConfig `yaml:"routes"`
}

// LoadRouteRules reads, validates, and compiles route rules from a YAML
// file into a route.Table, aborting with a numbered per-rule error on
// the first invalid entry (matching the original gateway's behavior).
func LoadRouteRules(path string) (*route.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading routes file %s: %w", path, err)
	}

	var rf routesFile
	if err := yamlutil.UnmarshalStrict(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing routes file %s: %w", path, err)
	}

	rules := make([]*route.Rule, 0, len(rf.Routes))
	for i, rc := range rf.Routes {
		if err := validateRuleConfig(rc); err != nil {
			return nil, fmt.Errorf("route rule #%d: %w", i+1, err)
		}
		rule, err := route.NewRule([]string(rc.Prefix), []string(rc.Upstream), rc.Strategy, rc.Whitelist)
		if err != nil {
			return nil, fmt.Errorf("route rule #%d: %w", i+1, err)
		}
		rules = append(rules, rule)
	}

	return route.NewTable(rules), nil
}

func validateRuleConfig(rc RuleConfig) error {
	if len(rc.Prefix) == 0 || allBlank(rc.Prefix) {
		return fmt.Errorf("prefix must not be empty")
	}
	if len(rc.Upstream) == 0 || allBlank(rc.Upstream) {
		return fmt.Errorf("upstream must not be empty")
	}
	return nil
}

func allBlank(values []string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
