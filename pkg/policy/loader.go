package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinyland-inc/wingmate/pkg/registry"
)

type rulesFile struct {
	Rules    []Rule `yaml:"rules"`
	Fallback struct {
		Action registry.ReplyPolicy `yaml:"action"`
	} `yaml:"fallback"`
}

// LoadEvaluator reads a rules YAML file and builds an evaluator. A missing
// file is not an error; it yields an evaluator with no rules and the
// selective fallback, so every chat behaves conservatively until rules are
// written.
func LoadEvaluator(path, botName string) (*Evaluator, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewEvaluator(nil, registry.ReplySelective, botName), nil
		}
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}

	var rf rulesFile
	if err := yaml.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("failed to parse rules file: %w", err)
	}

	for i, rule := range rf.Rules {
		if rule.Name == "" {
			return nil, fmt.Errorf("rule %d has no name", i)
		}
		switch rule.Action {
		case registry.ReplyAlways, registry.ReplyNever, registry.ReplySelective:
		default:
			return nil, fmt.Errorf("rule %q has unknown action %q", rule.Name, rule.Action)
		}
	}

	return NewEvaluator(rf.Rules, rf.Fallback.Action, botName), nil
}
