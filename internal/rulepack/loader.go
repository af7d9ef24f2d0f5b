package rulepack

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Document schema for externally authored rule packs. YAML is the primary
// format; JSON documents parse through the same path since JSON is a YAML
// subset.
type packDocument struct {
	RulesVersion string         `yaml:"rules_version"`
	Engine       string         `yaml:"engine"`
	Packs        []packSection  `yaml:"packs"`
}

type packSection struct {
	PackType    string         `yaml:"pack_type"`
	Description string         `yaml:"description"`
	Rules       []ruleSection  `yaml:"rules"`
}

type ruleSection struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Expression string `yaml:"expression"`
	Severity   string `yaml:"severity"`
	Message    string `yaml:"message"`
	Enabled    *bool  `yaml:"enabled"` // default true
}

// Load parses and structurally validates a rule pack definition.
// Returns *SchemaValidationError for missing or malformed required fields
// and *DuplicateRuleIDError for non-unique rule ids within one pack.
// Semantic errors (unknown indicators, missing fields) are deliberately not
// checked here; they surface as EvalErrors at evaluation time.
func Load(source []byte) (*RulePack, error) {
	var doc packDocument
	if err := yaml.Unmarshal(source, &doc); err != nil {
		return nil, newSchemaError("invalid document: %v", err)
	}

	if doc.RulesVersion == "" {
		return nil, newSchemaError("rules_version is required")
	}
	if len(doc.Packs) == 0 {
		return nil, newSchemaError("at least one pack is required")
	}

	rp := &RulePack{
		RulesVersion: doc.RulesVersion,
		Engine:       doc.Engine,
		Packs:        make([]Pack, 0, len(doc.Packs)),
		LoadedAt:     time.Now(),
	}

	for i, section := range doc.Packs {
		if section.PackType == "" {
			return nil, newSchemaError("packs[%d]: pack_type is required", i)
		}

		pack := Pack{
			Type:        PackType(section.PackType),
			Description: section.Description,
			Rules:       make([]Rule, 0, len(section.Rules)),
		}

		seen := make(map[string]bool, len(section.Rules))
		for j, rs := range section.Rules {
			rule, err := loadRule(pack.Type, i, j, rs)
			if err != nil {
				return nil, err
			}
			if seen[rule.ID] {
				return nil, &DuplicateRuleIDError{PackType: pack.Type, RuleID: rule.ID}
			}
			seen[rule.ID] = true
			pack.Rules = append(pack.Rules, rule)
		}

		rp.Packs = append(rp.Packs, pack)
	}

	return rp, nil
}

func loadRule(packType PackType, packIdx, ruleIdx int, rs ruleSection) (Rule, error) {
	where := fmt.Sprintf("packs[%d].rules[%d]", packIdx, ruleIdx)
	if rs.ID == "" {
		return Rule{}, newSchemaError("%s: id is required", where)
	}
	if rs.Name == "" {
		return Rule{}, newSchemaError("%s: name is required", where)
	}
	if rs.Expression == "" {
		return Rule{}, newSchemaError("%s: expression is required", where)
	}
	severity := Severity(rs.Severity)
	if !severity.Valid() {
		return Rule{}, newSchemaError("%s: invalid severity %q", where, rs.Severity)
	}

	enabled := true
	if rs.Enabled != nil {
		enabled = *rs.Enabled
	}

	return Rule{
		ID:         rs.ID,
		Name:       rs.Name,
		Expression: rs.Expression,
		Severity:   severity,
		Message:    rs.Message,
		Enabled:    enabled,
	}, nil
}
