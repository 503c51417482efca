package classify

import (
	"fmt"
	"strings"

	"github.com/cwbudde/mlplayground/internal/dataset"
)

// City labels predicted by housing rules.
const (
	CitySF = "SF"
	CityNY = "NY"
)

// Attributes a condition can test.
const (
	AttrElevation    = "elevation"
	AttrPricePerSqft = "price_per_sqft"
)

// Connector joins a condition to the result of the ones before it.
type Connector string

const (
	And Connector = "AND"
	Or  Connector = "OR"
)

// Condition compares one attribute against a threshold. The connector of the
// first condition in a rule is ignored.
type Condition struct {
	Attribute string    `json:"attribute"`
	Operator  string    `json:"operator"`
	Value     float64   `json:"value"`
	Connector Connector `json:"connector,omitempty"`
}

// Rule predicts a city when its conditions hold.
type Rule struct {
	Prediction string      `json:"prediction"`
	Conditions []Condition `json:"conditions"`
	Active     bool        `json:"active"`
}

// RuleSet is an ordered rule list; the first matching rule wins.
type RuleSet []Rule

// DefaultRules are the starting rules of the housing demo.
func DefaultRules() RuleSet {
	return RuleSet{
		{
			Prediction: CitySF,
			Conditions: []Condition{{Attribute: AttrElevation, Operator: ">", Value: 50}},
			Active:     true,
		},
		{
			Prediction: CityNY,
			Conditions: []Condition{
				{Attribute: AttrElevation, Operator: "<", Value: 15},
				{Attribute: AttrPricePerSqft, Operator: ">", Value: 1200, Connector: And},
			},
			Active: true,
		},
	}
}

func attribute(h dataset.House, name string) (float64, error) {
	switch name {
	case AttrElevation:
		return h.Elevation, nil
	case AttrPricePerSqft:
		return h.PricePerSqft, nil
	default:
		return 0, fmt.Errorf("unknown attribute %q", name)
	}
}

// Validate checks attribute names, operators and connectors.
func (c Condition) Validate() error {
	if _, err := attribute(dataset.House{}, c.Attribute); err != nil {
		return err
	}
	switch c.Operator {
	case ">", "<", ">=", "<=", "==":
	default:
		return fmt.Errorf("unknown operator %q", c.Operator)
	}
	switch c.Connector {
	case "", And, Or:
	default:
		return fmt.Errorf("unknown connector %q", c.Connector)
	}
	return nil
}

// Eval tests the condition on a house. Invalid conditions never match.
func (c Condition) Eval(h dataset.House) bool {
	v, err := attribute(h, c.Attribute)
	if err != nil {
		return false
	}
	switch c.Operator {
	case ">":
		return v > c.Value
	case "<":
		return v < c.Value
	case ">=":
		return v >= c.Value
	case "<=":
		return v <= c.Value
	case "==":
		return v == c.Value
	default:
		return false
	}
}

// Match evaluates the conditions left to right. Inactive and empty rules
// never match.
func (r Rule) Match(h dataset.House) bool {
	if !r.Active || len(r.Conditions) == 0 {
		return false
	}
	result := r.Conditions[0].Eval(h)
	for _, c := range r.Conditions[1:] {
		if c.Connector == And {
			result = result && c.Eval(h)
		} else {
			result = result || c.Eval(h)
		}
	}
	return result
}

func (r Rule) String() string {
	var b strings.Builder
	b.WriteString("IF ")
	for i, c := range r.Conditions {
		if i > 0 {
			conn := c.Connector
			if conn == "" {
				conn = Or
			}
			fmt.Fprintf(&b, " %s ", conn)
		}
		fmt.Fprintf(&b, "%s %s %g", c.Attribute, c.Operator, c.Value)
	}
	fmt.Fprintf(&b, " THEN %s", r.Prediction)
	return b.String()
}

// Validate checks every rule.
func (rs RuleSet) Validate() error {
	for i, r := range rs {
		if r.Prediction != CitySF && r.Prediction != CityNY {
			return fmt.Errorf("rule %d: unknown prediction %q", i, r.Prediction)
		}
		for _, c := range r.Conditions {
			if err := c.Validate(); err != nil {
				return fmt.Errorf("rule %d: %w", i, err)
			}
		}
	}
	return nil
}

// Classify returns the prediction of the first matching rule, and false when
// no rule matches.
func (rs RuleSet) Classify(h dataset.House) (string, bool) {
	for _, r := range rs {
		if r.Match(h) {
			return r.Prediction, true
		}
	}
	return "", false
}

// RuleMetrics scores a rule set with SF as the positive class. Unclassified
// houses count toward neither the confusion matrix nor accuracy.
type RuleMetrics struct {
	Matrix       ConfusionMatrix `json:"matrix"`
	Correct      int             `json:"correct"`
	Incorrect    int             `json:"incorrect"`
	Unclassified int             `json:"unclassified"`
	Total        int             `json:"total"`
	Accuracy     float64         `json:"accuracy"`
}

// Evaluate applies the rule set to every house.
func (rs RuleSet) Evaluate(houses []dataset.House) RuleMetrics {
	m := RuleMetrics{Total: len(houses)}
	for _, h := range houses {
		pred, ok := rs.Classify(h)
		if !ok {
			m.Unclassified++
			continue
		}
		m.Matrix.Add(h.InSF, pred == CitySF)
		if (pred == CitySF) == h.InSF {
			m.Correct++
		} else {
			m.Incorrect++
		}
	}
	m.Accuracy = ratio(m.Correct, m.Correct+m.Incorrect)
	return m
}

// Coverage is the share of houses some rule classified.
func (m RuleMetrics) Coverage() float64 {
	return ratio(m.Total-m.Unclassified, m.Total)
}
