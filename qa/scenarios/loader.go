package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gridpool/gridpool/core/model"
	"github.com/gridpool/gridpool/core/quantity"
)

// ComponentDef describes one pool component in a scenario file. Values are
// expressed in watts.
type ComponentDef struct {
	ID             string  `yaml:"id"`
	Category       string  `yaml:"category"`
	Lower          float64 `yaml:"lower"`
	Upper          float64 `yaml:"upper"`
	ExclusionLower float64 `yaml:"exclusion_lower"`
	ExclusionUpper float64 `yaml:"exclusion_upper"`
	Available      *bool   `yaml:"available"`
	BoundsKnown    *bool   `yaml:"bounds_known"`
}

// ToModel converts the definition into a component model.
func (c ComponentDef) ToModel() model.Component {
	category, err := model.ParseCategory(c.Category)
	if err != nil {
		category = model.CategoryBattery
	}
	available, boundsKnown := true, true
	if c.Available != nil {
		available = *c.Available
	}
	if c.BoundsKnown != nil {
		boundsKnown = *c.BoundsKnown
	}
	return model.Component{
		ID:       c.ID,
		Category: category,
		Bounds: quantity.Bound{
			Lower: quantity.Watts(c.Lower),
			Upper: quantity.Watts(c.Upper),
		},
		Exclusion: quantity.ExclusionBand{
			Lower: quantity.Watts(c.ExclusionLower),
			Upper: quantity.Watts(c.ExclusionUpper),
		},
		Available:   available,
		BoundsKnown: boundsKnown,
	}
}

// ProposalDef describes one actor proposal in a scenario file.
type ProposalDef struct {
	ActorID  string  `yaml:"actor_id"`
	Value    float64 `yaml:"value"`
	Priority int     `yaml:"priority"`
}

// ToModel converts the definition into a proposal for the given pool.
func (p ProposalDef) ToModel(poolID string, at time.Time) model.Proposal {
	return model.Proposal{
		ActorID:   p.ActorID,
		PoolID:    poolID,
		Value:     quantity.Watts(p.Value),
		Priority:  p.Priority,
		CreatedAt: at,
	}
}

// Expected names the outcome a scenario asserts.
type Expected struct {
	Target    float64 `yaml:"target"`
	Achieved  float64 `yaml:"achieved"`
	Succeeded int     `yaml:"succeeded"`
	Failed    int     `yaml:"failed"`
}

// Scenario is one YAML-defined arbitration and distribution case.
type Scenario struct {
	Name           string         `yaml:"name"`
	Description    string         `yaml:"description,omitempty"`
	Reducer        string         `yaml:"reducer,omitempty"`
	Components     []ComponentDef `yaml:"components"`
	Proposals      []ProposalDef  `yaml:"proposals"`
	FailComponents []string       `yaml:"fail_components,omitempty"`
	NackComponents []string       `yaml:"nack_components,omitempty"`
	Expected       Expected       `yaml:"expected"`
}

// Load reads a scenario from a YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
