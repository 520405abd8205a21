package sweep

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/cellsim/internal/battery"
	"github.com/san-kum/cellsim/internal/config"
	"github.com/san-kum/cellsim/internal/solver"
)

// Scenario is a scripted list of parameter sets.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step starts from a preset (or the base parameters) and applies overrides
// keyed by control name, in display units.
type Step struct {
	Name      string             `yaml:"name"`
	Preset    string             `yaml:"preset"`
	Chemistry string             `yaml:"chemistry"`
	Params    map[string]float64 `yaml:"params"`
	Save      bool               `yaml:"save"`
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s: %w", path, ErrEmptySweep)
	}
	return &scenario, nil
}

// Parameters resolves a step on top of base.
func (s Step) Parameters(base config.ParametersConfig) (battery.Parameters, error) {
	pc := base
	if s.Preset != "" {
		p, ok := config.GetPreset(s.Preset)
		if !ok {
			return battery.Parameters{}, fmt.Errorf("unknown preset %q", s.Preset)
		}
		pc = p
	}
	if s.Chemistry != "" {
		if err := pc.Set("chemistry", s.Chemistry); err != nil {
			return battery.Parameters{}, err
		}
	}
	for k, v := range s.Params {
		if err := pc.Set(k, strconv.FormatFloat(v, 'g', -1, 64)); err != nil {
			return battery.Parameters{}, err
		}
	}
	return pc.Parameters()
}

// RunScenario evaluates steps in order. The save callback, when non-nil,
// receives every outcome whose step asked to be stored.
func RunScenario(ctx context.Context, sim solver.Simulator, scenario *Scenario, base config.ParametersConfig,
	save func(Outcome) error, log *zap.Logger) ([]Outcome, error) {
	if log == nil {
		log = zap.NewNop()
	}
	results := make([]Outcome, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		label := step.Name
		if label == "" {
			label = fmt.Sprintf("step %d", i+1)
		}
		log.Info("scenario step", zap.String("scenario", scenario.Name), zap.String("step", label),
			zap.Int("index", i+1), zap.Int("total", len(scenario.Steps)))

		p, err := step.Parameters(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		out, err := Evaluate(ctx, sim, label, p)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}
		if step.Save && save != nil {
			if err := save(out); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, out)
	}

	return results, nil
}
