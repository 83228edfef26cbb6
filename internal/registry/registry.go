// Package registry provides name→factory lookup for adapters, reporters,
// and signal heads (spec.md §6 "Registry names"). Unknown names are a
// construction-time error, never a silent default.
package registry

import (
	"errors"
	"fmt"

	"github.com/AcidicSwords/AxiomicAgent/internal/config"
	"github.com/AcidicSwords/AxiomicAgent/internal/heads"
	"github.com/AcidicSwords/AxiomicAgent/internal/preprocess"
	"github.com/AcidicSwords/AxiomicAgent/internal/reporter"
)

// ErrUnknownAdapter, ErrUnknownReporter, ErrUnknownHead are registry lookup
// failures (spec.md §7 "Error kinds").
var (
	ErrUnknownAdapter  = errors.New("unknown adapter")
	ErrUnknownReporter = errors.New("unknown reporter")
	ErrUnknownHead     = errors.New("unknown head")
)

// adapterAliases maps registry aliases to their canonical name.
var adapterAliases = map[string]string{
	"zip_stream": "curriculum_stream",
}

// adapterFactories builds the domain Preprocessor registered under each
// adapter name (spec.md §6: "adapters curriculum_stream, conversation_stream,
// conversation_brainstorm, research_learning, creation_blueprint").
var adapterFactories = map[string]func() preprocess.Preprocessor{
	"curriculum_stream":       func() preprocess.Preprocessor { return preprocess.NewCurriculum() },
	"conversation_stream":     func() preprocess.Preprocessor { return preprocess.NewConversation() },
	"conversation_brainstorm": func() preprocess.Preprocessor { return preprocess.NewBrainstorm() },
	"research_learning":       func() preprocess.Preprocessor { return preprocess.NewResearchLearning() },
	"creation_blueprint":      func() preprocess.Preprocessor { return preprocess.NewCreationBlueprint() },
}

// Preprocessor looks up a domain Preprocessor by adapter name, resolving
// aliases first.
func Preprocessor(name string) (preprocess.Preprocessor, error) {
	if canonical, ok := adapterAliases[name]; ok {
		name = canonical
	}
	factory, ok := adapterFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAdapter, name)
	}
	return factory(), nil
}

// reporterFactories builds the Reporter variant registered under each
// reporter name (spec.md §6: "reporters insight, curriculum_insight,
// conversation_insight, curriculum_dynamics").
var reporterFactories = map[string]func(path string) reporter.Reporter{
	"insight":              func(path string) reporter.Reporter { return reporter.NewInsight(path) },
	"curriculum_insight":   func(path string) reporter.Reporter { return reporter.NewCurriculumInsight(path) },
	"conversation_insight": func(path string) reporter.Reporter { return reporter.NewConversationInsight(path) },
	"curriculum_dynamics":  func(path string) reporter.Reporter { return reporter.NewCurriculumDynamics(path) },
}

// Reporter looks up a Reporter variant by name, wired to write its final
// report to path.
func Reporter(name, path string) (reporter.Reporter, error) {
	factory, ok := reporterFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownReporter, name)
	}
	return factory(path), nil
}

// headFactories builds the Head registered under each head name (spec.md
// §6: "heads monte_carlo, forecast, regime_change").
var headFactories = map[string]func(cfg config.HeadConfig) heads.Head{
	"monte_carlo": func(cfg config.HeadConfig) heads.Head {
		return heads.NewMonteCarlo(cfg.MonteCarloSamples, cfg.MonteCarloDropout, cfg.MonteCarloJitter, cfg.MonteCarloSeed)
	},
	"forecast": func(cfg config.HeadConfig) heads.Head {
		return heads.NewForecast(cfg.ForecastWindow)
	},
	"regime_change": func(cfg config.HeadConfig) heads.Head {
		return heads.NewRegimeChange(cfg.RegimeWindow, cfg.RegimeThreshold)
	},
}

// Head looks up a Head by name.
func Head(name string, cfg config.HeadConfig) (heads.Head, error) {
	factory, ok := headFactories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownHead, name)
	}
	return factory(cfg), nil
}

// Heads builds every head named in cfg.Names, in declaration order
// (spec.md §4.4 "Ordering guarantee").
func Heads(cfg config.HeadConfig) ([]heads.Head, error) {
	out := make([]heads.Head, 0, len(cfg.Names))
	for _, name := range cfg.Names {
		h, err := Head(name, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
