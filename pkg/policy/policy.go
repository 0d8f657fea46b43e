package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/greenfina/greenfina/pkg/loanterms"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownCategory = errors.New("unknown loan category")
	ErrUnknownFlow     = errors.New("unknown affordability flow")
)

// Affordability flows. The quote calculator and the application form were
// built against different income thresholds and are kept apart.
const (
	FlowQuote       = "quote"
	FlowApplication = "application"
)

type Category struct {
	Name              string  `yaml:"name" json:"name"`
	AnnualRatePercent float64 `yaml:"annual_rate_percent" json:"annual_rate_percent"`
	MinTermMonths     int     `yaml:"min_term_months" json:"min_term_months"`
	MaxTermMonths     int     `yaml:"max_term_months" json:"max_term_months"`
	MinPrincipal      float64 `yaml:"min_principal" json:"min_principal"`
	MaxPrincipal      float64 `yaml:"max_principal" json:"max_principal"`
}

// ValidateTerms checks principal and term against the category bounds.
func (c Category) ValidateTerms(principal float64, termMonths int) error {
	if principal <= 0 || (c.MinPrincipal > 0 && principal < c.MinPrincipal) ||
		(c.MaxPrincipal > 0 && principal > c.MaxPrincipal) {
		return &loanterms.InvalidLoanTermsError{Field: "principal", Value: principal}
	}
	if termMonths < c.MinTermMonths || termMonths > c.MaxTermMonths {
		return &loanterms.InvalidLoanTermsError{Field: "termMonths", Value: float64(termMonths)}
	}
	return nil
}

type Policy struct {
	Categories      []Category         `yaml:"categories"`
	FlatRatePercent float64            `yaml:"flat_rate_percent"`
	Affordability   map[string]float64 `yaml:"affordability"`
}

func Default() *Policy {
	return &Policy{
		Categories: []Category{
			{Name: "student", AnnualRatePercent: 8.5, MinTermMonths: 3, MaxTermMonths: 36, MinPrincipal: 500, MaxPrincipal: 100000},
			{Name: "personal", AnnualRatePercent: 12.5, MinTermMonths: 6, MaxTermMonths: 60, MinPrincipal: 1000, MaxPrincipal: 250000},
			{Name: "business", AnnualRatePercent: 15.0, MinTermMonths: 12, MaxTermMonths: 84, MinPrincipal: 5000, MaxPrincipal: 1000000},
		},
		FlatRatePercent: 40,
		Affordability: map[string]float64{
			FlowQuote:       0.40,
			FlowApplication: 0.30,
		},
	}
}

// document mirrors Policy with a pointer rate so an explicit 0 is kept.
type document struct {
	Categories      []Category         `yaml:"categories"`
	FlatRatePercent *float64           `yaml:"flat_rate_percent"`
	Affordability   map[string]float64 `yaml:"affordability"`
}

// Parse reads a YAML policy. Sections left out of the document keep their
// defaults.
func Parse(data []byte) (*Policy, error) {
	p := Default()
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	if len(doc.Categories) > 0 {
		p.Categories = doc.Categories
	}
	if doc.FlatRatePercent != nil {
		p.FlatRatePercent = *doc.FlatRatePercent
	}
	for flow, fraction := range doc.Affordability {
		p.Affordability[strings.ToLower(flow)] = fraction
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads the policy file at path, or returns the defaults when path is empty.
func Load(path string) (*Policy, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file %s: %w", path, err)
	}
	return Parse(data)
}

func (p *Policy) Validate() error {
	seen := make(map[string]bool, len(p.Categories))
	for _, c := range p.Categories {
		name := strings.ToLower(c.Name)
		if name == "" {
			return errors.New("policy: category without name")
		}
		if seen[name] {
			return fmt.Errorf("policy: duplicate category %q", c.Name)
		}
		seen[name] = true

		if c.AnnualRatePercent < 0 {
			return fmt.Errorf("policy: category %q has a negative rate", c.Name)
		}
		if c.MinTermMonths < 1 || c.MaxTermMonths < c.MinTermMonths {
			return fmt.Errorf("policy: category %q has an invalid term range", c.Name)
		}
	}

	if p.FlatRatePercent < 0 {
		return errors.New("policy: negative flat rate")
	}
	for flow, fraction := range p.Affordability {
		if fraction <= 0 || fraction > 1 {
			return fmt.Errorf("policy: affordability fraction for %q must be in (0, 1]", flow)
		}
	}
	return nil
}

func (p *Policy) Category(name string) (Category, error) {
	for _, c := range p.Categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return Category{}, fmt.Errorf("%w: %s", ErrUnknownCategory, name)
}

func (p *Policy) Fraction(flow string) (float64, error) {
	fraction, ok := p.Affordability[strings.ToLower(flow)]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownFlow, flow)
	}
	return fraction, nil
}
