package classifier

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"NewsScanner/internal/domain"
)

// Tier names, in the order they are declared and matched.
const (
	TierGangs             = "GANGS"
	TierOrganizedCrime    = "ORGANIZED CRIME"
	TierDrugs             = "DRUGS"
	TierArmedInteractions = "ARMED INTERACTIONS"
)

// Pattern is a compiled table entry. Source is what verdicts report.
type Pattern struct {
	Source string
	expr   *regexp.Regexp
}

// Tables holds the four compiled pattern tiers. It is never mutated after Compile.
type Tables struct {
	gangs          []Pattern
	organizedCrime []Pattern
	drugs          []Pattern
	armed          []Pattern
}

// TableSpec is the uncompiled, YAML-facing form of the pattern tables.
type TableSpec struct {
	Gangs             []string `yaml:"GANGS"`
	OrganizedCrime    []string `yaml:"ORGANIZED CRIME"`
	Drugs             []string `yaml:"DRUGS"`
	ArmedInteractions []string `yaml:"ARMED INTERACTIONS"`
}

// DefaultSpec returns the built-in tables, written unaccented and lower-case.
func DefaultSpec() TableSpec {
	return TableSpec{
		Gangs: []string{
			`\bpcc\b`,
			`primeiro comando da capital`,
			`comando vermelho`,
			`\bcv\b`,
			`terceiro comando puro`,
			`amigos dos amigos`,
			`familia do norte`,
			`tren de aragua`,
		},
		OrganizedCrime: []string{
			`\bfaccao\b`,
			`\bfaccoes\b`,
			`milicia`,
			`crime organizado`,
			`organizacao criminosa`,
			`grupo paramilitar`,
			`\bcarte(l|is)\b`,
		},
		Drugs: []string{
			`trafico de drogas`,
			`narcotrafico`,
			`cocaina`,
			`maconha`,
			`\bcrack\b`,
			`entorpecentes`,
			`\bdrogas?\b`,
		},
		ArmedInteractions: []string{
			`tiroteio`,
			`troca de tiros`,
			`confronto armado`,
			`apreensao de armas`,
			`\bfuzis?\b`,
			`homicidio`,
			`execucao`,
		},
	}
}

// LoadSpec reads a YAML file mapping tier names to pattern lists.
func LoadSpec(path string) (TableSpec, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return TableSpec{}, fmt.Errorf("%w: read pattern tables %s: %v", domain.ErrConfig, path, err)
	}

	var spec TableSpec
	if err := yaml.Unmarshal(raw, &spec); err != nil {
		return TableSpec{}, fmt.Errorf("%w: parse pattern tables %s: %v", domain.ErrConfig, path, err)
	}

	return spec, nil
}

// Compile turns a spec into Tables. Any invalid expression fails the whole load.
func Compile(spec TableSpec) (*Tables, error) {
	var (
		t   Tables
		err error
	)

	if t.gangs, err = compileTier(TierGangs, spec.Gangs); err != nil {
		return nil, err
	}
	if t.organizedCrime, err = compileTier(TierOrganizedCrime, spec.OrganizedCrime); err != nil {
		return nil, err
	}
	if t.drugs, err = compileTier(TierDrugs, spec.Drugs); err != nil {
		return nil, err
	}
	if t.armed, err = compileTier(TierArmedInteractions, spec.ArmedInteractions); err != nil {
		return nil, err
	}

	if len(t.gangs)+len(t.organizedCrime) == 0 || len(t.drugs)+len(t.armed) == 0 {
		return nil, fmt.Errorf("%w: pattern tables leave an acceptance axis empty", domain.ErrConfig)
	}

	return &t, nil
}

func compileTier(tier string, sources []string) ([]Pattern, error) {
	patterns := make([]Pattern, 0, len(sources))
	for i, src := range sources {
		expr, err := regexp.Compile("(?i)" + src)
		if err != nil {
			return nil, fmt.Errorf("%w: tier %s pattern %d %q: %v", domain.ErrConfig, tier, i, src, err)
		}
		patterns = append(patterns, Pattern{Source: src, expr: expr})
	}
	return patterns, nil
}

// Subject returns GANGS followed by ORGANIZED CRIME.
func (t *Tables) Subject() []Pattern {
	return concat(t.gangs, t.organizedCrime)
}

// Action returns DRUGS followed by ARMED INTERACTIONS.
func (t *Tables) Action() []Pattern {
	return concat(t.drugs, t.armed)
}

// Gangs returns the GANGS tier.
func (t *Tables) Gangs() []Pattern {
	return t.gangs
}

func concat(a, b []Pattern) []Pattern {
	out := make([]Pattern, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
