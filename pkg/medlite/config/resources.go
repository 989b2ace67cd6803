package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConceptDictionary is the YAML form of a concept index:
//
//	concepts:
//	  - cui: C0011849
//	    name: Diabetes Mellitus
//	    semtypes: [dsyn]
//	    sources: [MSH, SNOMEDCT_US]
//	    terms: [diabetes, diabetes mellitus]
type ConceptDictionary struct {
	Concepts []ConceptEntry `yaml:"concepts"`
}

// ConceptEntry is one concept with the surface terms that name it.
type ConceptEntry struct {
	CUI           string   `yaml:"cui"`
	PreferredName string   `yaml:"name"`
	SemanticTypes []string `yaml:"semtypes"`
	Sources       []string `yaml:"sources"`
	Terms         []string `yaml:"terms"`
}

// LoadConceptDictionary loads a concept dictionary from a YAML file.
func LoadConceptDictionary(path string) (*ConceptDictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var dict ConceptDictionary
	if err := yaml.Unmarshal(data, &dict); err != nil {
		return nil, err
	}

	for i, c := range dict.Concepts {
		if strings.TrimSpace(c.CUI) == "" {
			return nil, fmt.Errorf("concept %d: cui is required", i)
		}
	}

	return &dict, nil
}

// POSLexicon maps lower-cased words to part-of-speech tags:
//
//	tags:
//	  patient: NN
//	  has: VBZ
type POSLexicon struct {
	Tags map[string]string `yaml:"tags"`
}

// LoadPOSLexicon loads a part-of-speech lexicon from a YAML file.
func LoadPOSLexicon(path string) (*POSLexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lex POSLexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, err
	}

	normalized := make(map[string]string, len(lex.Tags))
	for w, tag := range lex.Tags {
		normalized[strings.ToLower(w)] = tag
	}
	lex.Tags = normalized

	return &lex, nil
}
