package extract

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/freakspace/leadtool/internal/model"
)

// CampaignLister lists campaigns whose industries can constrain extraction.
type CampaignLister interface {
	ListCampaigns(ctx context.Context) ([]model.Campaign, error)
}

// VocabularySources names where allowed industry values come from.
type VocabularySources struct {
	Values        []string
	File          string
	FromCampaigns bool
}

// vocabularyFile is the YAML layout of a vocabulary file. A bare list is
// also accepted.
type vocabularyFile struct {
	Industries []string `yaml:"industries"`
}

// LoadVocabularyFile reads industry names from a YAML file.
func LoadVocabularyFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "extract: read vocabulary %s", path)
	}

	var list []string
	if err := yaml.Unmarshal(data, &list); err == nil {
		return list, nil
	}

	var vf vocabularyFile
	if err := yaml.Unmarshal(data, &vf); err != nil {
		return nil, eris.Wrapf(err, "extract: parse vocabulary %s", path)
	}
	return vf.Industries, nil
}

// ResolveVocabulary merges configured values, the vocabulary file and
// campaign industries, dropping blanks and case-insensitive duplicates. An
// empty result leaves industry unconstrained.
func ResolveVocabulary(ctx context.Context, src VocabularySources, campaigns CampaignLister) ([]string, error) {
	values := append([]string(nil), src.Values...)

	if src.File != "" {
		fromFile, err := LoadVocabularyFile(src.File)
		if err != nil {
			return nil, err
		}
		values = append(values, fromFile...)
	}

	if src.FromCampaigns && campaigns != nil {
		list, err := campaigns.ListCampaigns(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "extract: list campaigns")
		}
		for _, c := range list {
			values = append(values, c.Industry)
		}
	}

	seen := make(map[string]bool, len(values))
	var out []string
	for _, v := range values {
		v = strings.TrimSpace(v)
		key := strings.ToLower(v)
		if v == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out, nil
}
