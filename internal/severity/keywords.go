package severity

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// keywordFile is the on-disk override format for classifier keywords.
type keywordFile struct {
	High   []string `yaml:"high"`
	Medium []string `yaml:"medium"`
}

// LoadClassifier builds a classifier from a YAML keyword file. An empty path
// returns the default classifier. Keywords are lowercased; an override file
// must define at least one keyword per tier it overrides.
func LoadClassifier(path string) (*Classifier, error) {
	c := NewClassifier()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "severity: read keyword file %s", path)
	}

	var kf keywordFile
	if err := yaml.Unmarshal(data, &kf); err != nil {
		return nil, eris.Wrap(err, "severity: parse keyword file")
	}

	if high := normalizeKeywords(kf.High); len(high) > 0 {
		c.high = high
	}
	if medium := normalizeKeywords(kf.Medium); len(medium) > 0 {
		c.medium = medium
	}

	zap.L().Info("severity: loaded keyword overrides",
		zap.String("path", path),
		zap.Int("high", len(c.high)),
		zap.Int("medium", len(c.medium)),
	)
	return c, nil
}

func normalizeKeywords(in []string) []string {
	var out []string
	for _, kw := range in {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	return out
}
