package reference

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"gopkg.in/yaml.v3"
)

//go:embed sources.yaml
var sourcesYAML []byte

//go:embed models.yaml
var modelsYAML []byte

// Source is one healthcare authority cited in prompts and captions.
type Source struct {
	Key   string `yaml:"key" json:"key"`
	Name  string `yaml:"name" json:"name"`
	URL   string `yaml:"url" json:"url"`
	Focus string `yaml:"focus" json:"focus"`
}

// Validate checks that every field is set and the URL is well formed.
func (s Source) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Key, validation.Required),
		validation.Field(&s.Name, validation.Required),
		validation.Field(&s.URL, validation.Required, is.URL),
		validation.Field(&s.Focus, validation.Required),
	)
}

// Model is a catalogue entry. The API key itself is never stored here, only
// the name of the environment variable that holds it.
type Model struct {
	Label       string `yaml:"label" json:"label"`
	BackendID   string `yaml:"backend_id" json:"backend_id"`
	APIKeyEnv   string `yaml:"api_key_env" json:"-"`
	Description string `yaml:"description" json:"description"`
}

func (m Model) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Label, validation.Required),
		validation.Field(&m.BackendID, validation.Required),
	)
}

// ModelDescriptor is a model ready to be called.
type ModelDescriptor struct {
	Label       string
	BackendID   string
	APIKey      string
	Description string
}

// Catalogue is the static reference data, loaded once at startup.
type Catalogue struct {
	Sources []Source
	Models  []Model
}

// Load parses the embedded source table and model catalogue.
func Load() (*Catalogue, error) {
	return Parse(sourcesYAML, modelsYAML)
}

// Parse decodes and validates a source table and model catalogue.
// Keys and labels must be unique.
func Parse(sources, models []byte) (*Catalogue, error) {
	c := &Catalogue{}
	if err := yaml.Unmarshal(sources, &c.Sources); err != nil {
		return nil, fmt.Errorf("decode sources: %w", err)
	}
	if err := yaml.Unmarshal(models, &c.Models); err != nil {
		return nil, fmt.Errorf("decode models: %w", err)
	}
	if len(c.Sources) == 0 {
		return nil, fmt.Errorf("source table is empty")
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, s := range c.Sources {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("source %d: %w", i, err)
		}
		if seen[s.Key] {
			return nil, fmt.Errorf("duplicate source key %q", s.Key)
		}
		seen[s.Key] = true
	}

	seen = make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("model %d: %w", i, err)
		}
		if seen[m.Label] {
			return nil, fmt.Errorf("duplicate model label %q", m.Label)
		}
		seen[m.Label] = true
	}
	return c, nil
}

// Source looks up a source by key.
func (c *Catalogue) Source(key string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Key == key {
			return s, true
		}
	}
	return Source{}, false
}

// Labels returns the model labels in catalogue order.
func (c *Catalogue) Labels() []string {
	out := make([]string, len(c.Models))
	for i, m := range c.Models {
		out[i] = m.Label
	}
	return out
}

// Resolve attaches API keys to the catalogue. Each model reads its own
// environment variable and falls back to fallbackKey when that is unset.
// A nil getenv uses os.Getenv.
func (c *Catalogue) Resolve(getenv func(string) string, fallbackKey string) []ModelDescriptor {
	if getenv == nil {
		getenv = os.Getenv
	}
	out := make([]ModelDescriptor, 0, len(c.Models))
	for _, m := range c.Models {
		key := ""
		if m.APIKeyEnv != "" {
			key = strings.TrimSpace(getenv(m.APIKeyEnv))
		}
		if key == "" {
			key = fallbackKey
		}
		out = append(out, ModelDescriptor{
			Label:       m.Label,
			BackendID:   m.BackendID,
			APIKey:      key,
			Description: m.Description,
		})
	}
	return out
}
