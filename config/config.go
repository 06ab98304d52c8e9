// Package config holds the settings shared by the extractor, the loader and
// the reconciler, with defaults for the edition annotation ontology.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/rdfahier/external"
	"github.com/google/rdfahier/hierarchy"
	"github.com/google/rdfahier/rdf/iri"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultVocabulary is the edition annotation ontology.
const DefaultVocabulary = "http://boot.huygens.knaw.nl/vgdemo/editionannotationontology.ttl"

// Relation is the YAML form of a hierarchy.Relation.
type Relation struct {
	Includes     string `yaml:"includes"`
	IsIncludedIn string `yaml:"is_included_in,omitempty"`
}

// Config is the complete configuration.
type Config struct {
	// Vocabulary is the ontology the relation and representation names
	// below are resolved against when they are not absolute IRIs. It is also
	// the vocabulary of the ignorable element type.
	Vocabulary string `yaml:"vocabulary"`
	// Relations are the containment relations in order of precedence.
	Relations []Relation `yaml:"relations"`
	// Representation lists the predicates linking external resources to page
	// resources.
	Representation []string `yaml:"representation"`
	// IgnorableType is the type of elements marked unselectable. Empty
	// disables marking.
	IgnorableType string `yaml:"ignorable_type"`

	StrictHierarchy bool `yaml:"strict_hierarchy"`
	WalkDescendants bool `yaml:"walk_descendants"`

	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	MaxDocumentBytes int64         `yaml:"max_document_bytes"`
	CacheSize        int           `yaml:"cache_size"`
	UserAgent        string        `yaml:"user_agent"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Vocabulary: DefaultVocabulary,
		Relations: []Relation{
			{Includes: "hasWorkPart"},
			{Includes: "includes", IsIncludedIn: "isIncludedIn"},
			{Includes: "hasEditionPart", IsIncludedIn: "isEditionPartOf"},
		},
		Representation:   []string{"hasRepresentation"},
		IgnorableType:    "IgnorableElement",
		FetchTimeout:     external.DefaultTimeout,
		MaxDocumentBytes: external.DefaultMaxBytes,
		CacheSize:        64,
		UserAgent:        "rdfahier",
	}
}

// Load reads a YAML file over the defaults and validates the result. Lists in
// the file replace the default lists.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse is like Load for YAML already in memory. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every name resolves and that the relation table is
// consistent.
func (c *Config) Validate() error {
	if c.Vocabulary != "" {
		if _, err := iri.ParseAbsolute(c.Vocabulary); err != nil {
			return fmt.Errorf("%w: vocabulary: %w", ErrInvalidConfig, err)
		}
	}
	h, err := c.Hierarchy()
	if err != nil {
		return err
	}
	if err := h.Relations.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if len(h.Representation) == 0 {
		return fmt.Errorf("%w: no representation predicates", ErrInvalidConfig)
	}
	if c.FetchTimeout < 0 || c.MaxDocumentBytes < 0 || c.CacheSize < 0 {
		return fmt.Errorf("%w: negative fetch limits", ErrInvalidConfig)
	}
	return nil
}

// Resolve turns a configured name into an IRI. Absolute IRIs are kept and
// other names are local names in the vocabulary.
func (c *Config) Resolve(name string) (iri.IRI, error) {
	if name == "" {
		return "", nil
	}
	if parsed, err := iri.ParseAbsolute(name); err == nil {
		return parsed, nil
	}
	if c.Vocabulary == "" {
		return "", fmt.Errorf("%w: %q is not an absolute IRI and no vocabulary is set", ErrInvalidConfig, name)
	}
	return iri.JoinLocal(iri.IRI(c.Vocabulary), name), nil
}

// Hierarchy returns the reconciler settings with every name resolved.
func (c *Config) Hierarchy() (hierarchy.Config, error) {
	var h hierarchy.Config
	for i, r := range c.Relations {
		inc, err := c.Resolve(r.Includes)
		if err != nil {
			return hierarchy.Config{}, fmt.Errorf("relation %d: %w", i, err)
		}
		inv, err := c.Resolve(r.IsIncludedIn)
		if err != nil {
			return hierarchy.Config{}, fmt.Errorf("relation %d: %w", i, err)
		}
		h.Relations = append(h.Relations, hierarchy.Relation{Includes: inc, IsIncludedIn: inv})
	}
	for _, name := range c.Representation {
		p, err := c.Resolve(name)
		if err != nil {
			return hierarchy.Config{}, err
		}
		h.Representation = append(h.Representation, p)
	}
	h.Strict = c.StrictHierarchy
	h.WalkDescendants = c.WalkDescendants
	return h, nil
}

// Ignorable returns the resolved ignorable element type, or "" if marking is
// disabled.
func (c *Config) Ignorable() (iri.IRI, error) {
	return c.Resolve(c.IgnorableType)
}

// HTTPOptions returns the fetcher settings.
func (c *Config) HTTPOptions() external.HTTPOptions {
	return external.HTTPOptions{
		Timeout:   c.FetchTimeout,
		UserAgent: c.UserAgent,
		MaxBytes:  c.MaxDocumentBytes,
		CacheSize: c.CacheSize,
	}
}
