package actionflow

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-pidog/pkg/robot"
)

//go:embed data/actions.yaml
var embeddedCatalog embed.FS

// ErrUnknownAction is returned for names not in the catalog.
var ErrUnknownAction = errors.New("actionflow: unknown action")

// Posture names.
const (
	PostureStand = "stand"
	PostureSit   = "sit"
	PostureLie   = "lie"
)

// PostureMove is the daemon motion that puts the robot in a posture.
type PostureMove struct {
	Action string `yaml:"action" json:"action"`
	Speed  int    `yaml:"speed" json:"speed"`
}

// Step is one daemon command. Exactly one of Do, Head, Sound, Wait or
// Pause is set.
type Step struct {
	Do     string          `yaml:"do,omitempty" json:"do,omitempty"`
	Repeat int             `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Speed  int             `yaml:"speed,omitempty" json:"speed,omitempty"`
	Head   *robot.HeadPose `yaml:"head,omitempty" json:"head,omitempty"`
	Sound  string          `yaml:"sound,omitempty" json:"sound,omitempty"`
	Volume int             `yaml:"volume,omitempty" json:"volume,omitempty"`
	Wait   bool            `yaml:"wait,omitempty" json:"wait,omitempty"`
	Pause  time.Duration   `yaml:"pause,omitempty" json:"pause,omitempty"`
}

func (s Step) kinds() int {
	n := 0
	if s.Do != "" {
		n++
	}
	if s.Head != nil {
		n++
	}
	if s.Sound != "" {
		n++
	}
	if s.Wait {
		n++
	}
	if s.Pause > 0 {
		n++
	}
	return n
}

// Action is a named catalog entry.
type Action struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Posture     string `yaml:"posture,omitempty" json:"posture,omitempty"`
	Result      string `yaml:"result,omitempty" json:"result,omitempty"`
	Voice       bool   `yaml:"voice,omitempty" json:"voice,omitempty"`
	Idle        bool   `yaml:"idle,omitempty" json:"idle,omitempty"`
	Steps       []Step `yaml:"steps" json:"steps"`
}

// Catalog maps action names to their steps.
type Catalog struct {
	Postures map[string]PostureMove `yaml:"postures"`
	Actions  []Action               `yaml:"actions"`

	index map[string]int
}

// DefaultCatalog loads the built-in catalog.
func DefaultCatalog() (*Catalog, error) {
	data, err := embeddedCatalog.ReadFile("data/actions.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) build() error {
	c.index = make(map[string]int, len(c.Actions))
	for i, a := range c.Actions {
		key := normalizeName(a.Name)
		if key == "" {
			return fmt.Errorf("catalog: action %d has no name", i)
		}
		if _, dup := c.index[key]; dup {
			return fmt.Errorf("catalog: duplicate action %q", a.Name)
		}
		for _, p := range []string{a.Posture, a.Result} {
			if p == "" {
				continue
			}
			if _, ok := c.Postures[p]; !ok {
				return fmt.Errorf("catalog: action %q uses unknown posture %q", a.Name, p)
			}
		}
		for j, s := range a.Steps {
			if s.kinds() != 1 {
				return fmt.Errorf("catalog: action %q step %d must set exactly one of do, head, sound, wait, pause", a.Name, j)
			}
		}
		c.index[key] = i
	}
	return nil
}

// Lookup finds an action by name. Case, surrounding space and the
// choice of "_" or " " between words do not matter.
func (c *Catalog) Lookup(name string) (Action, bool) {
	i, ok := c.index[normalizeName(name)]
	if !ok {
		return Action{}, false
	}
	return c.Actions[i], true
}

// Names returns the names of all non-idle actions in catalog order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.Actions))
	for _, a := range c.Actions {
		if a.Idle || a.Name == "stop" {
			continue
		}
		names = append(names, a.Name)
	}
	return names
}

// VoiceNames returns the names of actions that make dog sounds, sorted.
func (c *Catalog) VoiceNames() []string {
	var names []string
	for _, a := range c.Actions {
		if a.Voice {
			names = append(names, a.Name)
		}
	}
	sort.Strings(names)
	return names
}

func normalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), " ")
}
