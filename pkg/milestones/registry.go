package milestones

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DateLayout is the format used for first due dates in registry files.
const DateLayout = "2006-01-02"

const defaultRegistryYAML = `# Global milestones, one per week of the 16 week cycle.
milestones:
  - id: avocado
    name: Avocado
    emoji: "🥑"
    firstDueDate: "2020-01-06"
  - id: broccoli
    name: Broccoli
    emoji: "🥦"
    firstDueDate: "2020-01-13"
  - id: carrot
    name: Carrot
    emoji: "🥕"
    firstDueDate: "2020-01-20"
  - id: doughnut
    name: Doughnut
    emoji: "🍩"
    firstDueDate: "2020-01-27"
  - id: eggplant
    name: Eggplant
    emoji: "🍆"
    firstDueDate: "2020-02-03"
  - id: fries
    name: Fries
    emoji: "🍟"
    firstDueDate: "2020-02-10"
  - id: grapes
    name: Grapes
    emoji: "🍇"
    firstDueDate: "2020-02-17"
  - id: hamburger
    name: Hamburger
    emoji: "🍔"
    firstDueDate: "2020-02-24"
  - id: ice-cream
    name: Ice Cream
    emoji: "🍦"
    firstDueDate: "2020-03-02"
  - id: juice
    name: Juice
    emoji: "🧃"
    firstDueDate: "2020-03-09"
  - id: kiwi
    name: Kiwi
    emoji: "🥝"
    firstDueDate: "2020-03-16"
  - id: lemon
    name: Lemon
    emoji: "🍋"
    firstDueDate: "2020-03-23"
  - id: mango
    name: Mango
    emoji: "🥭"
    firstDueDate: "2020-03-30"
  - id: noodles
    name: Noodles
    emoji: "🍜"
    firstDueDate: "2020-04-06"
  - id: orange
    name: Orange
    emoji: "🍊"
    firstDueDate: "2020-04-13"
  - id: pizza
    name: Pizza
    emoji: "🍕"
    firstDueDate: "2020-04-20"
`

type registryFile struct {
	Milestones []templateEntry `yaml:"milestones"`
}

type templateEntry struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Emoji        string `yaml:"emoji"`
	FirstDueDate string `yaml:"firstDueDate"`
}

// Registry is the ordered set of all known templates.
type Registry struct {
	templates []Template
	byID      map[string]int
	byTitle   map[string]string
}

func NewRegistry(templates []Template) (*Registry, error) {
	r := &Registry{
		templates: []Template{},
		byID:      map[string]int{},
		byTitle:   map[string]string{},
	}

	for _, tpl := range templates {
		if tpl.ID == "" {
			return nil, errors.New("template ID cannot be empty")
		}

		if tpl.Name == "" {
			return nil, fmt.Errorf("template %q has no name", tpl.ID)
		}

		if tpl.FirstDueDate.IsZero() {
			return nil, fmt.Errorf("template %q has no first due date", tpl.ID)
		}

		if _, exists := r.byID[tpl.ID]; exists {
			return nil, fmt.Errorf("duplicate template ID %q", tpl.ID)
		}

		title := tpl.Title()
		if other, exists := r.byTitle[title]; exists {
			return nil, fmt.Errorf("templates %q and %q share the title %q", other, tpl.ID, title)
		}

		r.byID[tpl.ID] = len(r.templates)
		r.byTitle[title] = tpl.ID
		r.templates = append(r.templates, tpl)
	}

	return r, nil
}

// DefaultRegistry returns the built-in set of global milestones.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry([]byte(defaultRegistryYAML))
	if err != nil {
		panic(fmt.Sprintf("built-in registry is invalid: %v", err))
	}

	return r
}

func LoadRegistry(filename string) (*Registry, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	r, err := ParseRegistry(content)
	if err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", filename, err)
	}

	return r, nil
}

func ParseRegistry(content []byte) (*Registry, error) {
	var f registryFile

	if err := yaml.Unmarshal(content, &f); err != nil {
		return nil, err
	}

	templates := []Template{}
	for _, entry := range f.Milestones {
		dueDate, err := time.ParseInLocation(DateLayout, entry.FirstDueDate, time.UTC)
		if err != nil {
			return nil, fmt.Errorf("template %q: invalid firstDueDate: %w", entry.ID, err)
		}

		templates = append(templates, Template{
			ID:           entry.ID,
			Name:         entry.Name,
			Emoji:        entry.Emoji,
			FirstDueDate: dueDate,
		})
	}

	return NewRegistry(templates)
}

// Templates returns all templates in declaration order.
func (r *Registry) Templates() []Template {
	result := make([]Template, len(r.templates))
	copy(result, r.templates)

	return result
}

func (r *Registry) Get(id string) (*Template, bool) {
	idx, ok := r.byID[id]
	if !ok {
		return nil, false
	}

	tpl := r.templates[idx]

	return &tpl, true
}

// Lookup returns the ID of the template whose title is exactly title.
func (r *Registry) Lookup(title string) (string, bool) {
	id, ok := r.byTitle[title]
	return id, ok
}

func (r *Registry) Len() int {
	return len(r.templates)
}
