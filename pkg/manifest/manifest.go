// Package manifest loads desired-package documents from YAML. A manifest
// is the file form of a requirement set: plain lines, constrained entries,
// and conditional VCS records, in document order.
package manifest

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	pep440 "github.com/aquasecurity/go-pep440-version"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ParisNeo/pipmaster/pkg/errors"
	"github.com/ParisNeo/pipmaster/pkg/requirement"
)

// Manifest is one desired-package document. Python, Venv, and
// AlwaysUpdate let a manifest pin its target environment and update
// policy; command-line flags override them.
type Manifest struct {
	Version      string    `yaml:"version,omitempty"`
	Name         string    `yaml:"name" validate:"required,min=1,max=100"`
	Description  string    `yaml:"description,omitempty"`
	Python       string    `yaml:"python,omitempty"`
	Venv         string    `yaml:"venv,omitempty"`
	AlwaysUpdate bool      `yaml:"always_update,omitempty"`
	IndexURL     string    `yaml:"index_url,omitempty" validate:"omitempty,url"`
	ExtraArgs    []string  `yaml:"extra_args,omitempty"`
	Packages     []Package `yaml:"packages" validate:"required,min=1,dive"`
}

// Package is one entry in the packages list. The YAML form is either a
// plain requirement string or a mapping with a name and constraints.
type Package struct {
	Name      string `yaml:"name" validate:"omitempty,pkgname"`
	Specifier string `yaml:"specifier,omitempty"`
	IndexURL  string `yaml:"index_url,omitempty" validate:"omitempty,url"`
	VCS       string `yaml:"vcs,omitempty"`
	Condition string `yaml:"condition,omitempty"`

	// Line holds the raw string for scalar entries. It is mutually
	// exclusive with the mapping fields.
	Line string `yaml:"-"`
}

// UnmarshalYAML accepts both entry forms without conflicting field errors.
func (p *Package) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var line string
		if err := value.Decode(&line); err != nil {
			return err
		}
		*p = Package{Line: line}
		return nil
	}

	type rawPackage Package
	var raw rawPackage
	if err := value.Decode(&raw); err != nil {
		return err
	}
	*p = Package(raw)
	return nil
}

var yamlLineRegex = regexp.MustCompile(`line (\d+)`)

// Load reads, parses, and validates a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewParseError(path, "cannot read manifest", err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.NewParseError(path, yamlErrorMessage(err), err)
	}

	if err := Validate(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

func yamlErrorMessage(err error) string {
	if matches := yamlLineRegex.FindStringSubmatch(err.Error()); len(matches) == 2 {
		return fmt.Sprintf("invalid manifest syntax at line %s", matches[1])
	}
	return "invalid manifest syntax"
}

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	pkgNamePattern = regexp.MustCompile(`^[A-Za-z0-9]([-A-Za-z0-9._]*[A-Za-z0-9])?$`)
)

func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("pkgname", func(fl validator.FieldLevel) bool {
			return pkgNamePattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Validate checks the document schema and every package entry. Manifests
// fail fast on authoring errors; the lenient skip-and-warn path is for
// programmatic requirement sets only.
func Validate(m *Manifest) error {
	if m == nil {
		return errors.NewValidationError("manifest", "manifest is nil", nil)
	}

	if err := validatorInstance().Struct(m); err != nil {
		return convertValidationError(err)
	}

	for i, pkg := range m.Packages {
		if err := validatePackage(i, pkg); err != nil {
			return err
		}
	}
	return nil
}

func validatePackage(i int, pkg Package) error {
	field := func(name string) string {
		return fmt.Sprintf("packages[%d].%s", i, name)
	}

	if pkg.Line != "" {
		if _, err := requirement.Parse(pkg.Line); err != nil {
			return errors.NewValidationError(field("line"), fmt.Sprintf("invalid requirement %q", pkg.Line), err)
		}
		return nil
	}

	if pkg.Name == "" {
		return errors.NewValidationError(field("name"), "package entry needs a name", nil)
	}
	if !pkgNamePattern.MatchString(pkg.Name) {
		return errors.NewValidationError(field("name"), fmt.Sprintf("invalid package name %q", pkg.Name), nil)
	}

	if pkg.VCS != "" {
		if pkg.Specifier != "" || pkg.IndexURL != "" {
			return errors.NewValidationError(field("vcs"), "vcs entries cannot carry a specifier or index_url", nil)
		}
		if err := requirement.ValidateVCSURL(pkg.VCS); err != nil {
			return errors.NewValidationError(field("vcs"), fmt.Sprintf("invalid vcs url %q", pkg.VCS), err)
		}
		if pkg.Condition != "" {
			if _, err := pep440.NewSpecifiers(pkg.Condition); err != nil {
				return errors.NewValidationError(field("condition"), fmt.Sprintf("invalid version condition %q", pkg.Condition), err)
			}
		}
		return nil
	}

	if pkg.Condition != "" {
		return errors.NewValidationError(field("condition"), "condition is only valid on vcs entries", nil)
	}
	if pkg.Specifier != "" {
		if _, err := pep440.NewSpecifiers(pkg.Specifier); err != nil {
			return errors.NewValidationError(field("specifier"), fmt.Sprintf("invalid version specifier %q", pkg.Specifier), err)
		}
	}
	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok && len(ves) > 0 {
		ve := ves[0]
		field := yamlishFieldName(ve)
		return errors.NewValidationError(field, fmt.Sprintf("%s failed validation for tag '%s'", field, ve.Tag()), err)
	}

	return errors.NewValidationError("manifest", err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	parts := strings.Split(fe.StructNamespace(), ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}

// Items converts the package list into reconciliation input, preserving
// document order.
func (m *Manifest) Items() []requirement.Item {
	items := make([]requirement.Item, 0, len(m.Packages))
	for _, pkg := range m.Packages {
		switch {
		case pkg.Line != "":
			items = append(items, requirement.Line(pkg.Line))
		case pkg.VCS != "":
			items = append(items, requirement.VCSEntry{
				Name:      pkg.Name,
				VCS:       pkg.VCS,
				Condition: pkg.Condition,
			})
		default:
			items = append(items, requirement.Entry{
				Name:      pkg.Name,
				Specifier: pkg.Specifier,
				IndexURL:  pkg.IndexURL,
			})
		}
	}
	return items
}
