package main

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/jwebster45206/wired-engine/pkg/scenario"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.schema.json
var catalogSchema []byte

const schemaURL = "catalog.schema.json"

// CatalogValidator checks a catalog file in three passes: the JSON schema,
// id naming conventions and the catalog's own referential checks.
type CatalogValidator struct {
	schema *jsonschema.Schema
	errors []string
}

func NewCatalogValidator() (*CatalogValidator, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(catalogSchema)); err != nil {
		return nil, fmt.Errorf("failed to add schema: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return &CatalogValidator{schema: s}, nil
}

func (v *CatalogValidator) ValidateFile(filename string) error {
	baseName := filepath.Base(filename)
	switch strings.ToLower(filepath.Ext(baseName)) {
	case ".json", ".yaml", ".yml":
	default:
		return fmt.Errorf("catalog file must have a .json, .yaml or .yml extension: %s", baseName)
	}
	format := scenario.FormatFromPath(filename)

	nameWithoutExt := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	if !isValidCatalogFilename(nameWithoutExt) {
		return fmt.Errorf("catalog filename '%s' must be lowercase snake_case (e.g., my_story.json, not my-story.json or MyStory.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.Validate(data, format, filename)
}

// Validate runs every pass over an in-memory document. name labels errors.
func (v *CatalogValidator) Validate(data []byte, format scenario.Format, name string) error {
	v.errors = nil

	doc, err := toJSONValue(data, format)
	if err != nil {
		return fmt.Errorf("file %s is not a valid document: %w", name, err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("file %s does not match the catalog schema:\n%v", name, err)
	}

	cat, err := scenario.Parse(data, format)
	if err != nil {
		return fmt.Errorf("file %s failed to parse: %w", name, err)
	}

	v.validateIDs(cat)
	for _, e := range cat.Validate() {
		v.addError(e.Error())
	}

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", name, strings.Join(v.errors, "\n"))
	}
	return nil
}

// toJSONValue decodes either format into the generic JSON form the schema
// validator expects.
func toJSONValue(data []byte, format scenario.Format) (any, error) {
	if format == scenario.FormatYAML {
		var y any
		if err := yaml.Unmarshal(data, &y); err != nil {
			return nil, err
		}
		var err error
		if data, err = json.Marshal(y); err != nil {
			return nil, err
		}
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (v *CatalogValidator) validateIDs(cat *scenario.Catalog) {
	for _, loc := range cat.Locations {
		v.validateIDFormat("location ID", loc.ID)
		for _, p := range loc.POIs {
			v.validateIDFormat("point of interest ID", p.ID)
		}
	}
	for _, it := range cat.Items {
		v.validateIDFormat("item ID", it.ID)
	}
	for _, a := range cat.Actions {
		v.validateIDFormat("action ID", a.ID)
		for _, fw := range a.Payload.Flags {
			v.validateFlagName(fw.Name)
		}
		if a.Payload.FlagName != "" {
			v.validateFlagName(a.Payload.FlagName)
		}
	}
	for _, n := range cat.NPCs {
		v.validateIDFormat("NPC ID", n.ID)
	}
	for _, s := range cat.Scenes {
		if !validSceneRegex.MatchString(s.ID) {
			v.addError(fmt.Sprintf("scene ID '%s' should be upper snake_case starting with SCENE_", s.ID))
		}
		for i, c := range s.Choices {
			for _, cond := range c.Conditions {
				if cond.Flag != "" {
					v.validateFlagName(cond.Flag)
				}
				if cond.Flag == "" && cond.MinDay == nil && cond.MaxDay == nil && cond.ExactDay == nil &&
					cond.HourStart == nil && cond.HourEnd == nil {
					v.addError(fmt.Sprintf("choice %d in scene %s has an empty condition", i+1, s.ID))
				}
			}
		}
	}
	for name := range cat.Start.Flags {
		v.validateFlagName(name)
	}
}

func (v *CatalogValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

// Flags may be lowercase story variables or upper-case engine flags.
func (v *CatalogValidator) validateFlagName(name string) {
	if !validIDRegex.MatchString(name) && !validEngineFlagRegex.MatchString(name) {
		v.addError(fmt.Sprintf("flag name '%s' should be snake_case", name))
	}
}

func (v *CatalogValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex         = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validEngineFlagRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*[A-Z0-9]$`)
	validSceneRegex      = regexp.MustCompile(`^SCENE_[A-Z0-9_]*[A-Z0-9]$`)
	validFilenameRegex   = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidCatalogFilename(name string) bool {
	// Allow 'x.' prefix for experimental catalogs
	name = strings.TrimPrefix(name, "x.")
	return validFilenameRegex.MatchString(name)
}
