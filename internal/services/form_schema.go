package services

import (
	"fmt"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/javajoker/registration-backend/internal/models"
)

// coreFormFields are always required, on top of the configured ones.
var coreFormFields = []string{"first_name", "last_name", "email", "program", "academic_year"}

// DossierSchema checks that an application carries every required form field.
type DossierSchema struct {
	schema *gojsonschema.Schema
}

func NewDossierSchema(requiredFields []string) (*DossierSchema, error) {
	required := append([]string{}, coreFormFields...)
	seen := make(map[string]bool, len(required))
	for _, field := range required {
		seen[field] = true
	}
	for _, field := range requiredFields {
		if field != "" && !seen[field] {
			seen[field] = true
			required = append(required, field)
		}
	}

	properties := make(map[string]interface{}, len(required))
	for _, field := range required {
		// minLength only constrains strings, other JSON types pass as present.
		properties[field] = map[string]interface{}{
			"type":      []string{"string", "number", "boolean", "object", "array"},
			"minLength": 1,
		}
	}

	schemaMap := map[string]interface{}{
		"$schema":    "http://json-schema.org/draft-07/schema#",
		"type":       "object",
		"required":   required,
		"properties": properties,
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(schemaMap))
	if err != nil {
		return nil, fmt.Errorf("failed to compile dossier schema: %w", err)
	}
	return &DossierSchema{schema: schema}, nil
}

// MissingFields returns the sorted names of required fields that are absent,
// null or empty.
func (d *DossierSchema) MissingFields(application *models.Application) ([]string, error) {
	result, err := d.schema.Validate(gojsonschema.NewGoLoader(dossierDocument(application)))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	if result.Valid() {
		return nil, nil
	}

	seen := make(map[string]bool)
	var missing []string
	for _, desc := range result.Errors() {
		field := desc.Field()
		if desc.Type() == "required" {
			if property, ok := desc.Details()["property"].(string); ok {
				field = property
			}
		}
		if !seen[field] {
			seen[field] = true
			missing = append(missing, field)
		}
	}
	sort.Strings(missing)
	return missing, nil
}

// dossierDocument flattens the typed columns and the free-form data into the
// document checked against the schema. Typed columns win on conflict.
func dossierDocument(application *models.Application) map[string]interface{} {
	doc := make(map[string]interface{}, len(application.FormData)+5)
	for key, value := range application.FormData {
		if value != nil {
			doc[key] = value
		}
	}

	typed := map[string]string{
		"first_name":    application.FirstName,
		"last_name":     application.LastName,
		"email":         application.Email,
		"program":       application.Program,
		"academic_year": application.AcademicYear,
	}
	for key, value := range typed {
		if value == "" {
			delete(doc, key)
			continue
		}
		doc[key] = value
	}
	if application.Phone != "" {
		doc["phone"] = application.Phone
	}
	return doc
}
