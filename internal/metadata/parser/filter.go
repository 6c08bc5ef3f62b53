package parser

import (
	"log/slog"

	"metafed/internal/metadata/models"
	"metafed/internal/metadata/ports"
)

// FilterInvalid validates every md:EntityDescriptor of doc on its own and
// removes the ones that fail, recording entityID -> diagnostic in errs.
// It returns nil when the failing record is the document root: a document
// made only of invalid content is rejected rather than emptied. A container
// whose records were all removed is returned empty.
func FilterInvalid(doc *models.Document, baseURL string, validator ports.SchemaValidator, errs map[string]string, logger *slog.Logger) *models.Document {
	if doc == nil || doc.Root() == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	root := doc.Root()
	for _, el := range doc.EntityElements() {
		err := validator.ValidateEntity(el)
		if err == nil {
			continue
		}
		entityID := el.SelectAttrValue(models.AttrEntityID, "")
		logger.Warn("removing entity: schema validation failed",
			"entity_id", entityID,
			"base_url", baseURL,
			"error", err,
		)
		if errs != nil {
			errs[entityID] = err.Error()
		}
		if el == root {
			return nil
		}
		el.Parent().RemoveChild(el)
	}
	return doc
}
