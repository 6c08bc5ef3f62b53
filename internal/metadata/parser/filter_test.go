package parser

import (
	"errors"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"metafed/internal/metadata/models"
	"metafed/internal/metadata/ports/mocks"
)

func TestFilterInvalid(t *testing.T) {
	ctrl := gomock.NewController(t)
	validator := mocks.NewMockSchemaValidator(ctrl)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<EntitiesDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata">
  <EntityDescriptor entityID="urn:a"/>
  <EntitiesDescriptor Name="inner">
    <EntityDescriptor entityID="urn:b"/>
  </EntitiesDescriptor>
  <EntityDescriptor entityID="urn:c"/>
</EntitiesDescriptor>`))

	validator.EXPECT().ValidateEntity(gomock.Any()).DoAndReturn(func(el *etree.Element) error {
		if el.SelectAttrValue("entityID", "") == "urn:b" {
			return errors.New("bad record")
		}
		return nil
	}).Times(3)

	errs := map[string]string{}
	out := FilterInvalid(models.NewDocument(doc), "urn:src", validator, errs, nil)

	require.NotNil(t, out)
	assert.Equal(t, map[string]string{"urn:b": "bad record"}, errs)
	var ids []string
	for _, e := range out.Entities() {
		ids = append(ids, e.ID())
	}
	assert.Equal(t, []string{"urn:a", "urn:c"}, ids)
	assert.NotNil(t, out.Root().FindElement("EntitiesDescriptor"), "emptied containers stay")
}

func TestFilterInvalidRejectsInvalidRoot(t *testing.T) {
	ctrl := gomock.NewController(t)
	validator := mocks.NewMockSchemaValidator(ctrl)
	validator.EXPECT().ValidateEntity(gomock.Any()).Return(errors.New("bad"))

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(`<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata" entityID="urn:only"/>`))

	assert.Nil(t, FilterInvalid(models.NewDocument(doc), "", validator, nil, nil))
}
