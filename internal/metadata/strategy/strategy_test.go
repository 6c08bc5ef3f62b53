package strategy

import (
	"fmt"
	"testing"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"metafed/internal/metadata/models"
	dErrors "metafed/pkg/domain-errors"
)

func entity(t require.TestingT, id string, roles ...string) *models.Entity {
	body := ""
	for _, r := range roles {
		body += fmt.Sprintf(`<%s protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol"/>`, r)
	}
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(fmt.Sprintf(
		`<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata" entityID=%q>%s<Organization/></EntityDescriptor>`, id, body)))
	e, err := models.NewEntity(doc.Root())
	require.NoError(t, err)
	return e
}

func tags(e *models.Entity) []string {
	var out []string
	for _, c := range e.Element().ChildElements() {
		out = append(out, c.Tag)
	}
	return out
}

type RegistrySuite struct {
	suite.Suite
	registry *Registry
}

func TestRegistrySuite(t *testing.T) {
	suite.Run(t, new(RegistrySuite))
}

func (s *RegistrySuite) SetupTest() {
	s.registry = NewBuiltinRegistry()
}

// =============================================================================
// Resolution
// =============================================================================

func (s *RegistrySuite) TestResolve() {
	s.Run("empty name selects first_seen", func() {
		st, err := s.registry.Resolve("")
		s.Require().NoError(err)
		s.Equal(FirstSeen, st.Name())
	})

	s.Run("unqualified names resolve in the builtin namespace", func() {
		for _, name := range []string{FirstSeen, ReplaceExisting, Remove, UnionRoles} {
			st, err := s.registry.Resolve(name)
			s.Require().NoError(err)
			s.Equal(name, st.Name())
		}
		_, err := s.registry.Resolve("metafed.union_roles")
		s.NoError(err)
	})

	s.Run("qualified names resolve in their own namespace", func() {
		s.Require().NoError(s.registry.Register("acme", PreferSource("prefer_local", "local")))
		st, err := s.registry.Resolve("acme.prefer_local")
		s.Require().NoError(err)
		s.Equal("prefer_local", st.Name())

		_, err = s.registry.Resolve("prefer_local")
		s.True(dErrors.HasCode(err, dErrors.CodeStrategyNotFound))
	})

	s.Run("unknown names fail", func() {
		_, err := s.registry.Resolve("nope.missing")
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeStrategyNotFound))
		s.Contains(err.Error(), "nope.missing")
	})
}

func (s *RegistrySuite) TestRegister() {
	s.Run("duplicate registration conflicts", func() {
		err := s.registry.Register(BuiltinNamespace, firstSeen())
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects dotted and empty names", func() {
		s.True(dErrors.HasCode(s.registry.Register("x", New("a.b", nil)), dErrors.CodeValidation))
		s.True(dErrors.HasCode(s.registry.Register("", firstSeen()), dErrors.CodeValidation))
		s.True(dErrors.HasCode(s.registry.Register("x", nil), dErrors.CodeValidation))
	})

	s.Run("names are listed sorted", func() {
		s.Equal([]string{
			"metafed.first_seen", "metafed.remove", "metafed.replace_existing", "metafed.union_roles",
		}, s.registry.Names())
	})
}

func TestDefaultRegistryHoldsBuiltins(t *testing.T) {
	st, err := Default().Resolve(DefaultName)
	require.NoError(t, err)
	assert.Equal(t, FirstSeen, st.Name())
}

// =============================================================================
// Built-in strategies
// =============================================================================

func combine(t *testing.T, name string, batches ...Batch) *models.EntitySet {
	t.Helper()
	st, err := NewBuiltinRegistry().Resolve(name)
	require.NoError(t, err)
	set := models.NewEntitySet()
	for _, b := range batches {
		set, err = st.Combine(set, b)
		require.NoError(t, err)
	}
	return set
}

func TestFirstSeen(t *testing.T) {
	a1, b, a2 := entity(t, "urn:a"), entity(t, "urn:b"), entity(t, "urn:a")
	set := combine(t, FirstSeen,
		Batch{Source: "g1", Entities: []*models.Entity{a1, b}},
		Batch{Source: "g2", Entities: []*models.Entity{a2, nil}},
	)

	assert.Equal(t, []string{"urn:a", "urn:b"}, set.IDs())
	got, _ := set.Get("urn:a")
	assert.Same(t, a1, got)
	origin, _ := set.Origin("urn:a")
	assert.Equal(t, "g1", origin)
}

func TestReplaceExisting(t *testing.T) {
	a1, b, a2 := entity(t, "urn:a"), entity(t, "urn:b"), entity(t, "urn:a")
	set := combine(t, ReplaceExisting,
		Batch{Entities: []*models.Entity{a1, b}},
		Batch{Source: "late", Entities: []*models.Entity{a2}},
	)

	assert.Equal(t, []string{"urn:a", "urn:b"}, set.IDs())
	got, _ := set.Get("urn:a")
	assert.Same(t, a2, got)
}

func TestRemove(t *testing.T) {
	set := combine(t, Remove,
		Batch{Entities: []*models.Entity{entity(t, "urn:a"), entity(t, "urn:b")}},
		Batch{Entities: []*models.Entity{entity(t, "urn:a"), entity(t, "urn:c")}},
	)

	assert.Equal(t, []string{"urn:b", "urn:c"}, set.IDs())
}

func TestUnionRoles(t *testing.T) {
	idp := entity(t, "urn:a", models.TagIDPSSODescriptor)
	sp := entity(t, "urn:a", models.TagSPSSODescriptor, models.TagIDPSSODescriptor)

	set := combine(t, UnionRoles,
		Batch{Entities: []*models.Entity{idp}},
		Batch{Entities: []*models.Entity{sp}},
	)

	got, ok := set.Get("urn:a")
	require.True(t, ok)
	assert.Equal(t, []string{models.TagIDPSSODescriptor, models.TagSPSSODescriptor, "Organization"}, tags(got))
	assert.ElementsMatch(t, []models.Role{models.RoleIDP, models.RoleSP}, got.Roles())

	// the record that was first inserted is left untouched
	assert.Equal(t, []string{models.TagIDPSSODescriptor, "Organization"}, tags(idp))
}

func TestUnionRolesWithoutNewRolesKeepsRecord(t *testing.T) {
	first := entity(t, "urn:a", models.TagSPSSODescriptor)
	set := combine(t, UnionRoles,
		Batch{Entities: []*models.Entity{first}},
		Batch{Entities: []*models.Entity{entity(t, "urn:a", models.TagSPSSODescriptor)}},
	)

	got, _ := set.Get("urn:a")
	assert.Same(t, first, got)
}

func TestPreferSource(t *testing.T) {
	st := PreferSource("prefer", "trusted", "partner")
	fromPartner, fromTrusted, fromOther := entity(t, "urn:a"), entity(t, "urn:a"), entity(t, "urn:a")

	set := models.NewEntitySet()
	var err error
	for _, b := range []Batch{
		{Source: "partner", Entities: []*models.Entity{fromPartner}},
		{Source: "trusted", Entities: []*models.Entity{fromTrusted}},
		{Source: "other", Entities: []*models.Entity{fromOther}},
	} {
		set, err = st.Combine(set, b)
		require.NoError(t, err)
	}

	got, _ := set.Get("urn:a")
	assert.Same(t, fromTrusted, got)
	origin, _ := set.Origin("urn:a")
	assert.Equal(t, "trusted", origin)
}
