package aggregate

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"metafed/internal/metadata/metrics"
	"metafed/internal/metadata/models"
	"metafed/internal/metadata/ports"
	"metafed/internal/metadata/ports/mocks"
	"metafed/internal/metadata/schema"
	"metafed/internal/metadata/strategy"
	dErrors "metafed/pkg/domain-errors"
)

const spTemplate = `<md:EntitiesDescriptor xmlns:md="urn:oasis:names:tc:SAML:2.0:metadata" Name="source">
  <md:EntityDescriptor entityID=%q>
    <md:SPSSODescriptor protocolSupportEnumeration="urn:oasis:names:tc:SAML:2.0:protocol">
      <md:AssertionConsumerService Binding="urn:oasis:names:tc:SAML:2.0:bindings:HTTP-POST" Location="https://sp.example.org/acs" index="0"/>
    </md:SPSSODescriptor>
  </md:EntityDescriptor>
</md:EntitiesDescriptor>`

// sp returns an entity nested in a source document whose md prefix is
// declared only on the container.
func sp(t *testing.T, id string) *models.Entity {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(fmt.Sprintf(spTemplate, id)))
	ents := models.NewDocument(doc).Entities()
	require.Len(t, ents, 1)
	return ents[0]
}

func invalid(t *testing.T, id string) *models.Entity {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromString(fmt.Sprintf(
		`<EntityDescriptor xmlns="urn:oasis:names:tc:SAML:2.0:metadata" entityID=%q/>`, id)))
	e, err := models.NewEntity(doc.Root())
	require.NoError(t, err)
	return e
}

func ids(doc *models.Document) []string {
	var out []string
	for _, e := range doc.Entities() {
		out = append(out, e.ID())
	}
	return out
}

type EngineSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	lookup  *mocks.MockGroupLookup
	metrics *metrics.Metrics
	engine  *Engine
	ctx     context.Context
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineSuite))
}

func (s *EngineSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.lookup = mocks.NewMockGroupLookup(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	engine, err := New(strategy.NewBuiltinRegistry(), schema.New(), WithMetrics(s.metrics))
	s.Require().NoError(err)
	s.engine = engine
	s.ctx = context.Background()
}

func (s *EngineSuite) TearDownTest() {
	s.ctrl.Finish()
}

// =============================================================================
// De-duplication
// =============================================================================

func (s *EngineSuite) TestFirstOccurrenceWins() {
	t := s.T()
	a1, b, a2, c := sp(t, "urn:a"), sp(t, "urn:b"), sp(t, "urn:a"), sp(t, "urn:c")
	s.lookup.EXPECT().Lookup(gomock.Any(), "g1").Return([]*models.Entity{a1, b}, nil)
	s.lookup.EXPECT().Lookup(gomock.Any(), "g2").Return([]*models.Entity{a2, c}, nil)

	doc, err := s.engine.Aggregate(s.ctx, []Ref{Group("g1"), Group("g2")}, Options{
		Name:     "urn:fed",
		Validate: true,
		Lookup:   s.lookup,
	})

	s.Require().NoError(err)
	s.Require().NotNil(doc)
	s.Equal([]string{"urn:a", "urn:b", "urn:c"}, ids(doc))
	s.Equal("urn:fed", doc.Name())
	s.Equal(3.0, testutil.ToFloat64(s.metrics.MergeDecisions.WithLabelValues(strategy.FirstSeen, "added")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.MergeDecisions.WithLabelValues(strategy.FirstSeen, "merged")))
}

func (s *EngineSuite) TestDirectAndGroupReferencesMix() {
	t := s.T()
	s.lookup.EXPECT().Lookup(gomock.Any(), "g").Return([]*models.Entity{sp(t, "urn:b"), nil, sp(t, "urn:a")}, nil)

	doc, err := s.engine.Aggregate(s.ctx, []Ref{Entity(sp(t, "urn:a")), Group("g"), Entity(nil)}, Options{Lookup: s.lookup})

	s.Require().NoError(err)
	s.Equal([]string{"urn:a", "urn:b"}, ids(doc))
}

func (s *EngineSuite) TestSelectedStrategy() {
	t := s.T()
	first, second := sp(t, "urn:a"), sp(t, "urn:a")
	second.Element().CreateAttr("cacheDuration", "PT5M")

	doc, err := s.engine.Aggregate(s.ctx, []Ref{Entity(first), Entity(second)}, Options{Strategy: strategy.ReplaceExisting})

	s.Require().NoError(err)
	ents := doc.Entities()
	s.Require().Len(ents, 1)
	s.Equal("PT5M", ents[0].CacheDuration())
}

// =============================================================================
// Empty and failing aggregations
// =============================================================================

func (s *EngineSuite) TestNothingSelected() {
	s.Run("no references", func() {
		doc, err := s.engine.Aggregate(s.ctx, nil, Options{Name: "empty", Validate: true})
		s.NoError(err)
		s.Nil(doc)
	})

	s.Run("groups resolving to nothing", func() {
		s.lookup.EXPECT().Lookup(gomock.Any(), "none").Return(nil, nil)
		doc, err := s.engine.Aggregate(s.ctx, []Ref{Group("none")}, Options{Lookup: s.lookup})
		s.NoError(err)
		s.Nil(doc)
	})
}

func (s *EngineSuite) TestUnknownStrategyFailsBeforeLookup() {
	calls := 0
	lookup := ports.GroupLookupFunc(func(context.Context, string) ([]*models.Entity, error) {
		calls++
		return nil, nil
	})

	doc, err := s.engine.Aggregate(s.ctx, []Ref{Group("g1"), Group("g2")}, Options{Strategy: "no_such", Lookup: lookup})

	s.Nil(doc)
	s.True(dErrors.HasCode(err, dErrors.CodeStrategyNotFound))
	s.Zero(calls)
}

func (s *EngineSuite) TestLookupFailures() {
	s.Run("lookup error is wrapped", func() {
		s.lookup.EXPECT().Lookup(gomock.Any(), "broken").Return(nil, errors.New("boom"))
		_, err := s.engine.Aggregate(s.ctx, []Ref{Group("broken")}, Options{Lookup: s.lookup})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
		s.ErrorContains(err, "boom")
	})

	s.Run("group without lookup", func() {
		_, err := s.engine.Aggregate(s.ctx, []Ref{Group("g")}, Options{})
		s.True(dErrors.HasCode(err, dErrors.CodePrecondition))
	})
}

func (s *EngineSuite) TestValidationFailureNamesAggregate() {
	t := s.T()
	_, err := s.engine.Aggregate(s.ctx, []Ref{Entity(sp(t, "urn:ok")), Entity(invalid(t, "urn:bad"))}, Options{
		Name:     "urn:fed:broken",
		Validate: true,
	})

	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeMergeValidation))
	s.Contains(err.Error(), "urn:fed:broken")

	var verr *schema.ValidationError
	s.ErrorAs(err, &verr)
}

func (s *EngineSuite) TestInvalidContentPassesWithoutValidation() {
	doc, err := s.engine.Aggregate(s.ctx, []Ref{Entity(invalid(s.T(), "urn:bad"))}, Options{})
	s.NoError(err)
	s.Equal([]string{"urn:bad"}, ids(doc))
}

// =============================================================================
// Ownership
// =============================================================================

func (s *EngineSuite) TestCopiedRecordsAreIndependent() {
	source := sp(s.T(), "urn:a")

	doc, err := s.engine.Aggregate(s.ctx, []Ref{Entity(source)}, Options{Validate: true})
	s.Require().NoError(err)

	source.Element().CreateAttr("cacheDuration", "PT1M")
	source.Element().RemoveChild(source.RoleDescriptors()[0])

	merged := doc.Entities()[0]
	s.Empty(merged.CacheDuration())
	s.Equal([]models.Role{models.RoleSP}, merged.Roles())
	s.NotNil(source.Element().Parent(), "copying leaves the source in its tree")
}

func (s *EngineSuite) TestBorrowedRecordsMoveIntoAggregate() {
	source := sp(s.T(), "urn:a")

	doc, err := s.engine.Aggregate(s.ctx, []Ref{Entity(source)}, Options{Borrow: true, Validate: true})
	s.Require().NoError(err)

	source.Element().CreateAttr("cacheDuration", "PT1M")
	s.Equal("PT1M", doc.Entities()[0].CacheDuration())
	s.Same(doc.Root(), source.Element().Parent())
}

func TestAggregateAttributes(t *testing.T) {
	engine, err := New(strategy.Default(), schema.New())
	require.NoError(t, err)
	until := time.Date(2031, 5, 6, 7, 8, 9, 500, time.UTC)

	doc, err := engine.Aggregate(context.Background(), []Ref{Entity(sp(t, "urn:a"))}, Options{
		Name:          "urn:fed",
		CacheDuration: "PT2H",
		ValidUntil:    until,
		Validate:      true,
	})

	require.NoError(t, err)
	root := doc.Root()
	assert.Equal(t, "PT2H", root.SelectAttrValue("cacheDuration", ""))
	assert.Equal(t, "2031-05-06T07:08:09Z", root.SelectAttrValue("validUntil", ""))

	out, err := doc.Bytes()
	require.NoError(t, err)
	reparsed := etree.NewDocument()
	require.NoError(t, reparsed.ReadFromBytes(out))
	assert.NoError(t, schema.New().ValidateDocument(reparsed.Root()))
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(nil, schema.New())
	assert.Error(t, err)
	_, err = New(strategy.Default(), nil)
	assert.Error(t, err)
}
