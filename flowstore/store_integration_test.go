//go:build integration

package flowstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/c360/flowcanvas/errors"
	"github.com/c360/flowcanvas/natsclient"
)

type StoreIntegrationSuite struct {
	suite.Suite
	tc    *natsclient.TestClient
	store *Store
	ctx   context.Context
}

func (s *StoreIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	s.tc = natsclient.NewTestClient(s.T(), natsclient.WithJetStream())

	store, err := NewStore(s.tc.Client)
	s.Require().NoError(err)
	s.store = store
}

func (s *StoreIntegrationSuite) newFlow(id string) *Flow {
	return &Flow{
		ID:   id,
		Name: "Test Flow " + id,
		Nodes: []FlowNode{
			{ID: "n1", Type: "trigger", Position: Position{X: 100, Y: 100}, Data: NodeData{Label: "Start"}},
			{ID: "n2", Type: "action", Position: Position{X: 300, Y: 100}, Data: NodeData{Label: "Do Work"}},
		},
		Edges: []FlowEdge{
			{ID: "e1", SourceNodeID: "n1", TargetNodeID: "n2"},
		},
	}
}

func (s *StoreIntegrationSuite) TestCreateAndGet() {
	flow := s.newFlow("create-get")
	s.Require().NoError(s.store.Create(s.ctx, flow))

	got, err := s.store.Get(s.ctx, "create-get")
	s.Require().NoError(err)
	s.Equal(flow.Name, got.Name)
	s.Equal(int64(1), got.Version)
	s.Len(got.Nodes, 2)
	s.Len(got.Edges, 1)
	s.WithinDuration(time.Now(), got.CreatedAt, 10*time.Second)
}

func (s *StoreIntegrationSuite) TestCreateDuplicateFails() {
	flow := s.newFlow("dup")
	s.Require().NoError(s.store.Create(s.ctx, flow))

	err := s.store.Create(s.ctx, s.newFlow("dup"))
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrFlowExists))
}

func (s *StoreIntegrationSuite) TestGetMissing() {
	_, err := s.store.Get(s.ctx, "nope")
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrFlowNotFound))
}

func (s *StoreIntegrationSuite) TestUpdateBumpsVersion() {
	flow := s.newFlow("update")
	s.Require().NoError(s.store.Create(s.ctx, flow))

	flow.Name = "Renamed"
	s.Require().NoError(s.store.Update(s.ctx, flow))

	got, err := s.store.Get(s.ctx, "update")
	s.Require().NoError(err)
	s.Equal("Renamed", got.Name)
	s.Equal(int64(2), got.Version)
}

func (s *StoreIntegrationSuite) TestUpdateStaleVersionConflicts() {
	flow := s.newFlow("conflict")
	s.Require().NoError(s.store.Create(s.ctx, flow))

	stale := flow.Clone()

	flow.Name = "First Writer"
	s.Require().NoError(s.store.Update(s.ctx, flow))

	stale.Name = "Second Writer"
	err := s.store.Update(s.ctx, stale)
	s.Require().Error(err)
	s.True(errors.Is(err, errors.ErrVersionConflict))
}

func (s *StoreIntegrationSuite) TestDelete() {
	flow := s.newFlow("delete-me")
	s.Require().NoError(s.store.Create(s.ctx, flow))

	s.Require().NoError(s.store.Delete(s.ctx, "delete-me"))

	_, err := s.store.Get(s.ctx, "delete-me")
	s.True(errors.Is(err, errors.ErrFlowNotFound))
}

func (s *StoreIntegrationSuite) TestList() {
	s.Require().NoError(s.store.Create(s.ctx, s.newFlow("list-a")))
	s.Require().NoError(s.store.Create(s.ctx, s.newFlow("list-b")))

	flows, err := s.store.List(s.ctx)
	s.Require().NoError(err)

	ids := make(map[string]bool, len(flows))
	for _, f := range flows {
		ids[f.ID] = true
	}
	s.True(ids["list-a"])
	s.True(ids["list-b"])
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(StoreIntegrationSuite))
}

func TestNewStoreNilClient(t *testing.T) {
	store, err := NewStore(nil)
	require.Error(t, err)
	assert.Nil(t, store)
	assert.True(t, errors.IsInvalid(err))
}
