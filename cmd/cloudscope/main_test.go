package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudscope/cloudscope/internal/store"
	"github.com/cloudscope/cloudscope/types"
)

func TestRecordColumns_NameLeads(t *testing.T) {
	records := []types.ResourceRecord{
		{"State": "running", "Name": "web-1", "AZ": "us-east-1a"},
		{"Name": "web-2", "Zone": "b"},
	}

	columns := recordColumns(records)

	assert.Equal(t, []string{"Name", "AZ", "State", "Zone"}, columns)
}

func TestRecordColumns_NoName(t *testing.T) {
	records := []types.ResourceRecord{{"B": 1, "A": 2}}

	assert.Equal(t, []string{"A", "B"}, recordColumns(records))
}

func TestCell(t *testing.T) {
	assert.Equal(t, "", cell(nil))
	assert.Equal(t, "web-1", cell("web-1"))
	assert.Equal(t, "5", cell(int32(5)))
	assert.Equal(t, "true", cell(true))
}

func TestCategoryNames(t *testing.T) {
	names := categoryNames()

	assert.Contains(t, names, "compute")
	assert.Contains(t, names, "service")
}

func TestResolveProfileArg(t *testing.T) {
	ctx := context.Background()
	profileStore, err := store.NewProfileStore(filepath.Join(t.TempDir(), "profiles.db"))
	require.NoError(t, err)
	require.NoError(t, profileStore.Init(ctx))
	t.Cleanup(func() { _ = profileStore.Close() })

	created, err := profileStore.Create(ctx, &types.Profile{
		Name:            "dev",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
		Region:          "eu-west-1",
	})
	require.NoError(t, err)

	byName, err := resolveProfileArg(ctx, profileStore, "dev")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byName.ID)

	byID, err := resolveProfileArg(ctx, profileStore, "1")
	require.NoError(t, err)
	assert.Equal(t, "dev", byID.Name)

	_, err = resolveProfileArg(ctx, profileStore, "missing")
	assert.Error(t, err)
}
