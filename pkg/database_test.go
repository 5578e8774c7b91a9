package emtf

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConditionsStore {
	t.Helper()
	db, err := ConnectToDatabase("sqlite", "", "", "", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store := NewConditionsStore(db)
	require.NoError(t, store.CreateSchema())
	return store
}

func TestConditionsStoreForest(t *testing.T) {
	store := newTestStore(t)
	forest, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	require.NoError(t, store.StoreForest(forest, 100, 200))

	loaded, err := store.LoadForest(150, 5)
	require.NoError(t, err)
	assert.Equal(t, "v_16_02_21", loaded.Dir)
	assert.Equal(t, 5, loaded.Version)
	if diff := cmp.Diff(forest.Lines(), loaded.Lines()); diff != "" {
		t.Errorf("lines mismatch (-stored +loaded):\n%s", diff)
	}
	if diff := cmp.Diff(forest.Ranges(), loaded.Ranges()); diff != "" {
		t.Errorf("ranges mismatch (-stored +loaded):\n%s", diff)
	}

	for _, run := range []int{99, 201} {
		_, err = store.LoadForest(run, 5)
		var unknown *ErrUnknownForest
		assert.True(t, errors.As(err, &unknown), "run %d", run)
	}
	_, err = store.LoadForest(150, 7)
	var unknown *ErrUnknownForest
	assert.True(t, errors.As(err, &unknown))
}

func TestConditionsStoreLatestRange(t *testing.T) {
	store := newTestStore(t)
	old, err := EmbeddedForest(5, "v_16_02_21")
	require.NoError(t, err)
	require.NoError(t, store.StoreForest(old, 0, 1000))

	newer, err := NewForest(5, "override", []ForestLine{{Mode: 15, Feature: -1, Value: 0.5}}, nil)
	require.NoError(t, err)
	require.NoError(t, store.StoreForest(newer, 500, 1000))

	loaded, err := store.LoadForest(400, 5)
	require.NoError(t, err)
	assert.Equal(t, "v_16_02_21", loaded.Dir)

	loaded, err = store.LoadForest(600, 5)
	require.NoError(t, err)
	assert.Equal(t, "override", loaded.Dir)
	assert.Equal(t, 0.5, loaded.Score(15, Features{}))
}

func TestConditionsStoreParams(t *testing.T) {
	store := newTestStore(t)

	_, found, err := store.LoadParams(150)
	require.NoError(t, err)
	assert.False(t, found)

	want := RunParams{MinRun: 100, MaxRun: 200, PtAssignVersion: 7, BDTXMLDir: "2017_v7", PtLUTVersion: 7}
	require.NoError(t, store.StoreParams(want))

	got, found, err := store.LoadParams(150)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, want, got)

	config := DefaultConfiguration()
	got.Apply(&config)
	assert.Equal(t, 7, config.PtAssignVersion)
	assert.Equal(t, "2017_v7", config.BDTXMLDir)
	assert.Equal(t, 7, config.PtLUTVersion)
	assert.NoError(t, config.Validate())
}

func TestConnectToDatabaseUnknownDriver(t *testing.T) {
	_, err := ConnectToDatabase("postgres", "user", "pass", "localhost", "EMTF")
	assert.Error(t, err)
}
