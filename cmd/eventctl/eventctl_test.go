package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventsaga/internal/domain/deadletter"
)

func TestCommandTree(t *testing.T) {
	root := newRootCmd()

	for _, path := range [][]string{
		{"dlt", "list"},
		{"dlt", "replay"},
		{"ledger", "list"},
		{"topics", "ensure"},
	} {
		cmd, _, err := root.Find(path)
		require.NoError(t, err, "%v", path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}

func TestDLTListRequiresTopic(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--config", t.TempDir() + "/none.yaml", "dlt", "list"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "topic")
}

func TestSelectRecords(t *testing.T) {
	records := []deadletter.Record{
		{OriginalPartition: 0, OriginalOffset: 5},
		{OriginalPartition: 1, OriginalOffset: 5},
		{OriginalPartition: 2, OriginalOffset: 7},
	}

	assert.Len(t, selectRecords(records, 0, 0, true), 3)

	picked := selectRecords(records, 1, 5, false)
	require.Len(t, picked, 1)
	assert.Equal(t, 1, picked[0].OriginalPartition)

	assert.Empty(t, selectRecords(records, 0, 7, false))
}

func TestDLTReplayRequiresPartitionWithOffset(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"--config", t.TempDir() + "/none.yaml", "dlt", "replay", "--topic", "t", "--offset", "5"})
	root.SetOut(&bytes.Buffer{})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--partition")
}
