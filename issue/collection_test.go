package issue

import (
	"testing"

	"github.com/corymhall/jxalsp/lsp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	u1 = lsp.DocumentURI("file:///work/old.js")
	u2 = lsp.DocumentURI("file:///work/new.js")
)

func TestCollectionSetIfChanged(t *testing.T) {
	c := NewCollection()
	set := IssueSet{sample("x", 1)}

	require.True(t, c.SetIfChanged(u1, set))
	require.False(t, c.SetIfChanged(u1, IssueSet{sample("x", 1)}))
	require.True(t, c.SetIfChanged(u1, nil))

	got, ok := c.Get(u1)
	require.True(t, ok)
	assert.Empty(t, got)
}

func TestCollectionGetReturnsCopy(t *testing.T) {
	c := NewCollection()
	c.Set(u1, IssueSet{sample("x", 1)})
	got, _ := c.Get(u1)
	got[0].Message = "mutated"

	again, _ := c.Get(u1)
	assert.Equal(t, "x", again[0].Message)
}

func TestCollectionRenameCarriesIssues(t *testing.T) {
	c := NewCollection()
	set := IssueSet{{Message: "x", Line: 1, Column: 1, EndLine: 1, EndColumn: 1, Severity: Error}}
	c.Set(u1, set)

	require.True(t, c.Rename(u1, u2, false))

	got, ok := c.Get(u2)
	require.True(t, ok)
	assert.Equal(t, set, got)
	assert.False(t, c.Has(u1))
}

func TestCollectionRenameKeepsOpenOrigin(t *testing.T) {
	c := NewCollection()
	c.Set(u1, IssueSet{sample("x", 1)})

	require.True(t, c.Rename(u1, u2, true))
	assert.True(t, c.Has(u1))
	assert.True(t, c.Has(u2))
}

func TestCollectionRenameWithoutEntry(t *testing.T) {
	c := NewCollection()
	assert.False(t, c.Rename(u1, u2, false))
	assert.False(t, c.Has(u2))
}

func TestCollectionClear(t *testing.T) {
	c := NewCollection()
	c.Set(u2, nil)
	c.Set(u1, IssueSet{sample("x", 1)})

	assert.Equal(t, []lsp.DocumentURI{u2, u1}, c.Clear())
	assert.Empty(t, c.URIs())
	assert.False(t, c.Remove(u1))
}
