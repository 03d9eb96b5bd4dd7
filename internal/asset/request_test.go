package asset

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestVariants(t *testing.T) {
	t.Parallel()

	simple := NewRequest("Kaom's Heart")
	assert.False(t, simple.Annotated())
	assert.Nil(t, simple.Annotations)

	mods := []string{"+10% to Fire Resistance"}
	annotated := NewAnnotatedRequest("Tabula Rasa", mods)
	assert.True(t, annotated.Annotated())
	mods[0] = "changed"
	assert.Equal(t, []string{"+10% to Fire Resistance"}, annotated.Annotations)

	empty := NewAnnotatedRequest("Tabula Rasa", nil)
	assert.True(t, empty.Annotated())
	assert.Empty(t, empty.Annotations)
}

func TestRequestsFor(t *testing.T) {
	t.Parallel()

	reqs := Requests{
		Nodes:  []Request{NewRequest("Acrobatics")},
		Items:  []Request{NewRequest("Tabula Rasa"), NewRequest("Kaom's Heart")},
		Skills: nil,
	}
	assert.Len(t, reqs.For(CategoryNode), 1)
	assert.Len(t, reqs.For(CategoryItem), 2)
	assert.Empty(t, reqs.For(CategorySkill))
	assert.Nil(t, reqs.For(Category("bogus")))
	assert.Equal(t, 3, reqs.Len())
}

func TestCategoryDirAndValidate(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "nodes", CategoryNode.Dir())
	assert.Equal(t, "items", CategoryItem.Dir())
	assert.Equal(t, "skills", CategorySkill.Dir())
	assert.Empty(t, Category("x").Dir())
	assert.NoError(t, CategorySkill.Validate())
	assert.Error(t, Category("x").Validate())
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	summary := Summarize([]Result{
		{Outcome: OutcomeCached},
		{Outcome: OutcomeFetched},
		{Outcome: OutcomeFetched},
		{Outcome: OutcomeFailed},
	})
	assert.Equal(t, Summary{Cached: 1, Fetched: 2, Failed: 1}, summary)
	assert.Equal(t, 4, summary.Total())
	assert.True(t, Result{Outcome: OutcomeFailed}.Failed())
}
