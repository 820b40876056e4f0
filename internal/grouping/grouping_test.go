package grouping_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrack/internal/grouping"
	"sitetrack/internal/model"
)

func task(id, title, catID, catName string, created time.Time) model.TaskWithCategory {
	return model.TaskWithCategory{
		Task: model.Task{
			ID:         id,
			Title:      title,
			CategoryID: catID,
			ProjectID:  "p1",
			Status:     model.StatusNotStarted,
			CreatedAt:  created,
		},
		CategoryName: catName,
	}
}

func TestGroupEmpty(t *testing.T) {
	v := grouping.Group(nil)
	assert.Zero(t, v.Len())
	assert.Zero(t, v.TaskCount())
	assert.Empty(t, v.Buckets())
}

func TestGroupOrderOfFirstAppearance(t *testing.T) {
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	// Store order is created_at desc: B (newest), A, C.
	in := []model.TaskWithCategory{
		task("2", "B", "plumbing", "Plumbing", t0.Add(2*time.Hour)),
		task("1", "A", "electrical", "Electrical", t0.Add(time.Hour)),
		task("3", "C", "electrical", "Electrical", t0),
	}

	v := grouping.Group(in)
	require.Equal(t, 2, v.Len())

	buckets := v.Buckets()
	assert.Equal(t, "Plumbing", buckets[0].CategoryName)
	require.Len(t, buckets[0].Tasks, 1)
	assert.Equal(t, "B", buckets[0].Tasks[0].Title)

	assert.Equal(t, "Electrical", buckets[1].CategoryName)
	require.Len(t, buckets[1].Tasks, 2)
	assert.Equal(t, "A", buckets[1].Tasks[0].Title)
	assert.Equal(t, "C", buckets[1].Tasks[1].Title)
}

func TestGroupKeysByIdentityNotName(t *testing.T) {
	now := time.Now()
	in := []model.TaskWithCategory{
		task("1", "A", "cat-a", "Finitions", now),
		task("2", "B", "cat-b", "Finitions", now),
	}
	v := grouping.Group(in)
	require.Equal(t, 2, v.Len())
	assert.Equal(t, "cat-a", v.Buckets()[0].CategoryID)
	assert.Equal(t, "cat-b", v.Buckets()[1].CategoryID)
}

func TestGroupUncategorizedFallback(t *testing.T) {
	in := []model.TaskWithCategory{task("1", "A", "gone", "", time.Now())}
	v := grouping.Group(in)
	require.Equal(t, 1, v.Len())
	assert.Equal(t, model.UncategorizedLabel, v.Buckets()[0].CategoryName)
}

func TestGroupCountsAndIdempotence(t *testing.T) {
	now := time.Now()
	var in []model.TaskWithCategory
	cats := []string{"c1", "c2", "c3"}
	for i := 0; i < 20; i++ {
		c := cats[i%len(cats)]
		in = append(in, task(fmt.Sprintf("t%d", i), fmt.Sprintf("task %d", i), c, "Cat "+c, now.Add(-time.Duration(i)*time.Minute)))
	}

	v := grouping.Group(in)
	assert.Equal(t, len(cats), v.Len())
	assert.Equal(t, len(in), v.TaskCount())

	// Re-grouping the flattened output reproduces the view exactly.
	again := grouping.Group(v.Flatten())
	require.Equal(t, v.Len(), again.Len())
	for i, b := range v.Buckets() {
		ab := again.Buckets()[i]
		assert.Equal(t, b.CategoryID, ab.CategoryID)
		assert.Equal(t, b.CategoryName, ab.CategoryName)
		require.Len(t, ab.Tasks, len(b.Tasks))
		for j := range b.Tasks {
			assert.Equal(t, b.Tasks[j].ID, ab.Tasks[j].ID)
		}
	}
}

func TestBucketsReturnsDetachedSlice(t *testing.T) {
	now := time.Now()
	v := grouping.Group([]model.TaskWithCategory{
		task("1", "A", "c1", "Plumbing", now),
	})

	got := v.Buckets()
	got[0].CategoryName = "scribbled"
	got[0].Tasks = nil

	fresh := v.Buckets()
	assert.Equal(t, "Plumbing", fresh[0].CategoryName)
	require.Len(t, fresh[0].Tasks, 1)
	assert.Equal(t, 1, v.TaskCount())
}

func TestGroupDoesNotShareStateBetweenCalls(t *testing.T) {
	now := time.Now()
	in := []model.TaskWithCategory{task("1", "A", "c1", "One", now)}

	v1 := grouping.Group(in)
	v2 := grouping.Group(append(in, task("2", "B", "c2", "Two", now)))

	assert.Equal(t, 1, v1.Len())
	assert.Equal(t, 2, v2.Len())
}
