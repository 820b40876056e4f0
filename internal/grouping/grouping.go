// Package grouping shapes a flat, category-joined task list into the
// per-category sections the task board renders.
package grouping

import "sitetrack/internal/model"

// Bucket is one category section: a display name and the tasks under it,
// in the order they arrived.
type Bucket struct {
	CategoryID   string
	CategoryName string
	Tasks        []model.TaskWithCategory
}

// View is an immutable grouping of tasks by category. Buckets appear in
// order of first appearance while scanning the input; since the store
// returns tasks newest-first, the category of the most recently created
// task comes first. A fetch always builds a fresh View; consumers swap the
// whole value, never mutate one.
type View struct {
	buckets []Bucket
	index   map[string]int
}

// Group buckets tasks by category identity in a single pass. The bucket's
// display name is fixed when the bucket is created, from the first task's
// resolved category name. Two categories with the same name but different
// identities stay separate buckets.
func Group(tasks []model.TaskWithCategory) View {
	v := View{index: make(map[string]int, len(tasks))}
	for _, t := range tasks {
		i, ok := v.index[t.CategoryID]
		if !ok {
			i = len(v.buckets)
			v.index[t.CategoryID] = i
			name := t.CategoryName
			if name == "" {
				name = model.UncategorizedLabel
			}
			v.buckets = append(v.buckets, Bucket{
				CategoryID:   t.CategoryID,
				CategoryName: name,
			})
		}
		v.buckets[i].Tasks = append(v.buckets[i].Tasks, t)
	}
	return v
}

// Buckets returns the category sections in stable order. The slice is
// the caller's to reslice or reassign; the view keeps its own.
func (v View) Buckets() []Bucket {
	return append([]Bucket(nil), v.buckets...)
}

// Len is the number of category sections.
func (v View) Len() int {
	return len(v.buckets)
}

// TaskCount is the total number of tasks across all sections.
func (v View) TaskCount() int {
	n := 0
	for _, b := range v.buckets {
		n += len(b.Tasks)
	}
	return n
}

// Flatten returns all tasks in view order: bucket by bucket, in-bucket
// order preserved. Group(v.Flatten()) reproduces v exactly.
func (v View) Flatten() []model.TaskWithCategory {
	out := make([]model.TaskWithCategory, 0, v.TaskCount())
	for _, b := range v.buckets {
		out = append(out, b.Tasks...)
	}
	return out
}
