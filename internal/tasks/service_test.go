package tasks

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repnote/internal/domain"
	"repnote/internal/storage"
)

func newTestService(t *testing.T) (*Service, *storage.Gateway) {
	t.Helper()
	g, err := storage.Open(storage.Options{DataDir: t.TempDir(), DefaultCategoryIcon: "C"}, nil)
	require.NoError(t, err)
	svc := NewService(g, "C", nil)
	svc.now = func() time.Time { return time.Date(2024, time.March, 10, 9, 0, 0, 0, time.Local) }
	return svc, g
}

func names(cats []domain.TaskCategory) []string {
	out := make([]string, 0, len(cats))
	for _, c := range cats {
		out = append(out, c.Name)
	}
	return out
}

func TestCategoryLifecycle(t *testing.T) {
	svc, _ := newTestService(t)

	require.NoError(t, svc.AddCategory("Daily", ""))
	require.NoError(t, svc.AddCategory("Weekly", "W"))
	require.NoError(t, svc.AddCategory("Someday", ""))
	assert.ErrorIs(t, svc.AddCategory("Daily", ""), domain.ErrConflict)
	assert.ErrorIs(t, svc.AddCategory(" ", ""), domain.ErrValidation)
	assert.ErrorIs(t, svc.AddCategory(domain.AllTasksCategory, ""), domain.ErrValidation)

	cats, err := svc.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Daily", "Weekly", "Someday"}, names(cats))
	assert.Equal(t, "C", cats[0].Icon)
	assert.Equal(t, "W", cats[1].Icon)

	moved, err := svc.MoveCategory("Someday", -1)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = svc.MoveCategory("Daily", -1)
	require.NoError(t, err)
	assert.False(t, moved)

	assert.ErrorIs(t, svc.RenameCategory("Weekly", "Daily"), domain.ErrConflict)
	assert.ErrorIs(t, svc.RenameCategory("Nope", "Other"), domain.ErrNotFound)
	require.NoError(t, svc.RenameCategory("Weekly", "Week"))
	require.NoError(t, svc.SetCategoryIcon("Week", "7"))
	assert.ErrorIs(t, svc.SetCategoryIcon("Week", ""), domain.ErrValidation)
	require.NoError(t, svc.DeleteCategory("Daily"))
	assert.ErrorIs(t, svc.DeleteCategory("Daily"), domain.ErrNotFound)

	cats, err = svc.Categories()
	require.NoError(t, err)
	assert.Equal(t, []string{"Someday", "Week"}, names(cats))
	assert.Equal(t, "7", cats[1].Icon)
}

func TestTaskLifecycle(t *testing.T) {
	svc, g := newTestService(t)
	require.NoError(t, svc.AddCategory("Daily", ""))
	require.NoError(t, svc.AddCategory("Weekly", ""))

	require.NoError(t, svc.AddTask("Daily", "read"))
	require.NoError(t, svc.AddTask("Daily", "walk"))
	require.NoError(t, svc.AddTask("Daily", "write"))
	require.NoError(t, svc.AddTask("Weekly", "read"))
	assert.ErrorIs(t, svc.AddTask("Daily", "read"), domain.ErrConflict)
	assert.ErrorIs(t, svc.AddTask("Ghost", "read"), domain.ErrNotFound)

	entries, err := svc.Tasks("Daily")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, domain.Task{Name: "read", Date: "2024-03-10"}, entries[0].Task)

	moved, err := svc.MoveTask("Daily", "write", -1)
	require.NoError(t, err)
	assert.True(t, moved)
	moved, err = svc.MoveTask("Daily", "write", -5)
	require.NoError(t, err)
	assert.False(t, moved)

	require.NoError(t, svc.SetChecked("Daily", "walk", true))
	require.NoError(t, svc.Increment("Daily", "read"))
	require.NoError(t, svc.Increment("Daily", "read"))

	assert.ErrorIs(t, svc.UpdateTask("Daily", "read", domain.Task{Name: "walk"}), domain.ErrConflict)
	assert.ErrorIs(t, svc.UpdateTask("Daily", "read", domain.Task{Name: "read", Count: -1}), domain.ErrValidation)
	assert.ErrorIs(t, svc.UpdateTask("Daily", "read", domain.Task{Name: "read", Date: "tomorrow"}), domain.ErrValidation)
	require.NoError(t, svc.UpdateTask("Daily", "read", domain.Task{Name: "read books", Count: 5, Date: "2024-01-01"}))

	doc, err := g.LoadTasks()
	require.NoError(t, err)
	assert.Equal(t, []domain.Task{
		{Name: "read books", Count: 5, Date: "2024-01-01"},
		{Name: "write", Date: "2024-03-10"},
		{Name: "walk", Date: "2024-03-10", Checked: true},
	}, doc.Categories[0].Tasks)

	require.NoError(t, svc.DeleteTask("Daily", "write"))
	assert.ErrorIs(t, svc.DeleteTask("Daily", "write"), domain.ErrNotFound)

	all, err := svc.Tasks(domain.AllTasksCategory)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Category: "Daily", Task: domain.Task{Name: "read books", Count: 5, Date: "2024-01-01"}},
		{Category: "Daily", Task: domain.Task{Name: "walk", Date: "2024-03-10", Checked: true}},
		{Category: "Weekly", Task: domain.Task{Name: "read", Date: "2024-03-10"}},
	}, all)
}

func TestIncrementStampsToday(t *testing.T) {
	svc, g := newTestService(t)
	require.NoError(t, svc.AddCategory("Daily", ""))
	require.NoError(t, svc.AddTask("Daily", "read"))
	require.NoError(t, svc.UpdateTask("Daily", "read", domain.Task{Name: "read", Count: 1, Date: "2024-01-01"}))
	require.NoError(t, svc.Increment("Daily", "read"))

	doc, err := g.LoadTasks()
	require.NoError(t, err)
	assert.Equal(t, domain.Task{Name: "read", Count: 2, Date: "2024-03-10"}, doc.Categories[0].Tasks[0])
}
