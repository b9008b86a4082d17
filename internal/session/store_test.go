package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repnote/internal/domain"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "state.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestLastSelectionRoundTrip(t *testing.T) {
	s, path := openTestStore(t)

	empty, err := s.LoadLastSelection()
	require.NoError(t, err)
	assert.Equal(t, LastSelection{}, empty)

	point := domain.PointID(2, 1)
	want := LastSelection{
		Topic:    "Math",
		Subject:  "Algebra",
		Content:  &point,
		Category: "Daily",
		Task:     &domain.TaskRef{Category: "Daily", Name: "read"},
	}
	require.NoError(t, s.SaveLastSelection(want))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.LoadLastSelection()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveLastSelectionReplacesPrevious(t *testing.T) {
	s, _ := openTestStore(t)
	disc := domain.DiscussionID(0)
	require.NoError(t, s.SaveLastSelection(LastSelection{Topic: "Math", Subject: "Algebra", Content: &disc}))
	require.NoError(t, s.SaveLastSelection(LastSelection{Topic: "Art"}))

	got, err := s.LoadLastSelection()
	require.NoError(t, err)
	assert.Equal(t, LastSelection{Topic: "Art"}, got)
}

func TestLoadLastSelectionDropsUndecodableValues(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.db.Exec(`INSERT INTO selection (key, value, updated_at) VALUES ('content', 'not json', ''), ('topic', 'Math', '');`)
	require.NoError(t, err)

	got, err := s.LoadLastSelection()
	require.NoError(t, err)
	assert.Equal(t, "Math", got.Topic)
	assert.Nil(t, got.Content)
}

func TestExpandedState(t *testing.T) {
	s, _ := openTestStore(t)

	got, err := s.LoadExpanded("Math", "Algebra")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.SaveExpanded("Math", "Algebra", []int{3, 0, 3}))
	require.NoError(t, s.SaveExpanded("Math", "Geometry", []int{1}))

	got, err = s.LoadExpanded("Math", "Algebra")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 3}, got)

	require.NoError(t, s.SaveExpanded("Math", "Algebra", []int{2}))
	got, err = s.LoadExpanded("Math", "Algebra")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)

	require.NoError(t, s.ForgetSubject("Math", "Algebra"))
	got, err = s.LoadExpanded("Math", "Algebra")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.LoadExpanded("Math", "Geometry")
	require.NoError(t, err)
	assert.Equal(t, []int{1}, got)
}

func TestForgetTopic(t *testing.T) {
	s, _ := openTestStore(t)
	require.NoError(t, s.SaveExpanded("Math", "Algebra", []int{0}))
	require.NoError(t, s.SaveExpanded("Math", "Geometry", []int{1}))
	require.NoError(t, s.SaveExpanded("Physics", "Optics", []int{2}))

	require.NoError(t, s.ForgetTopic("Math"))

	for _, subject := range []string{"Algebra", "Geometry"} {
		got, err := s.LoadExpanded("Math", subject)
		require.NoError(t, err)
		assert.Empty(t, got, subject)
	}
	got, err := s.LoadExpanded("Physics", "Optics")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, got)
}

func TestOpenRejectsEmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestSqliteDSN(t *testing.T) {
	assert.Equal(t, "file:memdb?mode=memory", sqliteDSN("file:memdb?mode=memory"))
	dsn := sqliteDSN("/tmp/x.db")
	assert.Contains(t, dsn, "file:///tmp/x.db")
	assert.Contains(t, dsn, "mode=rwc")
}
