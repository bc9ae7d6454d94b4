package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStudentSetRoundTripsThroughText(t *testing.T) {
	set := NewStudentSet("u2", "u1", "u2", "")
	value, err := set.Value()
	require.NoError(t, err)
	assert.Equal(t, `["u1","u2"]`, value)

	var scanned StudentSet
	require.NoError(t, scanned.Scan([]byte(`["u1","u2"]`)))
	assert.True(t, scanned.Contains("u1"))
	assert.Len(t, scanned, 2)
}

func TestStudentSetEmptyMeansVisibleToAll(t *testing.T) {
	var set StudentSet
	require.NoError(t, set.Scan(nil))
	value, err := set.Value()
	require.NoError(t, err)
	assert.Nil(t, value)

	lesson := Lesson{TargetStudents: set}
	assert.True(t, lesson.VisibleTo("anyone"))

	lesson.TargetStudents = NewStudentSet("u1")
	assert.True(t, lesson.VisibleTo("u1"))
	assert.False(t, lesson.VisibleTo("u2"))
}

func TestStudentSetRejectsMalformedJSON(t *testing.T) {
	var set StudentSet
	assert.Error(t, set.Scan(`{"u1":true}`))
	assert.Error(t, json.Unmarshal([]byte(`"u1"`), &set))
}

func TestLessonTypeGradable(t *testing.T) {
	assert.True(t, LessonTypeQuiz.Gradable())
	assert.True(t, LessonTypeAssignment.Gradable())
	assert.False(t, LessonTypeVideo.Gradable())
	assert.False(t, LessonType("slides").Valid())
}
