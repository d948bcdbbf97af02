package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestID_Unmarshal(t *testing.T) {
	testCases := []struct {
		name string
		data string
		want ID
	}{
		{name: "string", data: `"42"`, want: "42"},
		{name: "number", data: `42`, want: "42"},
		{name: "null", data: `null`, want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var id ID
			require.NoError(t, json.Unmarshal([]byte(tc.data), &id))
			assert.Equal(t, tc.want, id)
		})
	}
}

func TestID_UnmarshalInvalid(t *testing.T) {
	var id ID
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &id))
}

func TestStudentGroup_MixedIDs(t *testing.T) {
	var group StudentGroup
	err := json.Unmarshal([]byte(`{"group_id": 7, "group_name": "CS-1", "student_ids": [1, "2"]}`), &group)
	require.NoError(t, err)

	assert.Equal(t, ID("7"), group.GroupID)
	assert.Equal(t, []string{"1", "2"}, Strings(group.StudentIDs))
}

func TestSubmissionStatus_Finalized(t *testing.T) {
	assert.False(t, StatusNotStarted.Finalized())
	assert.False(t, StatusInProgress.Finalized())
	assert.True(t, StatusSubmitted.Finalized())
	assert.True(t, StatusGraded.Finalized())
}

func TestExperiment_Question(t *testing.T) {
	exp := &Experiment{Questions: []Question{{QuestionID: "q1"}, {QuestionID: "q2"}}}

	q, ok := exp.Question("q2")
	require.True(t, ok)
	assert.Equal(t, "q2", q.QuestionID)

	_, ok = exp.Question("q3")
	assert.False(t, ok)
}
