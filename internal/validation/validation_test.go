package validation

import (
	"testing"

	"cleantech-console/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStruct_QuestionForm(t *testing.T) {
	err := Struct(domain.QuestionForm{NameEn: "How clean is the restroom?", Type: domain.QuestionRating})
	require.NoError(t, err)

	err = Struct(domain.QuestionForm{Type: "Slider"})
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var fe Errors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "is required", fe["nameEn"])
	assert.Contains(t, fe["type"], "must be one of")
}

func TestStruct_QuestionAssignment(t *testing.T) {
	require.NoError(t, Struct(domain.QuestionAssignment{SectionID: 4, QuestionIDs: []int{1, 2}}))
	require.NoError(t, Struct(domain.QuestionAssignment{PointID: 9, QuestionIDs: []int{1}}))

	err := Struct(domain.QuestionAssignment{QuestionIDs: []int{1}})
	require.Error(t, err)

	err = Struct(domain.QuestionAssignment{SectionID: 4, PointID: 9, QuestionIDs: []int{1}})
	require.Error(t, err)

	err = Struct(domain.QuestionAssignment{SectionID: 4})
	var fe Errors
	require.ErrorAs(t, err, &fe)
	assert.Contains(t, fe, "questionIds")
}

func TestErrors_ErrorIsSorted(t *testing.T) {
	e := Errors{"name": "is required", "email": "must be a valid email address"}
	assert.Equal(t, "validation failed: email: must be a valid email address; name: is required", e.Error())
}
