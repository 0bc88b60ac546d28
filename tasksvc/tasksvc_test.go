package tasksvc

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDraftValidate(t *testing.T) {
	cases := []struct {
		name  string
		draft Draft
		ok    bool
	}{
		{"valid", Draft{Title: "T", Category: CategoryWork}, true},
		{"blank title", Draft{Title: "  ", Category: CategoryWork}, false},
		{"missing category", Draft{Title: "T"}, false},
		{"unknown category", Draft{Title: "T", Category: "chores"}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidArgument)
			}
		})
	}
}

func TestPatchValidate(t *testing.T) {
	blank := " "
	chores := Category("chores")
	study := CategoryStudy

	padded := " T "
	empty := Category("")

	assert.NoError(t, Patch{}.Validate())
	assert.NoError(t, Patch{Category: &study}.Validate())
	assert.NoError(t, Patch{Title: &padded}.Validate())
	assert.Equal(t, " T ", padded)

	err := Patch{Title: &blank}.Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.EqualError(t, err, "invalid argument: title must not be blank")

	err = Patch{Category: &chores}.Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)
	assert.EqualError(t, err, "invalid argument: category must be one of work, personal, study")

	assert.ErrorIs(t, Patch{Category: &empty}.Validate(), ErrInvalidArgument)
}

func TestDraftValidateMessages(t *testing.T) {
	assert.EqualError(t, Draft{Category: CategoryWork}.Validate(), "invalid argument: title is required")
	assert.EqualError(t, Draft{Title: "T"}.Validate(), "invalid argument: category is required")
}

func TestPatchUnmarshalNulls(t *testing.T) {
	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"dueDate":null,"description":null}`), &p))
	require.NotNil(t, p.DueDate)
	assert.True(t, p.DueDate.IsZero())
	require.NotNil(t, p.Description)
	assert.Equal(t, "", *p.Description)
	assert.Nil(t, p.Title)

	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	got := p.Apply(Task{Title: "T", Description: "d", DueDate: &due})
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "", got.Description)

	for _, body := range []string{`{"category":null}`, `{"title":null}`, `{"completed":null}`} {
		var p Patch
		assert.ErrorIs(t, json.Unmarshal([]byte(body), &p), ErrInvalidArgument, body)
	}
}

func TestPatchUnmarshalRejectsUnknownFields(t *testing.T) {
	var p Patch
	assert.Error(t, json.Unmarshal([]byte(`{"ownerId":"mallory"}`), &p))

	require.NoError(t, json.Unmarshal([]byte(`{"title":"T","completed":false}`), &p))
	require.NotNil(t, p.Title)
	assert.Equal(t, "T", *p.Title)
	require.NotNil(t, p.Completed)
	assert.False(t, *p.Completed)
}

func TestPatchApply(t *testing.T) {
	due := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	task := Task{ID: "1", Title: "T", Description: "d", Category: CategoryWork, DueDate: &due, OwnerID: "u"}

	var p Patch
	require.NoError(t, json.Unmarshal([]byte(`{"description":"","completed":true,"dueDate":""}`), &p))

	got := p.Apply(task)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "", got.Description)
	assert.True(t, got.Completed)
	assert.Nil(t, got.DueDate)
	assert.Equal(t, "u", got.OwnerID)
	assert.Equal(t, CategoryWork, got.Category)
}

func TestDateUnmarshal(t *testing.T) {
	cases := []struct {
		in   string
		want time.Time
	}{
		{`"2030-01-01"`, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)},
		{`"2030-01-01T10:00:00+02:00"`, time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)},
		{`""`, time.Time{}},
	}

	for _, tc := range cases {
		var d Date
		require.NoError(t, json.Unmarshal([]byte(tc.in), &d), tc.in)
		assert.True(t, tc.want.Equal(d.Time), tc.in)
	}

	var d Date
	assert.ErrorIs(t, json.Unmarshal([]byte(`"tomorrow"`), &d), ErrInvalidArgument)
	assert.ErrorIs(t, json.Unmarshal([]byte(`42`), &d), ErrInvalidArgument)
}

func TestSamples(t *testing.T) {
	now := time.Date(2031, 5, 6, 22, 30, 0, 0, time.FixedZone("X", -3*3600))

	samples := Samples(now)
	require.Len(t, samples, 2)
	assert.Equal(t, "sample1", samples[0].ID)
	assert.Equal(t, "sample2", samples[1].ID)
	assert.Equal(t, CategoryPersonal, samples[0].Category)
	assert.Equal(t, CategoryWork, samples[1].Category)

	for _, s := range samples {
		assert.False(t, s.Completed)
		assert.Empty(t, s.OwnerID)
		require.NotNil(t, s.DueDate)
		assert.Equal(t, time.Date(2031, 5, 7, 0, 0, 0, 0, time.UTC), *s.DueDate)
	}

	samples[0].Title = "changed"
	assert.Equal(t, "Sample Todo 1", Samples(now)[0].Title)
}

func TestSampleJSON(t *testing.T) {
	now := time.Date(2031, 5, 6, 12, 0, 0, 0, time.UTC)

	b, err := json.Marshal(Samples(now)[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"_id": "sample1",
		"title": "Sample Todo 1",
		"description": "This is a sample todo. Login to manage your own tasks.",
		"category": "personal",
		"completed": false,
		"dueDate": "2031-05-06T00:00:00Z"
	}`, string(b))

	b, err = json.Marshal(Task{ID: "1", Title: "T", OwnerID: "ann"})
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	assert.Equal(t, "ann", m["ownerId"])
	assert.Contains(t, m, "createdAt")
	assert.Contains(t, m, "updatedAt")
}

func TestAuthAnonymous(t *testing.T) {
	assert.True(t, Auth{}.Anonymous())
	assert.False(t, Auth{UserID: "u"}.Anonymous())
}
