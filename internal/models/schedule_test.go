package models

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func buildSchedule(statuses ...ActivityStatus) Schedule {
	acts := make([]Activity, 0, len(statuses))
	for _, st := range statuses {
		acts = append(acts, Activity{ID: primitive.NewObjectID(), Title: "work", Status: st})
	}
	return Schedule{Phases: []Phase{{
		ID:    primitive.NewObjectID(),
		Title: "Construction",
		Weeks: []Week{{ID: primitive.NewObjectID(), Label: "Week 1", Activities: acts}},
	}}}
}

func TestScheduleProgress(t *testing.T) {
	tests := []struct {
		name     string
		schedule Schedule
		want     int
	}{
		{"empty tree", Schedule{}, 0},
		{"no activities", Schedule{Phases: []Phase{{Weeks: []Week{{}}}}}, 0},
		{"none completed", buildSchedule(ActivityStatusPending, ActivityStatusInProgress), 0},
		{"all completed", buildSchedule(ActivityStatusCompleted, ActivityStatusCompleted), 100},
		{"one of three rounds up", buildSchedule(ActivityStatusCompleted, ActivityStatusToDo, ActivityStatusToDo), 33},
		{"two of three rounds up", buildSchedule(ActivityStatusCompleted, ActivityStatusCompleted, ActivityStatusToDo), 67},
		{"half", buildSchedule(ActivityStatusCompleted, ActivityStatusPending), 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.schedule.Progress())
		})
	}
}

func TestScheduleProgressCountsAcrossWeeks(t *testing.T) {
	s := Schedule{Phases: []Phase{
		{Weeks: []Week{
			{Activities: []Activity{{Status: ActivityStatusCompleted}}},
			{Activities: []Activity{{Status: ActivityStatusPending}}},
		}},
		{Weeks: []Week{
			{Activities: []Activity{{Status: ActivityStatusCompleted}, {Status: ActivityStatusCompleted}}},
		}},
	}}
	require.Equal(t, 75, s.Progress())

	p := Project{Schedule: s}
	p.RecomputeProgress()
	require.Equal(t, 75, p.Progress)
}

func TestStripInternalComments(t *testing.T) {
	author := primitive.NewObjectID()
	s := buildSchedule(ActivityStatusPending)
	s.Phases[0].Weeks[0].Activities[0].Comments = []ActivityComment{
		{ID: primitive.NewObjectID(), AuthorID: author, Body: "visible to everyone"},
		{ID: primitive.NewObjectID(), AuthorID: author, Body: "site team only", Internal: true},
	}

	stripped := s.StripInternalComments()

	got := stripped.Phases[0].Weeks[0].Activities[0].Comments
	require.Len(t, got, 1)
	require.Equal(t, "visible to everyone", got[0].Body)

	// The original tree keeps both comments.
	require.Len(t, s.Phases[0].Weeks[0].Activities[0].Comments, 2)
}

func TestFindAndRemoveActivity(t *testing.T) {
	s := buildSchedule(ActivityStatusPending, ActivityStatusCompleted)
	target := s.Phases[0].Weeks[0].Activities[1].ID

	found := s.FindActivity(target)
	require.NotNil(t, found)
	require.Equal(t, ActivityStatusCompleted, found.Status)

	require.Nil(t, s.FindActivity(primitive.NewObjectID()))

	require.True(t, s.RemoveActivity(target))
	require.Len(t, s.Phases[0].Weeks[0].Activities, 1)
	require.False(t, s.RemoveActivity(target))
}
