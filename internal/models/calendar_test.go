package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDeriveEvents(t *testing.T) {
	end := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	due := time.Date(2026, 9, 20, 0, 0, 0, 0, time.UTC)

	projectID := primitive.NewObjectID()
	projects := []Project{
		{ID: projectID, Title: "Loft Renovation", EndDate: &end},
		{ID: primitive.NewObjectID(), Title: "No deadline set"},
	}
	tasks := []Task{
		{ID: primitive.NewObjectID(), ProjectID: projectID, Title: "Order fixtures", Deadline: &deadline},
		{ID: primitive.NewObjectID(), ProjectID: projectID, Title: "No deadline"},
	}
	milestones := []Milestone{
		{ID: primitive.NewObjectID(), ProjectID: projectID, Title: "Styling complete", DueDate: &due},
	}

	events := DeriveEvents(projects, tasks, milestones)
	require.Len(t, events, 3)

	bySource := map[EventSource]CalendarEvent{}
	for _, ev := range events {
		bySource[ev.Source] = ev
	}

	p := bySource[EventSourceProject]
	require.Equal(t, "Loft Renovation deadline", p.Title)
	require.Equal(t, end, p.StartsAt)
	require.Equal(t, end, p.EndsAt)
	require.True(t, p.AllDay)
	require.NotNil(t, p.ProjectID)
	require.Equal(t, projectID, *p.ProjectID)

	tk := bySource[EventSourceTask]
	require.Equal(t, "Order fixtures", tk.Title)
	require.Equal(t, deadline, tk.StartsAt)

	m := bySource[EventSourceMilestone]
	require.Equal(t, "Styling complete", m.Title)
	require.Equal(t, due, m.StartsAt)
}

func TestDeriveEventsEmptyInputs(t *testing.T) {
	require.Empty(t, DeriveEvents(nil, nil, nil))
	require.Empty(t, DeriveEvents([]Project{{Title: "no dates"}}, nil, nil))
}
