package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPageRequestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   PageRequest
		want PageRequest
	}{
		{"zero values get defaults", PageRequest{}, PageRequest{Page: 1, Limit: 20}},
		{"negative page clamps", PageRequest{Page: -3, Limit: 10}, PageRequest{Page: 1, Limit: 10}},
		{"limit over max clamps", PageRequest{Page: 2, Limit: 500}, PageRequest{Page: 2, Limit: 100}},
		{"in range untouched", PageRequest{Page: 4, Limit: 25}, PageRequest{Page: 4, Limit: 25}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestPageRequestSkip(t *testing.T) {
	require.Equal(t, int64(0), PageRequest{Page: 1, Limit: 20}.Skip())
	require.Equal(t, int64(40), PageRequest{Page: 3, Limit: 20}.Skip())
}

func TestNewPageMeta(t *testing.T) {
	meta := NewPageMeta(PageRequest{Page: 2, Limit: 10}, 35)
	require.Equal(t, 4, meta.TotalPages)
	require.Equal(t, int64(35), meta.Total)
	require.True(t, meta.HasNext)
	require.True(t, meta.HasPrev)

	last := NewPageMeta(PageRequest{Page: 4, Limit: 10}, 35)
	require.False(t, last.HasNext)

	empty := NewPageMeta(PageRequest{Page: 1, Limit: 10}, 0)
	require.Equal(t, 0, empty.TotalPages)
	require.False(t, empty.HasNext)
	require.False(t, empty.HasPrev)

	// Pages past the end are an empty window, not an error.
	past := NewPageMeta(PageRequest{Page: 9, Limit: 10}, 35)
	require.False(t, past.HasNext)
	require.True(t, past.HasPrev)
}
