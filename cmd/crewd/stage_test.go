package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/crewd/internal/project"
)

func TestFindStage(t *testing.T) {
	st, ok := findStage("BIR", project.CrewDev)
	require.True(t, ok)
	assert.Equal(t, "backend_dev", st.Consumer)

	st, ok = findStage("DSP", project.CrewDS)
	require.True(t, ok)
	assert.Equal(t, "ds_lead", st.Consumer)

	_, ok = findStage("NOPE", project.CrewDev)
	assert.False(t, ok)
}
