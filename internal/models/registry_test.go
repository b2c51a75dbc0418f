package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/tabula/internal/models"
)

func TestDefault_KnownModels(t *testing.T) {
	reg := models.Default()

	c, ok := reg.Lookup("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, 16384, c.MaxOutputTokens)
	assert.True(t, c.SupportsStreaming)
	assert.True(t, c.SupportsTemperature)
	assert.Equal(t, "Flagship Chat Models", c.Category)

	o1, ok := reg.Lookup("o1-mini")
	require.True(t, ok)
	assert.False(t, o1.SupportsStreaming)
	assert.False(t, o1.SupportsTemperature)
	assert.True(t, o1.Deprecated)
	assert.Equal(t, 128000, o1.ContextWindow)
}

func TestCapabilities_UnknownFallsBack(t *testing.T) {
	c := models.Default().Capabilities("some-future-model")
	assert.Equal(t, "some-future-model", c.ID)
	assert.Equal(t, 1000, c.MaxOutputTokens)
	assert.True(t, c.SupportsStreaming)
}

func TestAll_KeepsCatalogueOrder(t *testing.T) {
	all := models.Default().All()
	require.NotEmpty(t, all)
	assert.Equal(t, "o3", all[0].ID)
	assert.Contains(t, models.Default().Categories(), "Gemini Models")
}

func TestParse_RejectsDuplicates(t *testing.T) {
	_, err := models.Parse([]byte(`
categories:
  - name: A
    models:
      - id: m
      - id: m
`))
	require.Error(t, err)

	_, err = models.Parse([]byte("categories: [\n"))
	require.Error(t, err)
}
