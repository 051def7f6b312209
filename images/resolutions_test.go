package images

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolutionGetMegaPixels(t *testing.T) {
	tests := []struct {
		name     ResolutionType
		expected float64
	}{
		{name: ResolutionTypeVGA, expected: 0.31},
		{name: ResolutionTypeFHD1080p, expected: 2.07},
		{name: ResolutionType4KUHD, expected: 8.29},
		{name: ResolutionType1MP54, expected: 1.31},
	}

	for _, tt := range tests {
		t.Run(string(tt.name), func(t *testing.T) {
			r, ok := GetResolutionByType(tt.name)
			require.True(t, ok, "resolution should be cataloged")
			assert.Equal(t, tt.expected, r.GetMegaPixels())
		})
	}

	assert.Zero(t, Resolution{}.GetMegaPixels(), "empty dimensions have no pixels")
}

func TestResolutionString(t *testing.T) {
	r, ok := GetResolutionByType(ResolutionTypeFHD1080p)
	require.True(t, ok)
	assert.Equal(t, "Full HD 1080p (1920x1080, 2.07MP)", r.String())
}

func TestCatalogOrdered(t *testing.T) {
	all := GetAllResolutions()
	for i := 1; i < len(all); i++ {
		prev, cur := all[i-1].Pixels, all[i].Pixels
		assert.LessOrEqual(t, prev.Width*prev.Height, cur.Width*cur.Height, "%s before %s", all[i-1].Name, all[i].Name)
	}

	all[0].Pixels.Width = 1
	assert.Equal(t, 640, GetAllResolutions()[0].Pixels.Width, "callers get a copy")
}

func TestGetSupportedResolutions(t *testing.T) {
	supported := GetSupportedResolutions()
	assert.Len(t, supported, len(GetAllResolutions())-1, "8K is experimental")
	for _, r := range supported {
		assert.False(t, r.Experimental, "%s should not be experimental", r.Name)
	}
}

func TestGetResolutionsByType(t *testing.T) {
	got, err := GetResolutionsByType(ResolutionType4KUHD, ResolutionTypeVGA)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ResolutionType4KUHD, got[0].Name, "order of the request is kept")

	_, err = GetResolutionsByType(ResolutionTypeVGA, "16K")
	assert.ErrorContains(t, err, "16K")
}

func TestGetHighestResolutionUnderDimensions(t *testing.T) {
	r, ok := GetHighestResolutionUnderDimensions(2000, 1100)
	require.True(t, ok)
	assert.Equal(t, ResolutionTypeFHD1080p, r.Name)

	r, ok = GetHighestResolutionUnderDimensions(640, 480)
	require.True(t, ok)
	assert.Equal(t, ResolutionTypeVGA, r.Name)

	_, ok = GetHighestResolutionUnderDimensions(100, 100)
	assert.False(t, ok, "nothing fits")
}
