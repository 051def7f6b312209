package images

import (
	"fmt"
	"math"
	"sort"
)

// AspectRatio represents a camera aspect ratio by name (e.g., "16:9").
type AspectRatio string

// Aspect ratios of the cataloged camera resolutions.
const (
	AspectRatio169 AspectRatio = "16:9"
	AspectRatio43  AspectRatio = "4:3"
	AspectRatio54  AspectRatio = "5:4"
	AspectRatio32  AspectRatio = "3:2"
)

// ResolutionType is the common name of a camera resolution.
type ResolutionType string

// Camera resolutions depth frames are commonly captured at.
const (
	ResolutionTypeVGA      ResolutionType = "VGA"
	ResolutionTypeNHD      ResolutionType = "nHD"
	ResolutionTypeQHD540   ResolutionType = "qHD 540p"
	ResolutionTypeHD720p   ResolutionType = "HD 720p"
	ResolutionType1MP54    ResolutionType = "1MP (5:4)"
	ResolutionTypeFHD1080p ResolutionType = "Full HD 1080p"
	ResolutionType2MP43    ResolutionType = "2MP (4:3)"
	ResolutionTypeQHD1440p ResolutionType = "QHD 1440p"
	ResolutionType3MP43    ResolutionType = "3MP (4:3)"
	ResolutionType6MP32    ResolutionType = "6MP (3:2)"
	ResolutionType4KUHD    ResolutionType = "4K UHD"
	ResolutionType12MP     ResolutionType = "12MP (4:3)"
	ResolutionType8KUHD    ResolutionType = "8K UHD"
)

// ResolutionPixels describes the exact dimensions of a resolution.
type ResolutionPixels struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Resolution is one cataloged camera resolution.
type Resolution struct {
	Name        ResolutionType   `json:"name"`
	AspectRatio AspectRatio      `json:"aspectRatio"`
	Pixels      ResolutionPixels `json:"pixels"`
	// Experimental marks sizes too large for a realtime depth benchmark.
	Experimental bool `json:"experimental"`
}

// GetMegaPixels returns the pixel count in megapixels rounded to two decimals.
func (r Resolution) GetMegaPixels() float64 {
	if r.Pixels.Width <= 0 || r.Pixels.Height <= 0 {
		return 0
	}
	mp := float64(r.Pixels.Width*r.Pixels.Height) / 1_000_000.0
	return math.Round(mp*100) / 100
}

// String returns e.g. "Full HD 1080p (1920x1080, 2.07MP)".
func (r Resolution) String() string {
	return fmt.Sprintf("%s (%dx%d, %.2fMP)", r.Name, r.Pixels.Width, r.Pixels.Height, r.GetMegaPixels())
}

// catalog is ordered by pixel count.
var catalog = []Resolution{
	{Name: ResolutionTypeNHD, AspectRatio: AspectRatio169, Pixels: ResolutionPixels{Width: 640, Height: 360}},
	{Name: ResolutionTypeVGA, AspectRatio: AspectRatio43, Pixels: ResolutionPixels{Width: 640, Height: 480}},
	{Name: ResolutionTypeQHD540, AspectRatio: AspectRatio169, Pixels: ResolutionPixels{Width: 960, Height: 540}},
	{Name: ResolutionTypeHD720p, AspectRatio: AspectRatio169, Pixels: ResolutionPixels{Width: 1280, Height: 720}},
	{Name: ResolutionType1MP54, AspectRatio: AspectRatio54, Pixels: ResolutionPixels{Width: 1280, Height: 1024}},
	{Name: ResolutionType2MP43, AspectRatio: AspectRatio43, Pixels: ResolutionPixels{Width: 1600, Height: 1200}},
	{Name: ResolutionTypeFHD1080p, AspectRatio: AspectRatio169, Pixels: ResolutionPixels{Width: 1920, Height: 1080}},
	{Name: ResolutionType3MP43, AspectRatio: AspectRatio43, Pixels: ResolutionPixels{Width: 2048, Height: 1536}},
	{Name: ResolutionTypeQHD1440p, AspectRatio: AspectRatio169, Pixels: ResolutionPixels{Width: 2560, Height: 1440}},
	{Name: ResolutionType6MP32, AspectRatio: AspectRatio32, Pixels: ResolutionPixels{Width: 3072, Height: 2048}},
	{Name: ResolutionType4KUHD, AspectRatio: AspectRatio169, Pixels: ResolutionPixels{Width: 3840, Height: 2160}},
	{Name: ResolutionType12MP, AspectRatio: AspectRatio43, Pixels: ResolutionPixels{Width: 4000, Height: 3000}},
	{Name: ResolutionType8KUHD, AspectRatio: AspectRatio169, Pixels: ResolutionPixels{Width: 7680, Height: 4320}, Experimental: true},
}

// GetAllResolutions returns every cataloged resolution, smallest first.
func GetAllResolutions() []Resolution {
	return append([]Resolution(nil), catalog...)
}

// GetSupportedResolutions returns the non-experimental resolutions, smallest first.
func GetSupportedResolutions() []Resolution {
	supported := make([]Resolution, 0, len(catalog))
	for _, r := range catalog {
		if !r.Experimental {
			supported = append(supported, r)
		}
	}
	return supported
}

// GetResolutionByType looks up a resolution by name.
func GetResolutionByType(t ResolutionType) (Resolution, bool) {
	for _, r := range catalog {
		if r.Name == t {
			return r, true
		}
	}
	return Resolution{}, false
}

// GetResolutionsByType looks up several resolutions and keeps the order of
// types. Unknown names are reported together.
//
// Arguments:
//   - types: Resolution names.
//
// Returns:
//   - []Resolution: The resolutions in the order of types.
//   - error: If any name is not cataloged.
func GetResolutionsByType(types ...ResolutionType) ([]Resolution, error) {
	out := make([]Resolution, 0, len(types))
	var unknown []ResolutionType
	for _, t := range types {
		r, ok := GetResolutionByType(t)
		if !ok {
			unknown = append(unknown, t)
			continue
		}
		out = append(out, r)
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("unknown resolutions: %v", unknown)
	}
	return out, nil
}

// GetHighestResolutionUnderDimensions returns the largest cataloged
// resolution that fits within width x height.
//
// Arguments:
//   - width: The maximum width.
//   - height: The maximum height.
//
// Returns:
//   - Resolution: The largest fitting resolution.
//   - bool: Whether any resolution fits.
func GetHighestResolutionUnderDimensions(width, height int) (Resolution, bool) {
	fits := make([]Resolution, 0, len(catalog))
	for _, r := range catalog {
		if r.Pixels.Width <= width && r.Pixels.Height <= height {
			fits = append(fits, r)
		}
	}
	if len(fits) == 0 {
		return Resolution{}, false
	}
	sort.SliceStable(fits, func(i, j int) bool {
		return fits[i].Pixels.Width*fits[i].Pixels.Height < fits[j].Pixels.Width*fits[j].Pixels.Height
	})
	return fits[len(fits)-1], true
}
