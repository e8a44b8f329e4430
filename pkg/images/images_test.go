package images

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/homely-rentals/homely/pkg/models"
)

func TestBuildVariantThumbnail(t *testing.T) {
	got, err := BuildVariant("https://cdn.example/listing/1.jpg", Thumbnail)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/listing/1.jpg?resize=150x150&quality=85&format=webp", got)

	again, err := BuildVariant("https://cdn.example/listing/1.jpg", Thumbnail)
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestBuildVariantSizes(t *testing.T) {
	tests := []struct {
		size Size
		want string
	}{
		{Medium, "resize=400x300"},
		{Large, "resize=800x600"},
	}
	for _, tt := range tests {
		t.Run(string(tt.size), func(t *testing.T) {
			got, err := BuildVariant("https://cdn.example/a.png", tt.size)
			require.NoError(t, err)
			assert.Contains(t, got, tt.want)
		})
	}
}

func TestBuildVariantMergesQuery(t *testing.T) {
	got, err := BuildVariant("https://cdn.example/a.jpg?token=abc&quality=40&v=2&format=png", Thumbnail)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/a.jpg?token=abc&v=2&resize=150x150&quality=85&format=webp", got)
}

func TestBuildVariantErrors(t *testing.T) {
	_, err := BuildVariant("https://cdn.example/a.jpg", Size("huge"))
	assert.Error(t, err)

	_, err = BuildVariant("://bad", Thumbnail)
	assert.Error(t, err)
}

func TestOptimizerSettings(t *testing.T) {
	o := New(60, "avif")
	got, err := o.BuildVariant("https://cdn.example/a.jpg", Large)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "resize=800x600&quality=60&format=avif"))

	d := New(0, "")
	got, err = d.BuildVariant("https://cdn.example/a.jpg", Large)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "quality=85&format=webp"))
}

func TestGroupOrdersPrimaryFirst(t *testing.T) {
	images := map[string][]models.ListingImage{
		"l1": {
			{URL: "https://cdn.example/1.jpg", Position: 0},
			{URL: "https://cdn.example/3.jpg", Position: 2},
			{URL: "https://cdn.example/2.jpg", Position: 1, IsPrimary: true},
		},
	}

	groups, err := New(85, "webp").Group([]string{"l1", "l2"}, images)
	require.NoError(t, err)

	require.Contains(t, groups, "l1")
	assert.Equal(t, []string{
		"https://cdn.example/2.jpg",
		"https://cdn.example/1.jpg",
		"https://cdn.example/3.jpg",
	}, groups["l1"].Original)
	assert.Len(t, groups["l1"].Thumbnail, 3)
	assert.Contains(t, groups["l1"].Thumbnail[0], "2.jpg?resize=150x150")

	require.Contains(t, groups, "l2")
	assert.Empty(t, groups["l2"].Original)
	assert.NotNil(t, groups["l2"].Thumbnail)
}

func TestPreloadScript(t *testing.T) {
	groups := map[string]models.ImageVariants{
		"b": {Thumbnail: []string{"https://cdn.example/b.jpg?resize=150x150"}},
		"a": {Thumbnail: []string{"https://cdn.example/a.jpg?resize=150x150&x=<y>"}},
	}

	script := PreloadScript(groups)
	assert.Equal(t, script, PreloadScript(groups))
	assert.Less(t, strings.Index(script, "a.jpg"), strings.Index(script, "b.jpg"))
	assert.NotContains(t, script, "<y>")
	assert.Contains(t, script, `l.rel="preload"`)

	assert.Contains(t, PreloadScript(nil), "var urls=[];")
}
