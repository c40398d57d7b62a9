package shader

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSettingsEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b *CompileSettings
		want bool
	}{
		{
			name: "identical",
			a:    &CompileSettings{Language: "wgsl", Version: 1, Defines: []string{"SHADOWS"}},
			b:    &CompileSettings{Language: "wgsl", Version: 1, Defines: []string{"SHADOWS"}},
			want: true,
		},
		{
			name: "define order ignored",
			a:    &CompileSettings{Language: "wgsl", Defines: []string{"A", "B"}},
			b:    &CompileSettings{Language: "wgsl", Defines: []string{"B", "A"}},
			want: true,
		},
		{
			name: "different defines",
			a:    &CompileSettings{Language: "wgsl", Defines: []string{"A"}},
			b:    &CompileSettings{Language: "wgsl", Defines: []string{"B"}},
			want: false,
		},
		{
			name: "different version",
			a:    &CompileSettings{Language: "wgsl", Version: 1},
			b:    &CompileSettings{Language: "wgsl", Version: 2},
			want: false,
		},
		{
			name: "forward compatibility flag",
			a:    &CompileSettings{ForwardCompatible: true},
			b:    &CompileSettings{ForwardCompatible: false},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestCompileSettingsClone(t *testing.T) {
	s := &CompileSettings{Language: "wgsl", Defines: []string{"A"}}

	clone := s.Clone()
	clone.Defines[0] = "B"

	assert.Equal(t, []string{"A"}, s.Defines)
	assert.True(t, s.Equal(&CompileSettings{Language: "wgsl", Defines: []string{"A"}}))
}

func TestVariantCacheCompilesOncePerSettings(t *testing.T) {
	cache := NewVariantCache()
	compiles := 0
	compile := func(settings *CompileSettings) (any, error) {
		compiles++
		return "variant-" + settings.Language, nil
	}

	// Two distinct instances with equal contents must share one cache entry.
	first := &CompileSettings{Language: "wgsl", Defines: []string{"A", "B"}}
	second := &CompileSettings{Language: "wgsl", Defines: []string{"B", "A"}}

	v1, err := cache.GetOrCompile(first, compile)
	require.NoError(t, err)
	v2, err := cache.GetOrCompile(second, compile)
	require.NoError(t, err)

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, compiles)
	assert.Equal(t, 1, cache.Len())
}

func TestVariantCacheDistinctSettingsCompileSeparately(t *testing.T) {
	cache := NewVariantCache()
	compiles := 0
	compile := func(settings *CompileSettings) (any, error) {
		compiles++
		return compiles, nil
	}

	_, err := cache.GetOrCompile(&CompileSettings{Defines: []string{"A"}}, compile)
	require.NoError(t, err)
	_, err = cache.GetOrCompile(&CompileSettings{Defines: []string{"B"}}, compile)
	require.NoError(t, err)

	assert.Equal(t, 2, compiles)
	assert.Equal(t, 2, cache.Len())
}

func TestVariantCacheErrorNotCached(t *testing.T) {
	cache := NewVariantCache()
	compileErr := errors.New("bad shader")
	calls := 0

	settings := &CompileSettings{Language: "wgsl"}
	_, err := cache.GetOrCompile(settings, func(*CompileSettings) (any, error) {
		calls++
		return nil, compileErr
	})
	require.ErrorIs(t, err, compileErr)
	assert.Zero(t, cache.Len())

	// A later attempt retries instead of serving the failure.
	v, err := cache.GetOrCompile(settings, func(*CompileSettings) (any, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestVariantCacheClear(t *testing.T) {
	cache := NewVariantCache()
	_, err := cache.GetOrCompile(&CompileSettings{}, func(*CompileSettings) (any, error) {
		return "v", nil
	})
	require.NoError(t, err)

	cache.Clear()

	assert.Zero(t, cache.Len())
}
