package ephemeris

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aziz13-coder/newcodexhorary/internal/domain"
)

func TestStatic_SpeedInterpolation(t *testing.T) {
	provider := NewStatic(map[domain.Planet][]SpeedSample{
		domain.Mercury: {
			{JD: 2460000, Speed: 1.0},
			{JD: 2460010, Speed: 0.0},
		},
	})

	speed, err := provider.SpeedAt(domain.Mercury, 2460005)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, speed, 1e-9)

	// Outside the sampled range the nearest sample holds.
	speed, err = provider.SpeedAt(domain.Mercury, 2459990)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, speed, 1e-9)

	_, err = provider.SpeedAt(domain.Venus, 2460005)
	assert.ErrorIs(t, err, ErrUnknownBody)
}

func TestStatic_NextStationFindsZeroCrossing(t *testing.T) {
	provider := NewStatic(map[domain.Planet][]SpeedSample{
		domain.Mercury: {
			{JD: 2460000, Speed: 0.5},
			{JD: 2460004, Speed: -0.5},
		},
	})

	// Linear interpolation crosses zero halfway between the samples.
	station, ok, err := provider.NextStation(domain.Mercury, 2460000, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2460002.0, station, 0.3)
}

func TestLoadFile_BuildsProviderFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speeds.yaml")
	fixture := []byte(`Mercury:
  - jd: 2460000
    speed: 0.5
  - jd: 2460004
    speed: -0.5
Venus:
  - jd: 2460000
    speed: 1.2
`)
	require.NoError(t, os.WriteFile(path, fixture, 0644))

	provider, err := LoadFile(path)
	require.NoError(t, err)

	speed, err := provider.SpeedAt(domain.Mercury, 2460002)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, speed, 1e-9)

	station, ok, err := provider.NextStation(domain.Mercury, 2460000, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2460002.0, station, 0.3)

	speed, err = provider.SpeedAt(domain.Venus, 2460010)
	require.NoError(t, err)
	assert.InDelta(t, 1.2, speed, 1e-9)
}

func TestLoadFile_RejectsEmptySeries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("Mercury: []\n"), 0644))

	_, err := LoadFile(path)
	assert.Error(t, err)
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestStatic_ConstantSpeedNeverStations(t *testing.T) {
	provider := NewConstant(map[domain.Planet]domain.PlanetPosition{
		domain.Venus: {Planet: domain.Venus, Longitude: 100.0, Speed: 1.2},
	})

	_, ok, err := provider.NextStation(domain.Venus, 2460000, 30)
	require.NoError(t, err)
	assert.False(t, ok)
}
