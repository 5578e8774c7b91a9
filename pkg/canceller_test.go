package emtf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRoad(zone, keystrip, straightness int, segments ...int) Road {
	road := Road{Zone: zone, Keystrip: keystrip, Straightness: straightness, Rank: 1}
	for st := range road.Segments {
		road.Segments[st] = -1
		road.HitIDs[st] = -1
	}
	for st, s := range segments {
		road.Segments[st] = s
		road.HitIDs[st] = s
	}
	return road
}

func TestIsGhost(t *testing.T) {
	a := testRoad(1, 50, 3, 0, 1)
	assert.True(t, IsGhost(&a, &a))

	b := testRoad(1, 52, 2, 5, 1)
	assert.True(t, IsGhost(&a, &b))

	far := testRoad(1, 50+GhostProximity+1, 2, 5, 1)
	assert.False(t, IsGhost(&a, &far))

	disjoint := testRoad(1, 52, 2, 5, 6)
	assert.False(t, IsGhost(&a, &disjoint))

	// empty stations never match
	empty := testRoad(1, 50, 2)
	assert.False(t, IsGhost(&empty, &empty))
}

func TestCancelGhosts(t *testing.T) {
	config := DefaultConfiguration()
	c := NewCanceller(&config)

	best := testRoad(1, 50, 3, 0, 1)
	ghost := testRoad(1, 52, 2, 5, 1)
	other := testRoad(1, 90, 1, 7, 8)
	input := []Road{ghost, other, best}

	tracks := c.Cancel(input)
	require.Len(t, tracks, 2)
	assert.Equal(t, 50, tracks[0].Keystrip)
	assert.Equal(t, 90, tracks[1].Keystrip)
	assert.Equal(t, 52, input[0].Keystrip, "input is not modified")
}

func TestCancelPriority(t *testing.T) {
	config := DefaultConfiguration()
	c := NewCanceller(&config)

	early := testRoad(0, 60, 2, 0)
	early.SecondBX = -1
	late := testRoad(0, 40, 2, 1)
	straight := testRoad(0, 80, 3, 2)

	tracks := c.Cancel([]Road{late, early, straight})
	require.Len(t, tracks, 3)
	assert.Equal(t, []int{80, 60, 40}, []int{tracks[0].Keystrip, tracks[1].Keystrip, tracks[2].Keystrip})

	config.UseSecondEarliest = false
	tracks = c.Cancel([]Road{late, early, straight})
	assert.Equal(t, []int{80, 40, 60}, []int{tracks[0].Keystrip, tracks[1].Keystrip, tracks[2].Keystrip})
}

func TestCancelLimits(t *testing.T) {
	config := DefaultConfiguration()
	config.CancelAcrossZones = false
	c := NewCanceller(&config)

	var roads []Road
	for i := 0; i < 5; i++ {
		roads = append(roads, testRoad(0, 20*i, 2, 10*i))
		roads = append(roads, testRoad(3, 20*i, 1, 100+10*i))
	}
	tracks := c.Cancel(roads)
	require.Len(t, tracks, 2*config.MaxRoadsPerZone)
	for i, track := range tracks {
		if i < config.MaxRoadsPerZone {
			assert.Equal(t, 0, track.Zone)
		} else {
			assert.Equal(t, 3, track.Zone)
		}
	}

	config.CancelAcrossZones = true
	tracks = c.Cancel(roads)
	require.Len(t, tracks, config.MaxTracks)
	for _, track := range tracks {
		assert.Equal(t, 0, track.Zone)
	}
}

func TestCancelAcrossZones(t *testing.T) {
	config := DefaultConfiguration()
	c := NewCanceller(&config)

	inner := testRoad(1, 70, 3, 0, 1)
	outer := testRoad(2, 71, 2, 0, 4)

	tracks := c.Cancel([]Road{outer, inner})
	require.Len(t, tracks, 1)
	assert.Equal(t, 1, tracks[0].Zone)
	assert.False(t, tracks[0].ZeroPt)

	config.BugSameSectorPt0 = true
	tracks = c.Cancel([]Road{outer, inner})
	require.Len(t, tracks, 2)
	assert.Equal(t, 1, tracks[0].Zone)
	assert.False(t, tracks[0].ZeroPt)
	assert.Equal(t, 2, tracks[1].Zone)
	assert.True(t, tracks[1].ZeroPt)

	config.BugSameSectorPt0 = false
	config.CancelAcrossZones = false
	tracks = c.Cancel([]Road{outer, inner})
	assert.Len(t, tracks, 2)
}
