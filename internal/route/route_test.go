package route

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icancar/fleet-management-sub000/internal/domain/location"
	"github.com/icancar/fleet-management-sub000/internal/geo"
)

var t0 = time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)

func speed(v float64) *float64 { return &v }

func newFix(lat, lon float64, ts time.Time, s *float64) location.Fix {
	return location.Fix{
		ID:        uuid.New(),
		DeviceID:  "D1",
		Latitude:  lat,
		Longitude: lon,
		Accuracy:  5,
		Timestamp: ts,
		Speed:     s,
	}
}

func TestCompute_EmptyAndSinglePoint(t *testing.T) {
	assert.Equal(t, Stats{}, Compute(nil))

	single := Compute([]location.Fix{newFix(45, 19, t0, nil)})
	assert.Equal(t, 1, single.TotalPoints)
	assert.Zero(t, single.TotalDistance)
	assert.Zero(t, single.TotalDuration)
	assert.Zero(t, single.AverageSpeed)
	assert.Zero(t, single.MaxSpeed)

	withSpeed := Compute([]location.Fix{newFix(45, 19, t0, speed(42))})
	assert.Zero(t, withSpeed.TotalDistance)
	assert.Equal(t, 42.0, withSpeed.AverageSpeed)
	assert.Equal(t, 42.0, withSpeed.MaxSpeed)
}

func TestCompute_EquatorScenario(t *testing.T) {
	points := []location.Fix{
		newFix(0, 0, t0, nil),
		newFix(0, 0.01, t0.Add(60*time.Second), nil),
		newFix(0, 0.02, t0.Add(120*time.Second), nil),
	}

	s := Compute(points)

	assert.Equal(t, 3, s.TotalPoints)
	assert.Equal(t, 120.0, s.TotalDuration)
	assert.Zero(t, s.AverageSpeed)
	assert.Zero(t, s.MaxSpeed)
	assert.InDelta(t, 2*geo.DistanceMeters(0, 0, 0, 0.01)/1000, s.TotalDistance, 1e-9)
	assert.InDelta(t, 2.22, s.TotalDistance, 0.01)
}

func TestCompute_DistanceIgnoresSpeed(t *testing.T) {
	without := []location.Fix{
		newFix(45.0, 19.0, t0, nil),
		newFix(45.1, 19.1, t0.Add(time.Minute), nil),
		newFix(45.2, 19.0, t0.Add(2*time.Minute), nil),
	}
	with := make([]location.Fix, len(without))
	copy(with, without)
	with[0].Speed = speed(80)
	with[1].Speed = speed(0)
	with[2].Speed = speed(120)

	want := 0.0
	for i := 1; i < len(without); i++ {
		want += geo.DistanceMeters(without[i-1].Latitude, without[i-1].Longitude, without[i].Latitude, without[i].Longitude)
	}

	assert.InDelta(t, want/1000, Compute(without).TotalDistance, 1e-9)
	assert.Equal(t, Compute(without).TotalDistance, Compute(with).TotalDistance)
}

func TestCompute_EqualConsecutiveFixesAddNothing(t *testing.T) {
	a := newFix(44.8, 20.4, t0, nil)
	b := newFix(44.8, 20.4, t0.Add(time.Minute), nil)
	c := newFix(44.81, 20.4, t0.Add(2*time.Minute), nil)

	withDup := Compute([]location.Fix{a, b, c})
	withoutDup := Compute([]location.Fix{a, c})

	assert.Equal(t, withoutDup.TotalDistance, withDup.TotalDistance)
	assert.Zero(t, Compute([]location.Fix{a, b}).TotalDistance)
}

func TestCompute_PathLengthNotDisplacement(t *testing.T) {
	points := []location.Fix{
		newFix(45.0, 19.0, t0, nil),
		newFix(45.01, 19.0, t0.Add(time.Minute), nil),
		newFix(45.0, 19.0, t0.Add(2*time.Minute), nil),
	}
	assert.Greater(t, Compute(points).TotalDistance, 2.0)
}

func TestCompute_AverageSpeedSkipsNonPositive(t *testing.T) {
	points := []location.Fix{
		newFix(45, 19, t0, speed(0)),
		newFix(45, 19, t0.Add(time.Second), speed(10)),
		newFix(45, 19, t0.Add(2*time.Second), speed(0)),
		newFix(45, 19, t0.Add(3*time.Second), speed(20)),
		newFix(45, 19, t0.Add(4*time.Second), nil),
	}

	s := Compute(points)
	assert.Equal(t, 15.0, s.AverageSpeed)
	assert.Equal(t, 20.0, s.MaxSpeed)
}

func TestCompute_NoPositiveSpeedsMaxIsZero(t *testing.T) {
	points := []location.Fix{
		newFix(45, 19, t0, speed(-3)),
		newFix(45, 19, t0.Add(time.Second), speed(0)),
	}
	s := Compute(points)
	assert.Zero(t, s.MaxSpeed)
	assert.Zero(t, s.AverageSpeed)
}

func TestGroupByDay(t *testing.T) {
	day1Late := newFix(45, 19, time.Date(2024, 5, 14, 23, 59, 0, 0, time.UTC), nil)
	day1Early := newFix(45, 19, time.Date(2024, 5, 14, 0, 1, 0, 0, time.UTC), nil)
	day2 := newFix(45, 19, time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC), nil)
	input := []location.Fix{day2, day1Late, day1Early}
	original := append([]location.Fix(nil), input...)

	groups := GroupByDay(input, "")

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"2024-05-14", "2024-05-15"}, SortedDays(groups))
	assert.Equal(t, []location.Fix{day1Early, day1Late}, groups["2024-05-14"])
	assert.Equal(t, []location.Fix{day2}, groups["2024-05-15"])
	assert.Equal(t, original, input)

	filtered := GroupByDay(input, "2024-05-15")
	assert.Len(t, filtered, 1)
	assert.Contains(t, filtered, "2024-05-15")

	assert.Empty(t, GroupByDay(input, "2024-01-01"))
}

func TestGroupByDay_UsesUTCDay(t *testing.T) {
	belgrade := time.FixedZone("CEST", 2*60*60)
	// 01:30 local on the 15th is still the 14th in UTC.
	f := newFix(44.8, 20.4, time.Date(2024, 5, 15, 1, 30, 0, 0, belgrade), nil)

	groups := GroupByDay([]location.Fix{f}, "")
	assert.Contains(t, groups, "2024-05-14")
}

func TestBuildDailyRoutes_ReorderInvariant(t *testing.T) {
	fixes := []location.Fix{
		newFix(45.00, 19.00, t0, speed(30)),
		newFix(45.01, 19.02, t0.Add(time.Minute), speed(50)),
		newFix(45.03, 19.03, t0.Add(2*time.Minute), nil),
		newFix(45.04, 19.05, t0.Add(3*time.Minute), speed(45)),
		newFix(45.05, 19.05, t0.Add(25*time.Hour), speed(10)),
	}
	shuffled := []location.Fix{fixes[3], fixes[4], fixes[0], fixes[2], fixes[1]}

	want := BuildDailyRoutes("D1", fixes, "")
	got := BuildDailyRoutes("D1", shuffled, "")

	require.Len(t, want, 2)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("routes differ after reordering input (-want +got):\n%s", diff)
	}
}

func TestBuildDailyRoutes_TiesOrderedDeterministically(t *testing.T) {
	a := newFix(45.0, 19.0, t0, nil)
	b := newFix(45.1, 19.1, t0, nil)

	forward := BuildDailyRoutes("D1", []location.Fix{a, b}, "")
	backward := BuildDailyRoutes("D1", []location.Fix{b, a}, "")

	if diff := cmp.Diff(forward, backward); diff != "" {
		t.Errorf("tie ordering depends on input (-forward +backward):\n%s", diff)
	}
}

func TestBuildDailyRoutes_EmptyIsNotNil(t *testing.T) {
	routes := BuildDailyRoutes("D1", nil, "2024-05-14")
	assert.NotNil(t, routes)
	assert.Empty(t, routes)
}

func TestAssemble(t *testing.T) {
	points := []location.Fix{
		newFix(0, 0, t0, nil),
		newFix(0, 0.01, t0.Add(60*time.Second), nil),
		newFix(0, 0.02, t0.Add(120*time.Second), nil),
	}

	r := Assemble("2024-05-14", "D1", points)

	assert.Equal(t, "2024-05-14", r.Date)
	assert.Equal(t, "D1", r.DeviceID)
	assert.Equal(t, 3, r.TotalPoints)
	assert.Equal(t, &Location{Latitude: 0, Longitude: 0, Timestamp: t0}, r.StartLocation)
	assert.Equal(t, &Location{Latitude: 0, Longitude: 0.02, Timestamp: t0.Add(120 * time.Second)}, r.EndLocation)
	assert.Equal(t, points, r.RoutePoints)
	assert.Nil(t, r.Vehicle)

	empty := Assemble("2024-05-14", "D1", nil)
	assert.Nil(t, empty.StartLocation)
	assert.Nil(t, empty.EndLocation)
	assert.NotNil(t, empty.RoutePoints)
	assert.Zero(t, empty.TotalDistance)
}

func TestDayBounds(t *testing.T) {
	from, to, err := DayBounds("2024-02-28")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), to)

	_, _, err = DayBounds("28/02/2024")
	assert.Error(t, err)
}
