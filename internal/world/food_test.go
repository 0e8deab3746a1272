package world

import (
	"testing"

	"github.com/stretchr/testify/require"

	"wyrm/internal/fixed"
)

func TestNewClusterEvenlySpacedOnX(t *testing.T) {
	c := NewCluster(fixed.QWPos{}, 5, 42)
	require.Len(t, c.Food, 5)
	require.Equal(t, c.AABB.Min.X, c.Food[0].X, "first piece sits at the cluster's left edge")
	require.Equal(t, c.AABB.Max.X, c.Food[len(c.Food)-1].X, "last piece sits at the cluster's right edge")

	for i := 1; i < len(c.Food); i++ {
		require.Greater(t, c.Food[i].X, c.Food[i-1].X, "X positions must be strictly increasing")
	}
}

func TestNewClusterSingleFoodDoesNotDivideByZero(t *testing.T) {
	require.NotPanics(t, func() {
		c := NewCluster(fixed.QWPos{}, 1, 7)
		require.Len(t, c.Food, 1)
	})
}

func TestNewClusterZeroFoodIsEmpty(t *testing.T) {
	c := NewCluster(fixed.QWPos{}, 0, 7)
	require.True(t, c.Empty)
	require.Empty(t, c.Food)
}

func TestNewClusterDeterministic(t *testing.T) {
	a := NewCluster(fixed.QWPos{X: fixed.MakeQW(10)}, 20, 99)
	b := NewCluster(fixed.QWPos{X: fixed.MakeQW(10)}, 20, 99)
	require.Equal(t, a, b)
}

func TestNewClusterFoodStaysInsideAABB(t *testing.T) {
	c := NewCluster(fixed.QWPos{X: fixed.MakeQW(5), Y: fixed.MakeQW(-3)}, 50, 1234)
	for _, f := range c.Food {
		require.GreaterOrEqual(t, int64(f.X), int64(c.AABB.Min.X))
		require.LessOrEqual(t, int64(f.X), int64(c.AABB.Max.X))
		require.GreaterOrEqual(t, int64(f.Y), int64(c.AABB.Min.Y))
		require.LessOrEqual(t, int64(f.Y), int64(c.AABB.Max.Y))
	}
}

func TestEatRemovesFoodWithinRange(t *testing.T) {
	c := Cluster{Food: []fixed.QWPos{
		{X: fixed.MakeQW(0), Y: fixed.MakeQW(0)},
		{X: fixed.MakeQW(10), Y: fixed.MakeQW(10)},
		{X: fixed.MakeQW(1), Y: fixed.MakeQW(0)},
	}}
	eaten := Eat(&c, fixed.QWPos{}, fixed.MakeQW(2))
	require.Equal(t, 2, eaten)
	require.Len(t, c.Food, 1)
	require.Equal(t, fixed.MakeQW(10), c.Food[0].X)
}

func TestEatEmptiesClusterSetsEmptyFlag(t *testing.T) {
	c := Cluster{Food: []fixed.QWPos{{}}}
	Eat(&c, fixed.QWPos{}, fixed.MakeQW(5))
	require.True(t, c.Empty)
	require.Empty(t, c.Food)
}

func TestNewClusterCapsAtMaxFood(t *testing.T) {
	c := NewCluster(fixed.QWPos{}, MaxClusterFood+50, 1)
	require.Len(t, c.Food, MaxClusterFood)
}
