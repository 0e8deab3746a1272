package world

import (
	"wyrm/internal/fixed"
	"wyrm/internal/jenkins"
)

// ClusterSize is the world-space width/height of a food cluster's AABB,
// in whole world units (converted to QW with MakeQW).
const ClusterSize = 32

// MaxClusterFood bounds how many food items a single cluster can hold,
// matching the source engine's fixed-size food array.
const MaxClusterFood = 254

// Cluster is a group of food pieces randomly distributed within an AABB
// centered on a point. Distribution is deliberately cheap: food is spaced
// evenly along X and jittered along Y from a seeded hash, rather than
// drawing two independent random numbers per piece — visually
// indistinguishable from full randomness at normal food density.
type Cluster struct {
	AABB  fixed.QWAABB
	Food  []fixed.QWPos
	Seed  uint32
	Empty bool
}

// NewCluster builds a cluster of count food pieces centered on center,
// deterministically derived from seed. Unlike the source engine's
// i*ClusterSize/i expression (undefined for i==0), X positions are spaced
// evenly across the cluster width using count-1 as the divisor (the first
// and last pieces sit on the left and right edges), and Y
// positions are jittered independently per piece from the running seed.
func NewCluster(center fixed.QWPos, count int, seed uint32) Cluster {
	if count > MaxClusterFood {
		count = MaxClusterFood
	}
	if count < 0 {
		count = 0
	}
	half := fixed.MakeQW(ClusterSize).Div(fixed.MakeQW(2))
	aabb := fixed.QWAABB{
		Min: fixed.QWPos{X: center.X.Sub(half), Y: center.Y.Sub(half)},
		Max: fixed.QWPos{X: center.X.Add(half), Y: center.Y.Add(half)},
	}

	c := Cluster{AABB: aabb, Seed: seed}
	if count == 0 {
		c.Empty = true
		return c
	}
	c.Food = make([]fixed.QWPos, count)

	width := aabb.Max.X.Sub(aabb.Min.X)
	height := aabb.Max.Y.Sub(aabb.Min.Y)
	runningSeed := seed
	for i := 0; i < count; i++ {
		// Even spacing on X: i/(count-1) fraction of the width, except for
		// the degenerate single-food case which sits at the cluster center.
		var x fixed.QW
		if count == 1 {
			x = aabb.Min.X.Add(width.Div(fixed.MakeQW(2)))
		} else {
			frac := fixed.MakeQWFraction(float64(i) / float64(count-1))
			x = aabb.Min.X.Add(width.Mul(frac))
		}

		runningSeed = jenkins.Combine(runningSeed, uint32(i))
		jitterUnit := float64(runningSeed%10000) / 10000.0 // [0, 1)
		y := aabb.Min.Y.Add(height.Mul(fixed.MakeQWFraction(jitterUnit)))

		c.Food[i] = fixed.QWPos{X: x, Y: y}
	}
	c.Seed = runningSeed
	return c
}

// Eat removes every food piece within eatRange of eatCenter and returns the
// count removed. Order of the remaining slice is not preserved.
func Eat(c *Cluster, eatCenter fixed.QWPos, eatRange fixed.QW) int {
	rangeSq := eatRange.Mul(eatRange)
	eaten := 0
	kept := c.Food[:0]
	for _, f := range c.Food {
		if f.DistSq(eatCenter) <= rangeSq {
			eaten++
			continue
		}
		kept = append(kept, f)
	}
	c.Food = kept
	c.Empty = len(c.Food) == 0
	return eaten
}
