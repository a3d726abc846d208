package trainer

import (
	"math"

	"github.com/pthm-cable/anthill/components"
	"github.com/pthm-cable/anthill/config"
	"github.com/pthm-cable/anthill/game"
)

// Fitness scores a finished rollout. Higher is better.
//
//	score = proximity·ProximityWeight + pickups·PickupWeight + dropoffs·DropoffWeight
func Fitness(sim *game.Simulation, w config.FitnessConfig) float64 {
	stats := sim.Stats()
	return Proximity(sim)*w.ProximityWeight +
		float64(stats.FoodPickedUp)*w.PickupWeight +
		float64(stats.FoodDroppedOff)*w.DropoffWeight
}

// Proximity rewards ants for being close to where they should go next:
// the hill when carrying, otherwise the nearest cluster that still has food.
// Each ant contributes 1 - min(1, d/2W); the result is the mean over ants.
func Proximity(sim *game.Simulation) float64 {
	cfg := sim.Config()
	ants := sim.Ants()
	if ants.Len() == 0 {
		return 0
	}

	span := 2 * cfg.Arena.HalfWidth
	left := sim.ClusterFood()

	var sum float64
	for i := 0; i < ants.Len(); i++ {
		pos := ants.Positions[i]

		var d float64
		if ants.CarriesFood[i] {
			d = float64(pos.Length())
		} else {
			var ok bool
			d, ok = nearestCluster(pos, cfg.Food.Clusters, left)
			if !ok {
				// Nothing left to find
				sum++
				continue
			}
		}
		sum += 1 - math.Min(1, d/span)
	}
	return sum / float64(ants.Len())
}

// nearestCluster returns the distance to the closest cluster centre whose
// remaining count is positive.
func nearestCluster(pos components.Vec2, clusters []config.FoodCluster, left []int) (float64, bool) {
	best := math.Inf(1)
	for ci, c := range clusters {
		if ci >= len(left) || left[ci] <= 0 {
			continue
		}
		dx := float64(pos.X) - c.X
		dy := float64(pos.Y) - c.Y
		if d := math.Hypot(dx, dy); d < best {
			best = d
		}
	}
	return best, !math.IsInf(best, 1)
}
