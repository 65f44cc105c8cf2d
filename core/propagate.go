package core

import "github.com/rwandaorbitguard/orbit-guard/model"

// UpdatePositions recomputes every object's position in place from its own
// orbit at time t. Velocities are left alone. An object whose orbit fails
// validation keeps its previous position.
func UpdatePositions[T model.Orbiting](objs []T, t float64) {
	for _, obj := range objs {
		pos, err := Position(obj.Elements(), t)
		if err != nil {
			continue
		}
		obj.SetPosition(pos)
	}
}
