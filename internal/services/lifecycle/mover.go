package lifecycle

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Mover is the physics-side body of an avatar. Simulation is external; the
// manager only reads and teleports it.
type Mover interface {
	Position() mgl64.Vec3
	Rotation() mgl64.Quat
	Teleport(position mgl64.Vec3, rotation mgl64.Quat)
	Move(direction mgl64.Vec3)
	Rotate(angle float64)
}

// MoverFactory creates a body for a newly spawned avatar
type MoverFactory func() Mover

// Up is the axis avatars turn around
var Up = mgl64.Vec3{0, 1, 0}

// KinematicMover moves a fixed distance per intent with no collision
type KinematicMover struct {
	position mgl64.Vec3
	rotation mgl64.Quat
	step     float64
}

// Ensure KinematicMover implements Mover
var _ Mover = (*KinematicMover)(nil)

// NewKinematicMover creates a mover advancing step units per intent
func NewKinematicMover(step float64) *KinematicMover {
	return &KinematicMover{rotation: mgl64.QuatIdent(), step: step}
}

func (m *KinematicMover) Position() mgl64.Vec3 { return m.position }

func (m *KinematicMover) Rotation() mgl64.Quat { return m.rotation }

func (m *KinematicMover) Teleport(position mgl64.Vec3, rotation mgl64.Quat) {
	m.position = position
	m.rotation = rotation
}

// Move advances along direction. Zero directions are ignored.
func (m *KinematicMover) Move(direction mgl64.Vec3) {
	if direction.Len() == 0 {
		return
	}
	m.position = m.position.Add(direction.Normalize().Mul(m.step))
}

// Rotate turns around Up by angle radians
func (m *KinematicMover) Rotate(angle float64) {
	m.rotation = mgl64.QuatRotate(angle, Up).Mul(m.rotation).Normalize()
}
