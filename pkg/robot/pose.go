package robot

// Head limits in degrees, matching the servo calibration range.
const (
	MinHeadYaw   = -90.0
	MaxHeadYaw   = 90.0
	MinHeadRoll  = -70.0
	MaxHeadRoll  = 70.0
	MinHeadPitch = -45.0
	MaxHeadPitch = 30.0
)

// Speed bounds accepted by the daemon.
const (
	MinSpeed     = 0
	MaxSpeed     = 100
	DefaultSpeed = 80
)

// HeadPose is a head orientation in degrees.
type HeadPose struct {
	Yaw   float64 `json:"yaw" yaml:"yaw"`
	Roll  float64 `json:"roll" yaml:"roll"`
	Pitch float64 `json:"pitch" yaml:"pitch"`
}

// clamp restricts v to the range [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Clamp returns a new HeadPose with values clamped to physical head limits.
func (p HeadPose) Clamp() HeadPose {
	return HeadPose{
		Yaw:   clamp(p.Yaw, MinHeadYaw, MaxHeadYaw),
		Roll:  clamp(p.Roll, MinHeadRoll, MaxHeadRoll),
		Pitch: clamp(p.Pitch, MinHeadPitch, MaxHeadPitch),
	}
}

// Add returns a new HeadPose that is the sum of p and other.
func (p HeadPose) Add(other HeadPose) HeadPose {
	return HeadPose{
		Yaw:   p.Yaw + other.Yaw,
		Roll:  p.Roll + other.Roll,
		Pitch: p.Pitch + other.Pitch,
	}
}

// ClampSpeed restricts speed to what the daemon accepts.
// Zero means DefaultSpeed.
func ClampSpeed(speed int) int {
	if speed == 0 {
		return DefaultSpeed
	}
	if speed < MinSpeed {
		return MinSpeed
	}
	if speed > MaxSpeed {
		return MaxSpeed
	}
	return speed
}

// Status is the daemon's self-reported state.
type Status struct {
	State   string  `json:"state"`
	Posture string  `json:"posture,omitempty"`
	Battery float64 `json:"battery,omitempty"`
	Busy    bool    `json:"busy"`
}
