package script

import "github.com/ivlev/segment2video/internal/compositor"

// Tunnel ring parameters of the reference script.
const (
	TunnelLevels = 8
	TunnelBase   = 1.1
	TunnelGrowth = 0.15
)

// PulseRotation is the tilt of the background pulse frames, in radians.
const PulseRotation = 0.15

var tunnelTimes = [TunnelLevels]float64{4.050, 4.058, 4.060, 4.175, 4.180, 4.200, 4.300, 4.400}

// Reference returns the stock 32-frame script over eight slots, running from
// 0s to 10.493s.
func Reference() []Step {
	steps := []Step{
		Append(Source(4)), Emit(0),
		Append(Foreground(7).In(compositor.Rect{X: 0.01, Y: 0, W: 0.95, H: 0.95})), Emit(1.575),
		Insert(Background(7), 1), Emit(1.825),
		Clear(),
		Append(Source(7)), Emit(2.392),
		Append(Foreground(6)), Emit(3.092),
		Insert(Background(6), 1), Emit(3.258),
		Clear(),
		Append(Source(6)), Emit(3.392),
		Append(Foreground(5)), Emit(4.008),
	}

	// Rings of the slot 5 silhouette, alternately cut from two photos, each
	// one wider than the last and slid in just under the top layer.
	for i := 0; i < TunnelLevels; i++ {
		from := 6
		if i%2 == 1 {
			from = 5
		}
		ring := Source(from).MaskedBy(Foreground(5), TunnelBase+float64(i)*TunnelGrowth)
		steps = append(steps, InsertFromEnd(ring, i+1), Emit(tunnelTimes[i]))
	}

	steps = append(steps,
		Append(Background(5)), Emit(4.425),
		Append(Source(5)), Emit(4.558),

		Append(Background(3).In(compositor.Centered(0.5, 0.5, 1.05, 1.05)).Rotated(PulseRotation)), Emit(4.8),
		Append(Background(3).In(compositor.Centered(0.5, 0.5, 1.025, 1.025)).Rotated(PulseRotation)), Emit(5.108),
		Append(Background(3).In(compositor.Centered(0.5, 0.5, 1, 1)).Rotated(PulseRotation)), Emit(5.425),

		Append(Foreground(3)), Emit(5.558),
		Append(Background(3)), Emit(5.942),
		Append(Foreground(1)), Emit(5.992),
		Append(Background(1)), Emit(6.608),
		Append(Source(1)), Emit(6.658),

		Append(Foreground(2).Zoomed(1.3)), Emit(6.892),
		InsertFromEnd(Background(2), 1), Emit(7.458),
		Append(Source(2)), Emit(7.592),

		Append(Background(0).In(compositor.Rect{X: -0.05, Y: -0.05, W: 1.1, H: 1.1})), Emit(10.058),
		Append(Background(0).In(compositor.Rect{X: -0.02, Y: -0.02, W: 1.04, H: 1.04})), Emit(10.258),
		Append(Source(0)), Emit(10.493),
	)
	return steps
}
