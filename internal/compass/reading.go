// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package compass

import (
	"time"

	"github.com/relabs-tech/inertial_compass/internal/orientation"
)

// Reading is the message broadcast after every recomputation. Its JSON form
// carries the heading's "angle" and "direction" at the top level.
type Reading struct {
	Heading
	Pose        orientation.Pose `json:"pose"`
	Inclination float64          `json:"inclination"` // magnetic dip, degrees
	Time        time.Time        `json:"time"`
}
