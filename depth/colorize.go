// Package depth converts 16-bit depth imagery to and from an RGB false-color
// rendering that is linear in disparity (inverse depth).
package depth

import (
	"context"
	"encoding/binary"
	"sync/atomic"

	"github.com/pkg/errors"

	"go.viam.com/depthstream/utils"
)

// rampMax is the top of the normalized colormap scale: six 255-wide segments.
const rampMax = 1529

const (
	depthBytesPerPixel = 2
	colorBytesPerPixel = 3
)

// Colorize maps a tightly packed row-major 16-bit depth buffer to an RGB
// false-color buffer. depthBytes must hold exactly width*height samples in the
// given byte order and rgbBytes must hold exactly width*height RGB triplets;
// anything else is a caller bug and panics. A depth of 0 means "no return" and
// renders at maximum disparity. Output is deterministic and independent of
// cfg.Threads.
func Colorize(width, height int, depthBytes, rgbBytes []byte, order binary.ByteOrder, cfg Config) {
	n := frameSize(width, height, cfg)
	if len(depthBytes) != n*depthBytesPerPixel {
		panic(errors.Errorf("depth buffer is %d bytes; %dx%d needs %d", len(depthBytes), width, height, n*depthBytesPerPixel))
	}
	if len(rgbBytes) != n*colorBytesPerPixel {
		panic(errors.Errorf("color buffer is %d bytes; %dx%d needs %d", len(rgbBytes), width, height, n*colorBytesPerPixel))
	}

	minDisparity, maxDisparity := cfg.disparityWindow()

	var processed int64
	if err := utils.GroupWorkParallel(
		context.Background(),
		n,
		cfg.Threads,
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			count := 0
			return func(memberNum, workNum int) {
					d := order.Uint16(depthBytes[workNum*depthBytesPerPixel:])
					r, g, b := rampColor(depthToNormal(d, minDisparity, maxDisparity))
					base := workNum * colorBytesPerPixel
					rgbBytes[base] = r
					rgbBytes[base+1] = g
					rgbBytes[base+2] = b
					count++
				}, func() {
					atomic.AddInt64(&processed, int64(count))
				}
		},
	); err != nil {
		panic(err)
	}
	if got := atomic.LoadInt64(&processed); got != int64(n) {
		panic(errors.Errorf("processed %d of %d pixels", got, n))
	}
}

// Decolorize is the approximate inverse of Colorize, recovering a depth buffer
// from an RGB false-color buffer. The color channels are always read as the
// R,G,B triplets Colorize wrote; order only selects the byte order of the
// depth samples written out. It is lossy at segment boundaries and for colors
// Colorize cannot produce; no exactness is guaranteed beyond round-tripping
// Colorize output under the same clamp window.
func Decolorize(width, height int, rgbBytes, depthBytes []byte, order binary.ByteOrder, cfg Config) {
	n := frameSize(width, height, cfg)
	if len(rgbBytes) != n*colorBytesPerPixel {
		panic(errors.Errorf("color buffer is %d bytes; %dx%d needs %d", len(rgbBytes), width, height, n*colorBytesPerPixel))
	}
	if len(depthBytes) != n*depthBytesPerPixel {
		panic(errors.Errorf("depth buffer is %d bytes; %dx%d needs %d", len(depthBytes), width, height, n*depthBytesPerPixel))
	}

	minDisparity, maxDisparity := cfg.disparityWindow()

	var processed int64
	if err := utils.GroupWorkParallel(
		context.Background(),
		n,
		cfg.Threads,
		func(numGroups int) {},
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			count := 0
			return func(memberNum, workNum int) {
					base := workNum * colorBytesPerPixel
					dNormal := rampInvert(int(rgbBytes[base]), int(rgbBytes[base+1]), int(rgbBytes[base+2]))
					disparity := minDisparity + (maxDisparity-minDisparity)*(float64(dNormal)/rampMax)
					d := int(1 / disparity)
					if d < 0 {
						d = 0
					}
					if d > 65535 {
						d = 65535
					}
					order.PutUint16(depthBytes[workNum*depthBytesPerPixel:], uint16(d))
					count++
				}, func() {
					atomic.AddInt64(&processed, int64(count))
				}
		},
	); err != nil {
		panic(err)
	}
	if got := atomic.LoadInt64(&processed); got != int64(n) {
		panic(errors.Errorf("processed %d of %d pixels", got, n))
	}
}

func frameSize(width, height int, cfg Config) int {
	if width <= 0 || height <= 0 {
		panic(errors.Errorf("invalid frame dimensions %dx%d", width, height))
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return width * height
}

// depthToNormal maps a raw depth sample onto the [0, rampMax] colormap scale.
// Depth 0 is the farthest possible return and saturates to max disparity.
func depthToNormal(d uint16, minDisparity, maxDisparity float64) int {
	disparity := maxDisparity
	if d != 0 {
		disparity = 1 / float64(d)
	}
	if disparity < minDisparity {
		disparity = minDisparity
	}
	if disparity > maxDisparity {
		disparity = maxDisparity
	}
	span := maxDisparity - minDisparity
	if span <= 0 {
		// degenerate window: every sample clamps to the same disparity
		return 0
	}
	return int(rampMax * (disparity - minDisparity) / span)
}

// rampColor maps a normalized scalar in [0, rampMax] to R,G,B via three
// disjoint piecewise-linear ramps over six 255-wide segments. Each raw channel
// value is masked to 8 bits, a deliberate wraparound rather than a clamp: at
// dNormal 256 the raw red value is -1, which masks to 255.
func rampColor(dNormal int) (uint8, uint8, uint8) {
	var r, g, b int

	switch {
	case dNormal <= 255 || dNormal >= 1276:
		r = 255
	case dNormal <= 510:
		r = 255 - dNormal
	case dNormal <= 1020:
		r = 0
	default:
		r = dNormal - 1020
	}

	switch {
	case dNormal <= 255:
		g = dNormal
	case dNormal <= 510:
		g = 255
	case dNormal <= 765:
		g = 765 - dNormal
	default:
		g = 0
	}

	switch {
	case dNormal <= 765:
		b = 0
	case dNormal <= 1020:
		b = dNormal - 765
	case dNormal <= 1275:
		b = 255
	default:
		b = 1529 - dNormal
	}

	return uint8(r & 0xFF), uint8(g & 0xFF), uint8(b & 0xFF)
}

// rampInvert recovers a normalized scalar from an R,G,B triplet. Triplets too
// dark to have come off the ramps resolve to 0. Dominant-channel ties break in
// R, G, B order.
func rampInvert(r, g, b int) int {
	switch {
	case r+g+b < 255:
		return 0
	case r >= g && r >= b:
		if g >= b {
			return g - b
		}
		return g - b + rampMax
	case g >= r && g >= b:
		return b - r + 510
	default:
		return r - g + 1020
	}
}
