package depth

import (
	"encoding/binary"
	"image"

	"github.com/pkg/errors"
)

// DepthMap is a row-major grid of 16-bit depth samples. A sample of 0 means
// "no return".
type DepthMap struct {
	width  int
	height int
	data   []uint16
}

// NewEmptyDepthMap returns a zeroed depth map of the given dimensions.
func NewEmptyDepthMap(width, height int) *DepthMap {
	return &DepthMap{
		width:  width,
		height: height,
		data:   make([]uint16, width*height),
	}
}

// NewDepthMapFromBytes decodes a tightly packed row-major depth buffer in the
// given byte order. Unlike the conversion functions, this is an I/O boundary
// and returns an error on a malformed buffer rather than panicking.
func NewDepthMapFromBytes(data []byte, width, height int, order binary.ByteOrder) (*DepthMap, error) {
	if width <= 0 || height <= 0 {
		return nil, errors.Errorf("invalid depth map dimensions %dx%d", width, height)
	}
	if len(data) != width*height*depthBytesPerPixel {
		return nil, errors.Errorf("depth buffer is %d bytes; %dx%d needs %d",
			len(data), width, height, width*height*depthBytesPerPixel)
	}
	dm := NewEmptyDepthMap(width, height)
	for i := range dm.data {
		dm.data[i] = order.Uint16(data[i*depthBytesPerPixel:])
	}
	return dm, nil
}

// NewDepthMapFromGray16 copies samples out of a 16-bit grayscale image.
func NewDepthMapFromGray16(img *image.Gray16) *DepthMap {
	bounds := img.Bounds()
	dm := NewEmptyDepthMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < dm.height; y++ {
		for x := 0; x < dm.width; x++ {
			dm.data[y*dm.width+x] = img.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y
		}
	}
	return dm
}

func (dm *DepthMap) Width() int {
	return dm.width
}

func (dm *DepthMap) Height() int {
	return dm.height
}

func (dm *DepthMap) Get(p image.Point) uint16 {
	return dm.data[p.Y*dm.width+p.X]
}

func (dm *DepthMap) GetDepth(x, y int) uint16 {
	return dm.data[y*dm.width+x]
}

func (dm *DepthMap) Set(x, y int, z uint16) {
	dm.data[y*dm.width+x] = z
}

// Bytes packs the samples into the wire layout: tightly packed, row-major,
// 2 bytes each in the given byte order.
func (dm *DepthMap) Bytes(order binary.ByteOrder) []byte {
	out := make([]byte, len(dm.data)*depthBytesPerPixel)
	for i, d := range dm.data {
		order.PutUint16(out[i*depthBytesPerPixel:], d)
	}
	return out
}

// ToGray16 renders the map as a 16-bit grayscale image. image.Gray16 stores
// pixels big-endian, so this is the Bytes(binary.BigEndian) layout.
func (dm *DepthMap) ToGray16() *image.Gray16 {
	img := image.NewGray16(image.Rect(0, 0, dm.width, dm.height))
	copy(img.Pix, dm.Bytes(binary.BigEndian))
	return img
}

// MinMax returns the smallest and largest non-zero samples. Zero samples are
// "no return" and are skipped; a map with no returns yields (0, 0).
func (dm *DepthMap) MinMax() (uint16, uint16) {
	var min uint16 = 65535
	var max uint16
	found := false
	for _, z := range dm.data {
		if z == 0 {
			continue
		}
		found = true
		if z < min {
			min = z
		}
		if z > max {
			max = z
		}
	}
	if !found {
		return 0, 0
	}
	return min, max
}

// ToPrettyPicture renders the map through the disparity colormap for human
// viewing.
func (dm *DepthMap) ToPrettyPicture(cfg Config) image.Image {
	rgb := make([]byte, len(dm.data)*colorBytesPerPixel)
	Colorize(dm.width, dm.height, dm.Bytes(binary.LittleEndian), rgb, binary.LittleEndian, cfg)

	img := image.NewNRGBA(image.Rect(0, 0, dm.width, dm.height))
	for i := 0; i < len(dm.data); i++ {
		img.Pix[i*4] = rgb[i*colorBytesPerPixel]
		img.Pix[i*4+1] = rgb[i*colorBytesPerPixel+1]
		img.Pix[i*4+2] = rgb[i*colorBytesPerPixel+2]
		img.Pix[i*4+3] = 255
	}
	return img
}
