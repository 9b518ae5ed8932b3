package depth

import (
	"encoding/binary"
	"image"
	"testing"

	"go.viam.com/test"
)

func makeTestMap() *DepthMap {
	dm := NewEmptyDepthMap(4, 3)
	dm.Set(0, 0, 1200)
	dm.Set(3, 0, 64000)
	dm.Set(1, 1, 800)
	dm.Set(2, 2, 350)
	return dm
}

func TestDepthMapBytesRoundTrip(t *testing.T) {
	dm := makeTestMap()
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		raw := dm.Bytes(order)
		test.That(t, len(raw), test.ShouldEqual, 4*3*2)

		back, err := NewDepthMapFromBytes(raw, 4, 3, order)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, back, test.ShouldResemble, dm)
	}

	// the same bytes under the opposite order decode to different samples
	swapped, err := NewDepthMapFromBytes(dm.Bytes(binary.LittleEndian), 4, 3, binary.BigEndian)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, swapped.GetDepth(0, 0), test.ShouldNotEqual, dm.GetDepth(0, 0))
}

func TestDepthMapFromBytesErrors(t *testing.T) {
	_, err := NewDepthMapFromBytes(make([]byte, 23), 4, 3, binary.LittleEndian)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDepthMapFromBytes(nil, 4, 3, binary.LittleEndian)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDepthMapFromBytes(nil, 0, 3, binary.LittleEndian)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = NewDepthMapFromBytes(nil, 4, -1, binary.LittleEndian)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestDepthMapGray16(t *testing.T) {
	dm := makeTestMap()
	img := dm.ToGray16()
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 4, 3))
	test.That(t, img.Gray16At(0, 0).Y, test.ShouldEqual, uint16(1200))
	test.That(t, img.Gray16At(3, 0).Y, test.ShouldEqual, uint16(64000))
	test.That(t, img.Gray16At(2, 1).Y, test.ShouldEqual, uint16(0))

	back := NewDepthMapFromGray16(img)
	test.That(t, back, test.ShouldResemble, dm)
}

func TestDepthMapMinMax(t *testing.T) {
	dm := makeTestMap()
	min, max := dm.MinMax()
	test.That(t, min, test.ShouldEqual, uint16(350))
	test.That(t, max, test.ShouldEqual, uint16(64000))

	empty := NewEmptyDepthMap(2, 2)
	min, max = empty.MinMax()
	test.That(t, min, test.ShouldEqual, uint16(0))
	test.That(t, max, test.ShouldEqual, uint16(0))
}

func TestDepthMapToPrettyPicture(t *testing.T) {
	dm := NewEmptyDepthMap(2, 1)
	dm.Set(0, 0, 0)
	dm.Set(1, 0, 500)

	img := dm.ToPrettyPicture(Config{MinDepth: 100, MaxDepth: 1000})
	test.That(t, img.Bounds(), test.ShouldResemble, image.Rect(0, 0, 2, 1))

	nrgba, ok := img.(*image.NRGBA)
	test.That(t, ok, test.ShouldBeTrue)
	// no return renders at max disparity: pure red, fully opaque
	test.That(t, nrgba.Pix[0:4], test.ShouldResemble, []uint8{255, 0, 0, 255})
	test.That(t, nrgba.Pix[7], test.ShouldEqual, uint8(255))
}
