package aerialmap

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFrames resolves frames from a fixed map; unknown frames fail.
type fakeFrames struct {
	poses     map[string]Pose
	diagnoses map[string]string
	lookups   int
}

func newFakeFrames() *fakeFrames {
	return &fakeFrames{
		poses:     make(map[string]Pose),
		diagnoses: make(map[string]string),
	}
}

func (f *fakeFrames) Lookup(frame string, _ time.Time) (Pose, error) {
	f.lookups++
	pose, ok := f.poses[frame]
	if !ok {
		return Pose{}, fmt.Errorf("frame %q unknown", frame)
	}
	return pose, nil
}

func (f *fakeFrames) Diagnose(frame string, _ time.Time) string {
	return f.diagnoses[frame]
}

func rotZ(angle float64) mgl64.Quat {
	return mgl64.QuatRotate(angle, mgl64.Vec3{0, 0, 1})
}

func assertVec3InDelta(t *testing.T, want, got mgl64.Vec3, delta float64) {
	t.Helper()
	for i := 0; i < 3; i++ {
		assert.InDeltaf(t, want[i], got[i], delta, "component %d of %v vs %v", i, want, got)
	}
}

func TestRelativePose(t *testing.T) {
	frames := newFakeFrames()
	frames.poses["anchor"] = Pose{Translation: mgl64.Vec3{1, 0, 0}, Rotation: mgl64.QuatIdent()}
	frames.poses["robot"] = Pose{Translation: mgl64.Vec3{2, 3, 0}, Rotation: rotZ(math.Pi / 2)}

	pose, err := relativePose(frames, "robot", "anchor", time.Now())
	require.NoError(t, err)

	assertVec3InDelta(t, mgl64.Vec3{1, 3, 0}, pose.Translation, 1e-12)
	assertVec3InDelta(t, mgl64.Vec3{0, 1, 0}, pose.Rotation.Rotate(mgl64.Vec3{1, 0, 0}), 1e-12)
}

func TestRelativePoseRotatedReference(t *testing.T) {
	frames := newFakeFrames()
	frames.poses["anchor"] = Pose{Translation: mgl64.Vec3{}, Rotation: rotZ(math.Pi / 2)}
	frames.poses["robot"] = Pose{Translation: mgl64.Vec3{0, 1, 0}, Rotation: mgl64.QuatIdent()}

	pose, err := relativePose(frames, "robot", "anchor", time.Now())
	require.NoError(t, err)

	// one meter along fixed-frame y is one meter along the anchor's x
	assertVec3InDelta(t, mgl64.Vec3{1, 0, 0}, pose.Translation, 1e-12)
}

func TestRelativePoseLookupFailure(t *testing.T) {
	frames := newFakeFrames()
	frames.poses["anchor"] = IdentityPose()
	frames.diagnoses["robot"] = "no transform from robot to fixed frame within cache window"

	_, err := relativePose(frames, "robot", "anchor", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache window")
}

func TestRelativePoseLookupFailureWithoutDiagnosis(t *testing.T) {
	frames := newFakeFrames()

	_, err := relativePose(frames, "robot", "anchor", time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown reason")
}

func TestAnchorOffsetIdentityFrames(t *testing.T) {
	frames := newFakeFrames()
	frames.poses["anchor"] = IdentityPose()
	frames.poses["gps"] = IdentityPose()

	fix := PositionFix{Latitude: 47.398, Longitude: 8.546, Frame: "gps", Stamp: time.Now()}
	zoom := 16

	offset, err := anchorOffset(frames, fix, "anchor", zoom)
	require.NoError(t, err)

	// with identity poses the offset is exactly the flipped sub-tile offset
	frac, err := TileFromWGS(GeoPoint{Latitude: fix.Latitude, Longitude: fix.Longitude}, zoom)
	require.NoError(t, err)
	size := TileSizeMeters(fix.Latitude, zoom)

	want := mgl64.Vec3{
		-(frac.X - math.Floor(frac.X)) * size,
		-(1 - (frac.Y - math.Floor(frac.Y))) * size,
		0,
	}
	assertVec3InDelta(t, want, offset, 1e-9)

	// the offset points from the grid origin to the fix, so it is bounded by
	// one tile in each direction
	assert.LessOrEqual(t, math.Abs(offset.X()), size)
	assert.LessOrEqual(t, math.Abs(offset.Y()), size)
}

func TestAnchorOffsetTranslatedFixFrame(t *testing.T) {
	frames := newFakeFrames()
	frames.poses["anchor"] = IdentityPose()
	frames.poses["gps"] = Pose{Translation: mgl64.Vec3{100, 200, 5}, Rotation: mgl64.QuatIdent()}

	fix := PositionFix{Latitude: 47.398, Longitude: 8.546, Frame: "gps", Stamp: time.Now()}

	offset, err := anchorOffset(frames, fix, "anchor", 16)
	require.NoError(t, err)

	base, err := anchorOffset(newIdentityFixFrames(), fix, "anchor", 16)
	require.NoError(t, err)

	assertVec3InDelta(t, base.Add(mgl64.Vec3{100, 200, 5}), offset, 1e-9)
}

// newIdentityFixFrames resolves both the anchor and the gps frame to identity.
func newIdentityFixFrames() *fakeFrames {
	frames := newFakeFrames()
	frames.poses["anchor"] = IdentityPose()
	frames.poses["gps"] = IdentityPose()
	return frames
}

func TestAnchorOffsetInvalidLatitude(t *testing.T) {
	frames := newIdentityFixFrames()

	fix := PositionFix{Latitude: 89, Longitude: 8.546, Frame: "gps", Stamp: time.Now()}
	_, err := anchorOffset(frames, fix, "anchor", 16)
	require.ErrorIs(t, err, ErrLatitudeOutOfRange)
}

func TestComposePlacement(t *testing.T) {
	anchor := Pose{Translation: mgl64.Vec3{10, 0, 0}, Rotation: rotZ(math.Pi / 2)}
	offset := mgl64.Vec3{1, 2, 3}

	placed := composePlacement(anchor, offset)

	assertVec3InDelta(t, mgl64.Vec3{8, 1, 3}, placed.Translation, 1e-12)
	assertVec3InDelta(t, mgl64.Vec3{0, 1, 0}, placed.Rotation.Rotate(mgl64.Vec3{1, 0, 0}), 1e-12)
}

func TestComposePlacementIdentityAnchor(t *testing.T) {
	offset := mgl64.Vec3{-120.5, -43.25, 0}
	placed := composePlacement(IdentityPose(), offset)
	assertVec3InDelta(t, offset, placed.Translation, 1e-12)
}
