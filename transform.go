package aerialmap

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a rigid transform: the translation and rotation of one frame
// expressed in another.
type Pose struct {
	Translation mgl64.Vec3 `json:"translation"`
	Rotation    mgl64.Quat `json:"rotation"`
}

func IdentityPose() Pose {
	return Pose{Rotation: mgl64.QuatIdent()}
}

// FrameLookup resolves the pose of a named frame relative to the current
// fixed/render frame. A zero time means "latest available estimate".
// Diagnose returns a human readable problem description for a failed lookup,
// or an empty string if it has nothing to say.
type FrameLookup interface {
	Lookup(frame string, at time.Time) (Pose, error)
	Diagnose(frame string, at time.Time) string
}

// lookupError turns a failed frame lookup into the most helpful error
// available.
func lookupError(frames FrameLookup, frame string, at time.Time) error {
	if msg := frames.Diagnose(frame, at); msg != "" {
		return errors.New(msg)
	}
	return fmt.Errorf("could not transform from [%s] to the fixed frame for an unknown reason", frame)
}

// relativePose computes the pose of the query frame with respect to the
// reference frame. The lookup collaborator only resolves frames against the
// fixed frame, so both frames are resolved there at the same timestamp and
// recombined.
func relativePose(frames FrameLookup, query, reference string, at time.Time) (Pose, error) {
	q, err := frames.Lookup(query, at)
	if err != nil {
		return Pose{}, lookupError(frames, query, at)
	}

	r, err := frames.Lookup(reference, at)
	if err != nil {
		return Pose{}, lookupError(frames, reference, at)
	}

	inv := r.Rotation.Inverse()
	return Pose{
		Rotation:    inv.Mul(q.Rotation),
		Translation: inv.Rotate(q.Translation.Sub(r.Translation)),
	}, nil
}

// anchorOffset is stage one of the transform pipeline, recomputed only when
// the center tile changes. It is the offset of the grid's local origin (the
// bottom-left corner of the center tile) from the anchor frame: the pose of
// the fix's frame in the anchor frame, minus the sub-tile offset of the fix
// within the center tile in ground-distance units. The sub-tile y offset is
// flipped to match the flipped quad geometry.
func anchorOffset(frames FrameLookup, fix PositionFix, anchorFrame string, zoom int) (mgl64.Vec3, error) {
	pose, err := relativePose(frames, fix.Frame, anchorFrame, fix.Stamp)
	if err != nil {
		return mgl64.Vec3{}, err
	}

	frac, err := TileFromWGS(GeoPoint{Latitude: fix.Latitude, Longitude: fix.Longitude}, zoom)
	if err != nil {
		return mgl64.Vec3{}, err
	}

	size := TileSizeMeters(fix.Latitude, zoom)
	subTile := mgl64.Vec3{
		(frac.X - math.Floor(frac.X)) * size,
		(1 - (frac.Y - math.Floor(frac.Y))) * size,
		0,
	}

	return pose.Translation.Sub(subTile), nil
}

// composePlacement is stage two, run every render tick: the anchor frame's
// pose in the fixed frame composed with the stored offset yields the grid's
// placement.
func composePlacement(anchor Pose, offset mgl64.Vec3) Pose {
	return Pose{
		Translation: anchor.Translation.Add(anchor.Rotation.Rotate(offset)),
		Rotation:    anchor.Rotation,
	}
}
