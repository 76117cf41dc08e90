package aerialmap

import (
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

type BlendMode uint8

const (
	BlendReplace BlendMode = iota
	BlendAlpha
)

var blendModeStrings = map[BlendMode]string{
	BlendReplace: "replace",
	BlendAlpha:   "alpha",
}

func (b BlendMode) String() string {
	return blendModeStrings[b]
}

func (b BlendMode) MarshalJSON() ([]byte, error) {
	return []byte(`"` + b.String() + `"`), nil
}

type DrawOrder uint8

const (
	DrawOrderNormal DrawOrder = iota
	DrawOrderBackground
)

var drawOrderStrings = map[DrawOrder]string{
	DrawOrderNormal:     "normal",
	DrawOrderBackground: "background",
}

func (d DrawOrder) String() string {
	return drawOrderStrings[d]
}

func (d DrawOrder) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// Vertex is one corner of a tile quad in the grid's local frame, with its
// texture coordinate.
type Vertex struct {
	Position mgl64.Vec3 `json:"position"`
	U        float64    `json:"u"`
	V        float64    `json:"v"`
}

// vertsPerTile is two triangles per quad.
const vertsPerTile = 6

// TileSlot is one renderable unit of the grid: the texture binding and quad
// geometry a renderer needs for one cell. The assembler owns and rewrites
// slots; a renderer only reads them.
type TileSlot struct {
	Name       string               `json:"name"`
	Visible    bool                 `json:"visible"`
	Texture    string               `json:"texture"`
	Alpha      float64              `json:"alpha"`
	Blend      BlendMode            `json:"blend"`
	DepthWrite bool                 `json:"depth_write"`
	Order      DrawOrder            `json:"order"`
	Geometry   [vertsPerTile]Vertex `json:"geometry"`

	// Renderer hints, fixed at pool creation.
	DepthBias      float64 `json:"depth_bias"`
	FilterBilinear bool    `json:"filter_bilinear"`
}

// tileQuad builds the two triangles of a tile quad. x, y is the bottom-left
// corner in the local grid frame, size the tile edge length in meters.
// Texture coordinates are v-flipped relative to position: the tiling
// scheme's image origin is top-left while the local frame is east-north-up.
// The sub-tile offset in the transform stage flips the same way.
func tileQuad(x, y, size float64) [vertsPerTile]Vertex {
	return [vertsPerTile]Vertex{
		{Position: mgl64.Vec3{x, y, 0}, U: 0, V: 0},               // bottom left
		{Position: mgl64.Vec3{x + size, y + size, 0}, U: 1, V: 1}, // top right
		{Position: mgl64.Vec3{x, y + size, 0}, U: 0, V: 1},        // top left
		{Position: mgl64.Vec3{x, y, 0}, U: 0, V: 0},               // bottom left
		{Position: mgl64.Vec3{x + size, y, 0}, U: 1, V: 0},        // bottom right
		{Position: mgl64.Vec3{x + size, y + size, 0}, U: 1, V: 1}, // top right
	}
}

// SceneNode is the placement target the display positions the whole grid
// with, once per render tick.
type SceneNode interface {
	SetPose(pose Pose)
}

// GridNode is a plain SceneNode that retains the latest pose. Suitable for
// headless consumers and tests; a renderer integration would adapt its own
// node type instead.
type GridNode struct {
	mu   sync.RWMutex
	pose Pose
	set  bool
}

func NewGridNode() *GridNode {
	return &GridNode{pose: IdentityPose()}
}

func (n *GridNode) SetPose(pose Pose) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pose = pose
	n.set = true
}

// Pose returns the last pose applied to the node.
func (n *GridNode) Pose() Pose {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.pose
}

// Placed reports whether the node was positioned at least once.
func (n *GridNode) Placed() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.set
}

var _ fmt.Stringer = BlendReplace
var _ fmt.Stringer = DrawOrderNormal
