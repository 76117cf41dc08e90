// Package aerialmap maintains a georeferenced grid of web-mercator map tiles
// anchored to a moving reference position. It derives the center tile from
// incoming position fixes, requests the surrounding block from a tile cache
// without ever blocking, assembles quad geometry and texture bindings for a
// renderer to consume, and keeps the grid placed in the render frame through
// a two-stage transform pipeline that confines noisy reference-frame lookups
// to center-tile changes.
package aerialmap
