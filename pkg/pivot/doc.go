// Package pivot reconstructs a triangle mesh from an oriented point cloud
// using the Ball-Pivoting Algorithm.
//
// A ball of fixed radius is placed on a seed triangle whose circumscribed
// ball contains no other sample. The ball is then rotated around each edge of
// the growing front until it touches another sample, which becomes the third
// vertex of a new triangle. Edges around which the ball cannot pivot become
// boundary edges. Reconstruction ends when no active edge remains.
//
// The algorithm is sequential and deterministic: identical input in identical
// order yields an identical mesh.
package pivot
