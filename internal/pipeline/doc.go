// Package pipeline sequences the quality-gate stages for every lane of the
// execution matrix and aggregates their results into a single verdict.
// Lanes run fully in parallel on a worker pool; stages within a lane are
// strictly sequential.
package pipeline
