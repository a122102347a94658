// Package pipeline orchestrates batch runs over session directories,
// training the shared basis, projecting scores, and scoring changepoints
// across bounded worker pools.
package pipeline
