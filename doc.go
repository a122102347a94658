/*
go-mousepca reduces depth-video recordings of freely moving mice to a
low-dimensional time series for downstream behavioral modeling.

It has two phases: training a principal-component basis over a corpus of
extracted sessions, and applying that basis to individual sessions to
produce per-frame score vectors.  Training accumulates mergeable sufficient
statistics so a corpus much larger than memory can be folded in chunk by
chunk, in any order, across parallel workers.

The root package holds the shared data model (sessions, score matrices,
the flip classifier) while the numeric stages live in subpackages: pca for
the incremental trainer and projector, preprocess for frame cleaning,
source for session discovery and frame loading, and output for the results
containers.

See cmd/mousepca for the command line front end.
*/
package mousepca
