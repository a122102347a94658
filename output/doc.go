/*
Package output persists trained bases and per-session score matrices to
structured npz containers, one results container per output directory.

Entry names are stable so downstream modeling tools can locate fields
without bespoke parsing: the basis container holds mean, components,
singular_values, explained_variance, explained_variance_ratio and
num_observations, the scores container holds scores/<key> and
scores_idx/<key> per session.  Containers are written through a temp file
and renamed into place so a crash never leaves a partial artifact behind.
*/
package output
