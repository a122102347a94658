/*
Package pca implements incremental principal component analysis over
flattened depth frames.

Training folds chunks of frames into mergeable sufficient statistics
(observation count, per-pixel sum and the uncentered scatter matrix) so the
corpus never has to fit in memory and parallel partial accumulations reduce
in any order.  Finalizing performs a symmetric eigendecomposition of the
covariance recovered from the statistics and emits an immutable Basis with a
canonical per-component sign so independent runs agree exactly.
*/
package pca
