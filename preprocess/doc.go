/*
Package preprocess cleans depth frames before PCA: spatial gaussian and
median smoothing, a morphological tail filter, optional temporal filtering
across neighboring frames, arena ROI masking and an optional 2D FFT
magnitude feature transform.
*/
package preprocess
