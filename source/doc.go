/*
Package source discovers extracted sessions on disk and loads their depth
frames into memory.

A session is a directory holding a session.toml metadata file next to its
frame data.  Frames are stored either as a raw little-endian float16 stack
or as a set of 16-bit grayscale TIFF files, with an optional per-frame
validity mask marking dropped recordings.
*/
package source
