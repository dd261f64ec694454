// Package anthem turns business records into short multi-channel signals.
//
// Each record kind (primary, secondary, related) is expanded into a stream of
// (nameLength, encodedValue) tuples, one run per schema field. The stream is
// read as a sequence of complex numbers, zero-padded to a power of two,
// passed through an inverse DFT, and the real part of every output is
// compressed with a signed logarithm. The three resulting channels, in fixed
// order, form an Anthem.
//
// Pipeline:
//
//	FieldMap + FieldSchema ─► BuildStream ─► Synthesize ─► Channel
//	                                   (×3, fixed order) ─► Compose ─► Anthem
//
// The package is pure computation: no I/O, no package-level mutable state.
// Warnings are returned to the caller and reported through an injected
// logrus.FieldLogger.
package anthem
