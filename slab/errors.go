package slab

import "errors"

// Sentinel errors returned by Cache operations.
var (
	// ErrOutOfMemory is returned when the source arena cannot satisfy a
	// growth request and no cached object is available.
	ErrOutOfMemory = errors.New("slab: out of memory")
	// ErrCtorFailed is returned when a constructor rejects a freshly
	// carved object. The object is returned to the slab before the
	// error propagates; it never reaches the caller.
	ErrCtorFailed = errors.New("slab: constructor failed")
	// ErrAlignTooLarge is returned by Create when Align exceeds the
	// quantum the backing arena can satisfy.
	ErrAlignTooLarge = errors.New("slab: alignment exceeds arena quantum")
	// ErrLeakedObjects is returned by Destroy when live objects remain.
	ErrLeakedObjects = errors.New("slab: cache destroyed with live objects")
	// ErrUnknownAddr is the panic value (not a returned error) raised
	// when an address the bufctl hash index does not hold reaches the
	// slab back-end's free path. A Free that lands in a magazine does
	// not look the address up, so the panic comes when that magazine
	// is drained to the slab. Freeing garbage is a programming error,
	// not a recoverable one, so it panics rather than returning.
	ErrUnknownAddr = errors.New("slab: free of unrecognized address")
)
