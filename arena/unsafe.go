//go:build unix

package arena

import "unsafe"

// unsafeSliceAddr returns the address of a byte slice's backing array.
// mmap's returned []byte is never moved by the Go GC (it is not
// GC-managed memory), so holding its address as a bare uintptr is safe
// here, unlike with ordinary heap slices.
func unsafeSliceAddr(b []byte) uintptr {
	if len(b) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&b[0]))
}

// sliceFromAddr reconstructs a []byte view over a previously mmap'd
// region, for handing back to Munmap.
func sliceFromAddr(addr, size uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
}
