//go:build windows

// Package comutil provides the minimal pure-Go COM vtable calling
// convention shared by the graphics, capture, and windowctl packages. It
// avoids a full COM wrapper library on purpose: every interface this repo
// touches (ID3D11Device, IDXGIOutputDuplication, IGraphicsCaptureItem, ...)
// is driven by calling a fixed vtable slot with a handful of uintptr
// arguments, so a generic COM framework would buy nothing but indirection.
package comutil

import (
	"fmt"
	"syscall"
	"unsafe"
)

// GUID is a COM 128-bit interface identifier.
type GUID struct {
	Data1 uint32
	Data2 uint16
	Data3 uint16
	Data4 [8]byte
}

// IUnknown vtable slots, present on every COM interface.
const (
	VtblQueryInterface = 0
	VtblAddRef         = 1
	VtblRelease        = 2
)

// Call invokes a COM vtable method at the given index on obj, an interface
// pointer (pointer to pointer to vtable). Returns the raw HRESULT-shaped
// return value and a non-nil error when the high bit indicates failure.
func Call(obj uintptr, vtableIdx int, args ...uintptr) (uintptr, error) {
	fn := VtblFunc(obj, vtableIdx)

	var ret uintptr
	switch len(args) {
	case 0:
		ret, _, _ = syscall.SyscallN(fn, obj)
	case 1:
		ret, _, _ = syscall.SyscallN(fn, obj, args[0])
	case 2:
		ret, _, _ = syscall.SyscallN(fn, obj, args[0], args[1])
	case 3:
		ret, _, _ = syscall.SyscallN(fn, obj, args[0], args[1], args[2])
	default:
		allArgs := make([]uintptr, 0, 1+len(args))
		allArgs = append(allArgs, obj)
		allArgs = append(allArgs, args...)
		ret, _, _ = syscall.SyscallN(fn, allArgs...)
	}

	if int32(ret) < 0 {
		return ret, fmt.Errorf("COM vtable[%d] HRESULT 0x%08X", vtableIdx, uint32(ret))
	}
	return ret, nil
}

// VtblFunc resolves a COM vtable function pointer by index.
func VtblFunc(obj uintptr, idx int) uintptr {
	vtablePtr := *(*uintptr)(unsafe.Pointer(obj))
	return *(*uintptr)(unsafe.Pointer(vtablePtr + uintptr(idx)*unsafe.Sizeof(uintptr(0))))
}

// Release calls IUnknown::Release. Safe to call with obj == 0.
func Release(obj uintptr) {
	if obj == 0 {
		return
	}
	syscall.SyscallN(VtblFunc(obj, VtblRelease), obj)
}

// QueryInterface calls IUnknown::QueryInterface for iid, returning the new
// interface pointer on success. The caller owns the returned reference.
func QueryInterface(obj uintptr, iid *GUID) (uintptr, error) {
	var out uintptr
	_, err := Call(obj, VtblQueryInterface, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out)))
	if err != nil {
		return 0, err
	}
	return out, nil
}
