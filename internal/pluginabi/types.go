// Package pluginabi mirrors the stable C-struct plugin ABI described in
// spec.md §4.11: a host v-table (TomeHostV2) exported to plugins, a guest
// v-table each plugin returns, and the TomeStr/TomeOwnedStr string-lifecycle
// convention that crosses the boundary between them. The struct layouts are
// documented Go mirrors of the C ABI, not cgo exports — no SPEC_FULL
// component needs plugins to be real dynamically-loaded C libraries to
// exercise the protocol, and the pack's own dependency choices
// (modernc.org/sqlite's pure-Go driver) already favor a cgo-free build, so
// this package keeps that property: the vtables are Go func fields today,
// with the field order and names fixed to match what a cgo export shim
// would need if one were added later.
package pluginabi

import "unsafe"

// TomeStr is a borrowed, non-owned string view: the callee must not retain
// Ptr past the duration of the call that handed it over.
type TomeStr struct {
	Ptr uintptr
	Len uintptr
}

// TomeOwnedStr is a string the callee must free exactly once via the
// matching free_str/free_permission_request callback on the v-table that
// produced it.
type TomeOwnedStr struct {
	Ptr uintptr
	Len uintptr
}

// NewTomeStr borrows s for the duration of one ABI call. The returned
// TomeStr is only valid as long as s is reachable and not garbage
// collected; callers must keep s alive (e.g. in a local variable) across
// the call.
func NewTomeStr(s string) TomeStr {
	if len(s) == 0 {
		return TomeStr{}
	}
	return TomeStr{Ptr: uintptr(unsafe.Pointer(unsafe.StringData(s))), Len: uintptr(len(s))}
}

// String reconstructs a Go string view over a TomeStr without copying.
// The result must not outlive the call that produced t.
func (t TomeStr) String() string {
	if t.Ptr == 0 || t.Len == 0 {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(t.Ptr)), int(t.Len))
}

// NewOwnedStr allocates a TomeOwnedStr over a copy of s. Go's GC backs the
// allocation; this package has no explicit free function for it.
func NewOwnedStr(s string) TomeOwnedStr {
	if len(s) == 0 {
		return TomeOwnedStr{}
	}
	b := []byte(s)
	return TomeOwnedStr{Ptr: uintptr(unsafe.Pointer(unsafe.SliceData(b))), Len: uintptr(len(b))}
}

// String reconstructs the Go string backing an owned string, without
// freeing it.
func (t TomeOwnedStr) String() string {
	if t.Ptr == 0 || t.Len == 0 {
		return ""
	}
	return unsafe.String((*byte)(unsafe.Pointer(t.Ptr)), int(t.Len))
}

// NotifyLevel mirrors the severity passed to TomeHostV2.notify.
type NotifyLevel int

const (
	NotifyInfo NotifyLevel = iota
	NotifyWarn
	NotifyError
)

// PanelSpec describes a plugin-requested UI panel, routed through
// component I's overlay controller the same way the command palette and
// file picker are (a plugin panel is just another OverlayController).
type PanelSpec struct {
	Title       string
	Placeholder string
}

// FsAccess enumerates the narrow file-access surface plugins get per
// spec.md's Non-goal "a sandbox stronger than path-prefix checks for
// plugin/agent file access". This package performs no path check of its
// own: a request is only looked up in the PermissionStore.
type FsAccess int

const (
	FsRead FsAccess = iota
	FsWrite
)

// FsRequest is the argument to TomeHostV2.fs_request.
type FsRequest struct {
	Path   string
	Access FsAccess
}

// PermissionRequest is returned by a guest's free_permission_request-owned
// callback when a plugin needs to cross its granted fs/chat/credential
// boundary. The host checks it against its PermissionStore; an ungranted
// request is logged as a warning and freed, with no user prompt.
type PermissionRequest struct {
	PluginName string
	Reason     string
	Access     FsAccess
	Path       string
}
