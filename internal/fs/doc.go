// Package fs provides filesystem abstractions for testability and fault injection.
//
//   - [LocalFS]: production implementation using the os package
//   - [FaultyFS]: test wrapper that injects write, sync, rename and remove failures
//
// [WriteFileAtomic] is the write path used by the local record backend: data
// lands in a temp file in the target directory and is renamed into place.
//
// Operations take no context.Context; local syscalls are not interruptible.
package fs
