// Package resource bounds the memory, worker concurrency and IO throughput
// shared by stores and collection methods.
package resource
