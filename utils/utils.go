// Package utils provides utility functions for the application.
package utils

import "context"

func ToPtr[T any](v T) *T {
	return &v
}

// RequestIDFrom returns the request id stored by handlers, or an empty string
func RequestIDFrom(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

// ChunkSlice splits items into consecutive slices of at most size elements
func ChunkSlice[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) == 0 {
		return nil
	}
	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
