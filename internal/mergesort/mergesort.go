// Package mergesort provides a stable merge sort with an optional parallel
// split for expensive comparators.
package mergesort

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Threshold is the smallest half that is still handed to another goroutine.
const Threshold = 100

// insertionRun is the span below which insertion sort is used.
const insertionRun = 8

// Sort sorts s stably according to less.
func Sort[T any](s []T, less func(a, b T) bool) {
	if len(s) < 2 {
		return
	}
	buf := make([]T, len(s))
	sortRange(s, buf, less)
}

// ParallelSort sorts s stably, splitting the work across at most maxWorkers
// goroutines while a half is longer than Threshold. less must be safe for
// concurrent use. The result is identical to Sort.
func ParallelSort[T any](s []T, less func(a, b T) bool, maxWorkers int) {
	if maxWorkers <= 0 {
		maxWorkers = runtime.GOMAXPROCS(0)
	}
	if len(s) < 2 {
		return
	}
	buf := make([]T, len(s))
	parallelSortRange(s, buf, less, maxWorkers)
}

func parallelSortRange[T any](s, buf []T, less func(a, b T) bool, workers int) {
	span := len(s)
	if workers <= 1 || span <= Threshold {
		sortRange(s, buf, less)
		return
	}

	mid := span / 2
	half := workers / 2

	var g errgroup.Group
	g.Go(func() error {
		parallelSortRange(s[:mid], buf[:mid], less, half)
		return nil
	})
	parallelSortRange(s[mid:], buf[mid:], less, half)
	_ = g.Wait()

	merge(s, buf, mid, less)
}

func sortRange[T any](s, buf []T, less func(a, b T) bool) {
	span := len(s)
	if span <= insertionRun {
		insertionSort(s, less)
		return
	}
	mid := span / 2
	sortRange(s[:mid], buf[:mid], less)
	sortRange(s[mid:], buf[mid:], less)
	merge(s, buf, mid, less)
}

func insertionSort[T any](s []T, less func(a, b T) bool) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && less(s[j], s[j-1]); j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// merge merges the sorted runs s[:mid] and s[mid:] using buf as scratch
// space. On ties the element from the left run wins.
func merge[T any](s, buf []T, mid int, less func(a, b T) bool) {
	if mid == 0 || mid == len(s) || !less(s[mid], s[mid-1]) {
		return
	}

	left := buf[:mid]
	copy(left, s[:mid])

	i, j, k := 0, mid, 0
	for i < len(left) && j < len(s) {
		if less(s[j], left[i]) {
			s[k] = s[j]
			j++
		} else {
			s[k] = left[i]
			i++
		}
		k++
	}
	copy(s[k:], left[i:])
}
