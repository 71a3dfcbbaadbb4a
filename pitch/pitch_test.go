package pitch

import (
	"math"
	"testing"
)

func near(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*math.Max(math.Abs(a), math.Abs(b))
}

func TestOctaveDoubles(t *testing.T) {
	for _, n := range []int{-24, -12, -1, 0, 1, 7, 12, 30} {
		lo, hi := Frequency(n, Default), Frequency(n+12, Default)
		if !near(hi, 2*lo) {
			t.Errorf("Frequency(%d) = %v, Frequency(%d) = %v, want double", n, lo, n+12, hi)
		}
	}
}

func TestFrequency(t *testing.T) {
	for _, c := range []struct {
		note int
		out  float64
	}{
		{0, 256},
		{12, 512},
		{-12, 128},
		{24, 1024},
		{1, 256 * 1.0594630943592953},
	} {
		got := Frequency(c.note, Default)
		if !near(got, c.out) {
			t.Errorf("Frequency(%d) = %v, want: %v", c.note, got, c.out)
		}
	}
	if got, want := Frequency(3, Scale(9)), Frequency(3, Default); got != want {
		t.Errorf("Frequency(3, Scale(9)) = %v, want: %v", got, want)
	}
}

func TestKey(t *testing.T) {
	for _, c := range []struct {
		k   int
		out float64
	}{
		{0, 220},
		{12, 440},
		{3, 261.6255653005986},
	} {
		got := Key(OctaveBase, c.k)
		if !near(got, c.out) {
			t.Errorf("Key(%v, %d) = %v, want: %v", OctaveBase, c.k, got, c.out)
		}
	}
}
