package slab

import "testing"

func TestMagazine_PushPopIsLIFO(t *testing.T) {
	var m magazine
	if !m.isEmpty() {
		t.Fatal("fresh magazine should be empty")
	}
	for _, v := range []uintptr{0x1000, 0x2000, 0x3000} {
		if !m.push(v) {
			t.Fatalf("push(%#x) failed unexpectedly", v)
		}
	}
	want := []uintptr{0x3000, 0x2000, 0x1000}
	for i, w := range want {
		got, ok := m.pop()
		if !ok {
			t.Fatalf("pop #%d: magazine unexpectedly empty", i)
		}
		if got != w {
			t.Fatalf("pop #%d = %#x, want %#x (LIFO order)", i, got, w)
		}
	}
	if !m.isEmpty() {
		t.Fatal("magazine should be empty after draining every pushed round")
	}
}

func TestMagazine_NeverExceedsFixedCapacity(t *testing.T) {
	var m magazine
	for i := 0; i < maxMagazineCapacity; i++ {
		if !m.push(uintptr(i + 1)) {
			t.Fatalf("push #%d unexpectedly rejected before reaching capacity", i)
		}
	}
	if m.push(0xdead) {
		t.Fatal("push beyond maxMagazineCapacity should fail")
	}
	if m.count != maxMagazineCapacity {
		t.Fatalf("count = %d, want %d", m.count, maxMagazineCapacity)
	}
}

func TestMagazine_IsFullRespectsCapArgument(t *testing.T) {
	var m magazine
	for i := 0; i < 4; i++ {
		m.push(uintptr(i + 1))
	}
	if m.isFull(8) {
		t.Fatal("4 rounds should not be full against a capacity of 8")
	}
	if !m.isFull(4) {
		t.Fatal("4 rounds should be full against a capacity of 4")
	}
	// A requested cap above the fixed array size is clamped, not honored.
	if m.isFull(maxMagazineCapacity + 100) {
		t.Fatal("isFull must clamp an oversized cap to maxMagazineCapacity, not treat 4 rounds as full")
	}
}

func TestMagazine_PopOnEmptyReportsFalse(t *testing.T) {
	var m magazine
	if _, ok := m.pop(); ok {
		t.Fatal("pop on an empty magazine should report ok=false")
	}
}
