package cache

import (
	"context"
	"testing"
)

func TestLookupMissOnEmptyCache(t *testing.T) {
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	_, ok, err := c.Lookup(context.Background(), "ret_i32_arg_i32")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if ok {
		t.Fatal("expected a miss on an empty cache")
	}
}

func TestStoreThenLookupRoundtrips(t *testing.T) {
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	want := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	if err := c.Store(ctx, "ret_i32_arg_i32", want); err != nil {
		t.Fatalf("Store: %v", err)
	}

	got, ok, err := c.Lookup(ctx, "ret_i32_arg_i32")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit after Store")
	}
	if string(got) != string(want) {
		t.Fatalf("Lookup returned %v, want %v", got, want)
	}
}

func TestStoreOverwritesExistingFingerprint(t *testing.T) {
	c, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	if err := c.Store(ctx, "ret_i32_arg_i32", []byte{1}); err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := c.Store(ctx, "ret_i32_arg_i32", []byte{2}); err != nil {
		t.Fatalf("Store (overwrite): %v", err)
	}

	got, ok, err := c.Lookup(ctx, "ret_i32_arg_i32")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if !ok || len(got) != 1 || got[0] != 2 {
		t.Fatalf("expected overwritten value [2], got %v (ok=%v)", got, ok)
	}
}
