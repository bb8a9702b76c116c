package engine

import (
	"errors"
	"testing"
)

func TestDraw(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		modulus int
		offset  int
	}{
		{name: "single value", count: 1, modulus: 25, offset: 0},
		{name: "mines layout", count: 3, modulus: 25, offset: 0},
		{name: "max mines", count: 24, modulus: 25, offset: 0},
		{name: "full alphabet", count: 25, modulus: 25, offset: 0},
		{name: "keno draw", count: 10, modulus: 40, offset: 1},
		{name: "offset shift", count: 5, modulus: 10, offset: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values, err := Draw("test_server_seed", "test_client_seed", 1, tt.count, tt.modulus, tt.offset)
			if err != nil {
				t.Fatalf("Draw() error = %v", err)
			}

			if len(values) != tt.count {
				t.Errorf("Draw() returned %d values, want %d", len(values), tt.count)
			}

			seen := make(map[int]bool)
			for i, v := range values {
				if v < tt.offset || v > tt.offset+tt.modulus-1 {
					t.Errorf("value %d out of range [%d, %d]", v, tt.offset, tt.offset+tt.modulus-1)
				}
				if seen[v] {
					t.Errorf("duplicate value: %d", v)
				}
				seen[v] = true
				if i > 0 && values[i-1] >= v {
					t.Errorf("values not ascending at index %d: %v", i, values)
				}
			}
		})
	}
}

func TestDrawDeterministic(t *testing.T) {
	first, err := Draw("deterministic_test", "client_test", 42, 10, 40, 1)
	if err != nil {
		t.Fatalf("Draw() error = %v", err)
	}

	for i := 0; i < 5; i++ {
		again, err := Draw("deterministic_test", "client_test", 42, 10, 40, 1)
		if err != nil {
			t.Fatalf("Draw() error = %v", err)
		}
		if len(again) != len(first) {
			t.Fatalf("length changed between calls: %d vs %d", len(again), len(first))
		}
		for j := range first {
			if first[j] != again[j] {
				t.Errorf("value %d changed between calls: %d vs %d", j, first[j], again[j])
			}
		}
	}
}

func TestDrawInputSensitivity(t *testing.T) {
	base, _ := Draw("server", "client", 1, 10, 40, 1)

	variants := []struct {
		name   string
		server string
		client string
		nonce  uint64
	}{
		{name: "different server seed", server: "server2", client: "client", nonce: 1},
		{name: "different client seed", server: "server", client: "client2", nonce: 1},
		{name: "different nonce", server: "server", client: "client", nonce: 2},
	}

	for _, tt := range variants {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Draw(tt.server, tt.client, tt.nonce, 10, 40, 1)
			if err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			same := true
			for i := range base {
				if base[i] != got[i] {
					same = false
					break
				}
			}
			if same {
				t.Errorf("expected a different draw for %s, got identical %v", tt.name, got)
			}
		})
	}
}

func TestDrawErrors(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		client  string
		count   int
		modulus int
		wantErr error
	}{
		{name: "empty server seed", server: "", client: "c", count: 1, modulus: 25, wantErr: ErrInvalidSeedMaterial},
		{name: "empty client seed", server: "s", client: "", count: 1, modulus: 25, wantErr: ErrInvalidSeedMaterial},
		{name: "invalid utf8 server seed", server: "s\xff\xfe", client: "c", count: 1, modulus: 25, wantErr: ErrInvalidSeedMaterial},
		{name: "invalid utf8 client seed", server: "s", client: "c\xff", count: 1, modulus: 25, wantErr: ErrInvalidSeedMaterial},
		{name: "count exceeds modulus", server: "s", client: "c", count: 26, modulus: 25, wantErr: ErrImpossibleDraw},
		{name: "zero count", server: "s", client: "c", count: 0, modulus: 25, wantErr: ErrImpossibleDraw},
		{name: "negative count", server: "s", client: "c", count: -1, modulus: 25, wantErr: ErrImpossibleDraw},
		{name: "zero modulus", server: "s", client: "c", count: 1, modulus: 0, wantErr: ErrImpossibleDraw},
		{name: "modulus beyond byte alphabet", server: "s", client: "c", count: 1, modulus: 257, wantErr: ErrImpossibleDraw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Draw(tt.server, tt.client, 1, tt.count, tt.modulus, 0)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Draw() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHashSeed(t *testing.T) {
	// Known SHA-256 vector
	if got := HashSeed("abc"); got != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Errorf("HashSeed(abc) = %s", got)
	}

	if len(HashSeed("")) != 64 {
		t.Error("commitment must always be 64 hex characters")
	}

	if HashSeed("a") == HashSeed("b") {
		t.Error("different seeds must not share a commitment")
	}
}
