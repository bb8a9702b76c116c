package engine

import "testing"

// Golden vectors recomputed independently from the published hash-chain
// definition. Any implementation change that alters these breaks third-party
// verification of historical rounds and must never ship.
func TestDrawGoldenVectors(t *testing.T) {
	tests := []struct {
		name    string
		server  string
		client  string
		nonce   uint64
		count   int
		modulus int
		offset  int
		want    []int
	}{
		{
			name:   "keno reference scenario",
			server: "abc", client: "xyz", nonce: 1,
			count: 10, modulus: 40, offset: 1,
			want: []int{3, 4, 7, 8, 23, 27, 28, 29, 30, 31},
		},
		{
			name:   "mines three mines",
			server: "abc", client: "xyz", nonce: 1,
			count: 3, modulus: 25, offset: 0,
			want: []int{2, 12, 21},
		},
		{
			name:   "mines max count exercises rehash",
			server: "abc", client: "xyz", nonce: 1,
			count: 24, modulus: 25, offset: 0,
			want: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24},
		},
		{
			name:   "mines nonce zero",
			server: "server_seed", client: "client_seed", nonce: 0,
			count: 5, modulus: 25, offset: 0,
			want: []int{6, 8, 13, 21, 23},
		},
		{
			name:   "keno later nonce",
			server: "server_seed", client: "client_seed", nonce: 7,
			count: 10, modulus: 40, offset: 1,
			want: []int{1, 5, 13, 22, 23, 24, 29, 34, 39, 40},
		},
		{
			name:   "full alphabet is the identity set",
			server: "a", client: "b", nonce: 2,
			count: 25, modulus: 25, offset: 0,
			want: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Draw(tt.server, tt.client, tt.nonce, tt.count, tt.modulus, tt.offset)
			if err != nil {
				t.Fatalf("Draw() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Draw() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("Draw() = %v, want %v", got, tt.want)
				}
			}
		})
	}
}
