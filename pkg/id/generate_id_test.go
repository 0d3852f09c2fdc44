package id

import (
	"regexp"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

var reHex32 = regexp.MustCompile(`^[a-f0-9]{32}$`)

func TestNewID32_Format(t *testing.T) {
	got := NewID32()
	if !reHex32.MatchString(got) {
		t.Fatalf("not 32-char lowercase hex: %q", got)
	}
}

func TestNewID32_Uniqueness(t *testing.T) {
	const n = 200
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		id := NewID32()
		if _, ok := seen[id]; ok {
			t.Fatalf("duplicate id after %d iterations: %q", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestContractAddress(t *testing.T) {
	creator := common.HexToAddress("0x6ac7ea33f8831ea9dcc53393aaa88b25a785dbf0")
	cases := []struct {
		nonce uint64
		want  string
	}{
		{0, "0xcd234a471b72ba2f1ccf0a70fcaba648a5eecd8d"},
		{1, "0x343c43a37d37dff08ae8c4a11544c718abb4fcf8"},
	}
	for _, tc := range cases {
		got := ContractAddress(creator, tc.nonce)
		if got != common.HexToAddress(tc.want) {
			t.Fatalf("nonce %d: got %s, want %s", tc.nonce, got.Hex(), tc.want)
		}
	}
	if ContractAddress(creator, 7) == ContractAddress(creator, 8) {
		t.Fatal("distinct nonces must yield distinct addresses")
	}
}
