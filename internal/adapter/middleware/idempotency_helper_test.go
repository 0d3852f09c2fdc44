package middleware

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, rdb
}

func Test_bodyHash(t *testing.T) {
	data := []byte(`{"hashes":["0x01"]}`)
	sum := sha256.Sum256(data)
	if got, want := bodyHash(data), hex.EncodeToString(sum[:]); got != want {
		t.Fatalf("bodyHash mismatch: got %s want %s", got, want)
	}
	if bodyHash(nil) == bodyHash(data) {
		t.Fatal("empty and non-empty bodies must hash differently")
	}
}

func Test_nowUTC(t *testing.T) {
	u := nowUTC()
	if u.Location() != time.UTC {
		t.Fatalf("nowUTC must be UTC, got %v", u.Location())
	}
}

func Test_buildKey(t *testing.T) {
	caller := common.HexToAddress("0x00000000000000000000000000000000000000A0")
	k := buildKey("POST", "/loans/0xb1/start", caller, strings.Repeat("a", 32))
	wantPrefix := "idemp:ax:post:/loans/0xb1/start:"
	if !strings.HasPrefix(k, wantPrefix) {
		t.Fatalf("buildKey prefix mismatch: got %q want prefix %q", k, wantPrefix)
	}
	if !strings.Contains(k, ":"+strings.ToLower(caller.Hex())+":") || !strings.HasSuffix(k, strings.Repeat("a", 32)) {
		t.Fatalf("buildKey missing caller/request segments: %q", k)
	}
	if other := buildKey("POST", "/loans/0xb2/start", caller, strings.Repeat("a", 32)); other == k {
		t.Fatalf("same request id on another loan must not share a key: %q", k)
	}
	if other := buildKey("POST", "/loans/0xb1/start", common.HexToAddress("0xa1"), strings.Repeat("a", 32)); other == k {
		t.Fatalf("same request id from another caller must not share a key: %q", k)
	}
}

func Test_validReqID(t *testing.T) {
	for _, s := range []string{
		"3f9a6a1b-3d54-4fbe-8b3a-6b3e8d6b2c88",
		strings.Repeat("a", 32),
		" 3f9a6a1b3d544fbe8b3a6b3e8d6b2c88 ",
	} {
		if !validReqID(s) {
			t.Fatalf("validReqID should accept %q", s)
		}
	}
	for _, s := range []string{
		"",
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",
		"zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz",
		"3f9a6a1b-3d54-9fbe-8b3a-6b3e8d6b2c88",
	} {
		if validReqID(s) {
			t.Fatalf("validReqID should reject %q", s)
		}
	}
}

func Test_parseAxRequestAt(t *testing.T) {
	now := time.Now().UTC()
	cases := []struct {
		raw  string
		want time.Time
	}{
		{strconv.FormatInt(now.Unix(), 10), time.Unix(now.Unix(), 0).UTC()},
		{strconv.FormatInt(now.UnixMilli(), 10), time.UnixMilli(now.UnixMilli()).UTC()},
		{"2025-09-05T10:00:00+07:00", time.Date(2025, 9, 5, 3, 0, 0, 0, time.UTC)},
		{"2025-09-05T03:00:00Z", time.Date(2025, 9, 5, 3, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got, err := parseAxRequestAt(tc.raw)
		if err != nil {
			t.Fatalf("%q: %v", tc.raw, err)
		}
		if !got.Equal(tc.want) {
			t.Fatalf("%q: got %v want %v", tc.raw, got, tc.want)
		}
	}

	for _, raw := range []string{"", "not-a-time", "2025-09-05T10:00:00", "1736123456abc"} {
		if _, err := parseAxRequestAt(raw); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func Test_entryLifecycle(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	defer mr.Close()
	ctx := context.Background()

	key := buildKey(http.MethodPost, "/loans/0xb1/mature", common.HexToAddress("0xa1"), strings.Repeat("a", 32))
	entry := idempEntry{InProgress: true, BodySHA256: bodyHash(nil), RequestID: strings.Repeat("a", 32), CreatedAt: nowUTC()}

	ok, err := provisionalSet(ctx, rdb, key, entry)
	if err != nil || !ok {
		t.Fatalf("provisionalSet 1: ok=%v err=%v", ok, err)
	}
	if ttl := rdb.TTL(ctx, key).Val(); ttl <= 0 || ttl > provisionalLockTTL {
		t.Fatalf("provisional TTL not set correctly: %v", ttl)
	}
	if ok, err = provisionalSet(ctx, rdb, key, entry); err != nil || ok {
		t.Fatalf("provisionalSet 2: ok=%v err=%v", ok, err)
	}

	final := entry
	final.InProgress = false
	final.Code = http.StatusOK
	final.Body = []byte(`{"status":"mature"}`)
	if err := saveFinal(ctx, rdb, key, final, 5*time.Second); err != nil {
		t.Fatalf("saveFinal err: %v", err)
	}
	if ttl := rdb.TTL(ctx, key).Val(); ttl <= 0 || ttl > 5*time.Second {
		t.Fatalf("final TTL out of range: %v", ttl)
	}
	got, err := loadEntry(ctx, rdb, key)
	if err != nil {
		t.Fatalf("loadEntry err: %v", err)
	}
	if got.InProgress || got.Code != http.StatusOK || string(got.Body) != `{"status":"mature"}` {
		t.Fatalf("final entry mismatch: %+v", got)
	}

	if _, err := loadEntry(ctx, rdb, "idemp:ax:missing"); err == nil {
		t.Fatal("loadEntry on a missing key must fail")
	}
}
