package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mapleroute/portal/internal/auth/domain"
)

func TestMemoryKVRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()

	if _, ok, _ := kv.Get(ctx, "missing"); ok {
		t.Fatal("expected missing key")
	}

	if err := kv.Set(ctx, "k", "v"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("Get = (%q, %v, %v), want (v, true, nil)", v, ok, err)
	}

	if err := kv.Remove(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Fatal("expected key removed")
	}
}

func TestFileKVPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	kv, err := OpenFileKV(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := kv.Set(ctx, "session", "token"); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenFileKV(path)
	if err != nil {
		t.Fatal(err)
	}
	v, ok, err := reopened.Get(ctx, "session")
	if err != nil || !ok || v != "token" {
		t.Fatalf("Get after reopen = (%q, %v, %v)", v, ok, err)
	}
}

func TestFileKVCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("{{{not json"), 0o600); err != nil {
		t.Fatal(err)
	}

	kv, err := OpenFileKV(path)
	if err != nil {
		t.Fatalf("corrupt store file must not fail open: %v", err)
	}
	if _, ok, _ := kv.Get(context.Background(), "anything"); ok {
		t.Fatal("corrupt store must read as empty")
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	ctx := context.Background()
	records := NewRecords(NewMemoryKV())

	accounts := records.Accounts(ctx)
	if len(accounts) != 0 {
		t.Fatalf("expected empty accounts, got %d", len(accounts))
	}

	accounts["a@b.com"] = domain.Account{ID: "u1", Email: "a@b.com", CreatedAt: time.Now()}
	if err := records.SaveAccounts(ctx, accounts); err != nil {
		t.Fatal(err)
	}

	reloaded := records.Accounts(ctx)
	if reloaded["a@b.com"].ID != "u1" {
		t.Fatalf("account did not round-trip: %+v", reloaded)
	}
}

func TestRecordsCorruptCollectionReadsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	if err := kv.Set(ctx, KeyChallenges, "not json"); err != nil {
		t.Fatal(err)
	}

	records := NewRecords(kv)
	challenges := records.Challenges(ctx)
	if len(challenges) != 0 {
		t.Fatalf("corrupt challenges must read as empty, got %d", len(challenges))
	}
}

func TestRecordsSessionToken(t *testing.T) {
	ctx := context.Background()
	records := NewRecords(NewMemoryKV())

	if _, ok := records.SessionToken(ctx); ok {
		t.Fatal("expected no session token")
	}

	if err := records.SaveSessionToken(ctx, "tok"); err != nil {
		t.Fatal(err)
	}
	tok, ok := records.SessionToken(ctx)
	if !ok || tok != "tok" {
		t.Fatalf("SessionToken = (%q, %v)", tok, ok)
	}

	if err := records.ClearSessionToken(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := records.SessionToken(ctx); ok {
		t.Fatal("expected session token cleared")
	}
}
