package peer

import (
	"testing"
	"time"
)

func TestParseIdentity(t *testing.T) {
	id, err := Parse("alice@192.168.1.10:50999", 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Username != "alice" || id.IP != "192.168.1.10" || id.Port != 50999 {
		t.Fatalf("unexpected identity %+v", id)
	}
	if id.String() != "alice@192.168.1.10:50999" {
		t.Fatalf("bad canonical form %q", id.String())
	}
}

func TestParsePortHint(t *testing.T) {
	id, err := Parse("bob@10.0.0.5", 51002)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Port != 51002 {
		t.Fatalf("expected hint port, got %d", id.Port)
	}
	id, err = Parse("bob@10.0.0.5", 0)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if id.Port != DefaultPort {
		t.Fatalf("expected default port, got %d", id.Port)
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "noat", "@1.2.3.4:50999", "a@", "a@1.2.3.4:notaport", "a@1.2.3.4:0"} {
		if _, err := Parse(bad, 0); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestUpsertCanonicalisesAndPortFromUserID(t *testing.T) {
	r := NewRegistry()
	// user_id carries port 50999 but the datagram arrived from source port 38121
	canonical, ok := r.Upsert("alice@192.168.1.10:50999", "192.168.1.10", 38121, "")
	if !ok {
		t.Fatalf("upsert failed")
	}
	if canonical != "alice@192.168.1.10:50999" {
		t.Fatalf("unexpected canonical %q", canonical)
	}
	p, ok := r.Get("alice@192.168.1.10:50999")
	if !ok {
		t.Fatalf("peer missing")
	}
	if p.Port != 50999 {
		t.Fatalf("port from user_id must win: got %d", p.Port)
	}
	if p.DisplayName != "alice" {
		t.Fatalf("expected username fallback display name, got %q", p.DisplayName)
	}
}

func TestUpsertPartialIDUsesSourcePort(t *testing.T) {
	r := NewRegistry()
	canonical, ok := r.Upsert("carol@10.0.0.9", "10.0.0.9", 51000, "Carol")
	if !ok {
		t.Fatalf("upsert failed")
	}
	if canonical != "carol@10.0.0.9:51000" {
		t.Fatalf("unexpected canonical %q", canonical)
	}
}

func TestUpsertRejectsMalformed(t *testing.T) {
	r := NewRegistry()
	if _, ok := r.Upsert("not-a-user-id", "1.2.3.4", 50999, ""); ok {
		t.Fatalf("expected rejection")
	}
	if r.Len() != 0 {
		t.Fatalf("registry must stay empty")
	}
}

func TestProfileFieldsAndPreservedProfileSent(t *testing.T) {
	r := NewRegistry()
	r.SetProfile("dave@10.1.1.1:50999", "10.1.1.1", 0, "Dave", "Busy", "image/png", "aGVsbG8=")
	sentAt := time.Now().Add(-time.Minute)
	r.MarkProfileSent("dave@10.1.1.1:50999", sentAt)

	// Subsequent plain upsert must keep profile-only fields intact.
	r.Upsert("dave@10.1.1.1:50999", "10.1.1.1", 0, "")
	p, ok := r.Get("dave@10.1.1.1:50999")
	if !ok {
		t.Fatalf("peer missing")
	}
	if p.Status != "Busy" || p.AvatarType != "image/png" || p.AvatarData != "aGVsbG8=" {
		t.Fatalf("profile fields lost: %+v", p)
	}
	if !p.LastProfileSent.Equal(sentAt) {
		t.Fatalf("LastProfileSent not preserved")
	}
	if p.DisplayName != "Dave" {
		t.Fatalf("display name lost on empty update")
	}
}

func TestListExcludesSelfAndSorts(t *testing.T) {
	r := NewRegistry()
	r.Upsert("bbb@2.2.2.2:50999", "2.2.2.2", 0, "")
	r.Upsert("aaa@1.1.1.1:50999", "1.1.1.1", 0, "")
	r.Upsert("me@3.3.3.3:50999", "3.3.3.3", 0, "")

	peers := r.List("me@3.3.3.3:50999")
	if len(peers) != 2 {
		t.Fatalf("expected 2 peers, got %d", len(peers))
	}
	if peers[0].UserID != "aaa@1.1.1.1:50999" || peers[1].UserID != "bbb@2.2.2.2:50999" {
		t.Fatalf("unexpected order: %+v", peers)
	}
}

func TestResolveFallsBackToEmbeddedAddress(t *testing.T) {
	r := NewRegistry()
	ip, port, ok := r.Resolve("ghost@172.16.0.4:51003")
	if !ok || ip != "172.16.0.4" || port != 51003 {
		t.Fatalf("fallback resolve failed: %s:%d %v", ip, port, ok)
	}
	if _, _, ok := r.Resolve("garbage"); ok {
		t.Fatalf("expected resolve failure")
	}

	// Registered peer wins over the embedded address.
	r.Upsert("ghost@172.16.0.4:51003", "172.16.0.99", 0, "")
	ip, port, ok = r.Resolve("ghost@172.16.0.4:51003")
	if !ok || ip != "172.16.0.99" || port != 51003 {
		t.Fatalf("registry resolve failed: %s:%d %v", ip, port, ok)
	}
}

func TestRemove(t *testing.T) {
	r := NewRegistry()
	r.Upsert("x@1.1.1.1:50999", "1.1.1.1", 0, "")
	if !r.Remove("x@1.1.1.1:50999") {
		t.Fatalf("expected removal")
	}
	if r.Remove("x@1.1.1.1:50999") {
		t.Fatalf("expected second removal to fail")
	}
}
