package transfer

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	return path
}

func TestPrepareOutboundChunking(t *testing.T) {
	// 2500 bytes split 1024/1024/452.
	data := bytes.Repeat([]byte{0xAB}, 2500)
	path := writeTemp(t, "blob.bin", data)

	o, err := PrepareOutbound(path, "bob@192.168.1.3:50999", "test blob")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if o.TotalChunks != 3 {
		t.Fatalf("want 3 chunks, got %d", o.TotalChunks)
	}
	if o.Filesize != 2500 {
		t.Fatalf("want size 2500, got %d", o.Filesize)
	}
	if len(o.FileID) != 8 {
		t.Fatalf("bad file id %q", o.FileID)
	}

	sizes := []int64{1024, 1024, 452}
	for i, want := range sizes {
		c, err := o.Chunk(i, "alice@192.168.1.2:50999", "tok")
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		if c.ChunkSize != want {
			t.Fatalf("chunk %d: want size %d, got %d", i, want, c.ChunkSize)
		}
		if c.ChunkIndex != int64(i) || c.TotalChunks != 3 {
			t.Fatalf("chunk %d: bad indices %d/%d", i, c.ChunkIndex, c.TotalChunks)
		}
	}
	if _, err := o.Chunk(3, "a", "t"); err == nil {
		t.Fatalf("expected out-of-range error")
	}
}

func TestPrepareOutboundEmptyFile(t *testing.T) {
	path := writeTemp(t, "empty", nil)
	if _, err := PrepareOutbound(path, "bob@1.2.3.4:50999", ""); err == nil {
		t.Fatalf("expected error for empty file")
	}
}

func TestSniffMIME(t *testing.T) {
	// PNG magic beats the misleading extension.
	png := append([]byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0}, 64)...)
	if got := sniffMIME("shot.txt", png); got != "image/png" {
		t.Fatalf("want image/png, got %q", got)
	}
	if got := sniffMIME("notes.txt", []byte("plain words")); got == "" || got == "application/octet-stream" {
		t.Fatalf("expected extension fallback for .txt, got %q", got)
	}
	if got := sniffMIME("mystery", []byte{0x01, 0x02}); got != "application/octet-stream" {
		t.Fatalf("want octet-stream, got %q", got)
	}
}

func sendAll(t *testing.T, m *Manager, o *Outbound, order []int) (string, bool) {
	t.Helper()
	var (
		path string
		done bool
	)
	for _, i := range order {
		c, err := o.Chunk(i, "alice@127.0.0.1:50999", "tok")
		if err != nil {
			t.Fatalf("chunk %d: %v", i, err)
		}
		p, d, err := m.HandleChunk(c)
		if err != nil {
			t.Fatalf("handle chunk %d: %v", i, err)
		}
		if d {
			path, done = p, true
		}
	}
	return path, done
}

func TestRoundTripOutOfOrder(t *testing.T) {
	data := make([]byte, 2500)
	for i := range data {
		data[i] = byte(i % 251)
	}
	src := writeTemp(t, "payload.bin", data)

	o, err := PrepareOutbound(src, "bob@127.0.0.1:50999", "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	m := NewManager(t.TempDir())
	m.HandleOffer(o.Offer("alice@127.0.0.1:50999", "tok"))
	if err := m.Accept(o.FileID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	// Delivery order 2, 0, 1.
	path, done := sendAll(t, m, o, []int{2, 0, 1})
	if !done {
		t.Fatalf("transfer did not complete")
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("reassembled bytes differ")
	}
	if _, ok := m.Inbound(o.FileID); ok {
		t.Fatalf("inbound entry should be dropped after completion")
	}
}

func TestChunkCountLatchedFromFirstChunk(t *testing.T) {
	data := bytes.Repeat([]byte{0x5A}, 2048)
	src := writeTemp(t, "latch.bin", data)
	o, err := PrepareOutbound(src, "bob@127.0.0.1:50999", "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}

	m := NewManager(t.TempDir())
	m.HandleOffer(o.Offer("alice@127.0.0.1:50999", "tok"))
	if err := m.Accept(o.FileID); err != nil {
		t.Fatalf("accept: %v", err)
	}

	c0, err := o.Chunk(0, "alice@127.0.0.1:50999", "tok")
	if err != nil {
		t.Fatalf("chunk 0: %v", err)
	}
	if _, done, err := m.HandleChunk(c0); err != nil || done {
		t.Fatalf("chunk 0: done=%v err=%v", done, err)
	}

	// A retransmit claiming a single-chunk transfer must not finish it.
	lying := *c0
	lying.TotalChunks = 1
	if path, done, err := m.HandleChunk(&lying); err == nil || done || path != "" {
		t.Fatalf("shrunk chunk count accepted: path=%q done=%v err=%v", path, done, err)
	}

	c1, err := o.Chunk(1, "alice@127.0.0.1:50999", "tok")
	if err != nil {
		t.Fatalf("chunk 1: %v", err)
	}
	path, done, err := m.HandleChunk(c1)
	if err != nil || !done {
		t.Fatalf("chunk 1: done=%v err=%v", done, err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read result: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatalf("want %d bytes, got %d", len(data), len(got))
	}
}

func TestChunksForUnknownOrRejectedDropped(t *testing.T) {
	src := writeTemp(t, "x.bin", bytes.Repeat([]byte{1}, 100))
	o, err := PrepareOutbound(src, "bob@127.0.0.1:50999", "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	c, _ := o.Chunk(0, "alice@127.0.0.1:50999", "tok")

	m := NewManager(t.TempDir())

	// Unknown file id: silent drop.
	if path, done, err := m.HandleChunk(c); err != nil || done || path != "" {
		t.Fatalf("unknown chunk not dropped: %q %v %v", path, done, err)
	}

	// Offered but not accepted: still dropped.
	m.HandleOffer(o.Offer("alice@127.0.0.1:50999", "tok"))
	if _, done, err := m.HandleChunk(c); err != nil || done {
		t.Fatalf("unaccepted chunk not dropped")
	}
	if in, _ := m.Inbound(o.FileID); in.Received() != 0 {
		t.Fatalf("unaccepted chunk was stored")
	}

	// Rejected: dropped with no inbound state left.
	if err := m.Reject(o.FileID); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, done, err := m.HandleChunk(c); err != nil || done {
		t.Fatalf("rejected chunk not dropped")
	}
	if _, ok := m.Inbound(o.FileID); ok {
		t.Fatalf("rejected transfer still tracked")
	}
}

func TestAcceptUnknownFileErrors(t *testing.T) {
	m := NewManager(t.TempDir())
	if err := m.Accept("beefcafe"); err == nil {
		t.Fatalf("expected unknown-file error")
	}
	if err := m.Reject("beefcafe"); err == nil {
		t.Fatalf("expected unknown-file error")
	}
}

func TestAssembleNameCollision(t *testing.T) {
	dir := t.TempDir()
	// Pre-existing file with the same name forces a (1) suffix.
	if err := os.WriteFile(filepath.Join(dir, "dup.bin"), []byte("old"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	src := writeTemp(t, "dup.bin", bytes.Repeat([]byte{7}, 10))
	o, err := PrepareOutbound(src, "bob@127.0.0.1:50999", "")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	m := NewManager(dir)
	m.HandleOffer(o.Offer("alice@127.0.0.1:50999", "tok"))
	if err := m.Accept(o.FileID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	path, done := sendAll(t, m, o, []int{0})
	if !done {
		t.Fatalf("transfer did not complete")
	}
	if filepath.Base(path) != "dup(1).bin" {
		t.Fatalf("expected de-conflicted name, got %s", filepath.Base(path))
	}
	if old, _ := os.ReadFile(filepath.Join(dir, "dup.bin")); string(old) != "old" {
		t.Fatalf("pre-existing file was overwritten")
	}
}

func TestOfferFrameCarriesMetadata(t *testing.T) {
	src := writeTemp(t, "notes.txt", []byte("hello chunked world"))
	o, err := PrepareOutbound(src, "bob@127.0.0.1:50999", "my notes")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	offer := o.Offer("alice@127.0.0.1:50999", "alice@127.0.0.1:50999|99|file")
	f := offer.ToFrame()
	if f.Type() != proto.TypeFileOffer {
		t.Fatalf("bad type %s", f.Type())
	}
	if f.Get(proto.FieldFilename) != "notes.txt" {
		t.Fatalf("bad filename %q", f.Get(proto.FieldFilename))
	}
	if f.Get(proto.FieldFilesize) != "19" {
		t.Fatalf("bad size %q", f.Get(proto.FieldFilesize))
	}
}
