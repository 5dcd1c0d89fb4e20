// Package transfer implements chunked file exchange: an outbound chunker
// that slices a local file into base64 FILE_CHUNK frames and an inbound
// assembler that collects chunks by index and writes the reassembled file.
package transfer

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/h2non/filetype"

	"github.com/Solenad/mp-csnetwk-group4/internal/errors"
	"github.com/Solenad/mp-csnetwk-group4/internal/logger"
	"github.com/Solenad/mp-csnetwk-group4/internal/lsnp/proto"
)

// Outbound is a prepared file send: the file is read and chunked up front
// so the caller can stream frames without further disk access.
type Outbound struct {
	FileID      string
	Recipient   string
	Filename    string
	Filesize    int64
	Filetype    string
	Description string
	TotalChunks int
	chunks      [][]byte
}

// PrepareOutbound reads path and slices it into ChunkPayloadSize pieces.
// The MIME type is sniffed from content first, falling back to the file
// extension, then application/octet-stream.
func PrepareOutbound(path, recipient, description string) (*Outbound, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewTransferError("prepare", err)
	}
	if len(data) == 0 {
		return nil, errors.NewTransferError("prepare", fmt.Errorf("file %s is empty", path))
	}

	total := (len(data) + proto.ChunkPayloadSize - 1) / proto.ChunkPayloadSize
	chunks := make([][]byte, 0, total)
	for off := 0; off < len(data); off += proto.ChunkPayloadSize {
		end := off + proto.ChunkPayloadSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, data[off:end])
	}

	return &Outbound{
		FileID:      proto.NewID(),
		Recipient:   recipient,
		Filename:    filepath.Base(path),
		Filesize:    int64(len(data)),
		Filetype:    sniffMIME(path, data),
		Description: description,
		TotalChunks: total,
		chunks:      chunks,
	}, nil
}

// Offer builds the FILE_OFFER frame announcing this transfer.
func (o *Outbound) Offer(from, token string) *proto.FileOffer {
	return &proto.FileOffer{
		From:        from,
		To:          o.Recipient,
		Filename:    o.Filename,
		Filesize:    o.Filesize,
		Filetype:    o.Filetype,
		FileID:      o.FileID,
		Description: o.Description,
		Timestamp:   time.Now().Unix(),
		Token:       token,
	}
}

// Chunk builds the FILE_CHUNK frame for index i.
func (o *Outbound) Chunk(i int, from, token string) (*proto.FileChunk, error) {
	if i < 0 || i >= len(o.chunks) {
		return nil, errors.NewTransferError("chunk", fmt.Errorf("index %d out of range [0,%d)", i, len(o.chunks)))
	}
	raw := o.chunks[i]
	return &proto.FileChunk{
		From:        from,
		To:          o.Recipient,
		FileID:      o.FileID,
		ChunkIndex:  int64(i),
		TotalChunks: int64(o.TotalChunks),
		ChunkSize:   int64(len(raw)),
		Token:       token,
		Data:        base64.StdEncoding.EncodeToString(raw),
	}, nil
}

func sniffMIME(path string, data []byte) string {
	if kind, err := filetype.Match(data); err == nil && kind != filetype.Unknown {
		return kind.MIME.Value
	}
	if byExt := mime.TypeByExtension(filepath.Ext(path)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// Inbound tracks one offered transfer on the receiving side.
type Inbound struct {
	FileID      string
	From        string
	Filename    string
	Filesize    int64
	Filetype    string
	Description string
	Accepted    bool
	TotalChunks int64
	chunks      map[int64][]byte
}

// Complete reports whether every announced chunk has arrived.
func (in *Inbound) Complete() bool {
	return in.TotalChunks > 0 && int64(len(in.chunks)) == in.TotalChunks
}

// Received reports the number of distinct chunks collected so far.
func (in *Inbound) Received() int { return len(in.chunks) }

// Manager owns both directions of every live transfer.
type Manager struct {
	mu       sync.Mutex
	outbound map[string]*Outbound
	inbound  map[string]*Inbound
	rejected map[string]struct{}

	dataDir string
	log     *slog.Logger
}

// NewManager stores completed downloads under dataDir.
func NewManager(dataDir string) *Manager {
	return &Manager{
		outbound: make(map[string]*Outbound),
		inbound:  make(map[string]*Inbound),
		rejected: make(map[string]struct{}),
		dataDir:  dataDir,
		log:      logger.Logger().With("component", "transfer"),
	}
}

// TrackOutbound registers a prepared send so chunk frames can be replayed.
func (m *Manager) TrackOutbound(o *Outbound) {
	m.mu.Lock()
	m.outbound[o.FileID] = o
	m.mu.Unlock()
}

// Outbound returns a tracked send by file ID.
func (m *Manager) Outbound(fileID string) (*Outbound, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.outbound[fileID]
	return o, ok
}

// FinishOutbound drops a send once the peer reported FILE_RECEIVED.
func (m *Manager) FinishOutbound(fileID string) {
	m.mu.Lock()
	delete(m.outbound, fileID)
	m.mu.Unlock()
}

// HandleOffer records an inbound offer pending a local accept/reject
// decision. A duplicate offer for a live file ID is ignored.
func (m *Manager) HandleOffer(offer *proto.FileOffer) *Inbound {
	m.mu.Lock()
	defer m.mu.Unlock()
	if in, ok := m.inbound[offer.FileID]; ok {
		return in
	}
	in := &Inbound{
		FileID:      offer.FileID,
		From:        offer.From,
		Filename:    offer.Filename,
		Filesize:    offer.Filesize,
		Filetype:    offer.Filetype,
		Description: offer.Description,
		TotalChunks: 0,
		chunks:      make(map[int64][]byte),
	}
	m.inbound[offer.FileID] = in
	m.log.Info("file offered", "file_id", offer.FileID, "from", offer.From, "name", offer.Filename, "size", offer.Filesize)
	return in
}

// Accept marks an offered transfer as accepted; chunks will be collected.
func (m *Manager) Accept(fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inbound[fileID]
	if !ok {
		return errors.NewTransferError("accept", fmt.Errorf("unknown file %s", fileID))
	}
	in.Accepted = true
	return nil
}

// Reject discards an offered transfer; all future chunks with this file ID
// are silently dropped.
func (m *Manager) Reject(fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.inbound[fileID]; !ok {
		return errors.NewTransferError("reject", fmt.Errorf("unknown file %s", fileID))
	}
	delete(m.inbound, fileID)
	m.rejected[fileID] = struct{}{}
	return nil
}

// HandleChunk stores one chunk. It returns (path, true, nil) once the last
// chunk lands and the file is written; chunks for unknown, rejected, or
// unaccepted transfers are dropped without error.
func (m *Manager) HandleChunk(c *proto.FileChunk) (string, bool, error) {
	m.mu.Lock()
	in, ok := m.inbound[c.FileID]
	if !ok || !in.Accepted {
		_, wasRejected := m.rejected[c.FileID]
		m.mu.Unlock()
		if wasRejected {
			m.log.Debug("chunk for rejected transfer dropped", "file_id", c.FileID)
		} else {
			m.log.Debug("chunk for unknown or unaccepted transfer dropped", "file_id", c.FileID)
		}
		return "", false, nil
	}

	raw, err := base64.StdEncoding.DecodeString(c.Data)
	if err != nil {
		m.mu.Unlock()
		return "", false, errors.NewTransferError("chunk", fmt.Errorf("file %s chunk %d: %w", c.FileID, c.ChunkIndex, err))
	}
	if c.TotalChunks <= 0 {
		m.mu.Unlock()
		return "", false, errors.NewTransferError("chunk", fmt.Errorf("file %s chunk %d: bad chunk count %d", c.FileID, c.ChunkIndex, c.TotalChunks))
	}
	// The chunk count is latched from the first chunk; a later chunk that
	// disagrees cannot shrink (or grow) the transfer.
	if in.TotalChunks == 0 {
		in.TotalChunks = c.TotalChunks
	} else if c.TotalChunks != in.TotalChunks {
		m.mu.Unlock()
		return "", false, errors.NewTransferError("chunk", fmt.Errorf("file %s chunk %d: chunk count %d does not match %d", c.FileID, c.ChunkIndex, c.TotalChunks, in.TotalChunks))
	}
	if c.ChunkIndex < 0 || c.ChunkIndex >= in.TotalChunks {
		m.mu.Unlock()
		return "", false, errors.NewTransferError("chunk", fmt.Errorf("file %s chunk index %d out of range", c.FileID, c.ChunkIndex))
	}
	in.chunks[c.ChunkIndex] = raw

	if !in.Complete() {
		m.mu.Unlock()
		return "", false, nil
	}
	delete(m.inbound, c.FileID)
	m.mu.Unlock()

	path, err := m.assemble(in)
	if err != nil {
		return "", false, errors.NewTransferError("assemble", err)
	}
	m.log.Info("file received", "file_id", in.FileID, "path", path)
	return path, true, nil
}

// assemble concatenates chunks in index order and writes the file under
// dataDir, de-conflicting the name if it already exists.
func (m *Manager) assemble(in *Inbound) (string, error) {
	if err := os.MkdirAll(m.dataDir, 0o755); err != nil {
		return "", err
	}
	buf := make([]byte, 0, in.Filesize)
	for i := int64(0); i < in.TotalChunks; i++ {
		raw, ok := in.chunks[i]
		if !ok {
			return "", fmt.Errorf("file %s missing chunk %d", in.FileID, i)
		}
		buf = append(buf, raw...)
	}

	path := filepath.Join(m.dataDir, filepath.Base(in.Filename))
	for n := 1; ; n++ {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		ext := filepath.Ext(in.Filename)
		stem := in.Filename[:len(in.Filename)-len(ext)]
		path = filepath.Join(m.dataDir, fmt.Sprintf("%s(%d)%s", filepath.Base(stem), n, ext))
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Inbound returns a live inbound transfer by file ID.
func (m *Manager) Inbound(fileID string) (*Inbound, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in, ok := m.inbound[fileID]
	return in, ok
}
