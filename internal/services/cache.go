package services

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"hash/fnv"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"dux/internal/domain"
)

// Cache envelope layout:
//
//	[4B] magic "DUXC"
//	[4B] version (u32 LE)
//	[4B] metadata length (u32 LE)
//	[NB] metadata (JSON)
//	[4B] payload length (u32 LE)
//	[MB] payload (zstd-compressed JSON tree snapshot)
//	[4B] CRC32 of all preceding bytes (u32 LE)
//
// Any mismatch (magic, version, lengths, checksum, decode) makes the
// whole cache invalid. There is no partial trust and no surfaced error:
// the caller falls back to a fresh scan.
const (
	cacheMagic        = "DUXC"
	cacheVersion      = uint32(1)
	cacheMinSize      = 20
	largestDirSamples = 32
)

type CacheMetadata struct {
	Version     uint32            `json:"version"`
	RootPath    string            `json:"rootPath"`
	ScanTime    time.Time         `json:"scanTime"`
	RootMtime   time.Time         `json:"rootMtime"`
	TotalSize   int64             `json:"totalSize"`
	NodeCount   int               `json:"nodeCount"`
	Config      CachedScanConfig  `json:"config"`
	LargestDirs []domain.DirStamp `json:"largestDirs"`
}

type CacheStore struct {
	dir     string
	encoder *zstd.Encoder
	decoder *zstd.Decoder
	logger  *slog.Logger
}

func NewCacheStore(logger *slog.Logger) (*CacheStore, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return nil, err
	}
	return NewCacheStoreAt(filepath.Join(base, "dux"), logger)
}

func NewCacheStoreAt(dir string, logger *slog.Logger) (*CacheStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &CacheStore{dir: dir, encoder: encoder, decoder: decoder, logger: logger}, nil
}

// PathFor derives a collision-resistant cache file name from the root
// path, so different roots never share a snapshot.
func (store *CacheStore) PathFor(root string) string {
	hasher := fnv.New64a()
	hasher.Write([]byte(cleanPath(root)))
	return filepath.Join(store.dir, fmt.Sprintf("%016x.dux", hasher.Sum64()))
}

// Save writes the tree snapshot atomically (temp file + rename).
// Tombstoned slots are compacted away by Snapshot; the on-disk tree is
// always contiguous.
func (store *CacheStore) Save(tree *domain.Tree, config CachedScanConfig) error {
	snapshot := tree.Snapshot()

	meta := CacheMetadata{
		Version:     cacheVersion,
		RootPath:    tree.RootPath(),
		ScanTime:    time.Now(),
		RootMtime:   rootMtimeNow(tree),
		TotalSize:   tree.TotalSize(),
		NodeCount:   len(snapshot.Nodes),
		Config:      config,
		LargestDirs: restampDirs(tree.LargestDirs(largestDirSamples)),
	}

	metaBytes, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("encode cache metadata: %w", err)
	}
	treeBytes, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode cache tree: %w", err)
	}
	payload := store.encoder.EncodeAll(treeBytes, nil)

	var buf bytes.Buffer
	buf.WriteString(cacheMagic)
	writeUint32(&buf, cacheVersion)
	writeUint32(&buf, uint32(len(metaBytes)))
	buf.Write(metaBytes)
	writeUint32(&buf, uint32(len(payload)))
	buf.Write(payload)
	writeUint32(&buf, crc32.ChecksumIEEE(buf.Bytes()))

	path := store.PathFor(tree.RootPath())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Load returns the cached tree for root, or (nil, false) on any
// structural mismatch or staleness. It never fails the application.
func (store *CacheStore) Load(root string, config CachedScanConfig) (*domain.Tree, bool) {
	root = cleanPath(root)
	data, err := os.ReadFile(store.PathFor(root))
	if err != nil {
		return nil, false
	}

	meta, snapshot, ok := store.decode(data)
	if !ok {
		store.logger.Debug("cache rejected", "root", root)
		return nil, false
	}
	if !store.fresh(meta, root, config) {
		store.logger.Debug("cache stale", "root", root)
		return nil, false
	}

	tree, err := domain.FromSnapshot(snapshot)
	if err != nil {
		store.logger.Debug("cache snapshot invalid", "root", root, "error", err)
		return nil, false
	}
	return tree, true
}

func (store *CacheStore) decode(data []byte) (CacheMetadata, domain.Snapshot, bool) {
	var meta CacheMetadata
	var snapshot domain.Snapshot

	if len(data) < cacheMinSize {
		return meta, snapshot, false
	}

	body := data[:len(data)-4]
	stored := binary.LittleEndian.Uint32(data[len(data)-4:])
	if crc32.ChecksumIEEE(body) != stored {
		return meta, snapshot, false
	}

	offset := 0
	if string(body[offset:offset+4]) != cacheMagic {
		return meta, snapshot, false
	}
	offset += 4

	if binary.LittleEndian.Uint32(body[offset:offset+4]) != cacheVersion {
		return meta, snapshot, false
	}
	offset += 4

	metaLen := int(binary.LittleEndian.Uint32(body[offset : offset+4]))
	offset += 4
	if offset+metaLen > len(body) {
		return meta, snapshot, false
	}
	if err := json.Unmarshal(body[offset:offset+metaLen], &meta); err != nil {
		return meta, snapshot, false
	}
	offset += metaLen

	if offset+4 > len(body) {
		return meta, snapshot, false
	}
	payloadLen := int(binary.LittleEndian.Uint32(body[offset : offset+4]))
	offset += 4
	if offset+payloadLen != len(body) {
		return meta, snapshot, false
	}

	treeBytes, err := store.decoder.DecodeAll(body[offset:offset+payloadLen], nil)
	if err != nil {
		return meta, snapshot, false
	}
	if err := json.Unmarshal(treeBytes, &snapshot); err != nil {
		return meta, snapshot, false
	}
	return meta, snapshot, true
}

// fresh applies the staleness heuristic: the scan configuration and
// root must match, the root directory's mtime must be unchanged, and a
// spot-check of the recorded largest directories must find every mtime
// intact. Root mtime alone misses changes several levels down; checking
// the biggest subtrees bounds the cost while covering the directories
// that matter most.
func (store *CacheStore) fresh(meta CacheMetadata, root string, config CachedScanConfig) bool {
	if meta.Config != config {
		return false
	}
	if meta.RootPath != root {
		return false
	}
	info, err := os.Stat(root)
	if err != nil {
		return false
	}
	if !info.ModTime().Equal(meta.RootMtime) {
		return false
	}
	for _, stamp := range meta.LargestDirs {
		dirInfo, err := os.Stat(stamp.Path)
		if err != nil {
			return false // directory gone or unreachable
		}
		if !dirInfo.ModTime().Equal(stamp.ModTime) {
			return false
		}
	}
	return true
}

// rootMtimeNow stats the root at save time. A deletion batch run since
// the scan has changed the root directory's mtime, and the snapshot
// being written already reflects those deletions; stamping the
// scan-time mtime would make every post-deletion save stale on arrival.
func rootMtimeNow(tree *domain.Tree) time.Time {
	if info, err := os.Stat(tree.RootPath()); err == nil {
		return info.ModTime()
	}
	root, _ := tree.Get(domain.RootID)
	return root.ModTime
}

// restampDirs refreshes the sampled directory mtimes from the
// filesystem for the same reason: deletions inside a sampled directory
// moved its mtime past the scan-time value. Directories that can no
// longer be statted are dropped from the sample.
func restampDirs(stamps []domain.DirStamp) []domain.DirStamp {
	kept := stamps[:0]
	for _, stamp := range stamps {
		info, err := os.Stat(stamp.Path)
		if err != nil {
			continue
		}
		stamp.ModTime = info.ModTime()
		kept = append(kept, stamp)
	}
	return kept
}

// Invalidate removes the cached snapshot for root, if any.
func (store *CacheStore) Invalidate(root string) {
	_ = os.Remove(store.PathFor(root))
}

func writeUint32(buf *bytes.Buffer, value uint32) {
	var scratch [4]byte
	binary.LittleEndian.PutUint32(scratch[:], value)
	buf.Write(scratch[:])
}
