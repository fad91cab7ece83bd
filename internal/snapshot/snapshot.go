// Package snapshot saves and loads index snapshots in a versioned on-disk layout:
//
//	manifest.json  build metadata and blob checksums
//	catalog.db     SQLite recipe catalog
//	lexical.idx    lexical index blob
//	facet.idx      facet index blob
//	semantic.idx   semantic index blob, present only when embeddings were built
//
// Each blob is zstd-compressed and starts with a gob header carrying its kind, the recipe
// roster and, for the semantic index, the vector dimension and embedding model.
package snapshot

import (
	"bufio"
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/hyperjump/mise/internal/embedding"
	"github.com/hyperjump/mise/internal/facet"
	"github.com/hyperjump/mise/internal/keyword"
	"github.com/hyperjump/mise/internal/metrics"
	"github.com/hyperjump/mise/internal/models"
	"github.com/hyperjump/mise/internal/search"
	"github.com/hyperjump/mise/internal/store"
	"github.com/hyperjump/mise/internal/vector"
)

// FormatVersion is the on-disk layout version. Loading any other version fails.
const FormatVersion = 1

// File names inside a snapshot directory.
const (
	ManifestFile = "manifest.json"
	CatalogFile  = "catalog.db"
	LexicalFile  = "lexical.idx"
	FacetFile    = "facet.idx"
	SemanticFile = "semantic.idx"
)

const blobMagic = "MISEIDX"

// Blob kinds.
const (
	KindLexical  = "lexical"
	KindFacet    = "facet"
	KindSemantic = "semantic"
)

// Manifest describes a saved snapshot.
type Manifest struct {
	FormatVersion int               `json:"format_version"`
	BuildID       string            `json:"build_id"`
	BuiltAt       time.Time         `json:"built_at"`
	SavedAt       time.Time         `json:"saved_at"`
	DocumentCount int               `json:"document_count"`
	Semantic      bool              `json:"semantic"`
	Dimension     int               `json:"dimension,omitempty"`
	Model         string            `json:"model,omitempty"`
	Checksums     map[string]string `json:"checksums"`
}

type header struct {
	Magic     string
	Version   int
	Kind      string
	Roster    []string
	Dimension int
	Model     string
}

// LoadOptions supplies the collaborators a loaded snapshot is rebuilt with.
type LoadOptions struct {
	// Analyzer must match the analyzer the lexical index was built with. Nil selects the default.
	Analyzer *keyword.Analyzer
	// Embedder answers semantic queries against the loaded vectors. Its dimension and model
	// must equal the saved ones. When nil the semantic index is not loaded.
	Embedder embedding.Embedder
	// MinScore is passed to the loaded semantic index.
	MinScore float64
	Logger   *zap.Logger
}

// Save writes snap to dir. The snapshot is assembled in a sibling temporary directory and
// renamed into place, so a failed save leaves any previous snapshot at dir intact.
func Save(ctx context.Context, dir string, snap *search.Snapshot) (err error) {
	defer func() { metrics.SnapshotOperationsTotal.WithLabelValues("save", metrics.Status(err)).Inc() }()

	parent := filepath.Dir(dir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return models.NewPersistenceError("save", dir, err)
	}
	tmp, err := os.MkdirTemp(parent, filepath.Base(dir)+".tmp-*")
	if err != nil {
		return models.NewPersistenceError("save", dir, err)
	}
	defer func() {
		if err != nil {
			_ = os.RemoveAll(tmp)
		}
	}()

	if err := writeSnapshot(ctx, tmp, snap); err != nil {
		return models.NewPersistenceError("save", dir, err)
	}
	if err := replaceDir(tmp, dir); err != nil {
		return models.NewPersistenceError("save", dir, err)
	}
	return nil
}

type blob struct {
	file   string
	header header
	encode func(io.Writer) error
}

func writeSnapshot(ctx context.Context, dir string, snap *search.Snapshot) error {
	if err := writeCatalog(ctx, filepath.Join(dir, CatalogFile), snap); err != nil {
		return fmt.Errorf("write catalog: %w", err)
	}

	roster := snap.Store.IDs()
	m := &Manifest{
		FormatVersion: FormatVersion,
		BuildID:       snap.BuildID,
		BuiltAt:       snap.BuiltAt,
		SavedAt:       time.Now().UTC(),
		DocumentCount: len(roster),
		Checksums:     make(map[string]string),
	}

	blobs := []blob{
		{LexicalFile, header{Kind: KindLexical, Roster: roster}, snap.Lexical.Encode},
		{FacetFile, header{Kind: KindFacet, Roster: roster}, snap.Facets.Encode},
	}
	if snap.Semantic != nil {
		flat := snap.Semantic.Flat()
		m.Semantic = true
		m.Dimension = flat.Dimension()
		m.Model = flat.Model()
		blobs = append(blobs, blob{
			SemanticFile,
			header{Kind: KindSemantic, Roster: roster, Dimension: m.Dimension, Model: m.Model},
			flat.Encode,
		})
	}

	for _, b := range blobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		sum, err := writeBlob(filepath.Join(dir, b.file), b.header, b.encode)
		if err != nil {
			return fmt.Errorf("write %s: %w", b.file, err)
		}
		m.Checksums[b.file] = sum
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0644)
}

func writeCatalog(ctx context.Context, path string, snap *search.Snapshot) error {
	catalog, err := store.OpenSQLiteCatalog(path)
	if err != nil {
		return err
	}
	if err := catalog.ReplaceAll(ctx, snap.Store.All()); err != nil {
		_ = catalog.Close()
		return err
	}
	if err := catalog.SetMeta(ctx, "build_id", snap.BuildID); err != nil {
		_ = catalog.Close()
		return err
	}
	return catalog.Close()
}

// writeBlob writes header and payload through zstd and returns the xxhash of the file bytes.
func writeBlob(path string, h header, encode func(io.Writer) error) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	digest := xxhash.New()
	enc, err := zstd.NewWriter(io.MultiWriter(f, digest))
	if err != nil {
		return "", err
	}
	h.Magic = blobMagic
	h.Version = FormatVersion
	if err := gob.NewEncoder(enc).Encode(&h); err != nil {
		_ = enc.Close()
		return "", fmt.Errorf("encode header: %w", err)
	}
	if err := encode(enc); err != nil {
		_ = enc.Close()
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	if err := f.Sync(); err != nil {
		return "", err
	}
	return checksum(digest.Sum64()), f.Close()
}

func checksum(sum uint64) string {
	return fmt.Sprintf("xxh64:%016x", sum)
}

// replaceDir moves tmp to dir, swapping out an existing dir.
func replaceDir(tmp, dir string) error {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return os.Rename(tmp, dir)
	}
	old := dir + ".old"
	_ = os.RemoveAll(old)
	if err := os.Rename(dir, old); err != nil {
		return err
	}
	if err := os.Rename(tmp, dir); err != nil {
		_ = os.Rename(old, dir)
		return err
	}
	return os.RemoveAll(old)
}

// ReadManifest reads and validates the manifest of the snapshot at dir.
func ReadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.NewPersistenceError("read manifest", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, models.NewPersistenceError("read manifest", path, err)
	}
	if m.FormatVersion != FormatVersion {
		return nil, models.NewPersistenceError("read manifest", path,
			fmt.Errorf("unsupported format version %d, expected %d", m.FormatVersion, FormatVersion))
	}
	return &m, nil
}

// Exists reports whether dir holds a snapshot manifest.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ManifestFile))
	return err == nil
}

// Load reads the snapshot at dir. Every blob roster must equal the catalog's recipe ids and
// the semantic blob must match the embedder's dimension and model; any mismatch or read
// failure is a PersistenceError and nothing is returned.
func Load(ctx context.Context, dir string, opts LoadOptions) (snap *search.Snapshot, err error) {
	defer func() { metrics.SnapshotOperationsTotal.WithLabelValues("load", metrics.Status(err)).Inc() }()

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	for _, file := range []string{LexicalFile, FacetFile} {
		if _, ok := m.Checksums[file]; !ok {
			return nil, models.NewPersistenceError("load", dir, fmt.Errorf("manifest has no checksum for %s", file))
		}
	}

	st, err := loadCatalog(ctx, filepath.Join(dir, CatalogFile))
	if err != nil {
		return nil, models.NewPersistenceError("load", filepath.Join(dir, CatalogFile), err)
	}
	if st.Len() != m.DocumentCount {
		return nil, models.NewPersistenceError("load", dir,
			fmt.Errorf("catalog has %d recipes, manifest expects %d", st.Len(), m.DocumentCount))
	}
	roster := st.IDs()

	snap = &search.Snapshot{Store: st, BuildID: m.BuildID, BuiltAt: m.BuiltAt}

	path := filepath.Join(dir, LexicalFile)
	err = readBlob(path, m.Checksums[LexicalFile], header{Kind: KindLexical, Roster: roster}, func(r io.Reader) error {
		ix, err := keyword.Decode(r, opts.Analyzer, roster)
		snap.Lexical = ix
		return err
	})
	if err != nil {
		return nil, models.NewPersistenceError("load", path, err)
	}

	path = filepath.Join(dir, FacetFile)
	err = readBlob(path, m.Checksums[FacetFile], header{Kind: KindFacet, Roster: roster}, func(r io.Reader) error {
		ix, err := facet.Decode(r, roster)
		snap.Facets = ix
		return err
	})
	if err != nil {
		return nil, models.NewPersistenceError("load", path, err)
	}

	if m.Semantic {
		if opts.Embedder == nil {
			logger.Warn("No embedder configured, semantic index not loaded", zap.String("dir", dir))
			return snap, nil
		}
		if opts.Embedder.Dimensions() != m.Dimension || opts.Embedder.Model() != m.Model {
			return nil, models.NewPersistenceError("load", dir, fmt.Errorf(
				"semantic index was built with %s/%d, embedder is %s/%d",
				m.Model, m.Dimension, opts.Embedder.Model(), opts.Embedder.Dimensions()))
		}
		path = filepath.Join(dir, SemanticFile)
		want := header{Kind: KindSemantic, Roster: roster, Dimension: m.Dimension, Model: m.Model}
		err = readBlob(path, m.Checksums[SemanticFile], want, func(r io.Reader) error {
			flat, err := vector.DecodeFlat(r, m.Dimension, m.Model, roster)
			if err != nil {
				return err
			}
			snap.Semantic, err = vector.New(opts.Embedder, flat, vector.WithMinScore(opts.MinScore))
			return err
		})
		if err != nil {
			return nil, models.NewPersistenceError("load", path, err)
		}
	}

	logger.Info("Snapshot loaded",
		zap.String("dir", dir),
		zap.String("build_id", m.BuildID),
		zap.Int("recipes", st.Len()),
		zap.Bool("semantic", snap.Semantic != nil))
	return snap, nil
}

func loadCatalog(ctx context.Context, path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	catalog, err := store.OpenSQLiteCatalog(path)
	if err != nil {
		return nil, err
	}
	defer catalog.Close()
	recipes, err := catalog.All(ctx)
	if err != nil {
		return nil, err
	}
	return store.New(recipes)
}

// readBlob verifies the file checksum, checks the header against want and hands the
// payload reader to decode.
func readBlob(path, wantSum string, want header, decode func(io.Reader) error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if sum := checksum(xxhash.Sum64(data)); sum != wantSum {
		return fmt.Errorf("checksum mismatch: file has %s, manifest expects %s", sum, wantSum)
	}
	dec, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer dec.Close()

	// gob reads exactly one message from an io.ByteReader, leaving the payload unread.
	br := bufio.NewReader(dec)
	var h header
	if err := gob.NewDecoder(br).Decode(&h); err != nil {
		return fmt.Errorf("decode header: %w", err)
	}
	if err := checkHeader(h, want); err != nil {
		return err
	}
	return decode(br)
}

func checkHeader(got, want header) error {
	if got.Magic != blobMagic {
		return errors.New("not an index blob")
	}
	if got.Version != FormatVersion {
		return fmt.Errorf("unsupported blob version %d", got.Version)
	}
	if got.Kind != want.Kind {
		return fmt.Errorf("blob kind %q, expected %q", got.Kind, want.Kind)
	}
	if got.Dimension != want.Dimension || got.Model != want.Model {
		return fmt.Errorf("blob was built with %s/%d, expected %s/%d", got.Model, got.Dimension, want.Model, want.Dimension)
	}
	if len(got.Roster) != len(want.Roster) {
		return fmt.Errorf("blob roster has %d recipes, catalog has %d", len(got.Roster), len(want.Roster))
	}
	for i := range got.Roster {
		if got.Roster[i] != want.Roster[i] {
			return fmt.Errorf("blob roster differs from catalog at %q", got.Roster[i])
		}
	}
	return nil
}
