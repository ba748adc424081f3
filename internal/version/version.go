// Package version manages one corpus lineage: the snapshots built from it,
// the active one among them and the conversation running against it.
package version

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pders01/docchat/internal/conversation"
	"github.com/pders01/docchat/internal/index"
	"github.com/pders01/docchat/internal/manifest"
	"github.com/pders01/docchat/internal/models"
	"github.com/pders01/docchat/internal/rag"
	"github.com/pders01/docchat/internal/snapshot"
)

// Deps are the collaborators of a version. Index is required.
type Deps struct {
	Snapshots  *snapshot.Store
	Builder    *index.Builder
	Index      *index.Store
	Retrieval  rag.Options
	LLM        rag.LLM
	Chain      conversation.Chain
	Summarizer conversation.Summarizer
	Logger     *slog.Logger
	Now        func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Snapshots == nil {
		d.Snapshots = snapshot.NewStore(snapshot.WithLogger(d.Logger))
	}
	if d.Builder == nil {
		d.Builder = index.NewBuilder(index.WithBuilderLogger(d.Logger))
	}
	return d
}

// UpdateResult describes the outcome of an update
type UpdateResult struct {
	// NoChanges is set when no file was added or modified. No snapshot was
	// created and the active one is unchanged.
	NoChanges bool
	// Changed lists the files that were indexed, sorted
	Changed []string
	// Deleted lists files gone from the corpus. Their chunks stay indexed.
	Deleted []string
	// Snapshot is the active snapshot after the update
	Snapshot models.Snapshot
}

// active is everything loaded from the active snapshot
type active struct {
	snap       models.Snapshot
	manifest   manifest.Manifest
	sourcePath string
	index      *index.Handle
	retriever  rag.Retriever
}

// Version is one corpus lineage under <data_root>/v_<label>
type Version struct {
	label   string
	root    string
	deps    Deps
	phase   Phase
	active  *active
	session *conversation.Session
}

// New returns an unloaded version for label under layout
func New(layout snapshot.Layout, label string, deps Deps) *Version {
	return &Version{
		label: label,
		root:  layout.VersionRoot(label),
		deps:  deps.withDefaults(),
		phase: PhaseUnloaded,
	}
}

// Label returns the version label
func (v *Version) Label() string {
	return v.label
}

// Root returns the directory holding the version's snapshots
func (v *Version) Root() string {
	return v.root
}

// Phase returns the current lifecycle phase
func (v *Version) Phase() Phase {
	return v.phase
}

// Snapshot returns the active snapshot. ok is false when the version is not loaded.
func (v *Version) Snapshot() (snap models.Snapshot, ok bool) {
	if v.active == nil {
		return models.Snapshot{}, false
	}
	return v.active.snap, true
}

// SourcePath returns the corpus path recorded in the active snapshot
func (v *Version) SourcePath() string {
	if v.active == nil {
		return ""
	}
	return v.active.sourcePath
}

// IndexSize returns the number of chunks in the active index
func (v *Version) IndexSize() int {
	if v.active == nil {
		return 0
	}
	return v.active.index.Len()
}

// Init builds the first snapshot of the version from every file under
// sourcePath. A failure after the snapshot directory was created removes it.
func (v *Version) Init(ctx context.Context, sourcePath string) (models.Snapshot, error) {
	if v.phase != PhaseUnloaded {
		return models.Snapshot{}, &PhaseError{Op: "init", Phase: v.phase, err: ErrAlreadyLoaded}
	}

	source, err := manifest.ResolveRoot(sourcePath)
	if err != nil {
		return models.Snapshot{}, err
	}
	m, err := manifest.Build(source)
	if err != nil {
		return models.Snapshot{}, err
	}

	v.phase = PhaseInitializing
	defer func() {
		if v.phase == PhaseInitializing {
			v.phase = PhaseUnloaded
		}
	}()

	snap, err := v.deps.Snapshots.Init(v.root)
	if err != nil {
		return models.Snapshot{}, err
	}

	act, err := v.populate(ctx, snap, source, m, nil, m.Paths())
	if err != nil {
		return models.Snapshot{}, v.rollback(snap, err)
	}

	v.activate(act)
	v.deps.Logger.Info("version initialized", "version", v.label, "snapshot", snap.Name, "files", len(m), "chunks", act.index.Len())
	return snap, nil
}

// Load activates the latest snapshot on disk
func (v *Version) Load(ctx context.Context) (models.Snapshot, error) {
	if v.phase != PhaseUnloaded {
		return models.Snapshot{}, &PhaseError{Op: "load", Phase: v.phase, err: ErrAlreadyLoaded}
	}

	snap, ok, err := v.deps.Snapshots.Latest(v.root)
	if err != nil {
		return models.Snapshot{}, err
	}
	if !ok {
		return models.Snapshot{}, fmt.Errorf("%w for version %s", ErrNoSnapshot, v.label)
	}

	act, err := v.open(ctx, snap)
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("failed to load snapshot %s: %w", snap.Name, err)
	}

	v.activate(act)
	v.deps.Logger.Debug("version loaded", "version", v.label, "snapshot", snap.Name)
	return snap, nil
}

// Update indexes the files added or modified since the active snapshot into
// a new snapshot and activates it
func (v *Version) Update(ctx context.Context) (UpdateResult, error) {
	return v.UpdateFrom(ctx, "")
}

// UpdateFrom is Update reading the corpus at sourcePath, which must be the
// path the active index was built from. An empty sourcePath uses the
// recorded one.
//
// A snapshot is only created when files changed. If building it fails it is
// removed and the active one stays in place.
func (v *Version) UpdateFrom(ctx context.Context, sourcePath string) (UpdateResult, error) {
	if v.phase != PhaseActive {
		return UpdateResult{}, &PhaseError{Op: "update", Phase: v.phase, err: ErrNotLoaded}
	}

	v.phase = PhaseUpdating
	defer func() { v.phase = PhaseActive }()

	prev := v.active
	source, err := v.checkProvenance(prev, sourcePath)
	if err != nil {
		return UpdateResult{}, err
	}

	m, err := manifest.Build(source)
	if err != nil {
		return UpdateResult{}, err
	}

	res := UpdateResult{
		Changed: manifest.Diff(m, prev.manifest),
		Deleted: manifest.Deleted(m, prev.manifest),
	}
	for _, path := range res.Deleted {
		v.deps.Logger.Warn("file deleted from corpus, its chunks stay indexed", "path", path)
	}
	if len(res.Changed) == 0 {
		res.NoChanges = true
		res.Snapshot = prev.snap
		v.deps.Logger.Info("no changes", "version", v.label, "snapshot", prev.snap.Name)
		return res, nil
	}

	snap, err := v.deps.Snapshots.Init(v.root)
	if err != nil {
		return UpdateResult{}, err
	}

	next, err := v.populate(ctx, snap, source, m, prev.index, res.Changed)
	if err != nil {
		return UpdateResult{}, v.rollback(snap, err)
	}

	v.activate(next)
	res.Snapshot = snap
	v.deps.Logger.Info("version updated", "version", v.label, "snapshot", snap.Name, "changed", len(res.Changed), "chunks", next.index.Len())
	return res, nil
}

// checkProvenance re-reads the provenance of the active snapshot and
// returns the source path an update must read
func (v *Version) checkProvenance(prev *active, sourcePath string) (string, error) {
	var meta models.IndexMeta
	if err := snapshot.ReadJSON(snapshot.IndexMetaPath(prev.snap.Path), snapshot.IndexMetaSchema, &meta); err != nil {
		return "", fmt.Errorf("failed to read index provenance: %w", err)
	}
	if meta.SourcePath != prev.sourcePath {
		return "", fmt.Errorf("%w: %s on disk, %s loaded", ErrProvenanceMismatch, meta.SourcePath, prev.sourcePath)
	}

	if sourcePath == "" {
		return prev.sourcePath, nil
	}
	source, err := manifest.ResolveRoot(sourcePath)
	if err != nil {
		return "", err
	}
	if source != prev.sourcePath {
		return "", fmt.Errorf("%w: index built from %s, asked to read %s", ErrProvenanceMismatch, prev.sourcePath, source)
	}
	return source, nil
}

// Pending reports what an update would index now without creating a snapshot
func (v *Version) Pending() (changed, deleted []string, err error) {
	if v.phase != PhaseActive {
		return nil, nil, &PhaseError{Op: "diff", Phase: v.phase, err: ErrNotLoaded}
	}
	m, err := manifest.Build(v.active.sourcePath)
	if err != nil {
		return nil, nil, err
	}
	return manifest.Diff(m, v.active.manifest), manifest.Deleted(m, v.active.manifest), nil
}

// populate writes every record of a snapshot: the index seeded from base
// with the chunks of paths appended, the manifest, the provenance and an
// empty conversations collection
func (v *Version) populate(ctx context.Context, snap models.Snapshot, source string, m manifest.Manifest, base *index.Handle, paths []string) (act *active, err error) {
	chunks, err := v.deps.Builder.Build(ctx, paths)
	if err != nil {
		return nil, err
	}

	handle, err := v.deps.Index.Extend(ctx, base, snapshot.IndexPath(snap.Path), chunks)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			handle.Close()
		}
	}()

	if err := manifest.Save(snapshot.ManifestPath(snap.Path), m); err != nil {
		return nil, err
	}
	if err := snapshot.WriteJSON(snapshot.IndexMetaPath(snap.Path), models.IndexMeta{SourcePath: source}); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(snapshot.ConversationsPath(snap.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create conversations directory: %w", err)
	}

	retriever, err := rag.NewRetriever(handle, v.deps.LLM, v.deps.Retrieval)
	if err != nil {
		return nil, err
	}

	return &active{snap: snap, manifest: m, sourcePath: source, index: handle, retriever: retriever}, nil
}

// open loads the records of an existing snapshot
func (v *Version) open(ctx context.Context, snap models.Snapshot) (act *active, err error) {
	m, err := manifest.Load(snapshot.ManifestPath(snap.Path))
	if err != nil {
		return nil, err
	}

	var meta models.IndexMeta
	if err := snapshot.ReadJSON(snapshot.IndexMetaPath(snap.Path), snapshot.IndexMetaSchema, &meta); err != nil {
		return nil, fmt.Errorf("failed to read index provenance: %w", err)
	}

	handle, err := v.deps.Index.Open(ctx, snapshot.IndexPath(snap.Path))
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			handle.Close()
		}
	}()

	retriever, err := rag.NewRetriever(handle, v.deps.LLM, v.deps.Retrieval)
	if err != nil {
		return nil, err
	}

	return &active{snap: snap, manifest: m, sourcePath: meta.SourcePath, index: handle, retriever: retriever}, nil
}

// rollback removes a snapshot that never became active and wraps cause
func (v *Version) rollback(snap models.Snapshot, cause error) error {
	if err := v.deps.Snapshots.Delete(snap.Path); err != nil {
		v.deps.Logger.Error("failed to roll back snapshot", "snapshot", snap.Path, "error", err)
		return fmt.Errorf("rolled back snapshot %s incompletely (%v): %w", snap.Name, err, cause)
	}
	v.deps.Logger.Warn("snapshot rolled back", "version", v.label, "snapshot", snap.Name, "error", cause)
	return fmt.Errorf("rolled back snapshot %s: %w", snap.Name, cause)
}

// activate makes act the active snapshot, releasing the previous one and
// ending the conversation bound to it
func (v *Version) activate(act *active) {
	v.endSession()
	if v.active != nil {
		if err := v.active.index.Close(); err != nil {
			v.deps.Logger.Warn("failed to close index", "snapshot", v.active.snap.Name, "error", err)
		}
	}
	v.active = act
	v.phase = PhaseActive
}

// Search returns the k passages most similar to query in the active index
func (v *Version) Search(ctx context.Context, query string, k int) ([]models.Passage, error) {
	if v.phase != PhaseActive {
		return nil, &PhaseError{Op: "search", Phase: v.phase, err: ErrNotLoaded}
	}
	results, err := v.active.index.Search(ctx, query, k)
	if err != nil {
		return nil, err
	}
	passages := make([]models.Passage, len(results))
	for i, r := range results {
		passages[i] = r.Passage
	}
	return passages, nil
}

// Close ends the conversation and releases the active index
func (v *Version) Close() error {
	v.endSession()
	var err error
	if v.active != nil {
		err = v.active.index.Close()
		v.active = nil
	}
	v.phase = PhaseUnloaded
	return err
}
