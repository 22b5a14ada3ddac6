// Package journal stores journal entries, folders and tags in a record
// store with every user-authored field encrypted.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/jotvault/jotvault/internal/field"
	"github.com/jotvault/jotvault/internal/mood"
	"github.com/jotvault/jotvault/internal/storage"
)

// Record store tables
const (
	TableEntries = "entries"
	TableFolders = "folders"
	TableTags    = "tags"
)

// Stored field names
const (
	fieldTitle    = "title"
	fieldContent  = "content"
	fieldMood     = "mood"
	fieldTags     = "tags"
	fieldFolderID = "folder_id"
	fieldName     = "name"
	fieldColor    = "color"
)

var (
	// ErrKeyMismatch means no encrypted field in a batch could be
	// authenticated. The configured field key is almost certainly wrong.
	ErrKeyMismatch = errors.New("field key does not match stored data")

	ErrEmptyEntry = errors.New("entry needs a title or content")
	ErrEmptyName  = errors.New("name is required")
)

// Entry is a decrypted journal entry
type Entry struct {
	ID        string
	Title     string
	Content   string
	Mood      mood.Decoded
	Tags      []string
	FolderID  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EntryInput holds the fields of a new entry. Mood is a display label.
type EntryInput struct {
	Title    string
	Content  string
	Mood     string
	Tags     []string
	FolderID string
}

// EntryPatch holds the fields to change on an entry; nil means unchanged
type EntryPatch struct {
	Title    *string
	Content  *string
	Mood     *string
	Tags     *[]string
	FolderID *string
}

// Folder groups entries
type Folder struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

// Tag labels entries
type Tag struct {
	ID        string
	Name      string
	Color     string
	CreatedAt time.Time
}

// Service is the journal application service
type Service struct {
	store    storage.RecordStore
	fields   *field.Codec
	moods    *mood.Codec
	fieldKey string
	logger   *slog.Logger
	workers  int
}

// NewService creates a journal service. fieldKey is the password every
// field is encrypted under.
func NewService(store storage.RecordStore, fields *field.Codec, fieldKey string, logger *slog.Logger) *Service {
	if fields == nil {
		fields = field.NewCodec(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:    store,
		fields:   fields,
		moods:    mood.NewCodec(fields, logger),
		fieldKey: fieldKey,
		logger:   logger,
		workers:  runtime.GOMAXPROCS(0),
	}
}

// CreateEntry encrypts and stores a new entry
func (s *Service) CreateEntry(ctx context.Context, in EntryInput) (Entry, error) {
	if strings.TrimSpace(in.Title) == "" && strings.TrimSpace(in.Content) == "" {
		return Entry{}, ErrEmptyEntry
	}

	fields, err := s.encryptEntry(ctx, EntryPatch{
		Title:    &in.Title,
		Content:  &in.Content,
		Mood:     &in.Mood,
		Tags:     &in.Tags,
		FolderID: &in.FolderID,
	})
	if err != nil {
		return Entry{}, err
	}

	r, err := s.store.Insert(ctx, TableEntries, storage.Record{Fields: fields})
	if err != nil {
		return Entry{}, fmt.Errorf("failed to save entry: %w", err)
	}
	s.logger.DebugContext(ctx, "entry created", "id", r.ID)
	return s.decryptEntry(ctx, r)
}

// GetEntry loads and decrypts one entry
func (s *Service) GetEntry(ctx context.Context, id string) (Entry, error) {
	r, err := s.getOne(ctx, TableEntries, id)
	if err != nil {
		return Entry{}, err
	}
	return s.decryptEntry(ctx, r)
}

// ListOptions narrows ListEntries
type ListOptions struct {
	FolderID string
}

// ListEntries decrypts every matching entry in parallel.
//
// Rows that fail to decrypt are left out and their errors joined into the
// returned error alongside the rows that succeeded. When every encrypted
// row fails authentication the result is ErrKeyMismatch alone.
func (s *Service) ListEntries(ctx context.Context, opts ListOptions) ([]Entry, error) {
	filter := storage.Filter{}
	if opts.FolderID != "" {
		filter.Fields = map[string]string{fieldFolderID: opts.FolderID}
	}

	records, err := s.store.Get(ctx, TableEntries, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	return decryptAll(ctx, s, records, s.decryptEntry)
}

// UpdateEntry applies a patch to an entry
func (s *Service) UpdateEntry(ctx context.Context, id string, patch EntryPatch) (Entry, error) {
	fields, err := s.encryptEntry(ctx, patch)
	if err != nil {
		return Entry{}, err
	}
	if len(fields) == 0 {
		return s.GetEntry(ctx, id)
	}

	r, err := s.store.Update(ctx, TableEntries, id, fields)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to update entry %s: %w", id, err)
	}
	return s.decryptEntry(ctx, r)
}

// DeleteEntry removes an entry
func (s *Service) DeleteEntry(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, TableEntries, id); err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", id, err)
	}
	return nil
}

// CreateFolder stores a new folder
func (s *Service) CreateFolder(ctx context.Context, name, color string) (Folder, error) {
	r, err := s.createNamed(ctx, TableFolders, name, color)
	if err != nil {
		return Folder{}, err
	}
	return s.decryptFolder(ctx, r)
}

// ListFolders returns every folder
func (s *Service) ListFolders(ctx context.Context) ([]Folder, error) {
	records, err := s.store.Get(ctx, TableFolders, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	return decryptAll(ctx, s, records, s.decryptFolder)
}

// CreateTag stores a new tag
func (s *Service) CreateTag(ctx context.Context, name, color string) (Tag, error) {
	r, err := s.createNamed(ctx, TableTags, name, color)
	if err != nil {
		return Tag{}, err
	}
	return s.decryptTag(ctx, r)
}

// ListTags returns every tag
func (s *Service) ListTags(ctx context.Context) ([]Tag, error) {
	records, err := s.store.Get(ctx, TableTags, storage.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return decryptAll(ctx, s, records, s.decryptTag)
}

func (s *Service) getOne(ctx context.Context, table, id string) (storage.Record, error) {
	records, err := s.store.Get(ctx, table, storage.Filter{ID: id})
	if err != nil {
		return storage.Record{}, fmt.Errorf("failed to load %s %s: %w", table, id, err)
	}
	if len(records) == 0 {
		return storage.Record{}, fmt.Errorf("%s %s: %w", table, id, storage.ErrNotFound)
	}
	return records[0], nil
}

func (s *Service) createNamed(ctx context.Context, table, name, color string) (storage.Record, error) {
	if strings.TrimSpace(name) == "" {
		return storage.Record{}, ErrEmptyName
	}

	encName, err := s.fields.EncryptField(name, s.fieldKey)
	if err != nil {
		return storage.Record{}, err
	}
	encColor, err := s.fields.EncryptField(color, s.fieldKey)
	if err != nil {
		return storage.Record{}, err
	}

	r, err := s.store.Insert(ctx, table, storage.Record{Fields: map[string]string{
		fieldName:  encName,
		fieldColor: encColor,
	}})
	if err != nil {
		return storage.Record{}, fmt.Errorf("failed to save %s: %w", table, err)
	}
	return r, nil
}

func (s *Service) encryptEntry(ctx context.Context, p EntryPatch) (map[string]string, error) {
	out := make(map[string]string)

	for name, v := range map[string]*string{fieldTitle: p.Title, fieldContent: p.Content} {
		if v == nil {
			continue
		}
		enc, err := s.fields.EncryptField(*v, s.fieldKey)
		if err != nil {
			return nil, err
		}
		out[name] = enc
	}

	if p.Mood != nil {
		enc, err := s.moods.Encode(ctx, *p.Mood, s.fieldKey)
		if err != nil {
			return nil, err
		}
		out[fieldMood] = enc
	}

	if p.Tags != nil {
		enc := ""
		if tags := normalizeTags(*p.Tags); len(tags) > 0 {
			data, err := json.Marshal(tags)
			if err != nil {
				return nil, fmt.Errorf("failed to encode tags: %w", err)
			}
			if enc, err = s.fields.EncryptField(string(data), s.fieldKey); err != nil {
				return nil, err
			}
		}
		out[fieldTags] = enc
	}

	if p.FolderID != nil {
		out[fieldFolderID] = *p.FolderID
	}
	return out, nil
}

func (s *Service) decryptEntry(ctx context.Context, r storage.Record) (Entry, error) {
	e := Entry{
		ID:        r.ID,
		FolderID:  r.Fields[fieldFolderID],
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}

	var err error
	if e.Title, err = s.fields.DecryptField(r.Fields[fieldTitle], s.fieldKey); err != nil {
		return Entry{}, fmt.Errorf("entry %s title: %w", r.ID, err)
	}
	if e.Content, err = s.fields.DecryptField(r.Fields[fieldContent], s.fieldKey); err != nil {
		return Entry{}, fmt.Errorf("entry %s content: %w", r.ID, err)
	}
	if e.Mood, err = s.moods.Decode(ctx, r.Fields[fieldMood], s.fieldKey); err != nil {
		return Entry{}, fmt.Errorf("entry %s: %w", r.ID, err)
	}

	tags, err := s.fields.DecryptField(r.Fields[fieldTags], s.fieldKey)
	if err != nil {
		return Entry{}, fmt.Errorf("entry %s tags: %w", r.ID, err)
	}
	e.Tags = parseTags(tags)
	return e, nil
}

func (s *Service) decryptNamed(r storage.Record) (name, color string, err error) {
	if name, err = s.fields.DecryptField(r.Fields[fieldName], s.fieldKey); err != nil {
		return "", "", fmt.Errorf("%s name: %w", r.ID, err)
	}
	if color, err = s.fields.DecryptField(r.Fields[fieldColor], s.fieldKey); err != nil {
		return "", "", fmt.Errorf("%s color: %w", r.ID, err)
	}
	return name, color, nil
}

func (s *Service) decryptFolder(_ context.Context, r storage.Record) (Folder, error) {
	name, color, err := s.decryptNamed(r)
	if err != nil {
		return Folder{}, fmt.Errorf("folder %w", err)
	}
	return Folder{ID: r.ID, Name: name, Color: color, CreatedAt: r.CreatedAt}, nil
}

func (s *Service) decryptTag(_ context.Context, r storage.Record) (Tag, error) {
	name, color, err := s.decryptNamed(r)
	if err != nil {
		return Tag{}, fmt.Errorf("tag %w", err)
	}
	return Tag{ID: r.ID, Name: name, Color: color, CreatedAt: r.CreatedAt}, nil
}

func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[strings.ToLower(t)] {
			continue
		}
		seen[strings.ToLower(t)] = true
		out = append(out, t)
	}
	return out
}

// parseTags reads the JSON list written by encryptEntry. Legacy rows
// stored a comma separated string.
func parseTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(s), &tags); err == nil {
		return normalizeTags(tags)
	}
	return normalizeTags(strings.Split(s, ","))
}
