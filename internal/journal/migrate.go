package journal

import (
	"context"
	"fmt"

	"github.com/jotvault/jotvault/internal/storage"
)

// MigrateReport counts the records Migrate rewrote, per table
type MigrateReport struct {
	Entries int
	Folders int
	Tags    int
}

// Total is the number of rewritten records
func (r MigrateReport) Total() int {
	return r.Entries + r.Folders + r.Tags
}

// Migrate encrypts every legacy plaintext field still in the store.
// Fields that are already envelopes are left alone, so running it twice
// is a no-op. Legacy mood spellings are rewritten as canonical tokens.
func (s *Service) Migrate(ctx context.Context) (MigrateReport, error) {
	var report MigrateReport
	var err error

	if report.Entries, err = s.migrateTable(ctx, TableEntries, []string{fieldTitle, fieldContent, fieldMood, fieldTags}); err != nil {
		return report, err
	}
	if report.Folders, err = s.migrateTable(ctx, TableFolders, []string{fieldName, fieldColor}); err != nil {
		return report, err
	}
	if report.Tags, err = s.migrateTable(ctx, TableTags, []string{fieldName, fieldColor}); err != nil {
		return report, err
	}

	s.logger.InfoContext(ctx, "migration finished",
		"entries", report.Entries, "folders", report.Folders, "tags", report.Tags)
	return report, nil
}

func (s *Service) migrateTable(ctx context.Context, table string, names []string) (int, error) {
	records, err := s.store.Get(ctx, table, storage.Filter{})
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", table, err)
	}

	migrated := 0
	for _, r := range records {
		partial := make(map[string]string)
		for _, name := range names {
			v := r.Fields[name]
			if v == "" || s.fields.IsEncrypted(v) {
				continue
			}
			enc, err := s.migrateValue(ctx, name, v)
			if err != nil {
				return migrated, fmt.Errorf("%s %s %s: %w", table, r.ID, name, err)
			}
			partial[name] = enc
		}
		if len(partial) == 0 {
			continue
		}

		if _, err := s.store.Update(ctx, table, r.ID, partial); err != nil {
			return migrated, fmt.Errorf("failed to update %s %s: %w", table, r.ID, err)
		}
		s.logger.DebugContext(ctx, "migrated record", "table", table, "id", r.ID, "fields", len(partial))
		migrated++
	}
	return migrated, nil
}

func (s *Service) migrateValue(ctx context.Context, name, plaintext string) (string, error) {
	switch name {
	case fieldMood:
		d, err := s.moods.Decode(ctx, plaintext, s.fieldKey)
		if err != nil {
			return "", err
		}
		return s.moods.Encode(ctx, d.Label, s.fieldKey)
	case fieldTags:
		p := EntryPatch{Tags: ptr(parseTags(plaintext))}
		fields, err := s.encryptEntry(ctx, p)
		if err != nil {
			return "", err
		}
		return fields[fieldTags], nil
	default:
		return s.fields.EncryptField(plaintext, s.fieldKey)
	}
}

func ptr[T any](v T) *T {
	return &v
}
