package gcsuploader

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dvloznov/imoveis-tracker/internal/domain"
	"github.com/dvloznov/imoveis-tracker/internal/logger"
)

const backupPrefix = "backups/"

// ObjectName is the object a backup taken at t is written to.
func ObjectName(t time.Time) string {
	return backupPrefix + t.UTC().Format("20060102T150405Z") + ".jsonl"
}

// EncodeJSONL writes one entry per line.
func EncodeJSONL(entries []domain.FinancialEntry) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return nil, fmt.Errorf("encode entry %s: %w", e.ID, err)
		}
	}
	return buf.Bytes(), nil
}

// DecodeJSONL reads entries written by EncodeJSONL. Blank lines are skipped.
func DecodeJSONL(data []byte) ([]domain.FinancialEntry, error) {
	var entries []domain.FinancialEntry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e domain.FinancialEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan backup: %w", err)
	}
	return entries, nil
}

// Backup uploads every entry to bucket and returns the gs:// URI written.
func Backup(ctx context.Context, svc StorageService, bucket string, entries []domain.FinancialEntry, now time.Time) (string, error) {
	if bucket == "" {
		return "", fmt.Errorf("Backup: no bucket configured")
	}
	data, err := EncodeJSONL(entries)
	if err != nil {
		return "", fmt.Errorf("Backup: %w", err)
	}
	object := ObjectName(now)
	if err := svc.Upload(ctx, bucket, object, data); err != nil {
		return "", fmt.Errorf("Backup: %w", err)
	}

	uri := URI(bucket, object)
	log := logger.FromContext(ctx)
	log.Info().
		Str("uri", uri).
		Int("entries", len(entries)).
		Msg("Backup uploaded")
	return uri, nil
}

// Restore downloads a backup and decodes its entries.
func Restore(ctx context.Context, svc StorageService, uri string) ([]domain.FinancialEntry, error) {
	bucket, object, err := ParseURI(uri)
	if err != nil {
		return nil, fmt.Errorf("Restore: %w", err)
	}
	data, err := svc.Download(ctx, bucket, object)
	if err != nil {
		return nil, fmt.Errorf("Restore: %w", err)
	}
	entries, err := DecodeJSONL(data)
	if err != nil {
		return nil, fmt.Errorf("Restore %s: %w", uri, err)
	}
	return entries, nil
}
