package store

import (
	"context"
	"encoding/json"

	"sentryd/internal/errs"
	"sentryd/internal/logging"
)

// PutNamespaceEntry writes value (marshaled to JSON) under (namespace, key)
// in this language store's secondary key-value namespace. Used for
// false_positives, issue_validations, context_rules, and
// intelligent_fix_generator records (spec §3 "Language Store").
func (h *Handle) PutNamespaceEntry(ctx context.Context, namespace, key string, value interface{}) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.readOnly {
		return errs.New(errs.KindCorruptStore, "store %s is read-only", h.language)
	}
	data, err := json.Marshal(value)
	if err != nil {
		return errs.Wrap(errs.KindInvalidMetadata, err, "failed to serialize namespace entry %s/%s", namespace, key)
	}
	_, err = h.db.ExecContext(ctx,
		`INSERT INTO namespace_entries (namespace, key, value, updated_at) VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(namespace, key) DO UPDATE SET value=excluded.value, updated_at=CURRENT_TIMESTAMP`,
		namespace, key, string(data))
	if err != nil {
		return errs.Wrap(errs.KindStorageError, err, "failed to write namespace entry %s/%s", namespace, key)
	}
	logging.StoreDebug("store[%s]: wrote namespace entry %s/%s", h.language, namespace, key)
	return nil
}

// GetNamespaceEntry unmarshals the value stored at (namespace, key) into out.
func (h *Handle) GetNamespaceEntry(ctx context.Context, namespace, key string, out interface{}) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var data string
	err := h.db.QueryRowContext(ctx,
		`SELECT value FROM namespace_entries WHERE namespace = ? AND key = ?`, namespace, key).Scan(&data)
	if err != nil {
		return errs.Wrap(errs.KindNotFound, err, "namespace entry %s/%s not found", namespace, key)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return errs.Wrap(errs.KindStorageError, err, "failed to decode namespace entry %s/%s", namespace, key)
	}
	return nil
}

// ListNamespace returns every key currently stored under namespace.
func (h *Handle) ListNamespace(ctx context.Context, namespace string) ([]string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rows, err := h.db.QueryContext(ctx, `SELECT key FROM namespace_entries WHERE namespace = ? ORDER BY key`, namespace)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageError, err, "failed to list namespace %s", namespace)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			continue
		}
		keys = append(keys, k)
	}
	return keys, nil
}

// DeleteNamespaceEntry removes (namespace, key), if present.
func (h *Handle) DeleteNamespaceEntry(ctx context.Context, namespace, key string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.readOnly {
		return errs.New(errs.KindCorruptStore, "store %s is read-only", h.language)
	}
	_, err := h.db.ExecContext(ctx, `DELETE FROM namespace_entries WHERE namespace = ? AND key = ?`, namespace, key)
	if err != nil {
		return errs.Wrap(errs.KindStorageError, err, "failed to delete namespace entry %s/%s", namespace, key)
	}
	return nil
}
