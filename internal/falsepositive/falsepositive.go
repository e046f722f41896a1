// Package falsepositive implements the False Positive Filter (C6): before
// an Issue reaches a fix generator or a user, it is checked against a
// per-language store of confirmed false positives, keyed by a normalized
// signature so trivial edits (renumbered lines, reformatted whitespace)
// still match the same confirmed entry.
package falsepositive

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"sentryd/internal/model"
	"sentryd/internal/store"
)

// Namespace is the key-value namespace this filter reads and writes via
// Handle.PutNamespaceEntry/GetNamespaceEntry/ListNamespace.
const Namespace = "false_positives"

// Entry is the persisted record for one confirmed or rejected false
// positive signature.
type Entry struct {
	Signature string `json:"signature"`
	IssueType string `json:"issue_type"`
	Confirmed bool   `json:"confirmed"`
	Reason    string `json:"reason,omitempty"`
}

// Filter drops issues matching a confirmed false-positive signature for
// their language, and records new confirmations (Confirm) back into the
// store.
type Filter struct {
	markdownHeader   *regexp.Regexp
	bugTrackingID    *regexp.Regexp
}

// New returns a ready-to-use Filter.
func New() *Filter {
	return &Filter{
		markdownHeader: regexp.MustCompile(`^\s*#{1,6}\s`),
		bugTrackingID:  regexp.MustCompile(`(?i)\b(JIRA|[A-Z]{2,}-\d+|#\d+)\b`),
	}
}

// Signature computes the stable identity of an issue: its type plus a
// normalized file context (the containing function/class name is out of
// scope here, so the file's basename stands in) and normalized line
// content (trimmed, collapsed whitespace), so the same real-world finding
// still matches after an unrelated line shifts it up or down (spec §4.6).
func Signature(issueType, filePath, lineContent string) string {
	normalizedContext := normalizeContext(filePath)
	normalizedLine := normalizeLine(lineContent)
	h := sha256.Sum256([]byte(issueType + "|" + normalizedContext + "|" + normalizedLine))
	return hex.EncodeToString(h[:])
}

func normalizeContext(filePath string) string {
	idx := strings.LastIndexByte(filePath, '/')
	if idx >= 0 {
		return filePath[idx+1:]
	}
	return filePath
}

func normalizeLine(line string) string {
	fields := strings.Fields(line)
	return strings.Join(fields, " ")
}

// Apply drops every issue in issues whose signature matches a confirmed
// false-positive entry in localStore, reading file content to compute each
// issue's line-content signature. It returns the surviving issues and the
// count dropped.
func (f *Filter) Apply(ctx context.Context, issues []model.Issue, fileContents map[string][]byte, localStore *store.Handle) ([]model.Issue, int, error) {
	lineCache := make(map[string][]string)
	var kept []model.Issue
	dropped := 0

	for _, iss := range issues {
		if f.looksLikeObviousNonIssue(iss, fileContents) {
			dropped++
			continue
		}

		lines, ok := lineCache[iss.FilePath]
		if !ok {
			lines = splitLines(fileContents[iss.FilePath])
			lineCache[iss.FilePath] = lines
		}
		lineContent := ""
		if iss.Line >= 1 && iss.Line <= len(lines) {
			lineContent = lines[iss.Line-1]
		}
		sig := Signature(iss.Type, iss.FilePath, lineContent)

		var entry Entry
		err := localStore.GetNamespaceEntry(ctx, Namespace, sig, &entry)
		if err == nil && entry.Confirmed {
			dropped++
			continue
		}
		kept = append(kept, iss)
	}
	return kept, dropped, nil
}

// looksLikeObviousNonIssue applies cheap, signature-free exclusion
// heuristics: a technical-debt marker inside a markdown heading, or one
// whose line references a bug-tracking ID (meaning the work is already
// tracked, not forgotten), is not worth a round trip through the store.
func (f *Filter) looksLikeObviousNonIssue(iss model.Issue, fileContents map[string][]byte) bool {
	if !strings.HasPrefix(iss.Type, "technical_debt_") {
		return false
	}
	lines := splitLines(fileContents[iss.FilePath])
	if iss.Line < 1 || iss.Line > len(lines) {
		return false
	}
	line := lines[iss.Line-1]
	if f.markdownHeader.MatchString(line) {
		return true
	}
	if f.bugTrackingID.MatchString(line) {
		return true
	}
	return false
}

// Confirm records sig as a confirmed false positive — the user-rejection
// signal that future Apply calls read to drop matching issues. It writes
// only the false_positives namespace entry; no Pattern Record's quality
// score changes.
func (f *Filter) Confirm(ctx context.Context, localStore *store.Handle, sig, issueType, reason string) error {
	return localStore.PutNamespaceEntry(ctx, Namespace, sig, Entry{
		Signature: sig,
		IssueType: issueType,
		Confirmed: true,
		Reason:    reason,
	})
}

func splitLines(content []byte) []string {
	if content == nil {
		return nil
	}
	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
