package embedding

import (
	"strings"

	"sentryd/internal/logging"
)

// =============================================================================
// TASK TYPE SELECTION
//
// The embedding oracle (C2) embeds several distinct kinds of text: the code
// snippet attached to a pattern record, the natural-language description of
// an issue, a fix template, and a connector search query. GenAI's task_type
// parameter changes how the model weights the embedding for retrieval vs.
// similarity, so picking the right one measurably improves FindTopK quality.
// =============================================================================

// ContentType represents the kind of content being embedded.
type ContentType string

const (
	ContentTypeCode          ContentType = "code"          // Raw source snippet attached to a pattern record
	ContentTypeIssue         ContentType = "issue"         // Issue description / rationale text
	ContentTypeFixTemplate   ContentType = "fix_template"  // Fix generator template body
	ContentTypeQuery         ContentType = "query"         // Connector/search query text
	ContentTypeDocumentation ContentType = "documentation" // Comments, docstrings, README excerpts
)

// SelectTaskType chooses the GenAI task type for a content type and direction.
// isQuery distinguishes a search query from the document being indexed -
// GenAI scores retrieval pairs better when each side declares its role.
func SelectTaskType(contentType ContentType, isQuery bool) string {
	logging.EmbeddingDebug("SelectTaskType: content_type=%s, is_query=%v", contentType, isQuery)

	var taskType string

	switch contentType {
	case ContentTypeCode:
		if isQuery {
			taskType = "CODE_RETRIEVAL_QUERY"
		} else {
			taskType = "RETRIEVAL_DOCUMENT"
		}

	case ContentTypeQuery:
		taskType = "RETRIEVAL_QUERY"

	case ContentTypeFixTemplate, ContentTypeDocumentation:
		taskType = "RETRIEVAL_DOCUMENT"

	case ContentTypeIssue:
		taskType = "SEMANTIC_SIMILARITY"

	default:
		taskType = "SEMANTIC_SIMILARITY"
		logging.EmbeddingDebug("SelectTaskType: unknown content_type=%s, defaulting to SEMANTIC_SIMILARITY", contentType)
	}

	logging.EmbeddingDebug("SelectTaskType: selected task_type=%s", taskType)
	return taskType
}

// DetectContentType auto-detects content type from text and pattern-record metadata
// when the caller has not tagged it explicitly.
func DetectContentType(text string, metadata map[string]interface{}) ContentType {
	logging.EmbeddingDebug("DetectContentType: analyzing text (length=%d chars), metadata_keys=%d", len(text), len(metadata))

	text = strings.ToLower(text)

	if meta, ok := metadata["content_type"].(string); ok {
		logging.EmbeddingDebug("DetectContentType: found explicit content_type in metadata: %s", meta)
		return ContentType(meta)
	}

	if metaType, ok := metadata["type"].(string); ok {
		logging.EmbeddingDebug("DetectContentType: found type field in metadata: %s", metaType)
		switch metaType {
		case "query", "search_query":
			return ContentTypeQuery
		case "code", "source_code", "pattern_snippet":
			return ContentTypeCode
		case "fix_template", "fix":
			return ContentTypeFixTemplate
		case "documentation", "docs", "comment":
			return ContentTypeDocumentation
		case "issue", "issue_description":
			return ContentTypeIssue
		}
	}

	logging.EmbeddingDebug("DetectContentType: no metadata match, analyzing content heuristics")

	codeIndicators := []string{
		"func ", "function ", "class ", "def ", "import ", "package ",
		"const ", "var ", "let ", "interface ", "struct ", "type ",
		"{", "}", "=>", "->", "//", "/*", "*/", "public ", "private ",
	}
	codeScore := 0
	for _, indicator := range codeIndicators {
		if strings.Contains(text, indicator) {
			codeScore++
		}
	}
	logging.EmbeddingDebug("DetectContentType: code_score=%d (threshold=3)", codeScore)
	if codeScore >= 3 {
		return ContentTypeCode
	}

	docIndicators := []string{"# ", "## ", "### ", "/**", "* @param", "* @return", "readme"}
	for _, indicator := range docIndicators {
		if strings.Contains(text, indicator) {
			logging.EmbeddingDebug("DetectContentType: detected as documentation based on indicator: %s", indicator)
			return ContentTypeDocumentation
		}
	}

	logging.EmbeddingDebug("DetectContentType: no specific pattern matched, defaulting to issue")
	return ContentTypeIssue
}

// GetOptimalTaskType combines detection and selection for convenience.
func GetOptimalTaskType(text string, metadata map[string]interface{}, isQuery bool) string {
	logging.EmbeddingDebug("GetOptimalTaskType: starting auto-detection for text (length=%d), is_query=%v", len(text), isQuery)

	contentType := DetectContentType(text, metadata)
	taskType := SelectTaskType(contentType, isQuery)

	logging.Embedding("GetOptimalTaskType: detected content_type=%s -> task_type=%s", contentType, taskType)
	return taskType
}
