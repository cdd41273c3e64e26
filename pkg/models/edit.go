package models

// EditData is a backend-produced edit suggestion. Immutable once received.
type EditData struct {
	EditID      string      `json:"edit_id"`
	Original    string      `json:"original"`
	Proposed    string      `json:"proposed"`
	Reason      string      `json:"reason,omitempty"`
	Confidence  float64     `json:"confidence"`
	SectionInfo SectionInfo `json:"section_info"`
	EditType    string      `json:"edit_type,omitempty"`
}

// SectionInfo locates an edit inside the document.
type SectionInfo struct {
	Identifier string `json:"identifier,omitempty"`
	SectionID  string `json:"section_id,omitempty"`
	Title      string `json:"title,omitempty"`
}

// TextChange is one minimal edit produced by the diff engine for a section.
// Ephemeral: consumed once per save operation.
type TextChange struct {
	SectionIdentifier string `json:"section_identifier"`
	SectionID         string `json:"section_id,omitempty"`
	OriginalText      string `json:"original_text"`
	NewText           string `json:"new_text"`
}

// EditRequest asks the backend to preview or commit one TextChange.
type EditRequest struct {
	SessionID  string     `json:"session_id"`
	ProjectID  string     `json:"project_id"`
	Change     TextChange `json:"change"`
	Preview    bool       `json:"preview"`
	ApplyToAll bool       `json:"apply_to_all"`
}

// EditResult is the backend's answer to an EditRequest. In preview mode only
// PreviewHTML may be set; after a commit HTMLContent carries the full updated
// document when the backend returns it.
type EditResult struct {
	PreviewMode       bool   `json:"preview_mode"`
	PreviewHTML       string `json:"preview_html,omitempty"`
	HTMLContent       string `json:"html_content,omitempty"`
	ReplacementsCount int    `json:"replacements_count"`
}
