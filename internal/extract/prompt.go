package extract

import "strings"

// tablePrompt asks the model for the single most significant table as a bare
// JSON array. The cleaning pass downstream handles whatever noise the model
// leaves behind; the prompt just front-loads the same rules.
const tablePrompt = `Extract the single largest or most significant table from the provided document.

Rules:
- Use the table's header row as JSON object keys, exactly as written.
- Emit one JSON object per data row, in table order.
- Keep all values as strings, exactly as they appear in the cell.
- If the document contains no table, return an empty array: []
- Respond with ONLY the JSON array. No prose, no markdown fences.`

// buildPrompt combines the standard extraction prompt with optional caller
// instructions and, for textual documents, the document body itself.
func buildPrompt(doc Document, instructions string) string {
	var b strings.Builder
	b.WriteString(tablePrompt)
	if instructions != "" {
		b.WriteString("\n\nAdditional instructions:\n")
		b.WriteString(instructions)
	}
	if doc.IsTextual() {
		b.WriteString("\n\nDocument:\n")
		b.Write(doc.Data)
	}
	return b.String()
}
