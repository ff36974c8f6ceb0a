package mcpserver

// NoteFormatContract describes how notes are shaped so LLM consumers write
// valid entries.
const NoteFormatContract = `# Daybook Note Format

The journal is a list of notes. Each note belongs to one calendar day and
holds an ordered list of content items, newest first.

## Note

` + "```" + `json
{
  "user": "DEFAULT",
  "date": "20250120",
  "contents": [
    {"id": "4b1c...", "header": "Standup", "content": "Shipped the importer."}
  ]
}
` + "```" + `

## Rules

1. **date** is the note key: eight digits, YYYYMMDD, a real calendar day.
   Two notes never share a date.
2. **header** is at most 100 characters. **content** is free text.
3. **id** identifies a content item inside its note. Leave it empty when
   adding; the server assigns one.
4. Renaming a note onto a date that another note uses is rejected.

## Tools

- ` + "`" + `list_notes` + "`" + ` returns dates and headers, newest first.
- ` + "`" + `read_note` + "`" + ` returns one note as JSON.
- ` + "`" + `upsert_content` + "`" + ` adds a content item, or replaces one when ` + "`" + `id` + "`" + ` is given.
  A missing note is created.
- ` + "`" + `delete_note` + "`" + ` removes a whole day.
- ` + "`" + `session_state` + "`" + ` reports the bound file and whether edits are unsaved.
`
