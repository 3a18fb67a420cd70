package mcpserver

// NoteFormatContract describes how Inkwell derives note metadata from plain
// text, so LLM consumers know what a note will look like once stored.
const NoteFormatContract = `# Inkwell Note Format

A note is plain text (Markdown is rendered but never required). Everything
except the content is derived by Inkwell and cannot be set directly.

## Derived fields

1. **title**: the first line, trimmed. A blank first line gives
   "Untitled Note".
2. **words**: whitespace-separated tokens in the whole note; a token that is only a #tag is not counted.
3. **chars**: characters in the whole note, whitespace included.
4. **readingTime**: minutes at 200 words per minute, rounded up, at least 1.
5. **tags**: every ` + "`" + `#word` + "`" + ` (letters, digits, underscore) in order of
   appearance, without the ` + "`" + `#` + "`" + `. Repeats are kept.
6. **preview**: the first line cut to 100 characters, untrimmed.

## Identity and ordering

- Ids are numbers assigned on creation and never change.
- Lists are ordered most recently modified first.
- Editing replaces the whole content and refreshes every derived field.
- Blank content is rejected.

## Search

Queries are split on whitespace. A note matches when its content contains
every term, ignoring case. Terms match inside words: ` + "`" + `cat` + "`" + ` matches
"concatenate".

## Example

` + "```" + `markdown
Weekly standup
Attendees: Alice, Bob. #meeting #project_x

- review the design doc
` + "```" + `

Title "Weekly standup", tags [meeting, project_x].
`
