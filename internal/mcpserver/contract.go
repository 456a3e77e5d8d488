package mcpserver

// NoteFormatContract describes the canonical interchange YAML format that
// LLM consumers should follow when creating or importing notes.
const NoteFormatContract = `# Ansuz Note Format Contract

Every note imported into Ansuz MUST follow this interchange YAML structure.

## Structure

` + "```" + `yaml
id: note-id                # OPTIONAL on import - generated when omitted
title: Human-readable title
blocks:                     # REQUIRED - at least one block
  - id: block-1             # OPTIONAL - generated when omitted
    title: Block title      # REQUIRED - shown in the outline and mention picker
    kind: paragraph         # OPTIONAL - paragraph (default), heading, list_item,
                            # code, quote, math_block, image, file, video, audio
    content: |              # OPTIONAL - body text with inline tokens
      Plain text with [[Other Block|block-2]] references.
    src_url: /media/x.png   # OPTIONAL - media source for image/file/video/audio
    refs:                   # OPTIONAL - ids this block references
      - block-2
    children:               # OPTIONAL - nested blocks, same shape
      - id: block-1-1
        title: Child block
` + "```" + `

## Rules

1. **The ` + "`" + `blocks` + "`" + ` list is mandatory.** A document without it is rejected
   as not an interchange document.
2. **Every block needs a ` + "`" + `title` + "`" + `.** It is the display name in the outline,
   the mention picker, and reference tokens.
3. **Block ids must be unique** across the whole document, including nested
   children. Omitted ids are generated on import.
4. **References use double brackets:** ` + "`" + `[[Title|id]]` + "`" + ` inside content, where
   the id names the target block. A bare ` + "`" + `[[Title]]` + "`" + ` token is matched
   positionally against the block's ` + "`" + `refs` + "`" + ` list.
5. **Only leaf blocks may be referenced.** A block with children is a grouping
   node; pointing a reference at it fails validation.
6. **Nesting is expressed through ` + "`" + `children` + "`" + `**, not through indentation
   levels; depth is derived on import.
7. **Inline math** uses single dollar fences: ` + "`" + `$E = mc^2$` + "`" + `. Style marks
   use Markdown delimiters: ` + "`" + `**bold**` + "`" + `, ` + "`" + `*italic*` + "`" + `,
   ` + "`" + `~~strike~~` + "`" + `, and backticks for inline code.
8. **Encoding** is UTF-8.
9. **Importing a document whose ` + "`" + `id` + "`" + ` names an existing note fails** with a
   conflict. Replace a note explicitly by passing its id to the
   ` + "`" + `import_note_yaml` + "`" + ` tool.

## Media

- Upload files via the ` + "`" + `upload_media` + "`" + ` tool. It returns the ` + "`" + `src_url` + "`" + `
  to put in the block, plus the block ` + "`" + `kind` + "`" + ` the file belongs in.
- Media is stored in the shared ` + "`" + `media/` + "`" + ` directory (flat, no sub-folders).
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf, mp3, wav, mp4, webm.

## Example

` + "```" + `yaml
id: sorting-algorithms
title: Sorting Algorithms
blocks:
  - id: overview
    title: Overview
    content: Comparison-based sorts are bounded by [[Lower Bound|lower-bound]].
    refs:
      - lower-bound
  - id: comparison-sorts
    title: Comparison Sorts
    children:
      - id: quicksort
        title: Quicksort
        content: Average case $O(n \log n)$.
      - id: lower-bound
        title: Lower Bound
        content: No comparison sort beats $\Omega(n \log n)$.
` + "```" + `
`
