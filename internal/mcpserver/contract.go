package mcpserver

// NoteFormatContract describes the note format that LLM consumers should
// follow when reading or creating notes.
const NoteFormatContract = `# Quill Note Format Contract

Notes live in category directories directly under the notes root. Every
category is one top-level directory; nested directories are ignored.

## Structure

` + "```" + `markdown
---
title: Human-readable title
description: One line summary
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. **The header opens the file.** The first line must be exactly ` + "`---`" + `.
   Without it the file is not a note and is never listed.
2. **` + "`title:`" + ` is required.** A file whose header has no title line is skipped.
   Titles are single-line and at most 255 bytes.
3. **` + "`description:`" + ` is optional** and also single-line.
4. **Only these two keys are read.** Other header lines are kept but ignored.
   Keys are matched at the start of the line and are case-sensitive.
5. **The header ends** at the next line that is exactly ` + "`---`" + `.
6. **File names** contain ` + "`.md`" + `; files starting with a dot are hidden.
   Tools name new files after the creation time, so never rely on the name.
7. **Titles identify notes** inside a category. Two files with the same title
   are both listed, but lookups return the one with the smallest path.

## Tools

- ` + "`create_note`" + ` writes the header for you from ` + "`title`" + ` and ` + "`description`" + `.
- ` + "`read_note`" + ` returns the whole file, header included.
- ` + "`search_notes`" + ` matches titles, descriptions and bodies.

## Example

` + "```" + `markdown
---
title: Pipes
description: Inter-process communication on Unix
---

A pipe connects the stdout of one process to the stdin of another.
` + "```" + `
`
