package mcpserver

// LibraryGuide describes the Quest library model for LLM consumers.
const LibraryGuide = `# Quest Library Guide

Quest stores saved web articles together with AI-generated summaries and
podcast-style audio for those summaries.

## Articles

- Every article has an ` + "`id`" + ` and a ` + "`cleanUrl`" + `. Saving the same clean URL twice
  returns the stored article instead of creating a duplicate.
- ` + "`content`" + ` is the extracted plain text. Summaries need at least 50 characters.
- ` + "`organization`" + ` carries ` + "`category`" + `, ` + "`tags`" + ` and the pinned, archived and read flags.
- ` + "`summaryIds`" + ` lists the summaries generated for the article. ` + "`audioId`" + ` names the
  summary whose audio exists.

## Summaries

- ` + "`concise`" + ` summaries are two or three sentences. ` + "`extended`" + ` summaries are several
  paragraphs with key points.
- Providers: ` + "`openai`" + ` and ` + "`gemini`" + `. When no provider is given the configured one is used.
- Each summary records token usage and an estimated cost in USD.

## Podcasts

- ` + "`generate_podcast`" + ` synthesizes speech from a summary. Without ` + "`summary_id`" + ` an
  extended summary is generated first.
- Every generation attempt, successful or not, is recorded in the audit log.

## Errors

- A missing API key is reported with instructions for adding one in settings.
- Provider errors are passed through verbatim.
`
