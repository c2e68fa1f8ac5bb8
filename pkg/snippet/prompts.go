package snippet

import "encoding/json"

const ideasSystemPrompt = `You propose interactive tools to embed in a blog post.

You receive the post's title, its section headings, and an excerpt of its body text. Suggest up to 3 interactive tools (calculators, quizzes, checklists, converters, planners) a reader of this exact post would actually use. Suggest fewer, or none, when the post has no tool opportunity. Never pad the list with generic ideas.

Each idea needs:
- title: short name for the tool.
- description: one sentence on what the reader puts in and gets out.
- icon: one of calculator, quiz, checklist, converter, planner, chart, timer.

Respond ONLY with JSON following this schema:
{"ideas": [{"title": string, "description": string, "icon": string}]}`

var ideasSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "ideas": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "title": {"type": "string"},
          "description": {"type": "string"},
          "icon": {"type": "string", "enum": ["calculator", "quiz", "checklist", "converter", "planner", "chart", "timer"]}
        },
        "required": ["title", "description", "icon"]
      }
    }
  },
  "required": ["ideas"]
}`)

const generateSystemPrompt = `You build a single self-contained HTML document implementing an interactive tool for a blog post.

Rules:
- Output one complete HTML document, <!DOCTYPE html> through </html>.
- All CSS in a <style> block and all JavaScript in a <script> block inside the document. No external resources, no CDN links, no imports.
- Use semantic HTML and aria attributes; label every input.
- Show results inside a dedicated element that is visually distinct from the inputs.
- Include a <script type="application/ld+json"> block describing the tool as a WebApplication.
- The tool must work offline in an iframe with JavaScript enabled and no network access.
- Output raw HTML only. No markdown fences, no commentary before or after the document.`

const refreshSystemPrompt = generateSystemPrompt + `

You are revising an existing tool. Keep its purpose and its input fields unless the revision notes say otherwise, and return the full revised document, never a diff.`
