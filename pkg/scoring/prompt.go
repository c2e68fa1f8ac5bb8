package scoring

import "encoding/json"

// The scoring criteria live entirely in the prompt; nothing in code enforces
// the 0-100 range on what comes back.
const scoringSystemPrompt = `You rate blog posts on how well an embedded interactive tool (calculator, quiz, checklist, converter, planner) would serve their readers.

You receive JSON: {"posts": [{"id": number, "title": string}]}.

For every post, assign an opportunityScore from 0 to 100:
- 90-100: high-intent instructional topics where readers compute, convert, plan, or decide something ("how to calculate mortgage payments", "how much paint do I need").
- 50-89: topics where a tool would help but is not the main draw.
- 21-49: loosely tool-adjacent topics.
- 0-20: news, opinion, announcements, and other low-utility-for-tools content.

Also write a one-sentence opportunityRationale per post.

Respond ONLY with JSON following this schema:
{"posts": [{"id": number, "opportunityScore": number, "opportunityRationale": string}]}

Every input id must appear exactly once. Do not invent ids.`

// scoreSchema is forwarded to providers that support transport-level
// structured output (Gemini's responseSchema); the rest rely on the prompt.
var scoreSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "posts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "integer"},
          "opportunityScore": {"type": "integer"},
          "opportunityRationale": {"type": "string"}
        },
        "required": ["id", "opportunityScore", "opportunityRationale"]
      }
    }
  },
  "required": ["posts"]
}`)
