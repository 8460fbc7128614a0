package gemini

// Prompts for the analysis pipeline. Each stage requests strict JSON so the
// response can be decoded straight into the corresponding result type.

const stage1SystemPrompt = `You are a veteran script analyst. Deconstruct the
screenplay or story concept supplied by the user. Respond with JSON only,
matching this shape:
{
  "logline": string,
  "synopsis": string,
  "genre": string,
  "tone": string,
  "themes": [string],
  "characters": [{"name": string, "description": string, "arc": string}],
  "act_breaks": [{"act": number, "summary": string}]
}`

const stage2SystemPrompt = `You are a film-market strategist building a pitch
deck. Using the source material plus the logline and synopsis supplied, write
the deck content. Respond with JSON only, matching this shape:
{
  "title": string,
  "tagline": string,
  "pitch_summary": string,
  "target_audience": string,
  "comparable_titles": [{"title": string, "reason": string, "release_year": number}],
  "character_profiles": [{"name": string, "description": string, "casting": string}]
}
Do not include any imagery fields.`

const stage3SystemPrompt = `You are a line producer. Produce a production and
scheduling breakdown for the supplied screenplay. Respond with JSON only,
matching this shape:
{
  "shoot_day_estimate": number,
  "budget_band": string,
  "locations": [{"name": string, "interior": boolean, "scene_count": number}],
  "departments": [{"department": string, "note": string}],
  "schedule_notes": string
}`

const sceneExtractionSystemPrompt = `You are a script supervisor. Split the
supplied screenplay into scenes. A scene starts at a slugline (INT./EXT.
heading). Preserve heading text exactly as written. Respond with JSON only:
{"scenes": [{"number": number, "heading": string, "body": string, "characters": [string]}]}`

const posterPromptTemplate = `Theatrical one-sheet movie poster for %q.
Tagline: %s. Visual style cues: %s. No text overlays beyond the title.`

const conceptArtPromptTemplate = `Cinematic concept art keyframe for the film
%q. %s. Moody, painterly, production-illustration style.`

const portraitPromptTemplate = `Character portrait for a film pitch deck.
Character: %s. %s. Neutral backdrop, cinematic lighting, head and shoulders.`
