package engine

// LLM prompt templates.

// PromptTranscript asks a multimodal model for a verbatim transcript of the attached video.
const PromptTranscript = `Transcribe this YouTube video completely and verbatim.
Keep every spoken word in the language it was spoken (Hindi, Marathi or English).
Do not summarize, translate or skip anything.
Output only the transcript text, without headings or commentary.`

// PromptSummary extracts news stories from one transcript.
// Args: video id, language, transcript.
const PromptSummary = `You are a Hindi news summarizer. Pull 8-10 key news stories out of this video transcript.

VIDEO ID: %s
LANGUAGE: %s

TRANSCRIPT:
%s

TASK: list every important news story with as much concrete detail as the transcript gives.

For each story:
- 3-4 sentences in simple Hindi/Hinglish
- what happened, who is involved, dates, numbers, places, quotes
- short background when it helps
- concrete news only: politics, accidents, court cases, government schemes, protests and similar

FORMAT:
[1] Headline - explanation in 3-4 sentences with all facts
[2] Headline - explanation with names, numbers, places
[3] ...

Write 8-10 stories and keep the whole summary under 1500 words.`

// PromptVerify compares video summaries with scraped headlines.
// Args: summaries block, headlines block.
const PromptVerify = `You are a professional news fact-checker. Compare the video summaries below with today's headlines and score their credibility.

VIDEO SUMMARIES:
%s

CURRENT NEWS HEADLINES:
%s

TASK:
1. List the video stories that the headlines confirm.
2. List the video stories that no headline mentions.
3. Give an overall CREDIBILITY score from 0 to 100%%.

FORMAT:
✅ VERIFIED STORIES:
- ...

⚠️ UNVERIFIED STORIES:
- ...

📊 CREDIBILITY SCORE: X%%

EXPLANATION: one or two sentences on how the score was reached.`

// PromptScripts generates reels scripts.
// Args: script count, summaries block, verification text, script count.
const PromptScripts = `You are India's top viral Instagram Reels scriptwriter for Hindi news.

Write %d long, high-energy Instagram Reels scripts in HINGLISH (about 55%% Hindi, 45%% English).

NEWS SUMMARIES:
%s

VERIFICATION:
%s

RULES FOR EVERY SCRIPT:
1. LENGTH: 450-550 words. Shorter scripts are rejected.
2. STORIES: cover 7-9 different stories from the summaries with full details.
3. LANGUAGE: natural Hinglish, the way a Mumbai creator talks on camera.
4. TONE: energetic and conversational, like a news influencer.
5. STRUCTURE:
   - hook in the first 10-15 seconds
   - each story in 30-40 seconds with names, numbers, dates and places
   - strong ending with a call to action (follow, share, comment)
6. EMOJI: 1-2 emoji per story at most, never in the middle of a number or name.
7. AVOID: "namaskar doston" openers, repeating the same hook across scripts, made-up facts,
   stories marked unverified presented as confirmed, hashtags inside the script body,
   citation markers like [1].

OUTPUT FORMAT, repeated for each script:
═══════════════════════
SCRIPT <number>
═══════════════════════
TITLE: <catchy Hinglish title>
THEME: <theme category>
WORD COUNT: <actual word count>

<full script text>
═══════════════════════

Write all %d scripts now. Every script must be different.`
