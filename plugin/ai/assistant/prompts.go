package assistant

const summarySystemPrompt = "You are an expert video analyst. Be concise and factual."

const summaryPrompt = `Summarize the following video transcript.

TRANSCRIPT:
%s

Use these sections:

VIDEO OVERVIEW
Two or three sentences on what the video is about.

KEY POINTS
Five numbered points, each with a short explanation.

IMPORTANT MOMENTS
Three to five key moments, with approximate timestamps when the transcript has them.

CORE TAKEAWAY
The single most important insight in two or three sentences.

WHO SHOULD WATCH
Who benefits most from this video.

%s

Do not add information that is not in the transcript.`

const deepDiveSystemPrompt = "You are an expert analyst. Analyze strictly based on the provided content."

const deepDivePrompt = `Analyze this video transcript in depth.

TRANSCRIPT:
%s

Cover:
- Main arguments and the evidence given for them
- Methods or frameworks mentioned
- Numbers, statistics and data points
- Notable quotes or expert opinions
- Counterpoints or debates addressed
- Practical applications

%s

Base the analysis strictly on the transcript.`

const actionPointsSystemPrompt = "You are a productivity expert extracting action items from video content."

const actionPointsPrompt = `Extract actionable items from this video transcript.

TRANSCRIPT:
%s

Group them as:
- Immediate actions (today)
- Short-term actions (this week)
- Long-term actions (this month or year)
- Resources mentioned (books, tools, websites)
- People or organizations worth following

%s

Only include actions stated or strongly implied in the transcript.`

// NotCoveredAnswer is what the model is told to reply when the transcript lacks the answer.
const NotCoveredAnswer = "This topic is not covered in the video."

const qaSystemPrompt = `You answer questions about a video using only its transcript.
Rules:
- Use only information from the transcript the user provides.
- Do not use outside knowledge or make assumptions.
- If the transcript does not contain the answer, reply exactly: "` + NotCoveredAnswer + `"
- Be concise but complete.`

const qaPrompt = `VIDEO TRANSCRIPT:
%s

CONVERSATION HISTORY:
%s

USER QUESTION: %s

%s`

const noHistory = "No previous conversation."

const detectSystemPrompt = "You detect language requests in user messages. " +
	"Respond with ONLY one word from: english, hindi, kannada, tamil, telugu, marathi, none"

const detectPrompt = `The user sent: %q
Is the user asking for a response in a specific language? If yes, which one? If not, respond: none`
