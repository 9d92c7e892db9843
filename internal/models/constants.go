package models

const (
	ThinkTag          = `(?s)<think>.*?</think>`
	ChapterNumberRe   = `^\d+\.\s*`
	QuestionLineRe    = `^Q\d+\.`
	ContextSeparator  = "\n\n"
	NotMatchingMarker = "NOT_MATCHING"
)

const (
	DefaultTopK             = 5
	DefaultQuestionCount    = 5
	MinQuestionCount        = 1
	MaxQuestionCount        = 20
	DefaultMinContextChars  = 50
	KeywordContextChars     = 1000
	ClassifierContextChars  = 600
	GenerationContextChars  = 1500
	TokensPerQuestion       = 300
	MaxGenerationTokens     = 3000
	ValidationMaxTokens     = 10
	ClassificationMaxTokens = 50
)

var (
	ValidationSystemPrompt = `You are an expert at identifying which subject a topic belongs to. Answer only YES or NO.`

	// args: subject title, topic, subject title, subject title, coverage, subject title
	ValidationPromptTemplate = `You are a Class 12 PCB subject expert. Determine if the following topic belongs to %s.
Topic: "%s"
Subject: %s
Class 12 %s covers:
- %s
Answer ONLY with "YES" if the topic belongs to %s, or "NO" if it belongs to a different subject.
Answer:`

	// args: subject title
	ClassificationSystemPromptTemplate = `You are an expert at identifying which chapter textbook content belongs to. You can recognize when content doesn't match the subject. If the topic is from a different subject than %s, respond with 'NOT_MATCHING'.`

	// args: subject title, topic, context snippet, subject title, numbered chapter list, subject title
	ClassificationPromptTemplate = `Based on the following textbook content and topic, identify which chapter from the Class 12 %s textbook this content belongs to.
Topic: %s
Content snippet:
%s
Available %s chapters:
%s
IMPORTANT: If the topic and content do NOT belong to %s, respond with "NOT_MATCHING".
If it matches, respond with ONLY the chapter number and name exactly as listed (e.g., "5. Origin and Evolution of Life").
Response:`

	GenerationSystemPrompt = `You are an expert Class-12 teacher who creates high-quality MCQs from textbook content. You always follow the exact format specified.`

	// args: subject title, topic, chapter, context, count, continuation, count
	GenerationPromptTemplate = `You are a Class-12 %s teacher creating MCQs.
Topic: "%s"
Chapter: "%s"
Reference material from textbook:
%s
Generate exactly %d multiple-choice questions based on the reference material.
FORMAT (follow EXACTLY):
Q1. [Question based on material]
A) [Option 1]
B) [Option 2]
C) [Option 3]
D) [Option 4]
Answer: [A/B/C/D] - [Brief explanation]
Q2. [Question based on material]
A) [Option 1]
B) [Option 2]
C) [Option 3]
D) [Option 4]
Answer: [A/B/C/D] - [Brief explanation]
%s
REQUIREMENTS:
- All questions must be answerable from the reference material
- All 4 options should be plausible
- Correct answer must be clearly supported by material
- Keep explanations brief (1-2 sentences)
Generate %d MCQs now:`

	NoLLMMessage = `ERROR: LLM API not initialized!
Please check:
1. GROQ_API_KEY (or llm.api_key in the config file) is set
2. API key is valid (get one from https://console.groq.com/keys)
3. The service has been restarted after adding the key
Current status: API key not found or invalid.`

	// args: topic, subject title, subject title
	ChapterMismatchTemplate = "The topic '%s' does not belong to %s.\n\nPlease enter a topic related to %s or select the correct subject."

	// args: topic, subject title, subject title
	ValidationMismatchTemplate = "The topic '%s' does not appear to be related to %s.\n\nPlease either:\n• Enter a %s-related topic, or\n• Select the correct subject for this topic"
)
