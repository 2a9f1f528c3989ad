package constant

const (
	TurnRoleHuman     = "human"
	TurnRoleAssistant = "assistant"

	MessageKindText  = "text"
	MessageKindImage = "image"
	MessageKindCode  = "code"

	ConversationKindChat = "chat"
	ConversationKindRag  = "rag"

	EventMessage         = "message"
	EventAcknowledgement = "acknowledgement"
	EventClear           = "clear"

	TaskTextGeneration  = "text_generation"
	TaskImageGeneration = "image_generation"
	TaskCodeGeneration  = "code_generation"

	// Instruction appended to the assembled context before text generation.
	BriefAnswerInstruction = "Please keep the answer brief and to the point as much as possible."

	// Instruction appended before code generation.
	CodingAssistantInstruction = "You are a helpful coding assistant. Provide clear and concise code examples."

	// Fixed fallback when the generation capability is rate limited or exhausted.
	QuotaExceededMessage = "You exceeded your current quota, please check your plan and billing details."

	// Fixed fallback for any other generation failure.
	GenerationFailedMessage = "Unexpected error occurred while generating a response."

	// Fixed fallback when image synthesis fails.
	ImageGenerationFailedMessage = "Sorry, couldn't generate the image. Please try again later."

	// Returned by a RAG query when no index has been built for the conversation.
	RagIndexMissingMessage = "Please upload a document first to build the knowledge index."

	RagPromptTemplate = "You are an assistant for question-answering tasks. Use the following pieces of retrieved context to answer the question. If you don't know the answer, just say that you don't know. Keep the answer concise.\n\nContext:\n%s\n\nQuestion: %s"
)
