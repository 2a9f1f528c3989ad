package service

// ChatRequest carries one inbound text utterance through a generation
// pipeline. SessionId identifies the pushing connection; ConversationId
// partitions the log and the context cache.
type ChatRequest struct {
	SessionId        string
	ConversationId   string
	PeerUrn          string
	PeerName         string
	ConversationKind string
	Text             string
}

// AudioRequest carries one inbound audio utterance. The audio arrives
// base64-encoded inside the websocket envelope.
type AudioRequest struct {
	SessionId      string
	ConversationId string
	AudioBase64    string
}

// DocumentRequest carries one uploaded document for knowledge indexing.
type DocumentRequest struct {
	SessionId      string
	ConversationId string
	PeerUrn        string
	PeerName       string
	FileName       string
	FileBase64     string
}

// ImageRequest carries one inbound image for captioning and follow-up
// question answering.
type ImageRequest struct {
	SessionId      string
	ConversationId string
	PeerUrn        string
	PeerName       string
	ImageBase64    string
	Question       string
}
