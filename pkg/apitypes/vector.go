package apitypes

// ExpiresAfter is the expiration policy of a vector store.
type ExpiresAfter struct {
	Anchor string `json:"anchor"`
	Days   int    `json:"days"`
}

// VectorStorePayload is the body of POST /vector_stores and POST /vector_stores/{id}.
type VectorStorePayload struct {
	Name             string            `json:"name,omitempty"`
	FileIDs          []string          `json:"file_ids,omitempty"`
	ExpiresAfter     *ExpiresAfter     `json:"expires_after,omitempty"`
	ChunkingStrategy JSONObject        `json:"chunking_strategy,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

func (p VectorStorePayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "vector store payload")
}

// VectorStoreFilePayload is the body of POST /vector_stores/{id}/files.
type VectorStoreFilePayload struct {
	FileID           string         `json:"file_id"`
	Attributes       map[string]any `json:"attributes,omitempty"`
	ChunkingStrategy JSONObject     `json:"chunking_strategy,omitempty"`
}

func (p VectorStoreFilePayload) Data() (JSONObject, error) {
	return ToJSONObject(p, "vector store file payload")
}

type FileCounts struct {
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
	Cancelled  int `json:"cancelled"`
	Total      int `json:"total"`
}

type VectorStore struct {
	ID           string            `json:"id"`
	Object       string            `json:"object"`
	CreatedAt    int64             `json:"created_at"`
	Name         string            `json:"name"`
	UsageBytes   int64             `json:"usage_bytes"`
	FileCounts   FileCounts        `json:"file_counts"`
	Status       string            `json:"status"`
	ExpiresAfter *ExpiresAfter     `json:"expires_after,omitempty"`
	ExpiresAt    int64             `json:"expires_at,omitempty"`
	LastActiveAt int64             `json:"last_active_at,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type VectorStoreList struct {
	ListPage
	Data []VectorStore `json:"data"`
}

type VectorStoreFile struct {
	ID            string     `json:"id"`
	Object        string     `json:"object"`
	CreatedAt     int64      `json:"created_at"`
	VectorStoreID string     `json:"vector_store_id"`
	Status        string     `json:"status"`
	UsageBytes    int64      `json:"usage_bytes"`
	LastError     *ErrorBody `json:"last_error,omitempty"`
}

type VectorStoreFileList struct {
	ListPage
	Data []VectorStoreFile `json:"data"`
}
