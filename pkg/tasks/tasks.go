// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// IngestTask represents the data structure for a document ingestion job.
type IngestTask struct {
	DocumentID uint   `json:"document_id"`
	ProjectID  uint   `json:"project_id"`
	DocType    string `json:"doc_type"`
	ObjectName string `json:"object_name,omitempty"`
	RawText    string `json:"raw_text,omitempty"`
}
