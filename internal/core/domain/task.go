package domain

// ProcessingTask is the queue payload. It is transient: it carries no state
// beyond what the worker needs to locate the document and its bytes.
type ProcessingTask struct {
	DocumentID int64    `json:"document_id"`
	FilePath   string   `json:"file_path"`
	FileType   FileType `json:"file_type"`
}

// TaskOutcome is the structured result every pipeline stage folds its
// faults into. The consumer acks the message only when Success is true;
// internal errors never cross the consumer boundary as panics.
type TaskOutcome struct {
	Success    bool
	DocumentID int64
	Category   string
	Confidence float64
	Err        error
}

func SucceededTask(documentID int64, category string, confidence float64) TaskOutcome {
	return TaskOutcome{
		Success:    true,
		DocumentID: documentID,
		Category:   category,
		Confidence: confidence,
	}
}

func FailedTask(documentID int64, err error) TaskOutcome {
	return TaskOutcome{
		DocumentID: documentID,
		Err:        err,
	}
}
