package domain

type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

type Task struct {
	TaskID    string     `json:"task_id"`
	Status    TaskStatus `json:"status"`
	Progress  float64    `json:"progress"`
	Message   string     `json:"message"`
	ResultID  string     `json:"result_id,omitempty"`
	CreatedAt int64      `json:"created_at"`
	UpdatedAt int64      `json:"updated_at"`
}

const (
	LangZH = "zh"
	LangEN = "en"
)

type Translation struct {
	ZH         string `json:"zh"`
	EN         string `json:"en"`
	SourceLang string `json:"source_lang"`
}

type Word struct {
	Word        string  `json:"word"`
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Probability float64 `json:"probability"`
}

// Segment is one recognized span of speech. It is serialized as an entry of
// Result.Sentences.
type Segment struct {
	Text        string      `json:"text"`
	Start       float64     `json:"start"`
	End         float64     `json:"end"`
	Speaker     int         `json:"speaker"`
	Translation Translation `json:"translation"`
	Words       []Word      `json:"words,omitempty"`
}

type Transcript struct {
	Text     string
	Language string
	Segments []Segment
}

// Turn is a diarization interval attributed to an opaque speaker label.
type Turn struct {
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker"`
}

type Result struct {
	Success          bool      `json:"success"`
	ResultID         string    `json:"result_id"`
	Text             string    `json:"text"`
	Sentences        []Segment `json:"sentences"`
	Speakers         []int     `json:"speakers"`
	TotalDuration    float64   `json:"total_duration"`
	AudioHash        string    `json:"audio_hash"`
	Filename         string    `json:"filename"`
	Timestamp        string    `json:"timestamp"`
	Message          string    `json:"message"`
	AudioPath        string    `json:"audio_path"`
	UpdatedTimestamp string    `json:"updated_timestamp,omitempty"`
	ProcessingTime   *float64  `json:"processing_time,omitempty"`
}

type HistoryItem struct {
	ResultID       string   `json:"result_id"`
	Filename       string   `json:"filename"`
	Timestamp      string   `json:"timestamp"`
	TotalDuration  float64  `json:"total_duration"`
	SpeakerCount   int      `json:"speaker_count"`
	TextPreview    string   `json:"text_preview"`
	ProcessingTime *float64 `json:"processing_time,omitempty"`
}
