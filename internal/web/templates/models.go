package templates

// View models are flat, pre-formatted data so the templates stay free of
// formatting logic.

// Choice is one option of a select element.
type Choice struct {
	Value    string
	Label    string
	Selected bool
}

// OptionsView holds the current pipeline options of a form.
type OptionsView struct {
	Dedupe  bool
	Fill    bool
	Embed   bool
	Columns string
	X       string
	Y       string
	Charts  []Choice
	Exports []Choice
}

// UploadView is the upload page.
type UploadView struct {
	MaxFiles    int
	MaxFileSize string
	Options     OptionsView
}

// AlertView is a user-facing error.
type AlertView struct {
	Message string
	Detail  string
	Action  string
	Code    string
}

// NoticeView is a non-fatal message on a file.
type NoticeView struct {
	Level   string
	Code    string
	Message string
}

// FileView is the report for one processed file.
type FileView struct {
	Name         string
	Size         string
	Status       string
	Error        *AlertView
	Notices      []NoticeView
	Loaded       bool
	Rows         int
	Cols         int
	TotalMissing int

	PreviewHeader []string
	Preview       [][]string
	StatsHeader   []string
	Stats         [][]string

	// ChartSVG is markup from core.RenderChart, which escapes every label.
	ChartSVG string

	// Payload is the base64 file content the rerun form resubmits.
	Payload string
	Options OptionsView
}

// ReportView is the result page of one batch.
type ReportView struct {
	BatchID   string
	Duration  string
	Succeeded int
	Total     int
	Files     []FileView
}
