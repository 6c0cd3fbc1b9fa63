package archive

// Workflow names.
const (
	WorkflowSinglePoint = "SinglePoint"
	WorkflowDFTGW       = "DFT+GW"
)

// Workflow links the entries of a multi-step calculation.
type Workflow struct {
	Name  string  `archive:"name" json:"name" yaml:"name"`
	Tasks []*Task `archive:"tasks" json:"tasks,omitempty" yaml:"tasks,omitempty"`
}

// Task is one step of a workflow, referring to an entry by id.
type Task struct {
	Name    string `archive:"name" json:"name" yaml:"name"`
	EntryID string `archive:"entry_id" json:"entry_id" yaml:"entry_id"`
}

// NewSinglePoint returns the workflow of a single calculation entry.
func NewSinglePoint(entryID string) *Workflow {
	return &Workflow{
		Name:  WorkflowSinglePoint,
		Tasks: []*Task{{Name: "SinglePoint", EntryID: entryID}},
	}
}

// NewDFTGW links a DFT entry and a GW entry.
func NewDFTGW(dftID, gwID string) *Workflow {
	return &Workflow{
		Name: WorkflowDFTGW,
		Tasks: []*Task{
			{Name: "DFT", EntryID: dftID},
			{Name: "GW", EntryID: gwID},
		},
	}
}
