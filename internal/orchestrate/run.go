package orchestrate

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"simulation-parsers/internal/archive"
	"simulation-parsers/internal/diagnostic"
	"simulation-parsers/internal/grammar"
	"simulation-parsers/internal/mapper"
)

// ReadFunc parses the content of a file into a record.
type ReadFunc func(data []byte) (grammar.Record, error)

// Entry names used by the readers.
const (
	EntryMain       = "main"
	EntryGW         = "GW"
	EntryGWWorkflow = "GW_workflow"
)

// Entry is one output entry of a run.
type Entry struct {
	ID       string              `json:"entry_id" yaml:"entry_id"`
	Name     string              `json:"name" yaml:"name"`
	Data     *archive.Simulation `json:"data,omitempty" yaml:"data,omitempty"`
	Workflow *archive.Workflow   `json:"workflow,omitempty" yaml:"workflow,omitempty"`
}

// Result is the outcome of a run: the main entry first, then the children
// in spawn order.
type Result struct {
	Mainfile    string                  `json:"mainfile" yaml:"mainfile"`
	Entries     []*Entry                `json:"entries" yaml:"entries"`
	Diagnostics *diagnostic.Diagnostics `json:"-" yaml:"-"`
}

// Main returns the main entry.
func (r *Result) Main() *Entry {
	return r.Entries[0]
}

// Entry returns the entry with the given name, or nil.
func (r *Result) Entry(name string) *Entry {
	for _, e := range r.Entries {
		if e.Name == name {
			return e
		}
	}

	return nil
}

// Run is one parsing run of a main file. It is not safe for concurrent use.
type Run struct {
	fs       afero.Fs
	mainfile string
	mapper   *mapper.Mapper
	log      logrus.FieldLogger
	newID    func() string

	state   State
	sources *Sources
	result  *Result
}

// Option configures a Run.
type Option func(*Run)

// WithFs sets the file system files are read from.
func WithFs(fs afero.Fs) Option {
	return func(r *Run) { r.fs = fs }
}

// WithLogger sets the logger of the run.
func WithLogger(l logrus.FieldLogger) Option {
	return func(r *Run) { r.log = l }
}

// WithIDFunc sets the generator of entry ids.
func WithIDFunc(fn func() string) Option {
	return func(r *Run) { r.newID = fn }
}

// NewRun creates a run for mainfile. Sections are written with m.
func NewRun(mainfile string, m *mapper.Mapper, opts ...Option) *Run {
	r := &Run{
		fs:       afero.NewOsFs(),
		mainfile: mainfile,
		mapper:   m,
		log:      logrus.StandardLogger(),
		newID:    uuid.NewString,
		sources:  NewSources(),
	}

	for _, opt := range opts {
		opt(r)
	}

	r.log = r.log.WithField("mainfile", mainfile)
	r.result = &Result{
		Mainfile:    mainfile,
		Entries:     []*Entry{{ID: r.newID(), Name: EntryMain, Data: &archive.Simulation{}}},
		Diagnostics: &diagnostic.Diagnostics{},
	}

	return r
}

// State returns the current state.
func (r *Run) State() State { return r.state }

// Sources returns the records registered so far.
func (r *Run) Sources() *Sources { return r.sources }

// Main returns the data of the main entry.
func (r *Run) Main() *archive.Simulation { return r.result.Main().Data }

// MainID returns the entry id of the main entry.
func (r *Run) MainID() string { return r.result.Main().ID }

// Mainfile returns the path of the main file.
func (r *Run) Mainfile() string { return r.mainfile }

// Dir returns the directory of the main file.
func (r *Run) Dir() string { return filepath.Dir(r.mainfile) }

// Fs returns the file system of the run.
func (r *Run) Fs() afero.Fs { return r.fs }

// Logger returns the logger of the run.
func (r *Run) Logger() logrus.FieldLogger { return r.log }

func (r *Run) transition(to State) error {
	if !CanTransition(r.state, to) {
		return transitionError(r.state, to)
	}

	r.state = to

	return nil
}

// ParseMain reads and parses the main file and maps its record under tag
// into the main entry.
func (r *Run) ParseMain(tag string, read ReadFunc) error {
	if !CanTransition(r.state, StateMainParsed) {
		return transitionError(r.state, StateMainParsed)
	}

	data, err := afero.ReadFile(r.fs, r.mainfile)
	if err != nil {
		return &FatalInputError{Path: r.mainfile, Err: err}
	}

	rec, err := read(data)
	if err != nil {
		return &FatalInputError{Path: r.mainfile, Err: err}
	}

	r.sources.Set(tag, rec)
	r.apply(r.Main(), tag, rec, mapper.ModeAppend)

	return r.transition(StateMainParsed)
}

// MapSource registers rec under tag and maps it into the main entry. It is
// used for additional passes over records that are already in memory.
func (r *Run) MapSource(tag string, rec grammar.Record, mode mapper.Mode) error {
	if err := r.transition(StateAuxParsed); err != nil {
		return err
	}

	r.sources.Set(tag, rec)
	r.apply(r.Main(), tag, rec, mode)

	return nil
}

// ParseAux reads the auxiliary file at path and maps it under tag into the
// main entry. An empty path or a missing file leaves the sections absent.
// A file that cannot be parsed registers an empty record.
func (r *Run) ParseAux(tag, path string, read ReadFunc, mode mapper.Mode) error {
	if err := r.transition(StateAuxParsed); err != nil {
		return err
	}

	log := r.log.WithFields(logrus.Fields{"tag": tag, "file": path})

	if path == "" {
		log.Debug("auxiliary file not found")
		return nil
	}

	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("auxiliary file not found")
		} else {
			log.WithError(err).Debug("auxiliary file not readable")
			r.result.Diagnostics.AddInfo(diagnostic.CodeUnreadableFile, err.Error(), tag, path)
		}

		return nil
	}

	rec, err := read(data)
	if err != nil {
		log.WithError(err).Warn("auxiliary file malformed")
		r.result.Diagnostics.AddWarning(diagnostic.CodeMalformedValue, err.Error(), tag, path)

		rec = grammar.Record{}
	}

	r.sources.Set(tag, rec)
	r.apply(r.Main(), tag, rec, mode)

	return nil
}

// SpawnChild adds a child entry holding data and maps source under tag into
// it.
func (r *Run) SpawnChild(name string, data *archive.Simulation, tag string, source grammar.Record) (*Entry, error) {
	if err := r.transition(StateChildSpawned); err != nil {
		return nil, err
	}

	if data == nil {
		data = &archive.Simulation{}
	}

	e := &Entry{ID: r.newID(), Name: name, Data: data}
	r.result.Entries = append(r.result.Entries, e)

	if source != nil {
		r.apply(data, tag, source, mapper.ModeAppend)
	}

	r.log.WithFields(logrus.Fields{"entry": name, "entry_id": e.ID}).Debug("child entry spawned")

	return e, nil
}

// SpawnWorkflow adds a child entry holding only a workflow.
func (r *Run) SpawnWorkflow(name string, wf *archive.Workflow) (*Entry, error) {
	if err := r.transition(StateChildSpawned); err != nil {
		return nil, err
	}

	e := &Entry{ID: r.newID(), Name: name, Workflow: wf}
	r.result.Entries = append(r.result.Entries, e)

	return e, nil
}

// Finish ends the run. A run without children whose main entry has exactly
// one output gets a single point workflow.
func (r *Run) Finish() (*Result, error) {
	if err := r.transition(StateDone); err != nil {
		return nil, err
	}

	main := r.result.Main()
	if main.Workflow == nil && len(r.result.Entries) == 1 && len(main.Data.Outputs) == 1 {
		main.Workflow = archive.NewSinglePoint(main.ID)
	}

	return r.result, nil
}

func (r *Run) apply(target *archive.Simulation, tag string, source grammar.Record, mode mapper.Mode) {
	if r.mapper == nil {
		return
	}

	d := r.mapper.Apply(target, tag, source, mode)
	r.result.Diagnostics.Merge(*d)
}
