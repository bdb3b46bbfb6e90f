package codelens

// Stage names what a progress event is about.
type Stage string

const (
	// StageRefresh covers a document-wide refresh cycle.
	StageRefresh Stage = "refresh"
	// StageBackend covers one backend's lens list.
	StageBackend Stage = "backend"
	// StageResolve covers a single lens resolution.
	StageResolve Stage = "resolve"
	// StageExecute covers a lens command dispatch.
	StageExecute Stage = "execute"
)

// Status captures progress state within a stage.
type Status string

const (
	StatusWorking   Status = "working"
	StatusDone      Status = "done"
	StatusError     Status = "error"
	StatusThrottled Status = "throttled"
)

// Event reports session progress. Count is stage-specific: the number of
// backends asked for StageRefresh/working, the number of lenses stored for
// StageBackend/done.
type Event struct {
	Document DocumentID
	Backend  BackendID
	Stage    Stage
	Status   Status
	Count    int
	Err      error
}

// ProgressSink consumes progress events on the session loop.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function to ProgressSink.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}

type sinks []ProgressSink

func (s sinks) emit(evt Event) {
	for _, sink := range s {
		sink.OnEvent(evt)
	}
}
