package threadpool

// Job is a unit of work executed once by a single worker.
type Job func()

type messageKind uint8

const (
	messageJob messageKind = iota
	messageShutdown
)

func (k messageKind) String() string {
	switch k {
	case messageJob:
		return "job"
	case messageShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// message is what travels through the dispatch queue: either a job or an
// anonymous shutdown signal that any idle worker may consume.
type message struct {
	kind messageKind
	job  Job
}

func jobMessage(j Job) message { return message{kind: messageJob, job: j} }

func shutdownMessage() message { return message{kind: messageShutdown} }
