package tasks

type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusDone       Status = "DONE"
)

// Statuses is the board column order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

func StatusStrings() []string {
	out := make([]string, len(Statuses))
	for i, s := range Statuses {
		out[i] = string(s)
	}
	return out
}

// Workflow lists the moves allowed when strict transitions are enabled.
var Workflow = map[Status][]Status{
	StatusTodo:       {StatusInProgress},
	StatusInProgress: {StatusReview},
	StatusReview:     {StatusInProgress, StatusDone},
	StatusDone:       {},
}

// CanTransition reports whether a task may move from one status to another.
// Without strict mode every valid status is reachable from every other.
func CanTransition(from, to Status, strict bool) bool {
	if !to.Valid() {
		return false
	}
	if !strict || from == to {
		return true
	}
	for _, next := range Workflow[from] {
		if next == to {
			return true
		}
	}
	return false
}
