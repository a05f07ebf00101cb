package examstate

import "sync"

// QuestionByID looks a question up by id.
func QuestionByID(state State, id string) (Question, bool) {
	return state.Questions.Get(id)
}

// ResponseByID looks a response up by its submission key.
func ResponseByID(state State, key string) (Response, bool) {
	return state.Responses.Get(key)
}

// SubmissionFor returns the stored response of userID (sentinel "student"
// when empty) to questionID.
func SubmissionFor(state State, userID, questionID string) (Response, bool) {
	return state.Responses.Get(SubmissionKey(userID, questionID))
}

// FeedbackFor returns the grading state for a question.
func FeedbackFor(state State, questionID string) (Feedback, bool) {
	return state.Feedback.Get(questionID)
}

// ConfidenceFor returns the confidence rating for a question.
func ConfidenceFor(state State, questionID string) (Confidence, bool) {
	return state.Confidence.Get(questionID)
}

// Memoize caches a selector's last result per state revision and argument.
// Recomputation happens only when the store has moved on or the argument
// changed.
func Memoize[A comparable, R any](selector func(State, A) R) func(State, A) R {
	var (
		mu       sync.Mutex
		haveLast bool
		lastRev  uint64
		lastArg  A
		lastOut  R
	)
	return func(state State, arg A) R {
		mu.Lock()
		defer mu.Unlock()
		if haveLast && state.Rev == lastRev && arg == lastArg {
			return lastOut
		}
		lastOut = selector(state, arg)
		lastRev = state.Rev
		lastArg = arg
		haveLast = true
		return lastOut
	}
}
