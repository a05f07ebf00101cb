// Package examclient drives the exam API on behalf of a client application
// and mirrors server state into an examstate store. Each workflow runs its
// fetches sequentially and lands the result as a single batch dispatch, so an
// error anywhere leaves the store exactly as it was.
package examclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/openexam/exam-service/pkg/examstate"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
	store   *examstate.Store
}

type Config struct {
	BaseURL string
	Token   string
	Timeout time.Duration
	Store   *examstate.Store
}

func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	store := cfg.Store
	if store == nil {
		store = examstate.NewStore()
	}
	store.Dispatch(examstate.SetToken{Token: cfg.Token})
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		store:   store,
	}
}

// Store exposes the client's state store to the UI layer.
func (c *Client) Store() *examstate.Store {
	return c.store
}

// ===== WIRE TYPES =====

// envelope matches the server's SuccessResponse wrapper.
type envelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type wireQuestion struct {
	ID             uint            `json:"id"`
	Text           string          `json:"text"`
	Type           string          `json:"type"`
	AnswerData     json.RawMessage `json:"answer_data"`
	PointsPossible int             `json:"points_possible"`
}

type wireQuestionList struct {
	ExamID             uint           `json:"exam_id"`
	TotalPoints        int            `json:"total_points"`
	ShowPointsPossible bool           `json:"show_points_possible"`
	Questions          []wireQuestion `json:"questions"`
}

type wireResponse struct {
	QuestionID     uint   `json:"question_id"`
	UserID         string `json:"user_id"`
	IsTextResponse bool   `json:"is_text_response"`
	TextResponse   string `json:"text_response"`
	AnswerResponse string `json:"answer_response"`
}

type wireFeedback struct {
	QuestionID   uint   `json:"question_id"`
	Feedback     string `json:"feedback"`
	ScoredPoints *int   `json:"scored_points"`
}

// ResponseInput is one answer to submit.
type ResponseInput struct {
	QuestionID     uint   `json:"question_id"`
	IsTextResponse bool   `json:"is_text_response"`
	TextResponse   string `json:"text_response,omitempty"`
	AnswerResponse string `json:"answer_response,omitempty"`
}

// FeedbackInput is one instructor feedback write.
type FeedbackInput struct {
	QuestionID uint   `json:"question_id"`
	UserID     string `json:"user_id"`
	Feedback   string `json:"feedback"`
}

// ===== HTTP PLUMBING =====

func (c *Client) do(ctx context.Context, method, path string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s: %s", method, path, res.Status)
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	if env.Data == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s data: %w", method, path, err)
	}
	return nil
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ===== FETCH HELPERS =====

func (c *Client) fetchQuestions(ctx context.Context) ([]examstate.Question, error) {
	var list wireQuestionList
	if err := c.do(ctx, http.MethodGet, "/api/questions", nil, &list); err != nil {
		return nil, err
	}
	questions := make([]examstate.Question, 0, len(list.Questions))
	for _, q := range list.Questions {
		questions = append(questions, examstate.Question{
			ID:             formatID(q.ID),
			Text:           q.Text,
			Type:           q.Type,
			AnswerData:     q.AnswerData,
			PointsPossible: q.PointsPossible,
		})
	}
	return questions, nil
}

func (c *Client) fetchResponses(ctx context.Context) ([]examstate.Response, error) {
	var wire []wireResponse
	if err := c.do(ctx, http.MethodGet, "/api/responses", nil, &wire); err != nil {
		return nil, err
	}
	responses := make([]examstate.Response, 0, len(wire))
	for _, r := range wire {
		responses = append(responses, examstate.Response{
			QuestionID:     formatID(r.QuestionID),
			IsTextResponse: r.IsTextResponse,
			TextResponse:   r.TextResponse,
			AnswerResponse: r.AnswerResponse,
		})
	}
	return responses, nil
}

func (c *Client) fetchFeedback(ctx context.Context) ([]examstate.Feedback, error) {
	var wire []wireFeedback
	if err := c.do(ctx, http.MethodGet, "/api/feedback", nil, &wire); err != nil {
		return nil, err
	}
	feedback := make([]examstate.Feedback, 0, len(wire))
	for _, f := range wire {
		feedback = append(feedback, examstate.Feedback{
			QuestionID:   formatID(f.QuestionID),
			Feedback:     f.Feedback,
			ScoredPoints: f.ScoredPoints,
		})
	}
	return feedback, nil
}

func (c *Client) fetchConfidence(ctx context.Context) ([]examstate.Confidence, error) {
	var wire map[string]int
	if err := c.do(ctx, http.MethodGet, "/api/confidence", nil, &wire); err != nil {
		return nil, err
	}
	confidence := make([]examstate.Confidence, 0, len(wire))
	for questionID, rating := range wire {
		confidence = append(confidence, examstate.Confidence{
			QuestionID: questionID,
			Rating:     rating,
		})
	}
	return confidence, nil
}

// ===== WORKFLOWS =====

// InitializeQuestions loads questions, stored responses, feedback and
// confidence ratings in sequence, then applies everything as one batch.
func (c *Client) InitializeQuestions(ctx context.Context) error {
	questions, err := c.fetchQuestions(ctx)
	if err != nil {
		return err
	}
	responses, err := c.fetchResponses(ctx)
	if err != nil {
		return err
	}
	feedback, err := c.fetchFeedback(ctx)
	if err != nil {
		return err
	}
	confidence, err := c.fetchConfidence(ctx)
	if err != nil {
		return err
	}

	c.store.Dispatch(examstate.Batch{Actions: []examstate.Action{
		examstate.ReplaceQuestions{Questions: questions},
		examstate.ReplaceResponses{Responses: responses},
		examstate.ReplaceFeedback{Feedback: feedback},
		examstate.ReplaceConfidence{Confidence: confidence},
		examstate.SetResponseState{Value: "ready"},
	}})
	return nil
}

// SubmitExam posts the answers with the finish flag, refetches the stored
// responses and lands both as one transition.
func (c *Client) SubmitExam(ctx context.Context, responses []ResponseInput) error {
	payload := struct {
		Responses  []ResponseInput `json:"responses"`
		FinishExam bool            `json:"finish_exam"`
	}{Responses: responses, FinishExam: true}

	if err := c.do(ctx, http.MethodPost, "/api/responses", payload, nil); err != nil {
		return err
	}

	stored, err := c.fetchResponses(ctx)
	if err != nil {
		return err
	}

	c.store.Dispatch(examstate.Batch{Actions: []examstate.Action{
		examstate.ReplaceResponses{Responses: stored},
		examstate.SetResponseState{Value: "submitted"},
	}})
	return nil
}

// SubmitFeedback writes instructor feedback and refreshes the feedback
// collection.
func (c *Client) SubmitFeedback(ctx context.Context, input FeedbackInput) error {
	if err := c.do(ctx, http.MethodPost, "/api/feedback", input, nil); err != nil {
		return err
	}

	feedback, err := c.fetchFeedback(ctx)
	if err != nil {
		return err
	}

	c.store.Dispatch(examstate.Batch{Actions: []examstate.Action{
		examstate.ReplaceFeedback{Feedback: feedback},
	}})
	return nil
}

// SubmitConfidence records a confidence rating and mirrors it locally.
func (c *Client) SubmitConfidence(ctx context.Context, questionID uint, rating int) error {
	payload := struct {
		QuestionID uint `json:"question_id"`
		Confidence int  `json:"confidence"`
	}{QuestionID: questionID, Confidence: rating}

	if err := c.do(ctx, http.MethodPost, "/api/confidence", payload, nil); err != nil {
		return err
	}

	c.store.Dispatch(examstate.Batch{Actions: []examstate.Action{
		examstate.UpsertConfidence{Confidence: examstate.Confidence{
			QuestionID: formatID(questionID),
			Rating:     rating,
		}},
	}})
	return nil
}
