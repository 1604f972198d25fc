// Package session holds the state of the active conversation and the
// request lifecycle around it.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	apierrors "github.com/diogo/codechat/internal/errors"
	"github.com/diogo/codechat/internal/models"
)

// NoActiveConversationMessage is returned by AnalyzeProject and
// FetchFilePaths when no conversation is bound
const NoActiveConversationMessage = "No active conversation. Start one first."

// Sentinel errors
var (
	ErrEmptyDraft     = errors.New("message is empty")
	ErrBusy           = errors.New("another request is in progress")
	ErrNothingToRetry = errors.New("no unanswered message to retry")
	ErrStaleResponse  = errors.New("response belongs to a conversation that is no longer active")
	ErrNoCodeBlock    = errors.New("code block not found")
	ErrNoConversation = errors.New("no conversation id")
)

// Transport is the subset of the backend client the Store needs
type Transport interface {
	SendMessage(ctx context.Context, history []string, filePaths []string, conversationID string) (*models.SendResult, error)
	LoadConversation(ctx context.Context, conversationID string) (*models.LoadedConversation, error)
	StartConversation(ctx context.Context) (string, error)
	AnalyzeProject(ctx context.Context, conversationID, question string) (string, error)
	GetFilePaths(ctx context.Context, featureRequest, conversationID string) (string, error)
}

// IDSlot persists the bound conversation id
type IDSlot interface {
	Load() (string, error)
	Save(id string) error
	Clear() error
}

// Draft is the unsent composer content
type Draft struct {
	Text      string
	FilePaths []string
}

// State is a snapshot of the session
type State struct {
	ConversationID    string
	Messages          []models.Message
	Summary           string
	ProjectFolderPath string
	Draft             Draft
	Loading           bool
	Error             string
}

// Bound reports whether the session has a backend conversation id
func (s State) Bound() bool {
	return s.ConversationID != ""
}

// CanRetry reports whether the last message is an unanswered user message
func (s State) CanRetry() bool {
	return !s.Loading && len(s.Messages) > 0 && s.Messages[len(s.Messages)-1].IsUser()
}

func (s State) clone() State {
	out := s
	if s.Messages != nil {
		out.Messages = make([]models.Message, len(s.Messages))
		for i, m := range s.Messages {
			out.Messages[i] = m.Clone()
		}
	}
	if s.Draft.FilePaths != nil {
		out.Draft.FilePaths = append([]string(nil), s.Draft.FilePaths...)
	}
	return out
}

// Option configures a Store
type Option func(*Store)

// WithOnChange registers a callback invoked with a fresh snapshot after every
// state change. It runs outside the Store lock.
func WithOnChange(fn func(State)) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// Store is the single source of truth for the active conversation.
// All mutation goes through its methods. Submit, retry, load and start are
// mutually exclusive: while one is in flight the others fail with ErrBusy.
type Store struct {
	mu        sync.Mutex
	transport Transport
	slot      IDSlot
	onChange  func(State)

	state State
	// epoch changes whenever the session is replaced; completions captured
	// under an older epoch are discarded
	epoch uint64
	busy  bool
	// blocks counts extracted code blocks for titling
	blocks int
	// lastPaths are the file paths of the latest submit, reused by RetryLast
	lastPaths []string
}

// New creates an empty, unbound Store
func New(transport Transport, slot IDSlot, opts ...Option) *Store {
	s := &Store{
		transport: transport,
		slot:      slot,
		state:     State{Messages: []models.Message{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// commit releases the lock and publishes the new state
func (s *Store) commit() {
	snap := s.state.clone()
	s.mu.Unlock()
	if s.onChange != nil {
		s.onChange(snap)
	}
}

// persist stores id in the slot. Must be called with the lock held.
func (s *Store) persist(id string) {
	if s.slot == nil {
		return
	}
	if err := s.slot.Save(id); err != nil {
		log.Warn().Err(err).Str("conversation_id", id).Msg("failed to persist conversation id")
	}
}

// Initialize loads the persisted conversation, if any
func (s *Store) Initialize(ctx context.Context) error {
	if s.slot == nil {
		return nil
	}
	id, err := s.slot.Load()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read persisted conversation id")
		return nil
	}
	if id == "" {
		return nil
	}
	log.Debug().Str("conversation_id", id).Msg("restoring conversation")
	return s.LoadConversation(ctx, id)
}

// SetDraftText replaces the draft text
func (s *Store) SetDraftText(text string) {
	s.mu.Lock()
	s.state.Draft.Text = text
	s.commit()
}

// SetDraftFilePaths replaces the file paths attached to the next message
func (s *Store) SetDraftFilePaths(paths []string) {
	s.mu.Lock()
	s.state.Draft.FilePaths = append([]string(nil), paths...)
	s.commit()
}

// ParseFilePaths splits a comma-separated list of paths, trimming each and
// dropping empty entries
func ParseFilePaths(field string) []string {
	paths := []string{}
	for _, p := range strings.Split(field, ",") {
		if p = strings.TrimSpace(p); p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// ClearError dismisses the current error
func (s *Store) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.commit()
}

type sendRequest struct {
	epoch          uint64
	history        []string
	filePaths      []string
	conversationID string
}

// SubmitMessage appends the draft as a user message and sends the
// conversation to the backend. The user message is appended before this
// method returns; the reply is applied in the background and the returned
// channel yields the outcome once. Blank drafts and concurrent calls are
// rejected without any state change.
func (s *Store) SubmitMessage(ctx context.Context) (<-chan error, error) {
	s.mu.Lock()
	text := strings.TrimSpace(s.state.Draft.Text)
	if text == "" {
		s.mu.Unlock()
		return nil, apierrors.WrapPrecondition(ErrEmptyDraft)
	}
	if s.busy {
		s.mu.Unlock()
		return nil, apierrors.WrapPrecondition(ErrBusy)
	}

	s.state.Messages = append(s.state.Messages, models.Message{
		Text:       text,
		Sender:     models.SenderUser,
		CodeBlocks: []models.CodeBlockRef{},
	})
	paths := s.state.Draft.FilePaths
	if paths == nil {
		paths = []string{}
	}
	s.state.Draft = Draft{}
	s.lastPaths = paths
	req := s.beginSendLocked(paths)
	s.commit()

	return s.dispatch(ctx, req), nil
}

// RetryLast re-sends the conversation when the last message is a user
// message whose reply failed. No message is appended.
func (s *Store) RetryLast(ctx context.Context) (<-chan error, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, apierrors.WrapPrecondition(ErrBusy)
	}
	if !s.state.CanRetry() {
		s.mu.Unlock()
		return nil, apierrors.WrapPrecondition(ErrNothingToRetry)
	}
	paths := append([]string{}, s.lastPaths...)
	req := s.beginSendLocked(paths)
	s.commit()

	return s.dispatch(ctx, req), nil
}

// beginSendLocked marks a send in flight and captures its request
func (s *Store) beginSendLocked(paths []string) sendRequest {
	s.busy = true
	s.state.Loading = true
	s.state.Error = ""
	return sendRequest{
		epoch:          s.epoch,
		history:        models.Texts(s.state.Messages),
		filePaths:      paths,
		conversationID: s.state.ConversationID,
	}
}

func (s *Store) dispatch(ctx context.Context, req sendRequest) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- s.send(ctx, req)
	}()
	return done
}

func (s *Store) send(ctx context.Context, req sendRequest) error {
	res, err := s.transport.SendMessage(ctx, req.history, req.filePaths, req.conversationID)

	s.mu.Lock()
	if s.staleLocked(req.epoch, req.conversationID) {
		s.mu.Unlock()
		log.Debug().Str("conversation_id", req.conversationID).Msg("discarding stale reply")
		return ErrStaleResponse
	}

	s.busy = false
	s.state.Loading = false

	if err != nil {
		s.state.Error = apierrors.Message(err)
		s.commit()
		return err
	}

	cleaned, refs := ExtractCodeBlocks(res.AIResponse, s.blocks)
	s.blocks += len(refs)
	s.state.Messages = append(s.state.Messages, models.Message{
		Text:       cleaned,
		Sender:     models.SenderAssistant,
		CodeBlocks: refs,
	})

	if s.state.ConversationID == "" && res.ConversationID != "" {
		s.state.ConversationID = res.ConversationID
		s.persist(res.ConversationID)
		log.Debug().Str("conversation_id", res.ConversationID).Msg("conversation bound")
	}
	s.commit()
	return nil
}

// staleLocked reports whether a completion captured at epoch for
// conversationID no longer applies
func (s *Store) staleLocked(epoch uint64, conversationID string) bool {
	if epoch != s.epoch {
		return true
	}
	return conversationID != "" && conversationID != s.state.ConversationID
}

// beginReplaceLocked marks a load or start in flight
func (s *Store) beginReplaceLocked() (uint64, error) {
	if s.busy {
		return 0, apierrors.WrapPrecondition(ErrBusy)
	}
	s.busy = true
	s.state.Loading = true
	s.state.Error = ""
	return s.epoch, nil
}

// replaceLocked swaps in a new session and invalidates in-flight work
func (s *Store) replaceLocked(id string, messages []models.Message, summary, path string) {
	s.epoch++
	s.blocks = 0
	s.lastPaths = nil
	s.state.ConversationID = id
	s.state.Messages = messages
	s.state.Summary = summary
	s.state.ProjectFolderPath = path
	s.persist(id)
}

// LoadConversation replaces the session with a stored conversation. On
// failure the previous session is left untouched and the error is recorded.
func (s *Store) LoadConversation(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apierrors.WrapPrecondition(ErrNoConversation)
	}

	s.mu.Lock()
	epoch, err := s.beginReplaceLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.commit()

	loaded, err := s.transport.LoadConversation(ctx, id)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return ErrStaleResponse
	}
	s.busy = false
	s.state.Loading = false

	if err != nil {
		s.state.Error = apierrors.Message(err)
		s.commit()
		return err
	}

	messages := make([]models.Message, len(loaded.Messages))
	for i, m := range loaded.Messages {
		messages[i] = models.Message{
			Text:       m.Text,
			Sender:     m.Sender,
			CodeBlocks: []models.CodeBlockRef{},
		}
	}
	s.replaceLocked(id, messages, loaded.Summary, loaded.ProjectFolderPath)
	log.Debug().Str("conversation_id", id).Int("messages", len(messages)).Msg("conversation loaded")
	s.commit()
	return nil
}

// StartNewConversation asks the backend for a new conversation and switches
// to it. The current session is kept until the new id is confirmed.
func (s *Store) StartNewConversation(ctx context.Context) error {
	s.mu.Lock()
	epoch, err := s.beginReplaceLocked()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.commit()

	id, err := s.transport.StartConversation(ctx)

	s.mu.Lock()
	if epoch != s.epoch {
		s.mu.Unlock()
		return ErrStaleResponse
	}
	s.busy = false
	s.state.Loading = false

	if err == nil && strings.TrimSpace(id) == "" {
		err = apierrors.NewParseError("empty conversation id", "conversation_id")
	}
	if err != nil {
		s.state.Error = apierrors.Message(err)
		s.commit()
		return err
	}

	s.replaceLocked(id, []models.Message{}, "", "")
	log.Debug().Str("conversation_id", id).Msg("conversation started")
	s.commit()
	return nil
}

// Reset drops the local session without contacting the backend and clears
// the persisted id. Replies still in flight are discarded when they arrive.
func (s *Store) Reset() {
	s.mu.Lock()
	s.epoch++
	s.blocks = 0
	s.lastPaths = nil
	s.busy = false
	s.state = State{Messages: []models.Message{}, Draft: s.state.Draft}
	if s.slot != nil {
		if err := s.slot.Clear(); err != nil {
			log.Warn().Err(err).Msg("failed to clear persisted conversation id")
		}
	}
	s.commit()
}

// AnalyzeProject asks a question about the project bound to the active
// conversation. It never touches the message list. Failures come back as
// "Error: <reason>".
func (s *Store) AnalyzeProject(ctx context.Context, question string) string {
	id := s.Snapshot().ConversationID
	if id == "" {
		return NoActiveConversationMessage
	}
	resp, err := s.transport.AnalyzeProject(ctx, id, question)
	if err != nil {
		return "Error: " + apierrors.Message(err)
	}
	return resp
}

// FetchFilePaths asks which project files relate to a feature request
func (s *Store) FetchFilePaths(ctx context.Context, featureRequest string) string {
	id := s.Snapshot().ConversationID
	if id == "" {
		return NoActiveConversationMessage
	}
	resp, err := s.transport.GetFilePaths(ctx, featureRequest, id)
	if err != nil {
		return "Error: " + apierrors.Message(err)
	}
	return resp
}

// CodeBlock resolves a code block by message and block index
func (s *Store) CodeBlock(msgIndex, blockIndex int) (models.CodeBlockRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msgIndex < 0 || msgIndex >= len(s.state.Messages) {
		return models.CodeBlockRef{}, ErrNoCodeBlock
	}
	blocks := s.state.Messages[msgIndex].CodeBlocks
	if blockIndex < 0 || blockIndex >= len(blocks) {
		return models.CodeBlockRef{}, ErrNoCodeBlock
	}
	return blocks[blockIndex], nil
}

// BlockLocation locates one extracted code block in the message list
type BlockLocation struct {
	MessageIndex int
	BlockIndex   int
	Block        models.CodeBlockRef
}

// CodeBlocks lists every extracted code block in display order
func (s *Store) CodeBlocks() []BlockLocation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []BlockLocation
	for mi, m := range s.state.Messages {
		for bi, b := range m.CodeBlocks {
			out = append(out, BlockLocation{MessageIndex: mi, BlockIndex: bi, Block: b})
		}
	}
	return out
}
