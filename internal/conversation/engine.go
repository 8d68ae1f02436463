package conversation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"gardenDesignAi/internal/events"
	"gardenDesignAi/internal/intent"
	"gardenDesignAi/internal/lexicon"
	"gardenDesignAi/internal/llm"
	"gardenDesignAi/internal/media"
	"gardenDesignAi/internal/metrics"
	"gardenDesignAi/internal/prompts"
	"gardenDesignAi/internal/vision"
)

const (
	chatTemperature      = 0.7
	redispatchMinRunes   = 5
	defaultHistoryLimit  = 40
	renderKindInitial    = "initial"
	renderKindRefinement = "refine"
)

// ReplyKind tells a transport how to present a reply.
type ReplyKind string

// Reply kinds.
const (
	ReplyText  ReplyKind = "text"
	ReplyImage ReplyKind = "image"
	ReplyError ReplyKind = "error"
)

// Reply is one message emitted to the user.
type Reply struct {
	Kind     ReplyKind `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Image    *Image    `json:"-"`
	ImageURL string    `json:"image_url,omitempty"`
}

// Attachment is a file sent with a user message.
type Attachment struct {
	Name string
	MIME string
	Data []byte
}

// Inbound is one user message. Only the first attachment carrying data is used.
type Inbound struct {
	Text        string
	Attachments []Attachment
}

// EngineConfig tunes the engine.
type EngineConfig struct {
	Lighting     string
	HistoryLimit int
}

// Deps are the collaborators of the Engine. Publisher, Events and Metrics are optional.
type Deps struct {
	Chat        llm.Client
	Analyzer    vision.Analyzer
	Renderer    vision.Renderer
	Interpreter intent.Interpreter
	Publisher   media.Uploader
	Events      *events.Broker
	Metrics     *metrics.Recorder
	Logger      *zap.Logger
	Config      EngineConfig
	// ConfigErr, when set, is reported instead of running any transition.
	ConfigErr error
}

// Engine runs conversation transitions. It holds no per-session state, so one Engine serves
// every session.
type Engine struct {
	chat        llm.Client
	analyzer    vision.Analyzer
	renderer    vision.Renderer
	interpreter intent.Interpreter
	publisher   media.Uploader
	events      *events.Broker
	metrics     *metrics.Recorder
	logger      *zap.Logger
	cfg         EngineConfig
	configErr   error
}

// NewEngine wires an Engine from its dependencies.
func NewEngine(deps Deps) *Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	return &Engine{
		chat:        deps.Chat,
		analyzer:    deps.Analyzer,
		renderer:    deps.Renderer,
		interpreter: deps.Interpreter,
		publisher:   deps.Publisher,
		events:      deps.Events,
		metrics:     deps.Metrics,
		logger:      logger,
		cfg:         cfg,
		configErr:   deps.ConfigErr,
	}
}

// Start greets the user and waits for a photo, or reports the configuration error.
func (e *Engine) Start(_ context.Context, s *Session) []Reply {
	if e.configErr != nil {
		e.logger.Error("session started with invalid configuration", zap.String("session_id", s.ID), zap.Error(e.configErr))
		return []Reply{errorReply(fmt.Sprintf(msgConfigError, e.configErr))}
	}
	e.transition(s, StateWaitingImage)
	return []Reply{textReply(msgWelcome)}
}

// Handle runs exactly one transition for the inbound message. Failures are reported as replies
// and leave the session in the step that failed.
func (e *Engine) Handle(ctx context.Context, s *Session, in Inbound) []Reply {
	e.metrics.Message(string(s.State))
	s.UpdatedAt = time.Now().UTC()

	if e.configErr != nil {
		return []Reply{errorReply(fmt.Sprintf(msgConfigError, e.configErr))}
	}
	if s.State == StateWelcome {
		e.transition(s, StateWaitingImage)
	}

	if att, ok := firstAttachment(in.Attachments); ok {
		return e.handleUpload(ctx, s, att, in.Text)
	}
	return e.dispatch(ctx, s, strings.TrimSpace(in.Text))
}

// Discard removes published renders of a session that is going away.
func (e *Engine) Discard(ctx context.Context, s *Session) {
	if e.publisher != nil {
		for _, key := range s.Published {
			if err := e.publisher.Delete(ctx, key); err != nil && !errors.Is(err, media.ErrUploaderDisabled) {
				e.logger.Warn("failed to delete published render", zap.String("session_id", s.ID), zap.String("key", key), zap.Error(err))
			}
		}
	}
	s.Published = nil
	e.events.Publish(events.Event{SessionID: s.ID, State: string(s.State), Kind: events.KindDiscarded})
}

func (e *Engine) dispatch(ctx context.Context, s *Session, text string) []Reply {
	switch s.State {
	case StateWaitingImage, StateAnalyzing:
		return []Reply{textReply(msgUploadFirst)}
	}
	if text == "" {
		return []Reply{textReply(msgEmptyMessage)}
	}

	switch s.State {
	case StateCollectingStyle:
		return e.handleStyle(ctx, s, text)
	case StateCollectingElements:
		return e.handleElements(ctx, s, text)
	case StateReadyToGenerate:
		return e.handleReady(ctx, s, text)
	case StateGenerated:
		if lexicon.IsRestartTrigger(text) {
			return e.generate(ctx, s)
		}
		return e.refine(ctx, s, text)
	default:
		return e.converse(ctx, s, text)
	}
}

func (e *Engine) handleUpload(ctx context.Context, s *Session, att Attachment, text string) []Reply {
	logger := e.sessionLogger(s)
	previous := s.State
	e.transition(s, StateAnalyzing)

	mime := vision.DetectMIME(att.Data, att.MIME)
	analysis, err := e.analyzer.Analyze(ctx, att.Data, mime)
	if err != nil {
		logger.Error("garden analysis failed", zap.Error(err))
		e.transition(s, previous)
		e.events.Publish(events.Event{SessionID: s.ID, State: string(s.State), Kind: events.KindFailed, Detail: err.Error()})
		return []Reply{errorReply(fmt.Sprintf(msgAnalysisError, err))}
	}

	s.resetDesign()
	s.Images.setUpload(newImage(att.Data, mime))
	s.Analysis = &analysis
	s.PreserveExtra.Add(analysis.Preserve...)
	e.transition(s, StateCollectingStyle)
	logger.Info("photo analysed", zap.Int("bytes", len(att.Data)), zap.Int("preserve_items", len(analysis.Preserve)))

	replies := []Reply{textReply(analysisText(analysis)), textReply(msgStyleMenu)}
	if text = strings.TrimSpace(text); utf8.RuneCountInString(text) > redispatchMinRunes {
		replies = append(replies, e.dispatch(ctx, s, text)...)
	}
	return replies
}

func (e *Engine) handleStyle(ctx context.Context, s *Session, text string) []Reply {
	style, ok := lexicon.MatchStyle(text)
	if !ok {
		return e.converse(ctx, s, text)
	}
	s.Style = style.Tag
	e.transition(s, StateCollectingElements)
	return []Reply{textReply(fmt.Sprintf(msgStyleChosen, style.Label))}
}

func (e *Engine) handleElements(ctx context.Context, s *Session, text string) []Reply {
	res, err := e.interpret(ctx, s, text)
	if err != nil {
		return []Reply{errorReply(fmt.Sprintf(msgInterpretFail, err))}
	}
	s.UserDescription = text
	merge(s, res)

	var replies []Reply
	if len(res.OutOfScope) > 0 {
		replies = append(replies, textReply(fmt.Sprintf(msgOutOfScope, strings.Join(res.OutOfScope, ", "))))
	}
	if s.ElementsToAdd.Len() == 0 {
		return append(replies, textReply(msgNoElements))
	}
	e.transition(s, StateReadyToGenerate)
	return append(replies, textReply(summaryText(s)))
}

// handleReady renders on a trigger word and otherwise merges the new text into the element
// lists before asking for confirmation again.
func (e *Engine) handleReady(ctx context.Context, s *Session, text string) []Reply {
	if lexicon.IsGenerateTrigger(text) {
		return e.generate(ctx, s)
	}
	res, err := e.interpret(ctx, s, text)
	if err != nil {
		return []Reply{errorReply(fmt.Sprintf(msgInterpretFail, err))}
	}
	s.UserDescription = strings.TrimSpace(s.UserDescription + "\n" + text)
	merge(s, res)

	var replies []Reply
	if len(res.OutOfScope) > 0 {
		replies = append(replies, textReply(fmt.Sprintf(msgOutOfScope, strings.Join(res.OutOfScope, ", "))))
	}
	if s.ElementsToAdd.Len() == 0 {
		e.transition(s, StateCollectingElements)
		return append(replies, textReply(msgNoElements))
	}
	return append(replies, textReply(summaryText(s)))
}

func (e *Engine) interpret(ctx context.Context, s *Session, text string) (intent.Result, error) {
	res, err := e.interpreter.Interpret(ctx, text, s.Style)
	switch {
	case err != nil:
		e.metrics.Interpretation("error")
		e.sessionLogger(s).Error("interpretation failed", zap.Error(err))
		return intent.Result{}, err
	case res.Degraded:
		e.metrics.Interpretation("degraded")
		e.sessionLogger(s).Warn("interpretation answer unusable, using raw text")
	default:
		e.metrics.Interpretation("ok")
	}
	return res, nil
}

// merge folds a result into the session lists. Newer intent overrides older: a newly requested
// item leaves the exclusions and a newly excluded item leaves the additions.
func merge(s *Session, res intent.Result) {
	for _, item := range res.Elements {
		s.ElementsToExclude.RemoveFunc(func(x string) bool { return intent.SameItem(x, item) })
	}
	for _, item := range res.Excluded {
		s.ElementsToAdd.RemoveFunc(func(x string) bool { return intent.SameItem(x, item) })
	}
	for _, item := range res.Existing {
		s.ElementsToAdd.RemoveFunc(func(x string) bool { return intent.SameItem(x, item) })
		s.ElementsToExclude.RemoveFunc(func(x string) bool { return intent.SameItem(x, item) })
	}
	s.ElementsToAdd.Add(res.Elements...)
	s.ElementsToExclude.Add(res.Excluded...)
}

func (e *Engine) generate(ctx context.Context, s *Session) []Reply {
	if s.Images.Uploaded.Empty() {
		e.sessionLogger(s).Warn("render requested without upload", zap.Error(ErrNoUpload))
		return []Reply{textReply(msgNoUpload)}
	}

	directive := prompts.BuildDirective(prompts.DirectiveInput{
		Style:         s.Style,
		Include:       s.ElementsToAdd.Items(),
		Exclude:       s.ElementsToExclude.Items(),
		PreserveExtra: s.PreserveExtra.Items(),
		Lighting:      e.cfg.Lighting,
		Request:       s.UserDescription,
	})

	started := time.Now()
	img, err := e.renderer.Render(ctx, vision.RenderRequest{
		Image:  s.Images.Uploaded.Data,
		MIME:   s.Images.Uploaded.MIME,
		Prompt: directive.Prompt(),
	})
	e.metrics.Render(renderKindInitial, started, err)
	if err != nil {
		e.sessionLogger(s).Error("render failed", zap.Error(err))
		e.events.Publish(events.Event{SessionID: s.ID, State: string(s.State), Kind: events.KindFailed, Detail: err.Error()})
		return []Reply{errorReply(fmt.Sprintf(msgRenderFailed, err))}
	}

	s.Images.Current = newImage(img.Data, img.MIME)
	if s.State == StateGenerated {
		e.events.Publish(events.Event{SessionID: s.ID, State: string(s.State), Kind: events.KindRendered, Detail: renderKindInitial})
	}
	e.transition(s, StateGenerated)
	e.sessionLogger(s).Info("render completed",
		zap.String("style", directive.StyleTag),
		zap.Int("include", len(directive.Include)),
		zap.Int("forbidden", len(directive.Forbidden)),
		zap.Duration("took", time.Since(started)))

	return []Reply{e.imageReply(ctx, s, msgRenderCaption), textReply(msgAfterRender)}
}

func (e *Engine) refine(ctx context.Context, s *Session, feedback string) []Reply {
	if s.Images.Current.Empty() {
		e.sessionLogger(s).Warn("refinement requested without render", zap.Error(ErrNoRender))
		return []Reply{textReply(msgNoRender)}
	}

	started := time.Now()
	img, err := e.renderer.Render(ctx, vision.RenderRequest{
		Image:  s.Images.Current.Data,
		MIME:   s.Images.Current.MIME,
		Prompt: prompts.RefinePrompt(feedback),
	})
	e.metrics.Render(renderKindRefinement, started, err)
	if err != nil {
		e.sessionLogger(s).Error("refinement failed", zap.Error(err))
		e.events.Publish(events.Event{SessionID: s.ID, State: string(s.State), Kind: events.KindFailed, Detail: err.Error()})
		return []Reply{errorReply(fmt.Sprintf(msgRefineFailed, err))}
	}

	s.Images.Current = newImage(img.Data, img.MIME)
	e.events.Publish(events.Event{SessionID: s.ID, State: string(s.State), Kind: events.KindRendered, Detail: renderKindRefinement})
	return []Reply{e.imageReply(ctx, s, msgRefineCaption)}
}

// converse answers free text with the chat model. The system instruction is the first turn of
// every history.
func (e *Engine) converse(ctx context.Context, s *Session, text string) []Reply {
	if len(s.History) == 0 {
		s.History = append(s.History, llm.ChatMessage{Role: llm.RoleSystem, Content: prompts.ChatSystemPrompt()})
	}
	s.History = append(s.History, llm.ChatMessage{Role: llm.RoleUser, Content: text})

	answer, err := e.chat.ChatCompletion(ctx, s.History, chatTemperature)
	if err != nil {
		s.History = s.History[:len(s.History)-1]
		e.sessionLogger(s).Error("chat failed", zap.Error(err))
		return []Reply{errorReply(fmt.Sprintf(msgChatFail, err))}
	}

	s.History = append(s.History, llm.ChatMessage{Role: llm.RoleAssistant, Content: answer})
	s.History = trimHistory(s.History, e.cfg.HistoryLimit)
	return []Reply{textReply(answer)}
}

// trimHistory keeps the system turn and the newest limit-1 turns.
func trimHistory(history []llm.ChatMessage, limit int) []llm.ChatMessage {
	if len(history) <= limit || limit < 2 {
		return history
	}
	excess := len(history) - limit
	trimmed := make([]llm.ChatMessage, 0, limit)
	trimmed = append(trimmed, history[0])
	return append(trimmed, history[1+excess:]...)
}

func (e *Engine) imageReply(ctx context.Context, s *Session, caption string) Reply {
	img := s.Images.Current
	reply := Reply{Kind: ReplyImage, Text: caption, Image: &img}
	if e.publisher == nil {
		return reply
	}
	res, err := e.publisher.Upload(ctx, media.UploadInput{
		Filename:    "garden-rendering" + extensionFor(img.MIME),
		ContentType: img.MIME,
		Body:        bytes.NewReader(img.Data),
		Size:        int64(len(img.Data)),
	})
	switch {
	case errors.Is(err, media.ErrUploaderDisabled):
	case err != nil:
		e.sessionLogger(s).Warn("failed to publish render", zap.Error(err))
	default:
		s.Published = append(s.Published, res.Key)
		reply.ImageURL = res.URL
	}
	return reply
}

func (e *Engine) transition(s *Session, next State) {
	if s.State == next {
		return
	}
	e.sessionLogger(s).Debug("state transition", zap.String("from", string(s.State)), zap.String("to", string(next)))
	s.State = next
	kind := events.KindState
	if next == StateGenerated {
		kind = events.KindRendered
	}
	e.events.Publish(events.Event{SessionID: s.ID, State: string(next), Kind: kind})
}

func (e *Engine) sessionLogger(s *Session) *zap.Logger {
	return e.logger.With(zap.String("session_id", s.ID), zap.String("state", string(s.State)))
}

func firstAttachment(atts []Attachment) (Attachment, bool) {
	for _, att := range atts {
		if len(att.Data) > 0 {
			return att, true
		}
	}
	return Attachment{}, false
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func textReply(text string) Reply {
	return Reply{Kind: ReplyText, Text: text}
}

func errorReply(text string) Reply {
	return Reply{Kind: ReplyError, Text: text}
}
