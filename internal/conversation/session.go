// Package conversation walks a garden design session from photo upload to rendering.
package conversation

import (
	"errors"
	"sync"
	"time"

	"gardenDesignAi/internal/llm"
	"gardenDesignAi/internal/orderedset"
	"gardenDesignAi/internal/vision"
)

// State is a step of the conversation.
type State string

// Conversation states, in the order a session normally walks them.
const (
	StateWelcome            State = "welcome"
	StateWaitingImage       State = "waiting_image"
	StateAnalyzing          State = "analyzing"
	StateCollectingStyle    State = "collecting_style"
	StateCollectingElements State = "collecting_elements"
	StateReadyToGenerate    State = "ready_to_generate"
	StateGenerated          State = "generated"
)

// DefaultPreserveExtra is preserved in every render on top of the house baseline.
const DefaultPreserveExtra = "existing mature trees worth keeping"

var (
	// ErrNoUpload means a render was requested before any photo was uploaded.
	ErrNoUpload = errors.New("conversation: no uploaded image")
	// ErrNoRender means a refinement was requested before any render exists.
	ErrNoRender = errors.New("conversation: no rendered image to refine")
)

// Image is an owned image buffer.
type Image struct {
	Data []byte
	MIME string
}

// Empty reports whether the buffer holds no bytes.
func (i Image) Empty() bool {
	return len(i.Data) == 0
}

func newImage(data []byte, mime string) Image {
	owned := make([]byte, len(data))
	copy(owned, data)
	return Image{Data: owned, MIME: mime}
}

// Images keeps the photos of one session. Original is the first upload and never changes.
type Images struct {
	Uploaded Image
	Original Image
	Current  Image
}

func (i *Images) setUpload(img Image) {
	i.Uploaded = img
	if i.Original.Empty() {
		i.Original = img
	}
}

// Session is the state of one conversation. Only the Engine mutates it, and callers sharing a
// session across goroutines serialize access through Store.Do.
type Session struct {
	ID                string
	State             State
	Images            Images
	Style             string
	ElementsToAdd     *orderedset.Set
	ElementsToExclude *orderedset.Set
	UserDescription   string
	PreserveExtra     *orderedset.Set
	Analysis          *vision.Analysis
	History           []llm.ChatMessage
	Published         []string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	mu           sync.Mutex
	lastActivity time.Time
}

// NewSession returns a session in the welcome state.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:                id,
		State:             StateWelcome,
		ElementsToAdd:     orderedset.New(),
		ElementsToExclude: orderedset.New(),
		PreserveExtra:     orderedset.New(DefaultPreserveExtra),
		CreatedAt:         now,
		UpdatedAt:         now,
		lastActivity:      now,
	}
}

// resetDesign clears everything a new photo invalidates. The original upload is kept.
func (s *Session) resetDesign() {
	s.Style = ""
	s.ElementsToAdd.Clear()
	s.ElementsToExclude.Clear()
	s.UserDescription = ""
	s.PreserveExtra = orderedset.New(DefaultPreserveExtra)
	s.Analysis = nil
	s.Images.Current = Image{}
}

// Snapshot is the JSON view of a session.
type Snapshot struct {
	ID                string    `json:"id"`
	State             State     `json:"state"`
	Style             string    `json:"style,omitempty"`
	ElementsToAdd     []string  `json:"elements_to_add"`
	ElementsToExclude []string  `json:"elements_to_exclude"`
	PreserveExtra     []string  `json:"preserve_extra"`
	UserDescription   string    `json:"user_description,omitempty"`
	AnalysisSummary   string    `json:"analysis_summary,omitempty"`
	HasUpload         bool      `json:"has_upload"`
	HasRender         bool      `json:"has_render"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// Snapshot copies the user-visible fields.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		ID:                s.ID,
		State:             s.State,
		Style:             s.Style,
		ElementsToAdd:     nonNil(s.ElementsToAdd.Items()),
		ElementsToExclude: nonNil(s.ElementsToExclude.Items()),
		PreserveExtra:     nonNil(s.PreserveExtra.Items()),
		UserDescription:   s.UserDescription,
		HasUpload:         !s.Images.Uploaded.Empty(),
		HasRender:         !s.Images.Current.Empty(),
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
	if s.Analysis != nil {
		snap.AnalysisSummary = s.Analysis.Summary
	}
	return snap
}

// Image returns the image of the given kind: uploaded, original or current.
func (s *Session) Image(kind string) (Image, bool) {
	var img Image
	switch kind {
	case "uploaded":
		img = s.Images.Uploaded
	case "original":
		img = s.Images.Original
	case "current":
		img = s.Images.Current
	default:
		return Image{}, false
	}
	return img, !img.Empty()
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
