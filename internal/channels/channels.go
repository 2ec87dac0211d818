package channels

import "context"

// Descriptions the Bot API uses for outcomes that are not real failures.
const (
	DescriptionNotModified    = "Bad Request: message is not modified"
	DescriptionEditNotFound   = "Bad Request: message to edit not found"
	DescriptionDeleteNotFound = "Bad Request: message to delete not found"
)

type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Markup is an inline keyboard. An empty keyboard removes any buttons.
type Markup struct {
	InlineKeyboard [][]Button `json:"inline_keyboard"`
}

func EmptyMarkup() Markup {
	return Markup{InlineKeyboard: [][]Button{}}
}

func SingleButton(text string, url string) Markup {
	return Markup{InlineKeyboard: [][]Button{{{Text: text, URL: url}}}}
}

type Response struct {
	OK          bool
	Description string
	MessageID   int64 // set by Create
}

func (r Response) NotModified() bool {
	return !r.OK && r.Description == DescriptionNotModified
}

func (r Response) NotFound() bool {
	return !r.OK && (r.Description == DescriptionEditNotFound || r.Description == DescriptionDeleteNotFound)
}

// Publisher posts and maintains offer messages in one channel.
// A returned error means the call never got an answer; the caller treats it as a failed call.
type Publisher interface {
	Name() string
	Create(ctx context.Context, text string, markup Markup, silent bool) (Response, error)
	UpdateText(ctx context.Context, messageID int64, text string, markup Markup) (Response, error)
	UpdateMarkup(ctx context.Context, messageID int64, markup Markup) (Response, error)
	Delete(ctx context.Context, messageID int64) (Response, error)
}

// MemberCounter is implemented by publishers that can report the channel audience.
type MemberCounter interface {
	MemberCount(ctx context.Context) (int, error)
}

type Registry struct {
	byName map[string]Publisher
}

func NewRegistry(pubs ...Publisher) Registry {
	m := make(map[string]Publisher, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		m[p.Name()] = p
	}
	return Registry{byName: m}
}

func (r Registry) Get(name string) (Publisher, bool) {
	if r.byName == nil {
		return nil, false
	}
	p, ok := r.byName[name]
	return p, ok
}
