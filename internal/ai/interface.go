package ai

import "context"

// MenuParser turns free-form menu text into structured items. A parse failure
// is an expected, per-call error: the caller surfaces it and imports nothing.
type MenuParser interface {
	ParseMenuText(ctx context.Context, rawText string) (*MenuParseResult, error)
}
